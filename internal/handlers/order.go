package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gebeya/marketplace/internal/logging"
	authmw "github.com/gebeya/marketplace/internal/middleware/auth"
	"github.com/gebeya/marketplace/internal/models"
	"github.com/gebeya/marketplace/internal/mykafka"
	"github.com/gebeya/marketplace/internal/service/order"
	"github.com/gebeya/marketplace/internal/util"
)

type OrderHandler struct {
	Svc      *order.Service
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, orderID uint, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, fmt.Sprint(orderID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "topic", mykafka.TopicOrderEvents, "error", err)
	}
}

// CreateOrder runs the order workflow for the calling customer.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")
	caller := authmw.CurrentUser(c)

	var req struct {
		Items           []order.CartLine       `json:"items"`
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
		PaymentMethod   string                 `json:"paymentMethod"`
		Notes           string                 `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	created, err := h.Svc.Create(ctx, caller.ID, order.CreateInput{
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrProductNotFound):
			l.Warn("create_order_error", "status", 404, "error", err)
			return respondError(c, http.StatusNotFound, errMessage(err))
		case errors.Is(err, order.ErrEmptyCart),
			errors.Is(err, order.ErrProductUnavailable),
			errors.Is(err, order.ErrBelowMinimumOrder),
			errors.Is(err, order.ErrInsufficientStock),
			errors.Is(err, order.ErrMixedWholesaler):
			l.Warn("create_order_error", "status", 400, "error", err)
			return respondError(c, http.StatusBadRequest, errMessage(err))
		default:
			l.Error("create_order_error", "status", 500, "error", err)
			return respondError(c, http.StatusInternalServerError, "Server error while creating order")
		}
	}

	h.publish(c, created.ID, map[string]any{
		"type":         "order_created",
		"orderID":      created.ID,
		"customerID":   created.CustomerID,
		"wholesalerID": created.WholesalerID,
		"totalAmount":  created.TotalAmount,
	})

	l.Info("create_order_success", "order_id", created.ID, "total", created.TotalAmount)
	return respond(c, http.StatusCreated, "Order created successfully", map[string]any{"order": created})
}

// MyOrders pages through the calling customer's own order history.
func (h *OrderHandler) MyOrders(c echo.Context) error {
	caller := authmw.CurrentUser(c)
	return h.listScoped(c, order.ListFilter{CustomerID: caller.ID})
}

// WholesalerOrders pages through orders placed against the calling
// wholesaler.
func (h *OrderHandler) WholesalerOrders(c echo.Context) error {
	caller := authmw.CurrentUser(c)
	return h.listScoped(c, order.ListFilter{WholesalerID: caller.ID})
}

func (h *OrderHandler) listScoped(c echo.Context, f order.ListFilter) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	f.Status = c.QueryParam("status")
	f.Page = parseIntDefault(c.QueryParam("page"), 1)
	f.Limit = parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)

	page, err := h.Svc.List(ctx, f)
	if err != nil {
		l.Error("list_orders_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching orders")
	}

	return respond(c, http.StatusOK, "", map[string]any{
		"orders": page.Orders,
		"pagination": map[string]any{
			"currentPage": page.CurrentPage,
			"totalPages":  page.TotalPages,
			"totalOrders": page.TotalOrders,
		},
	})
}

// UpdateStatus transitions an order. Owning wholesaler or admin only.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")
	caller := authmw.CurrentUser(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid order id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	updated, err := h.Svc.UpdateStatus(ctx, uint(id), req.Status, caller)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			return respondError(c, http.StatusNotFound, "Order not found")
		case errors.Is(err, order.ErrNotAuthorized):
			l.Warn("update_status_error", "status", 403, "order_id", id, "caller_id", caller.ID)
			return respondError(c, http.StatusForbidden, "Not authorized to update this order")
		case errors.Is(err, order.ErrInvalidStatus), errors.Is(err, order.ErrInvalidTransition):
			l.Warn("update_status_error", "status", 400, "error", err)
			return respondError(c, http.StatusBadRequest, errMessage(err))
		default:
			l.Error("update_status_error", "status", 500, "error", err)
			return respondError(c, http.StatusInternalServerError, "Server error while updating order status")
		}
	}

	h.publish(c, updated.ID, map[string]any{
		"type":    "order_status_updated",
		"orderID": updated.ID,
		"status":  updated.Status,
	})

	l.Info("update_status_success", "order_id", updated.ID, "new_status", updated.Status)
	return respond(c, http.StatusOK, "Order status updated successfully", map[string]any{"order": updated})
}

// errMessage returns the user-facing detail behind the sentinel prefix.
func errMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}
