package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gebeya/marketplace/internal/logging"
	"github.com/gebeya/marketplace/internal/models"
	"github.com/gebeya/marketplace/internal/service/order"
	"github.com/gebeya/marketplace/internal/util"
)

// AdminHandler serves the dashboard read-model: fresh aggregate queries,
// no caching, stale reads acceptable.
type AdminHandler struct {
	DB  *gorm.DB
	Svc *order.Service
}

type dashboardStats struct {
	TotalUsers       int64   `json:"totalUsers"`
	TotalWholesalers int64   `json:"totalWholesalers"`
	TotalCustomers   int64   `json:"totalCustomers"`
	TotalProducts    int64   `json:"totalProducts"`
	ActiveProducts   int64   `json:"activeProducts"`
	TotalOrders      int64   `json:"totalOrders"`
	PendingOrders    int64   `json:"pendingOrders"`
	TotalRevenue     float64 `json:"totalRevenue"`
}

type topProduct struct {
	ProductID  uint   `json:"productId"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	OrderCount int64  `json:"orderCount"`
}

// Stats computes the dashboard aggregates: user counts by role, product
// and order counts, delivered revenue, recent orders, and the top products
// by order line frequency.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.stats")
	db := h.DB.WithContext(ctx)

	var stats dashboardStats
	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, db.Model(&models.User{})},
		{&stats.TotalWholesalers, db.Model(&models.User{}).Where("role = ?", models.RoleWholesaler)},
		{&stats.TotalCustomers, db.Model(&models.User{}).Where("role = ?", models.RoleCustomer)},
		{&stats.TotalProducts, db.Model(&models.Product{})},
		{&stats.ActiveProducts, db.Model(&models.Product{}).Where("is_active = ?", true)},
		{&stats.TotalOrders, db.Model(&models.Order{})},
		{&stats.PendingOrders, db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending)},
	}
	for _, cnt := range counts {
		if err := cnt.query.Count(cnt.dest).Error; err != nil {
			l.Error("stats_error", "status", 500, "error", err)
			return respondError(c, http.StatusInternalServerError, "Server error while fetching admin statistics")
		}
	}

	// Revenue counts delivered orders only.
	if err := db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusDelivered).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		l.Error("stats_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching admin statistics")
	}

	var recentOrders []models.Order
	if err := db.Model(&models.Order{}).
		Preload("Customer").
		Preload("Wholesaler").
		Order("created_at DESC, id DESC").
		Limit(5).
		Find(&recentOrders).Error; err != nil {
		l.Error("stats_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching admin statistics")
	}

	var topProducts []topProduct
	if err := db.Table("order_items").
		Select("order_items.product_id AS product_id, products.name AS name, products.category AS category, COUNT(*) AS order_count").
		Joins("JOIN products ON products.id = order_items.product_id").
		Group("order_items.product_id, products.name, products.category").
		Order("order_count DESC").
		Limit(5).
		Scan(&topProducts).Error; err != nil {
		l.Error("stats_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching admin statistics")
	}

	return respond(c, http.StatusOK, "", map[string]any{
		"stats":        stats,
		"recentOrders": recentOrders,
		"topProducts":  topProducts,
	})
}

// Orders pages through all orders across the system, optionally filtered
// by status.
func (h *AdminHandler) Orders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.orders")

	page, err := h.Svc.List(ctx, order.ListFilter{
		Status: c.QueryParam("status"),
		Page:   parseIntDefault(c.QueryParam("page"), 1),
		Limit:  parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize),
	})
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

// ApproveWholesaler flips a wholesaler's verification flag.
func (h *AdminHandler) ApproveWholesaler(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.approve_wholesaler")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid user id")
	}

	var req struct {
		IsVerified *bool `json:"isVerified"`
	}
	if err := c.Bind(&req); err != nil || req.IsVerified == nil {
		return respondError(c, http.StatusBadRequest, "isVerified is required")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, http.StatusNotFound, "User not found")
		}
		l.Error("approve_wholesaler_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while updating wholesaler status")
	}

	if user.Role != models.RoleWholesaler {
		return respondError(c, http.StatusBadRequest, "User is not a wholesaler")
	}

	if err := h.DB.WithContext(ctx).Model(&user).Update("is_verified", *req.IsVerified).Error; err != nil {
		l.Error("approve_wholesaler_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while updating wholesaler status")
	}

	msg := "Wholesaler rejected successfully"
	if *req.IsVerified {
		msg = "Wholesaler approved successfully"
	}
	l.Info("approve_wholesaler_success", "user_id", user.ID, "is_verified", *req.IsVerified)
	return respond(c, http.StatusOK, msg, map[string]any{"user": user})
}
