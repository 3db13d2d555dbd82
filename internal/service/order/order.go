// Package order implements the order creation workflow: cart validation
// against the catalog, price snapshotting, and the post-creation inventory
// decrement.
package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gebeya/marketplace/internal/logging"
	"github.com/gebeya/marketplace/internal/models"
)

var (
	ErrEmptyCart          = errors.New("empty cart")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrBelowMinimumOrder  = errors.New("below minimum order")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrMixedWholesaler    = errors.New("mixed wholesaler cart")
	ErrOrderNotFound      = errors.New("order not found")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

type Service struct {
	DB *gorm.DB
}

type CartLine struct {
	ProductID uint `json:"product"`
	Quantity  uint `json:"quantity"`
}

type CreateInput struct {
	Items           []CartLine
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	Notes           string
}

// Create validates the cart line by line in input order, snapshots unit
// prices into the order items, persists the order with status pending, and
// only then decrements inventory. A decrement that fails after the order
// exists is logged and left as-is: there is no cross-store transaction here,
// and no compensating rollback.
func (s *Service) Create(ctx context.Context, customerID uint, in CreateInput) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create", "customer_id", customerID)

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrEmptyCart)
	}

	var (
		totalAmount  float64
		orderItems   []models.OrderItem
		wholesalerID uint
	)

	for _, line := range in.Items {
		var product models.Product
		if err := s.DB.WithContext(ctx).First(&product, line.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product with ID %d not found", ErrProductNotFound, line.ProductID)
			}
			return nil, err
		}

		if !product.IsActive {
			return nil, fmt.Errorf("%w: product %s is not available", ErrProductUnavailable, product.Name)
		}
		if line.Quantity < product.MinimumOrder {
			return nil, fmt.Errorf("%w: minimum order for %s is %d %s", ErrBelowMinimumOrder, product.Name, product.MinimumOrder, product.Unit)
		}
		if line.Quantity > product.AvailableQuantity {
			return nil, fmt.Errorf("%w: only %d %s available for %s", ErrInsufficientStock, product.AvailableQuantity, product.Unit, product.Name)
		}

		// All items in one order must come from a single wholesaler.
		if wholesalerID != 0 && wholesalerID != product.WholesalerID {
			return nil, fmt.Errorf("%w: all products in an order must be from the same wholesaler", ErrMixedWholesaler)
		}
		wholesalerID = product.WholesalerID

		lineTotal := product.Price * float64(line.Quantity)
		totalAmount += lineTotal

		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			LineTotal: lineTotal,
		})
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	order := &models.Order{
		CustomerID:      customerID,
		WholesalerID:    wholesalerID,
		Items:           orderItems,
		TotalAmount:     totalAmount,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   paymentMethod,
		Status:          models.OrderStatusPending,
		Notes:           in.Notes,
	}

	if err := s.DB.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}

	// The conditional guard keeps available_quantity from going negative
	// when two orders race on the same product.
	for _, item := range order.Items {
		res := s.DB.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND available_quantity >= ?", item.ProductID, item.Quantity).
			UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", item.Quantity))
		if res.Error != nil {
			l.Error("inventory_decrement_failed", "order_id", order.ID, "product_id", item.ProductID, "error", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			l.Warn("inventory_decrement_skipped", "order_id", order.ID, "product_id", item.ProductID, "reason", "stock changed concurrently")
		}
	}

	return s.Get(ctx, order.ID)
}

// Get returns an order with customer, wholesaler and product summaries
// resolved for display.
func (s *Service) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("Customer").
		Preload("Wholesaler").
		Preload("Items.Product").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
		}
		return nil, err
	}
	return &order, nil
}

// statusRank orders the forward progression of an order. Cancelled sits
// outside the chain and is handled separately.
var statusRank = map[string]int{
	models.OrderStatusPending:    0,
	models.OrderStatusProcessing: 1,
	models.OrderStatusShipped:    2,
	models.OrderStatusDelivered:  3,
}

// UpdateStatus moves an order along pending < processing < shipped <
// delivered. Forward jumps are allowed; regressions are not. Any order that
// is not yet delivered and not already cancelled may be cancelled.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, newStatus string, caller *models.User) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
		}
		return nil, err
	}

	if order.WholesalerID != caller.ID && caller.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: not authorized to update this order", ErrNotAuthorized)
	}

	if newStatus == models.OrderStatusCancelled {
		if order.Status == models.OrderStatusDelivered || order.Status == models.OrderStatusCancelled {
			return nil, fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, order.Status)
		}
	} else {
		if order.Status == models.OrderStatusCancelled {
			return nil, fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
		}
		if statusRank[newStatus] < statusRank[order.Status] {
			return nil, fmt.Errorf("%w: cannot move order from %s back to %s", ErrInvalidTransition, order.Status, newStatus)
		}
	}

	if err := s.DB.WithContext(ctx).Model(&order).Update("status", newStatus).Error; err != nil {
		return nil, err
	}

	return s.Get(ctx, orderID)
}

type ListFilter struct {
	CustomerID   uint
	WholesalerID uint
	Status       string
	Page         int
	Limit        int
}

type Page struct {
	Orders      []models.Order `json:"orders"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int64          `json:"totalPages"`
	TotalOrders int64          `json:"totalOrders"`
}

// List returns a page of orders, newest first, scoped by the filter's owner
// fields (zero means unscoped, which only the admin surface uses).
func (s *Service) List(ctx context.Context, f ListFilter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}

	scoped := func(q *gorm.DB) *gorm.DB {
		if f.CustomerID != 0 {
			q = q.Where("customer_id = ?", f.CustomerID)
		}
		if f.WholesalerID != 0 {
			q = q.Where("wholesaler_id = ?", f.WholesalerID)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		return q
	}

	var total int64
	if err := scoped(s.DB.WithContext(ctx).Model(&models.Order{})).Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (f.Page - 1) * f.Limit
	var orders []models.Order
	err := scoped(s.DB.WithContext(ctx).Model(&models.Order{})).
		Preload("Customer").
		Preload("Wholesaler").
		Preload("Items.Product").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return &Page{
		Orders:      orders,
		CurrentPage: f.Page,
		TotalPages:  (total + int64(f.Limit) - 1) / int64(f.Limit),
		TotalOrders: total,
	}, nil
}
