package order

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gebeya/marketplace/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}))

	return &Service{DB: db}
}

func seedWholesaler(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{
		Name:         "Wholesaler " + email,
		Email:        email,
		PasswordHash: "irrelevant",
		Role:         models.RoleWholesaler,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedCustomer(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := &models.User{
		Name:         "Customer",
		Email:        "customer@example.com",
		PasswordHash: "irrelevant",
		Role:         models.RoleCustomer,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, wholesalerID uint, name string, price float64, minOrder, qty uint) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:              name,
		Description:       "Test listing for " + name,
		Category:          "grains",
		Price:             price,
		Unit:              "kg",
		MinimumOrder:      minOrder,
		AvailableQuantity: qty,
		WholesalerID:      wholesalerID,
		IsActive:          true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func availableQuantity(t *testing.T, db *gorm.DB, productID uint) uint {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.AvailableQuantity
}

func orderCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func TestCreate_SnapshotsPricesAndDecrementsStock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w := seedWholesaler(t, svc.DB, "w@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 10, 100)
	teff := seedProduct(t, svc.DB, w.ID, "Teff", 80, 5, 50)

	created, err := svc.Create(ctx, customer.ID, CreateInput{
		Items: []CartLine{
			{ProductID: rice.ID, Quantity: 20},
			{ProductID: teff.ID, Quantity: 5},
		},
		ShippingAddress: models.ShippingAddress{Street: "Bole Rd", City: "Addis Ababa"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, created.Status)
	assert.Equal(t, w.ID, created.WholesalerID)
	assert.Equal(t, customer.ID, created.CustomerID)
	assert.Equal(t, "cash", created.PaymentMethod)

	require.Len(t, created.Items, 2)
	assert.EqualValues(t, 10000, created.Items[0].LineTotal)
	assert.EqualValues(t, 500, created.Items[0].UnitPrice)
	assert.EqualValues(t, 400, created.Items[1].LineTotal)
	assert.EqualValues(t, 10400, created.TotalAmount)

	// Referenced entities resolved for display.
	require.NotNil(t, created.Customer)
	require.NotNil(t, created.Wholesaler)
	require.NotNil(t, created.Items[0].Product)
	assert.Equal(t, "Rice", created.Items[0].Product.Name)

	assert.EqualValues(t, 80, availableQuantity(t, svc.DB, rice.ID))
	assert.EqualValues(t, 45, availableQuantity(t, svc.DB, teff.ID))
}

func TestCreate_SnapshotSurvivesPriceChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w := seedWholesaler(t, svc.DB, "w@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 1, 100)

	created, err := svc.Create(ctx, customer.ID, CreateInput{
		Items: []CartLine{{ProductID: rice.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DB.Model(&models.Product{}).Where("id = ?", rice.ID).Update("price", 900).Error)

	reloaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 500, reloaded.Items[0].UnitPrice)
	assert.EqualValues(t, 1000, reloaded.TotalAmount)
}

func TestCreate_EmptyCart(t *testing.T) {
	svc := newTestService(t)

	customer := seedCustomer(t, svc.DB)

	_, err := svc.Create(context.Background(), customer.ID, CreateInput{})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.EqualValues(t, 0, orderCount(t, svc.DB))
}

func TestCreate_ProductNotFound(t *testing.T) {
	svc := newTestService(t)

	customer := seedCustomer(t, svc.DB)

	_, err := svc.Create(context.Background(), customer.ID, CreateInput{
		Items: []CartLine{{ProductID: 999, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestCreate_InactiveProduct(t *testing.T) {
	svc := newTestService(t)

	w := seedWholesaler(t, svc.DB, "w@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 1, 100)
	require.NoError(t, svc.DB.Model(&models.Product{}).Where("id = ?", rice.ID).Update("is_active", false).Error)

	_, err := svc.Create(context.Background(), customer.ID, CreateInput{
		Items: []CartLine{{ProductID: rice.ID, Quantity: 10}},
	})
	require.ErrorIs(t, err, ErrProductUnavailable)
	assert.EqualValues(t, 100, availableQuantity(t, svc.DB, rice.ID))
}

func TestCreate_BelowMinimumOrder(t *testing.T) {
	svc := newTestService(t)

	w := seedWholesaler(t, svc.DB, "w@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 10, 100)

	_, err := svc.Create(context.Background(), customer.ID, CreateInput{
		Items: []CartLine{{ProductID: rice.ID, Quantity: 5}},
	})
	require.ErrorIs(t, err, ErrBelowMinimumOrder)

	assert.EqualValues(t, 0, orderCount(t, svc.DB))
	assert.EqualValues(t, 100, availableQuantity(t, svc.DB, rice.ID))
}

func TestCreate_InsufficientStock(t *testing.T) {
	svc := newTestService(t)

	w := seedWholesaler(t, svc.DB, "w@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 1, 30)

	_, err := svc.Create(context.Background(), customer.ID, CreateInput{
		Items: []CartLine{{ProductID: rice.ID, Quantity: 40}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.EqualValues(t, 0, orderCount(t, svc.DB))
	assert.EqualValues(t, 30, availableQuantity(t, svc.DB, rice.ID))
}

func TestCreate_MixedWholesalerFailsWholeOrder(t *testing.T) {
	svc := newTestService(t)

	w1 := seedWholesaler(t, svc.DB, "w1@x.com")
	w2 := seedWholesaler(t, svc.DB, "w2@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w1.ID, "Rice", 500, 1, 100)
	teff := seedProduct(t, svc.DB, w2.ID, "Teff", 80, 1, 50)

	_, err := svc.Create(context.Background(), customer.ID, CreateInput{
		Items: []CartLine{
			{ProductID: rice.ID, Quantity: 10},
			{ProductID: teff.ID, Quantity: 10},
		},
	})
	require.ErrorIs(t, err, ErrMixedWholesaler)

	// No partial order, no inventory mutation.
	assert.EqualValues(t, 0, orderCount(t, svc.DB))
	assert.EqualValues(t, 100, availableQuantity(t, svc.DB, rice.ID))
	assert.EqualValues(t, 50, availableQuantity(t, svc.DB, teff.ID))
}

func TestCreate_RepeatedFailureIsIdempotent(t *testing.T) {
	svc := newTestService(t)

	w := seedWholesaler(t, svc.DB, "w@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 10, 100)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), customer.ID, CreateInput{
			Items: []CartLine{{ProductID: rice.ID, Quantity: 5}},
		})
		require.ErrorIs(t, err, ErrBelowMinimumOrder)
	}

	assert.EqualValues(t, 0, orderCount(t, svc.DB))
	assert.EqualValues(t, 100, availableQuantity(t, svc.DB, rice.ID))
}

func TestUpdateStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w := seedWholesaler(t, svc.DB, "w@x.com")
	other := seedWholesaler(t, svc.DB, "other@x.com")
	admin := &models.User{Name: "Admin", Email: "admin@x.com", PasswordHash: "x", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, svc.DB.Create(admin).Error)
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 1, 100)

	created, err := svc.Create(ctx, customer.ID, CreateInput{
		Items: []CartLine{{ProductID: rice.ID, Quantity: 10}},
	})
	require.NoError(t, err)

	t.Run("missing order", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, 9999, models.OrderStatusShipped, w)
		require.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, created.ID, "misplaced", w)
		require.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("foreign wholesaler rejected", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, created.ID, models.OrderStatusShipped, other)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("customer rejected", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, created.ID, models.OrderStatusShipped, customer)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("forward jump allowed", func(t *testing.T) {
		updated, err := svc.UpdateStatus(ctx, created.ID, models.OrderStatusShipped, w)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, updated.Status)
	})

	t.Run("regression rejected", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, created.ID, models.OrderStatusPending, w)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("admin may advance", func(t *testing.T) {
		updated, err := svc.UpdateStatus(ctx, created.ID, models.OrderStatusDelivered, admin)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusDelivered, updated.Status)
	})

	t.Run("delivered cannot be cancelled", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, created.ID, models.OrderStatusCancelled, w)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestList_PaginationAndScoping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w := seedWholesaler(t, svc.DB, "w@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 1, 1000)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, customer.ID, CreateInput{
			Items: []CartLine{{ProductID: rice.ID, Quantity: 10}},
		})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, ListFilter{CustomerID: customer.ID, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.EqualValues(t, 5, page.TotalOrders)
	assert.EqualValues(t, 3, page.TotalPages)

	// Last page carries the remainder.
	page, err = svc.List(ctx, ListFilter{CustomerID: customer.ID, Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)

	// Beyond the last page: empty list, counts intact.
	page, err = svc.List(ctx, ListFilter{CustomerID: customer.ID, Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.EqualValues(t, 5, page.TotalOrders)

	// Wholesaler scope sees the same orders from the other side.
	page, err = svc.List(ctx, ListFilter{WholesalerID: w.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 5)

	// A stranger's scope is empty.
	page, err = svc.List(ctx, ListFilter{CustomerID: customer.ID + 100, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.EqualValues(t, 0, page.TotalOrders)
}

func TestList_StatusFilter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w := seedWholesaler(t, svc.DB, "w@x.com")
	customer := seedCustomer(t, svc.DB)
	rice := seedProduct(t, svc.DB, w.ID, "Rice", 500, 1, 1000)

	first, err := svc.Create(ctx, customer.ID, CreateInput{Items: []CartLine{{ProductID: rice.ID, Quantity: 10}}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, customer.ID, CreateInput{Items: []CartLine{{ProductID: rice.ID, Quantity: 10}}})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, first.ID, models.OrderStatusShipped, w)
	require.NoError(t, err)

	page, err := svc.List(ctx, ListFilter{CustomerID: customer.ID, Status: models.OrderStatusShipped, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, first.ID, page.Orders[0].ID)
}
