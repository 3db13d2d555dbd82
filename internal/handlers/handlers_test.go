package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gebeya/marketplace/internal/hash"
	authmw "github.com/gebeya/marketplace/internal/middleware/auth"
	"github.com/gebeya/marketplace/internal/models"
)

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB, name, email, role string) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword("Secret1pass")
	require.NoError(t, err)

	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createProduct(t *testing.T, db *gorm.DB, wholesalerID uint, name string, price float64, minOrder, qty uint) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:              name,
		Description:       "Wholesale listing for " + name,
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

// newRequest builds an echo context for a handler call. A non-nil payload is
// sent as the JSON body, and a non-nil caller is injected the way RequireAuth
// would have.
func newRequest(t *testing.T, method, target string, payload any, caller *models.User) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != nil {
		authmw.SetCurrentUser(c, caller)
	}
	return c, rec
}

type testEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()

	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func errorFields(env testEnvelope) []string {
	fields := make([]string, 0, len(env.Errors))
	for _, fe := range env.Errors {
		fields = append(fields, fe.Field)
	}
	return fields
}
