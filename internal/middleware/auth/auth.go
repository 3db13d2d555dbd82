// Package auth carries the credential check applied to every protected
// endpoint and the role gates layered on top of it.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gebeya/marketplace/internal/logging"
	"github.com/gebeya/marketplace/internal/models"
	"github.com/gebeya/marketplace/internal/tokens"
)

const userContextKey = "user"

type Middleware struct {
	DB        *gorm.DB
	JWTSecret []byte
}

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RequireAuth resolves the caller from the bearer token and re-confirms the
// referenced user still exists and is active. 401 on any failure.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "require_auth")

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return c.JSON(http.StatusUnauthorized, failure{Message: "No token, authorization denied"})
		}

		userID, _, err := tokens.ParseAccessToken(raw, m.JWTSecret)
		if err != nil {
			l.Warn("auth_failed", "status", 401, "reason", "invalid token", "error", err)
			return c.JSON(http.StatusUnauthorized, failure{Message: "Token is not valid"})
		}

		var user models.User
		if err := m.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON(http.StatusUnauthorized, failure{Message: "User no longer exists"})
			}
			l.Error("auth_failed", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, failure{Message: "Server error"})
		}
		if !user.IsActive {
			return c.JSON(http.StatusUnauthorized, failure{Message: "User account is deactivated"})
		}

		c.Set(userContextKey, &user)
		return next(c)
	}
}

// RequireRoles gates an endpoint to callers whose role is in the allowed
// set. Must run after RequireAuth. 403 on violation.
func (m *Middleware) RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return c.JSON(http.StatusUnauthorized, failure{Message: "No token, authorization denied"})
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, failure{Message: "Not authorized to access this resource"})
		}
	}
}

// CurrentUser returns the caller resolved by RequireAuth, or nil.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

// SetCurrentUser injects a caller directly, bypassing token verification.
// Handler tests use it in place of the full middleware chain.
func SetCurrentUser(c echo.Context, u *models.User) {
	c.Set(userContextKey, u)
}

// Owns is the ownership predicate shared by the update/delete surfaces:
// the caller either owns the resource or is an admin.
func Owns(caller *models.User, ownerID uint) bool {
	return caller != nil && (caller.ID == ownerID || caller.Role == models.RoleAdmin)
}
