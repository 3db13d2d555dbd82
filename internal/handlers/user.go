package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gebeya/marketplace/internal/logging"
	authmw "github.com/gebeya/marketplace/internal/middleware/auth"
	"github.com/gebeya/marketplace/internal/models"
	"github.com/gebeya/marketplace/internal/util"
)

type UserHandler struct {
	DB *gorm.DB
}

// GetUsers lists users for the admin surface, with optional role filter
// and name/email/business search.
func (h *UserHandler) GetUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.get_users")

	page := parseIntDefault(c.QueryParam("page"), 1)
	limit := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, limit)

	scoped := func(q *gorm.DB) *gorm.DB {
		if role := c.QueryParam("role"); role != "" {
			q = q.Where("role = ?", role)
		}
		if search := c.QueryParam("search"); search != "" {
			like := "%" + search + "%"
			q = q.Where("name LIKE ? OR email LIKE ? OR business_name LIKE ?", like, like, like)
		}
		return q
	}

	var total int64
	if err := scoped(h.DB.WithContext(ctx).Model(&models.User{})).Count(&total).Error; err != nil {
		l.Error("get_users_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching users")
	}

	var users []models.User
	if err := scoped(h.DB.WithContext(ctx).Model(&models.User{})).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error; err != nil {
		l.Error("get_users_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching users")
	}

	return respond(c, http.StatusOK, "", map[string]any{
		"users": users,
		"pagination": map[string]any{
			"currentPage": page,
			"totalPages":  util.TotalPages(total, limit),
			"totalUsers":  total,
		},
	})
}

// GetUser returns one user record: self, or any user for admins.
func (h *UserHandler) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	caller := authmw.CurrentUser(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid user id")
	}

	if !authmw.Owns(caller, uint(id)) {
		return respondError(c, http.StatusForbidden, "Not authorized to view this profile")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, http.StatusNotFound, "User not found")
		}
		return respondError(c, http.StatusInternalServerError, "Server error while fetching user")
	}

	return respond(c, http.StatusOK, "", map[string]any{"user": user})
}

// UpdateUserStatus toggles a user's active flag. Admin only.
func (h *UserHandler) UpdateUserStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.update_status")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid user id")
	}

	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return respondError(c, http.StatusBadRequest, "isActive is required")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, http.StatusNotFound, "User not found")
		}
		l.Error("update_status_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while updating user status")
	}

	if err := h.DB.WithContext(ctx).Model(&user).Update("is_active", *req.IsActive).Error; err != nil {
		l.Error("update_status_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while updating user status")
	}

	msg := "User deactivated successfully"
	if *req.IsActive {
		msg = "User activated successfully"
	}
	l.Info("update_status_success", "user_id", user.ID, "is_active", *req.IsActive)
	return respond(c, http.StatusOK, msg, map[string]any{"user": user})
}
