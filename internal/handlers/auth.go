package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gebeya/marketplace/internal/hash"
	"github.com/gebeya/marketplace/internal/logging"
	authmw "github.com/gebeya/marketplace/internal/middleware/auth"
	"github.com/gebeya/marketplace/internal/models"
	"github.com/gebeya/marketplace/internal/mykafka"
	"github.com/gebeya/marketplace/internal/tokens"
	"github.com/gebeya/marketplace/internal/validation"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicUserEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "topic", mykafka.TopicUserEvents, "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req validation.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if errs := validation.ValidateRegistration(req); len(errs) > 0 {
		l.Warn("register_error", "status", 400, "reason", "validation failed")
		return respondValidation(c, errs)
	}

	var existing models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("register_error", "status", 500, "error", err)
			return respondError(c, http.StatusInternalServerError, "Server error during registration")
		}
	} else {
		l.Warn("register_error", "status", 409, "reason", "email taken")
		return respondError(c, http.StatusConflict, "User with this email already exists")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash password", "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error during registration")
	}

	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}

	user := models.User{
		Name:            strings.TrimSpace(req.Name),
		Email:           req.Email,
		PasswordHash:    pwHash,
		Role:            role,
		Phone:           req.Phone,
		BusinessName:    req.BusinessName,
		BusinessAddress: req.BusinessAddress,
		IsActive:        true,
	}
	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error during registration")
	}

	token, err := tokens.SignAccessToken(user.ID, user.Role, h.JWTSecret)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot sign token", "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error during registration")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
		"role":   user.Role,
	})

	l.Info("register_success", "user_id", user.ID, "role", user.Role)
	return respond(c, http.StatusCreated, "User registered successfully", map[string]any{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req validation.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if errs := validation.ValidateLogin(req); len(errs) > 0 {
		return respondValidation(c, errs)
	}

	// A wrong email and a wrong password produce the same answer.
	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401)
			return respondError(c, http.StatusUnauthorized, "Invalid credentials")
		}
		l.Error("login_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error during login")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401)
		return respondError(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !user.IsActive {
		l.Warn("login_failed", "status", 401, "reason", "deactivated")
		return respondError(c, http.StatusUnauthorized, "User account is deactivated")
	}

	token, err := tokens.SignAccessToken(user.ID, user.Role, h.JWTSecret)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot sign token", "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error during login")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("login_success", "user_id", user.ID)
	return respond(c, http.StatusOK, "Login successful", map[string]any{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user := authmw.CurrentUser(c)
	return respond(c, http.StatusOK, "", map[string]any{"user": user})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.update_profile")
	user := authmw.CurrentUser(c)

	// Role and email are immutable here; only contact and business info
	// can change.
	var req struct {
		Name            *string `json:"name"`
		Phone           *string `json:"phone"`
		BusinessName    *string `json:"businessName"`
		BusinessAddress *string `json:"businessAddress"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("update_profile_error", "status", 400, "reason", "invalid body", "error", err)
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 2 || len(name) > 50 {
			return respondValidation(c, []validation.FieldError{{Field: "name", Message: "Name must be between 2 and 50 characters"}})
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.BusinessName != nil {
		user.BusinessName = *req.BusinessName
	}
	if req.BusinessAddress != nil {
		user.BusinessAddress = *req.BusinessAddress
	}

	if err := h.DB.WithContext(ctx).Save(user).Error; err != nil {
		l.Error("update_profile_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while updating profile")
	}

	l.Info("update_profile_success", "user_id", user.ID)
	return respond(c, http.StatusOK, "Profile updated successfully", map[string]any{"user": user})
}
