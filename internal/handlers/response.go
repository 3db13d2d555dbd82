package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gebeya/marketplace/internal/validation"
)

// Every response body carries the same envelope: a success flag, a
// human-readable message, and optional data. Validation failures add the
// per-field issue list.
type envelope struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Data    interface{}             `json:"data,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

func respond(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, envelope{Success: true, Message: message, Data: data})
}

func respondError(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Success: false, Message: message})
}

func respondValidation(c echo.Context, errs []validation.FieldError) error {
	return c.JSON(http.StatusBadRequest, envelope{Success: false, Message: "Validation failed", Errors: errs})
}
