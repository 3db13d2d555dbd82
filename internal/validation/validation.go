// Package validation holds the per-entity field validators. They are plain
// functions over request payloads so the rules stay testable without any
// transport wiring.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gebeya/marketplace/internal/models"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	Phone           string `json:"phone"`
	BusinessName    string `json:"businessName"`
	BusinessAddress string `json:"businessAddress"`
}

func ValidateRegistration(req RegisterRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if len(name) < 2 || len(name) > 50 {
		errs = append(errs, FieldError{"name", "Name must be between 2 and 50 characters"})
	}

	if !emailRe.MatchString(req.Email) {
		errs = append(errs, FieldError{"email", "Please provide a valid email"})
	}

	errs = append(errs, validatePassword(req.Password)...)

	if req.Role != "" && req.Role != models.RoleCustomer && req.Role != models.RoleWholesaler {
		errs = append(errs, FieldError{"role", "Role must be either customer or wholesaler"})
	}

	return errs
}

func validatePassword(password string) []FieldError {
	var errs []FieldError
	if len(password) < 6 {
		errs = append(errs, FieldError{"password", "Password must be at least 6 characters long"})
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !lower || !upper || !digit {
		errs = append(errs, FieldError{"password", "Password must contain at least one uppercase letter, one lowercase letter, and one number"})
	}
	return errs
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func ValidateLogin(req LoginRequest) []FieldError {
	var errs []FieldError
	if !emailRe.MatchString(req.Email) {
		errs = append(errs, FieldError{"email", "Please provide a valid email"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{"password", "Password is required"})
	}
	return errs
}

type ProductRequest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Price             float64  `json:"price"`
	Unit              string   `json:"unit"`
	MinimumOrder      uint     `json:"minimumOrder"`
	AvailableQuantity uint     `json:"availableQuantity"`
	Images            []string `json:"images"`
	Location          string   `json:"location"`
	QualityGrade      string   `json:"qualityGrade"`
	Certifications    []string `json:"certifications"`
}

func ValidateProduct(req ProductRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if len(name) < 2 || len(name) > 100 {
		errs = append(errs, FieldError{"name", "Product name must be between 2 and 100 characters"})
	}

	desc := strings.TrimSpace(req.Description)
	if len(desc) < 10 || len(desc) > 1000 {
		errs = append(errs, FieldError{"description", "Description must be between 10 and 1000 characters"})
	}

	if !models.ValidCategory(req.Category) {
		errs = append(errs, FieldError{"category", fmt.Sprintf("Category must be one of: %s", strings.Join(models.Categories, ", "))})
	}

	if req.Price < 0 {
		errs = append(errs, FieldError{"price", "Price must be a positive number"})
	}

	if !models.ValidUnit(req.Unit) {
		errs = append(errs, FieldError{"unit", fmt.Sprintf("Unit must be one of: %s", strings.Join(models.Units, ", "))})
	}

	if req.MinimumOrder < 1 {
		errs = append(errs, FieldError{"minimumOrder", "Minimum order must be at least 1"})
	}

	return errs
}
