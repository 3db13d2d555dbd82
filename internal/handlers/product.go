package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gebeya/marketplace/internal/logging"
	authmw "github.com/gebeya/marketplace/internal/middleware/auth"
	"github.com/gebeya/marketplace/internal/models"
	"github.com/gebeya/marketplace/internal/mykafka"
	"github.com/gebeya/marketplace/internal/service/search"
	"github.com/gebeya/marketplace/internal/util"
	"github.com/gebeya/marketplace/internal/validation"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

// productView swaps the joined wholesaler record for its lightweight
// summary in list/detail responses.
type productView struct {
	models.Product
	Wholesaler *models.UserSummary `json:"wholesaler,omitempty"`
}

func viewOf(p models.Product) productView {
	v := productView{Product: p}
	if p.Wholesaler != nil {
		s := p.Wholesaler.Summary()
		s.Email = ""
		v.Wholesaler = &s
	}
	v.Product.Wholesaler = nil
	return v
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, fmt.Sprint(event["productID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "topic", mykafka.TopicProductEvents, "error", err)
	}
}

// index mirrors the catalog record into the text index, best-effort.
func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.ESIndex, p); err != nil {
		logging.FromContext(c.Request().Context()).Error("es_index_failed", "product_id", p.ID, "error", err)
	}
}

func (h *ProductHandler) unindex(c echo.Context, id uint) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.DeleteProduct(ctx, h.ES, h.ESIndex, id); err != nil {
		logging.FromContext(c.Request().Context()).Error("es_delete_failed", "product_id", id, "error", err)
	}
}

// GetProducts lists active products with wholesaler summaries. Public.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := parseIntDefault(c.QueryParam("page"), 1)
	limit := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, limit)

	scoped := func(q *gorm.DB) *gorm.DB {
		q = q.Where("is_active = ?", true)
		if cat := c.QueryParam("category"); cat != "" {
			q = q.Where("category = ?", cat)
		}
		return q
	}

	var total int64
	if err := scoped(h.DB.WithContext(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		l.Error("get_products_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching products")
	}

	var items []models.Product
	if err := scoped(h.DB.WithContext(ctx).Model(&models.Product{})).
		Preload("Wholesaler").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		l.Error("get_products_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching products")
	}

	views := make([]productView, len(items))
	for i, p := range items {
		views[i] = viewOf(p)
	}

	return respond(c, http.StatusOK, "", map[string]any{
		"products": views,
		"pagination": map[string]any{
			"currentPage":   page,
			"totalPages":    util.TotalPages(total, limit),
			"totalProducts": total,
		},
	})
}

// GetProduct returns one product with its wholesaler summary. Public.
func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid product id")
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).Preload("Wholesaler").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, http.StatusNotFound, "Product not found")
		}
		l.Error("get_product_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while fetching product")
	}

	return respond(c, http.StatusOK, "", map[string]any{"product": viewOf(product)})
}

// MyProducts lists the calling wholesaler's own catalog, inactive included.
func (h *ProductHandler) MyProducts(c echo.Context) error {
	ctx := c.Request().Context()
	caller := authmw.CurrentUser(c)

	page := parseIntDefault(c.QueryParam("page"), 1)
	limit := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, limit)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Product{}).Where("wholesaler_id = ?", caller.ID).Count(&total).Error; err != nil {
		return respondError(c, http.StatusInternalServerError, "Server error while fetching products")
	}

	var items []models.Product
	if err := h.DB.WithContext(ctx).
		Where("wholesaler_id = ?", caller.ID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return respondError(c, http.StatusInternalServerError, "Server error while fetching products")
	}

	return respond(c, http.StatusOK, "", map[string]any{
		"products": items,
		"pagination": map[string]any{
			"currentPage":   page,
			"totalPages":    util.TotalPages(total, limit),
			"totalProducts": total,
		},
	})
}

// CreateProduct persists a new listing owned by the calling wholesaler.
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")
	caller := authmw.CurrentUser(c)

	var req validation.ProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_error", "status", 400, "reason", "invalid body", "error", err)
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	if errs := validation.ValidateProduct(req); len(errs) > 0 {
		l.Warn("create_product_error", "status", 400, "reason", "validation failed")
		return respondValidation(c, errs)
	}

	product := models.Product{
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		Price:             req.Price,
		Unit:              req.Unit,
		MinimumOrder:      req.MinimumOrder,
		AvailableQuantity: req.AvailableQuantity,
		Images:            req.Images,
		WholesalerID:      caller.ID,
		Location:          req.Location,
		QualityGrade:      req.QualityGrade,
		Certifications:    req.Certifications,
		IsActive:          true,
	}
	if err := h.DB.WithContext(ctx).Create(&product).Error; err != nil {
		l.Error("create_product_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while creating product")
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
		"userID":    caller.ID,
	})
	h.index(c, &product)

	l.Info("create_product_success", "product_id", product.ID)
	return respond(c, http.StatusCreated, "Product created successfully", map[string]any{"product": product})
}

// UpdateProduct edits a listing. Owning wholesaler or admin only; the
// owning wholesaler reference itself is immutable.
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update_product")
	caller := authmw.CurrentUser(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid product id")
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, http.StatusNotFound, "Product not found")
		}
		l.Error("update_product_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while updating product")
	}

	if !authmw.Owns(caller, product.WholesalerID) {
		l.Warn("update_product_error", "status", 403, "product_id", product.ID, "caller_id", caller.ID)
		return respondError(c, http.StatusForbidden, "Not authorized to update this product")
	}

	var req struct {
		Name              *string   `json:"name"`
		Description       *string   `json:"description"`
		Category          *string   `json:"category"`
		Price             *float64  `json:"price"`
		Unit              *string   `json:"unit"`
		MinimumOrder      *uint     `json:"minimumOrder"`
		AvailableQuantity *uint     `json:"availableQuantity"`
		Images            *[]string `json:"images"`
		Location          *string   `json:"location"`
		QualityGrade      *string   `json:"qualityGrade"`
		Certifications    *[]string `json:"certifications"`
		IsActive          *bool     `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.MinimumOrder != nil {
		product.MinimumOrder = *req.MinimumOrder
	}
	if req.AvailableQuantity != nil {
		product.AvailableQuantity = *req.AvailableQuantity
	}
	if req.Images != nil {
		product.Images = *req.Images
	}
	if req.Location != nil {
		product.Location = *req.Location
	}
	if req.QualityGrade != nil {
		product.QualityGrade = *req.QualityGrade
	}
	if req.Certifications != nil {
		product.Certifications = *req.Certifications
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if errs := validation.ValidateProduct(validation.ProductRequest{
		Name:         product.Name,
		Description:  product.Description,
		Category:     product.Category,
		Price:        product.Price,
		Unit:         product.Unit,
		MinimumOrder: product.MinimumOrder,
	}); len(errs) > 0 {
		return respondValidation(c, errs)
	}

	if err := h.DB.WithContext(ctx).Save(&product).Error; err != nil {
		l.Error("update_product_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while updating product")
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
		"userID":    caller.ID,
	})
	h.index(c, &product)

	l.Info("update_product_success", "product_id", product.ID)
	return respond(c, http.StatusOK, "Product updated successfully", map[string]any{"product": product})
}

// DeleteProduct soft-deactivates a listing rather than removing the row;
// existing order items keep a resolvable reference.
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")
	caller := authmw.CurrentUser(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid product id")
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, http.StatusNotFound, "Product not found")
		}
		l.Error("delete_product_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while removing product")
	}

	if !authmw.Owns(caller, product.WholesalerID) {
		l.Warn("delete_product_error", "status", 403, "product_id", product.ID, "caller_id", caller.ID)
		return respondError(c, http.StatusForbidden, "Not authorized to remove this product")
	}

	if err := h.DB.WithContext(ctx).Model(&product).Update("is_active", false).Error; err != nil {
		l.Error("delete_product_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while removing product")
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": product.ID,
		"userID":    caller.ID,
	})
	h.unindex(c, product.ID)

	l.Info("delete_product_success", "product_id", product.ID)
	return respond(c, http.StatusOK, "Product removed successfully", nil)
}
