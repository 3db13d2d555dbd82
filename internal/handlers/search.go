package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/gebeya/marketplace/internal/logging"
	"github.com/gebeya/marketplace/internal/service/search"
	"github.com/gebeya/marketplace/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

// Search queries the product text index. Public.
func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.products")

	q := c.QueryParam("q")
	if q == "" {
		return respondError(c, http.StatusBadRequest, "Query parameter q is required")
	}
	if h.ES == nil {
		return respondError(c, http.StatusServiceUnavailable, "Search is not available")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	limit := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	from, limit := util.Calculate(page, limit)

	total, products, err := search.Search(ctx, h.ES, h.Index, q, from, limit)
	if err != nil {
		l.Error("search_error", "status", 500, "error", err)
		return respondError(c, http.StatusInternalServerError, "Server error while searching products")
	}

	return respond(c, http.StatusOK, "", map[string]any{
		"products": products,
		"pagination": map[string]any{
			"currentPage":   page,
			"totalPages":    util.TotalPages(total, limit),
			"totalProducts": total,
		},
	})
}
