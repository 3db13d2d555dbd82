package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gebeya/marketplace/internal/handlers"
	authmw "github.com/gebeya/marketplace/internal/middleware/auth"
	"github.com/gebeya/marketplace/internal/models"
)

type Deps struct {
	Auth           *authmw.Middleware
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	OrderHandler   *handlers.OrderHandler
	UserHandler    *handlers.UserHandler
	AdminHandler   *handlers.AdminHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/me", d.AuthHandler.Me, d.Auth.RequireAuth)
	auth.PUT("/profile", d.AuthHandler.UpdateProfile, d.Auth.RequireAuth)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/my/products", d.ProductHandler.MyProducts, d.Auth.RequireAuth, d.Auth.RequireRoles(models.RoleWholesaler))
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, d.Auth.RequireAuth, d.Auth.RequireRoles(models.RoleWholesaler))
	products.PUT("/:id", d.ProductHandler.UpdateProduct, d.Auth.RequireAuth, d.Auth.RequireRoles(models.RoleWholesaler, models.RoleAdmin))
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, d.Auth.RequireAuth, d.Auth.RequireRoles(models.RoleWholesaler, models.RoleAdmin))

	orders := api.Group("/orders", d.Auth.RequireAuth)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("/my-orders", d.OrderHandler.MyOrders)
	orders.GET("/wholesaler-orders", d.OrderHandler.WholesalerOrders, d.Auth.RequireRoles(models.RoleWholesaler))
	orders.PUT("/:id/status", d.OrderHandler.UpdateStatus)

	users := api.Group("/users", d.Auth.RequireAuth)
	users.GET("", d.UserHandler.GetUsers, d.Auth.RequireRoles(models.RoleAdmin))
	users.GET("/:id", d.UserHandler.GetUser)
	users.PUT("/:id/status", d.UserHandler.UpdateUserStatus, d.Auth.RequireRoles(models.RoleAdmin))

	admin := api.Group("/admin", d.Auth.RequireAuth, d.Auth.RequireRoles(models.RoleAdmin))
	admin.GET("/stats", d.AdminHandler.Stats)
	admin.GET("/orders", d.AdminHandler.Orders)
	admin.PUT("/wholesalers/:id/approve", d.AdminHandler.ApproveWholesaler)
}
