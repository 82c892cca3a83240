package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/mkorchagin/product-catalog/internal/handlers"
	"github.com/mkorchagin/product-catalog/internal/middleware"
)

type Deps struct {
	DB             *gorm.DB
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
	TaskHandler    *handlers.TaskHandler
	JWTSecret      []byte
	UploadDir      string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	e.Static("/uploads", d.UploadDir)

	e.POST("/register", d.AuthHandler.Register, perMinute(5))
	e.POST("/token", d.AuthHandler.Login, perMinute(10))

	products := e.Group("/products", middleware.RequireAuth(d.JWTSecret))

	products.GET("", d.ProductHandler.GetProducts)
	products.POST("", d.ProductHandler.CreateProduct)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.PUT("/:id", d.ProductHandler.UpdateProduct)
	products.PATCH("/:id/favorite", d.ProductHandler.SetFavorite)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct)

	e.GET("/start-task", d.TaskHandler.StartTask)
	e.GET("/task-status/:id", d.TaskHandler.TaskStatus)
}

// perMinute limits a route to n requests per minute per client address,
// answering 429 beyond the cap.
func perMinute(n int) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(n) / 60.0),
			Burst:     n,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}
