// Package router wires HTTP routes to handlers. Unauthenticated routes
// (health, register/login/refresh/logout) live outside the JWT group;
// everything that touches boxes, items or media requires a valid access
// token.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/romastokriceri/mystorage/internal/config"
	"github.com/romastokriceri/mystorage/internal/handler"
	"github.com/romastokriceri/mystorage/internal/middleware"
)

// Handlers collects every handler the router needs.
type Handlers struct {
	Auth   *handler.AuthHandler
	Boxes  *handler.BoxHandler
	Items  *handler.ItemHandler
	Upload *handler.UploadHandler
}

// Register sets up all routes, the JWT middleware and the optional
// response cache on the provided Echo instance. uploadDir is served
// statically under /uploads so stored media references resolve.
func Register(e *echo.Echo, h Handlers, cfg config.Config, cacheCfg config.CacheConfig, rdb *redis.Client, uploadDir string) {
	e.Use(echomw.Recover())
	e.GET("/healthz", handler.Health)
	e.Static("/uploads", uploadDir)

	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	// Cache runs after auth so the per-user key sees the actor id.
	v1.Use(middleware.ResponseCache(cacheCfg, rdb))

	v1.GET("/me", h.Auth.Me)

	v1.GET("/boxes", h.Boxes.ListBoxes)
	v1.POST("/boxes", h.Boxes.CreateBox)
	v1.GET("/boxes/:id", h.Boxes.GetBox)
	v1.PUT("/boxes/:id", h.Boxes.UpdateBox)
	v1.PATCH("/boxes/:id", h.Boxes.UpdateBox)
	v1.DELETE("/boxes/:id", h.Boxes.DeleteBox)
	v1.POST("/boxes/:id/share", h.Boxes.ShareBox)
	v1.DELETE("/boxes/:id/share/:user_id", h.Boxes.UnshareBox)
	v1.GET("/boxes/:id/shares", h.Boxes.ListShares)

	v1.GET("/items", h.Items.ListItems)
	v1.POST("/items", h.Items.CreateItem)
	v1.GET("/items/:id", h.Items.GetItem)
	v1.PUT("/items/:id", h.Items.UpdateItem)
	v1.PATCH("/items/:id", h.Items.UpdateItem)
	v1.DELETE("/items/:id", h.Items.DeleteItem)

	v1.POST("/upload", h.Upload.Upload)
}
