package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fundoo/notes-api/internal/auth"
	"github.com/fundoo/notes-api/internal/config"
	"github.com/fundoo/notes-api/internal/handler"
	"github.com/fundoo/notes-api/internal/middleware"
	"github.com/fundoo/notes-api/internal/repository"
)

// Register wires every route of the service. Unauthenticated user
// endpoints live under /api/v1/users; everything note- and label-related
// sits behind the JWT gateway. The token-bucket limiter guards only the
// credential endpoints.
func Register(
	e *echo.Echo,
	users *handler.UserHandler,
	notes *handler.NoteHandler,
	labels *handler.LabelHandler,
	tokens *auth.Service,
	userRepo *repository.UserRepo,
	rlCfg config.RateLimitConfig,
	rdb *redis.Client,
) {
	e.Use(middleware.Metrics())

	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limited := middleware.NewTokenBucket(rlCfg, rdb)

	u := e.Group("/api/v1/users")
	u.POST("/register", users.Register, limited)
	u.POST("/login", users.Login, limited)
	u.GET("/verify", users.Verify)
	u.POST("/forgot-password", users.ForgotPassword, limited)
	u.POST("/reset-password", users.ResetPassword)
	// Internal resolution endpoint for out-of-process gateways.
	u.GET("/fetch", users.FetchUser)

	api := e.Group("/api/v1", middleware.JWTAuth(tokens, userRepo))

	api.POST("/notes", notes.Create)
	api.GET("/notes", notes.List)
	api.GET("/notes/archived", notes.ListArchived)
	api.GET("/notes/trashed", notes.ListTrashed)
	api.PUT("/notes/:id", notes.Update)
	api.DELETE("/notes/:id", notes.Delete)
	api.PATCH("/notes/:id/archive", notes.Archive)
	api.PATCH("/notes/:id/trash", notes.Trash)

	api.POST("/labels", labels.Create)
	api.GET("/labels", labels.List)
	api.PUT("/labels/:id", labels.Update)
	api.DELETE("/labels/:id", labels.Delete)

	api.POST("/notes/:id/labels/:label_id", labels.Attach)
	api.DELETE("/notes/:id/labels/:label_id", labels.Detach)
}
