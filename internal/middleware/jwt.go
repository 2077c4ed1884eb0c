package middleware // package middleware contains reusable HTTP middleware functions

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fundoo/notes-api/internal/auth"
	"github.com/fundoo/notes-api/internal/repository"
)

// JWTAuth returns an Echo middleware that resolves the Authorization
// header to a verified user before any business logic runs. The token
// must carry the login audience and its subject must exist in the user
// store; on success the numeric user id is stored in the context under
// "user_id". This is the same resolution the fetch-user endpoint exposes
// over HTTP, done as a local call.
func JWTAuth(tokens *auth.Service, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"message": "authorization token is missing",
					"status":  http.StatusUnauthorized,
				})
			}
			// Clients may send the bare token without the scheme prefix.
			raw = strings.TrimPrefix(raw, "Bearer ")

			uid, err := tokens.Verify(raw, auth.AudienceLogin)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"message": "user authentication failed",
					"status":  http.StatusUnauthorized,
				})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			if _, err := users.GetByID(ctx, uid); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"message": "user authentication failed",
						"status":  http.StatusUnauthorized,
					})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"message": "load user failed",
					"status":  http.StatusInternalServerError,
				})
			}

			c.Set("user_id", uid)
			return next(c)
		}
	}
}
