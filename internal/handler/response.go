package handler // handler defines http handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// Envelope is the JSON shape every endpoint returns: a human-readable
// message, the HTTP status repeated in the body, and optional data.
type Envelope struct {
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Message: message, Status: status, Data: data})
}

func fail(c echo.Context, status int, message string) error {
	return respond(c, status, message, nil)
}

// requesterID extracts the authenticated user id placed in the context by
// the JWTAuth middleware.
func requesterID(c echo.Context) (uint64, error) {
	if id, ok := c.Get("user_id").(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errors.New("no authenticated user in context")
}
