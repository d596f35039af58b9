package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports liveness. No dependencies are probed; the process being
// able to serve the route is the signal.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
