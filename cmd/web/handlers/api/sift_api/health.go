package sift_api

import "github.com/labstack/echo/v4"

// Env reports which external dependencies are configured. The probe exposes
// presence only, never values.
type Env map[string]bool

// HandleHealth answers the liveness probe.
func HandleHealth(env Env) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status": "alive",
			"env":    env,
		})
	}
}
