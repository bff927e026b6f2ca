package sift_api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/sift/internal/sift"
)

// HandleCreatePlaceholder inserts the optimistic pending record a client
// creates before submitting the real work. The returned id is echoed back on
// the eventual submission so the pipeline completes the row in place.
func HandleCreatePlaceholder(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			URL    string `json:"url"`
			UserID string `json:"user_id"`
		}
		if err := c.Bind(&req); err != nil {
			return fail(c, 400, "invalid json")
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			return fail(c, 400, "url is required")
		}
		if req.UserID == "" {
			return fail(c, 400, "user_id is required")
		}

		record, err := store.InsertSift(c.Request().Context(), nil, sift.NewPlaceholder(req.URL, req.UserID))
		if err != nil {
			slog.Error("failed to insert placeholder", "owner", req.UserID, "url", req.URL, "error", err)
			return fail(c, 500, "failed to create placeholder")
		}

		return success(c, record)
	}
}
