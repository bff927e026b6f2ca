package sift_api

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/sift/internal/db"
)

// HandleIndex lists an owner's records, newest first. A GET without a
// user_id is the health probe.
func HandleIndex(store Store, env Env) echo.HandlerFunc {
	health := HandleHealth(env)
	return func(c echo.Context) error {
		ownerID := strings.TrimSpace(c.QueryParam("user_id"))
		if ownerID == "" {
			return health(c)
		}

		limit := 0
		if raw := c.QueryParam("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fail(c, 400, "invalid limit")
			}
			limit = n
		}

		records, err := store.SelectSiftsByOwner(c.Request().Context(), ownerID, limit)
		if err != nil {
			slog.Error("failed to list sifts", "owner", ownerID, "error", err)
			return fail(c, 500, "failed to list sifts")
		}
		if records == nil {
			records = []*db.Sift{}
		}

		return success(c, records)
	}
}
