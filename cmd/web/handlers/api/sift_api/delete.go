package sift_api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/sift/cmd/web/handlers/common"
	"thirdcoast.systems/sift/internal/db"
)

// HandleDelete removes a record. The delete is owner-checked; a foreign or
// missing id both come back as 404.
func HandleDelete(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := db.ParseUUID(c.Param("id"))
		if !id.Valid {
			return common.ErrBadRequest("invalid id")
		}
		ownerID := strings.TrimSpace(c.QueryParam("user_id"))
		if ownerID == "" {
			return common.ErrBadRequest("user_id is required")
		}

		if err := store.DeleteSift(c.Request().Context(), id, ownerID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrNotFound("sift not found")
			}
			slog.Error("failed to delete sift", "id", c.Param("id"), "error", err)
			return common.ErrInternal("failed to delete sift")
		}

		return c.JSON(200, map[string]any{"status": "success"})
	}
}
