package sift_api

import (
	"errors"
	"html/template"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/sift/cmd/web/handlers/common"
	"thirdcoast.systems/sift/internal/db"
	"thirdcoast.systems/sift/pkg/utils/markdown"
)

type siftDetail struct {
	*db.Sift
	// SummaryHTML is the sanitized rendering of the markdown summary, for
	// consumers that cannot render markdown themselves.
	SummaryHTML template.HTML `json:"summary_html"`
}

// HandleGet returns one record with its summary rendered to sanitized HTML.
func HandleGet(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := db.ParseUUID(c.Param("id"))
		if !id.Valid {
			return common.ErrBadRequest("invalid id")
		}
		ownerID := strings.TrimSpace(c.QueryParam("user_id"))
		if ownerID == "" {
			return common.ErrBadRequest("user_id is required")
		}

		record, err := store.SelectSiftByID(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrNotFound("sift not found")
			}
			slog.Error("failed to load sift", "id", c.Param("id"), "error", err)
			return common.ErrInternal("failed to load sift")
		}
		// Records are private to their owner.
		if record.OwnerID != ownerID {
			return common.ErrNotFound("sift not found")
		}

		md, err := markdown.NewMarkdown(record.Summary)
		if err != nil {
			return common.ErrInternal("failed to render summary")
		}

		return success(c, siftDetail{Sift: record, SummaryHTML: md.Render()})
	}
}
