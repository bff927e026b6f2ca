package sift_api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/sift/internal/sift"
)

// HandleCreate runs a submission through the full pipeline. The response is
// always one of: success with the persisted record, limit_reached, a
// validation error, or the terminal double-persist failure.
func HandleCreate(pipeline Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Submission bodies may also carry a client-side metadata object;
		// the record's metadata bag is owned by the pipeline, so it is
		// accepted and ignored.
		var req struct {
			URL         string `json:"url"`
			ImageBase64 string `json:"image_base64"`
			UserID      string `json:"user_id"`
			ID          string `json:"id"`
			UserTier    string `json:"user_tier"`
		}
		if err := c.Bind(&req); err != nil {
			return fail(c, 400, "invalid json")
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.UserID == "" {
			return fail(c, 400, "user_id is required")
		}

		record, err := pipeline.PerformFullSift(c.Request().Context(), sift.Request{
			URL:         req.URL,
			ImageBase64: req.ImageBase64,
			OwnerID:     req.UserID,
			ExistingID:  req.ID,
			Tier:        req.UserTier,
		})
		if err != nil {
			var quotaErr *sift.QuotaError
			switch {
			case errors.Is(err, sift.ErrMissingInput):
				return fail(c, 400, "URL or Image is required")
			case errors.As(err, &quotaErr):
				return c.JSON(403, map[string]any{
					"status":      "limit_reached",
					"message":     quotaErr.Error(),
					"upgrade_url": quotaErr.UpgradeURL,
				})
			default:
				slog.Error("sift pipeline failed terminally", "owner", req.UserID, "url", req.URL, "error", err)
				return fail(c, 500, "Total Failure")
			}
		}

		return success(c, record)
	}
}
