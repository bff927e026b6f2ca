package sift_api

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"
	"thirdcoast.systems/sift/cmd/web/handlers/common"
	"thirdcoast.systems/sift/cmd/web/internal/feed"
)

// HandleStream pushes an owner's record changes over SSE as datastar signal
// patches. Each persisted change arrives as a `latestSift` signal.
func HandleStream(hub *feed.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID := strings.TrimSpace(c.QueryParam("user_id"))
		if ownerID == "" {
			return common.ErrBadRequest("user_id is required")
		}

		if !hub.AcquireStream(ownerID) {
			return c.String(429, "too many open streams")
		}
		defer hub.ReleaseStream(ownerID)

		ch, unsubscribe := hub.Subscribe(ownerID)
		defer unsubscribe()

		common.SetSSEHeaders(c)
		sse := datastar.NewSSE(c.Response().Writer, c.Request())

		for {
			select {
			case <-c.Request().Context().Done():
				return nil
			case record, ok := <-ch:
				if !ok {
					return nil
				}
				signals, err := json.Marshal(map[string]any{"latestSift": record})
				if err != nil {
					slog.Error("failed to encode sift for stream", "error", err)
					continue
				}
				if err := sse.PatchSignals(signals); err != nil {
					// Client went away.
					return nil
				}
			}
		}
	}
}
