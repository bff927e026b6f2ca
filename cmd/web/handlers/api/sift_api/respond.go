// package sift_api provides the sift record API handlers.
package sift_api

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/sift/internal/db"
	"thirdcoast.systems/sift/internal/sift"
)

// Pipeline runs one submission through the full sift flow.
type Pipeline interface {
	PerformFullSift(ctx context.Context, req sift.Request) (*db.Sift, error)
}

// Store is the slice of db.Queries the record handlers use.
type Store interface {
	InsertSift(ctx context.Context, id *uuid.UUID, p *db.SiftParams) (*db.Sift, error)
	SelectSiftByID(ctx context.Context, id pgtype.UUID) (*db.Sift, error)
	SelectSiftsByOwner(ctx context.Context, ownerID string, limit int) ([]*db.Sift, error)
	DeleteSift(ctx context.Context, id pgtype.UUID, ownerID string) error
}

func success(c echo.Context, data any) error {
	return c.JSON(200, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]any{
		"status":  "error",
		"message": message,
	})
}
