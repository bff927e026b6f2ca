package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"thirdcoast.systems/sift/internal/db"
)

// Listen holds a dedicated LISTEN connection for sift change notifications
// and publishes the changed rows to the hub. Reconnects until ctx is done.
func Listen(ctx context.Context, dsn string, dbc *db.DatabaseConnection, hub *Hub) {
	for {
		if ctx.Err() != nil {
			return
		}

		// Parse using pgxpool so pool_* DSN params are consumed client-side
		// (otherwise they get forwarded to Postgres as startup params and cause FATAL).
		poolConf, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			slog.Error("listen parse config failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		conn, err := pgx.ConnectConfig(ctx, poolConf.ConnConfig)
		if err != nil {
			slog.Error("listen connect failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		if err := db.New(conn).ListenSiftChanges(ctx); err != nil {
			slog.Error("LISTEN failed", "error", err)
			_ = conn.Close(ctx)
			time.Sleep(2 * time.Second)
			continue
		}

		for {
			if ctx.Err() != nil {
				_ = conn.Close(ctx)
				return
			}

			notification, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("wait for notification failed", "error", err)
				}
				_ = conn.Close(ctx)
				break
			}

			id := db.ParseUUID(notification.Payload)
			if !id.Valid {
				continue
			}

			record, err := dbc.Queries(ctx).SelectSiftByID(ctx, id)
			if err != nil {
				slog.Warn("failed to load changed sift", "id", notification.Payload, "error", err)
				continue
			}
			hub.Publish(record)
		}
	}
}
