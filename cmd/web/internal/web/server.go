package web

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"thirdcoast.systems/sift/cmd/web/handlers/api/sift_api"
	"thirdcoast.systems/sift/cmd/web/internal/feed"
	"thirdcoast.systems/sift/internal/config"
	"thirdcoast.systems/sift/internal/db"
	"thirdcoast.systems/sift/internal/sift"
)

type Webserver struct {
	*echo.Echo
	dbc      *db.DatabaseConnection
	pipeline *sift.Orchestrator
	feedHub  *feed.Hub
	env      sift_api.Env
}

func NewWebserver(ctx context.Context, dbc *db.DatabaseConnection, pipeline *sift.Orchestrator, hub *feed.Hub, conf *config.Config) (*Webserver, error) {
	e := echo.New()

	webserver := &Webserver{
		Echo:     e,
		dbc:      dbc,
		pipeline: pipeline,
		feedHub:  hub,
		env: sift_api.Env{
			"database": conf.DatabaseDSN != "",
			"scrape":   conf.ScrapeToken != "",
			"ai":       conf.AIAPIKey != "",
			"storage":  conf.StorageEndpoint != "",
		},
	}

	if err := webserver.registerRoutes(ctx); err != nil {
		return nil, err
	}

	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	// Submitted images arrive base64-encoded in the JSON body.
	s.Use(middleware.BodyLimit("16M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// The change feed stays open for the life of the tab.
			return c.Path() == "/api/sifts/stream"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

func (s *Webserver) registerRoutes(ctx context.Context) error {
	store := s.dbc.Queries(ctx)

	apiGroup := s.Group("/api")
	apiGroup.POST("/sifts", sift_api.HandleCreate(s.pipeline))
	apiGroup.GET("/sifts", sift_api.HandleIndex(store, s.env))
	apiGroup.POST("/sifts/placeholder", sift_api.HandleCreatePlaceholder(store))
	apiGroup.GET("/sifts/stream", sift_api.HandleStream(s.feedHub))
	apiGroup.GET("/sifts/:id", sift_api.HandleGet(store))
	apiGroup.DELETE("/sifts/:id", sift_api.HandleDelete(store))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})

	return nil
}
