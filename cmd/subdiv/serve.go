package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/subdiv/internal/api"
	"github.com/samcharles93/subdiv/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr          string
		readTimeout   time.Duration
		maxLevel      int64
		maxVertices   int64
		storeCapacity int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the refinement REST API",
		Flags: append(backendFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-level",
				Usage:       "deepest refinement level a request may ask for",
				Value:       int64(api.DefaultLimits.MaxLevel),
				Destination: &maxLevel,
			},
			&cli.Int64Flag{
				Name:        "max-vertices",
				Usage:       "largest refined vertex count a request may produce",
				Value:       int64(api.DefaultLimits.MaxVertices),
				Destination: &maxVertices,
			},
			&cli.Int64Flag{
				Name:        "store-capacity",
				Usage:       "stored refinements kept before the oldest is evicted (0 = unbounded)",
				Value:       256,
				Destination: &storeCapacity,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyBackendConfig(cmd, loaded)
			applyServeConfig(cmd, loaded, &addr, &maxLevel, &maxVertices, &storeCapacity)

			limits := api.Limits{MaxLevel: int(maxLevel), MaxVertices: int(maxVertices)}
			service := api.NewRefinementService(newRegistry(loaded), backendName, limits, log)
			server := api.NewServer(api.NewRefinementStore(int(storeCapacity)), service)

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "backend", backendName, "max_level", limits.MaxLevel)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
