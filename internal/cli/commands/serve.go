package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/config"
	"github.com/conduit-lang/mapper/internal/gateway"
	"github.com/conduit-lang/mapper/internal/logging"
	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/mapper/schemafile"
	"github.com/conduit-lang/mapper/internal/watch"
	"github.com/conduit-lang/mapper/internal/web/cache"
	"github.com/conduit-lang/mapper/internal/web/middleware"
	"github.com/conduit-lang/mapper/internal/web/router"
	"github.com/conduit-lang/mapper/internal/web/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		configPath string
		watchFiles bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured aggregation endpoints",
		Long: `Start the HTTP server. Each configured endpoint fetches its upstream
plan, filters the documents and maps them through a schema.

Configuration is read from mapper.yaml (or --config) and MAPPER_*
environment variables, e.g. MAPPER_SERVER_PORT=9090.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, watchFiles)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (default ./mapper.yaml)")
	cmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "Reload schema files when they change")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, watchFiles bool) error {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	srv, gw, err := newServer(ctx, cfg, log)
	if err != nil {
		return err
	}

	if watchFiles && len(cfg.Schemas) > 0 {
		w, err := watch.New(cfg.Schemas, 0, log, func(files []string) error {
			reg, err := schemafile.Load(cfg.Schemas...)
			if err != nil {
				return err
			}
			return gw.Reload(reg)
		})
		if err != nil {
			return err
		}
		srv.OnShutdown(func(context.Context) error { return w.Close() })
	}

	log.Info("starting",
		zap.String("address", cfg.Server.Address()),
		zap.Int("endpoints", len(cfg.Endpoints)),
		zap.Int("schemas", gw.Schemas().Len()),
		zap.String("cache", cfg.Cache.Backend),
	)
	return srv.Run(ctx)
}

// newServer wires the cache, fetch client, schemas and routes.
func newServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*server.Server, *gateway.Gateway, error) {
	store, err := cache.Open(ctx, cfg.Cache.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}

	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Upstream.Timeout),
		fetch.WithLogger(log.Named("fetch")),
	}
	for k, v := range cfg.Upstream.Headers {
		opts = append(opts, fetch.WithHeader(k, v))
	}
	if store != nil {
		opts = append(opts, fetch.WithCache(store, cfg.Cache.TTL))
	}
	client := fetch.NewClient(opts...)

	closeStore := func() {
		if store != nil {
			_ = store.Close()
		}
	}

	reg, err := schemafile.Load(cfg.Schemas...)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	r := router.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(log.Named("http"), "/_health"),
		middleware.Recovery(log),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	gw := gateway.New(client, reg, log.Named("gateway"))
	gw.Introspect(r)
	if err := gw.Mount(r, cfg.Endpoints); err != nil {
		closeStore()
		return nil, nil, err
	}

	srv, err := server.New(server.Config{
		Address:           cfg.Server.Address(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: server.DefaultConfig().ReadHeaderTimeout,
		MaxHeaderBytes:    server.DefaultConfig().MaxHeaderBytes,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
	}, r, log)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	if store != nil {
		srv.OnShutdown(func(context.Context) error { return store.Close() })
	}
	return srv, gw, nil
}
