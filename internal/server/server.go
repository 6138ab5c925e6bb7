// Package server wires the lab backend: database, script store, result cache,
// metrics and the HTTP routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"sql-lab/configs"
	"sql-lab/internal/scripts"
	"sql-lab/internal/sqllab"
	"sql-lab/pkg/db"
	"sql-lab/pkg/redis"
)

const (
	watchDebounce   = 200 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

type Deps struct {
	Config   *configs.Config
	Db       *db.Db
	Store    scripts.Store
	Cache    *redis.Cache
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

type Server struct {
	addr    string
	log     *slog.Logger
	service *sqllab.Service
	watcher *scripts.FSStore
	catalog string
	handler http.Handler
}

// New builds the router. The catalog is held in memory only when the script
// directory is watched, since nothing else would invalidate it.
func New(deps Deps) *Server {
	cfg := deps.Config

	var watcher *scripts.FSStore
	if fs, ok := deps.Store.(*scripts.FSStore); ok && cfg.Sql.Watch {
		watcher = fs
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	service := sqllab.NewService(sqllab.ServiceDeps{
		Repo:        sqllab.NewRepository(deps.Db),
		Store:       deps.Store,
		Cache:       deps.Cache,
		Metrics:     sqllab.NewMetrics(reg),
		Logger:      deps.Logger,
		CatalogName: cfg.Sql.Catalog,
		Timeout:     cfg.Server.RequestTimeout,
		HoldCatalog: watcher != nil,
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// controllers
	sqllab.NewController(router, sqllab.ControllerDeps{
		Service: service,
		Logger:  deps.Logger,
	})
	scripts.NewController(router, scripts.ControllerDeps{
		Store:  deps.Store,
		Logger: deps.Logger,
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &Server{
		addr:    cfg.Server.Addr,
		log:     deps.Logger,
		service: service,
		watcher: watcher,
		catalog: cfg.Sql.Catalog,
		handler: router,
	}
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Service() *sqllab.Service {
	return s.service
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.log.Info("server is listening", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watcher != nil {
		eg.Go(func() error {
			return s.watcher.Watch(egctx, watchDebounce, s.onScriptChange)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) onScriptChange(name string) {
	if name != s.catalog {
		return
	}
	s.log.Info("catalog changed, reloading on next request", "name", name)
	s.service.InvalidateCatalog()
}

// Open connects everything the config names. The returned cleanup closes the
// database and cache.
func Open(ctx context.Context, cfg *configs.Config, log *slog.Logger) (Deps, func(), error) {
	conn, err := db.NewConnection(ctx, cfg.Db)
	if err != nil {
		return Deps{}, nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		_ = conn.Close()
		return Deps{}, nil, err
	}

	cache := redis.NewRedis(cfg.Redis)
	if cache.Enabled() {
		if err := cache.Ping(ctx); err != nil {
			log.Warn("result cache unavailable, continuing without it", "error", err)
			_ = cache.Close()
			cache = redis.NewRedis(configs.RedisConfig{})
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cleanup := func() {
		if err := cache.Close(); err != nil {
			log.Warn("failed to close cache", "error", err)
		}
		if err := conn.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}

	return Deps{
		Config:   cfg,
		Db:       conn,
		Store:    store,
		Cache:    cache,
		Registry: reg,
		Logger:   log,
	}, cleanup, nil
}

// OpenStore returns the script store selected by sql.source.
func OpenStore(ctx context.Context, cfg *configs.Config, log *slog.Logger) (scripts.Store, error) {
	switch cfg.Sql.Source {
	case "s3":
		store, err := scripts.OpenS3(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to open s3 script store: %w", err)
		}
		return store, nil
	default:
		return scripts.NewFSStore(cfg.Sql.Dir, log), nil
	}
}
