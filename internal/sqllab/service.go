package sqllab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"sql-lab/internal/catalog"
	"sql-lab/internal/scripts"
	"sql-lab/pkg/api"
	"sql-lab/pkg/redis"
)

type ServiceDeps struct {
	Repo        *Repository
	Store       scripts.Store
	Cache       *redis.Cache
	Metrics     *Metrics
	Logger      *slog.Logger
	CatalogName string
	Timeout     time.Duration
	// HoldCatalog keeps the catalog in memory until InvalidateCatalog is
	// called. Only set it when something watches the script source.
	HoldCatalog bool
}

type Service struct {
	repo        *Repository
	store       scripts.Store
	cache       *redis.Cache
	metrics     *Metrics
	log         *slog.Logger
	catalogName string
	timeout     time.Duration
	holdCatalog bool

	mu   sync.RWMutex
	text catalog.Text
	held bool
	// epoch counts invalidations. A read that started in an older epoch is
	// not held.
	epoch uint64
}

func NewService(deps ServiceDeps) *Service {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		repo:        deps.Repo,
		store:       deps.Store,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		log:         deps.Logger,
		catalogName: deps.CatalogName,
		timeout:     timeout,
		holdCatalog: deps.HoldCatalog,
	}
}

func (s *Service) CatalogName() string {
	return s.catalogName
}

// Catalog returns the raw catalog script.
func (s *Service) Catalog(ctx context.Context) (catalog.Text, error) {
	var epoch uint64
	if s.holdCatalog {
		s.mu.RLock()
		text, held := s.text, s.held
		epoch = s.epoch
		s.mu.RUnlock()
		if held {
			return text, nil
		}
	}

	b, err := s.store.Read(ctx, s.catalogName)
	if errors.Is(err, scripts.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrCatalogNotFound, s.catalogName)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", s.catalogName, err)
	}

	text := catalog.Text(b)
	if s.holdCatalog {
		s.mu.Lock()
		if s.epoch == epoch {
			s.text, s.held = text, true
		}
		s.mu.Unlock()
	}
	return text, nil
}

// InvalidateCatalog drops the held catalog so the next read goes to the store.
func (s *Service) InvalidateCatalog() {
	s.mu.Lock()
	s.text, s.held = "", false
	s.epoch++
	s.mu.Unlock()
}

func (s *Service) Entries(ctx context.Context) ([]api.CatalogEntry, error) {
	text, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	entries := catalog.Entries(text)
	out := make([]api.CatalogEntry, len(entries))
	for i, e := range entries {
		out[i] = api.CatalogEntry{QID: string(e.ID), Title: e.Title, SQL: e.SQL}
	}
	return out, nil
}

// Run executes catalog query qid and returns its first result set.
func (s *Service) Run(ctx context.Context, qid string) (*api.RunQueryResponse, error) {
	text, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	query, ok := catalog.Lookup(text, catalog.QueryID(qid))
	if !ok {
		return nil, fmt.Errorf("%w: Query %s not found", ErrQueryNotFound, qid)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query %s", ErrEmptyQuery, qid)
	}

	key := cacheKey(qid, query)
	var cached api.RunQueryResponse
	if found, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.log.Warn("result cache read failed", "qid", qid, "error", err)
	} else if found {
		s.metrics.cacheHit()
		s.metrics.observeRun("cached", 0)
		return &cached, nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.repo.Query(cctx, query)
	if err != nil {
		s.metrics.observeRun("error", time.Since(start).Seconds())
		s.log.Error("query failed", "qid", qid, "error", err)
		return nil, err
	}
	s.metrics.observeRun("success", time.Since(start).Seconds())
	s.log.Info("query executed", "qid", qid, "rows", out.RowsTotal, "duration_ms", out.DurationMs)

	resp := Flatten(qid, out)
	if err := s.cache.SetJSON(ctx, key, resp); err != nil {
		s.log.Warn("result cache write failed", "qid", qid, "error", err)
	}
	return resp, nil
}

func (s *Service) Introspect(ctx context.Context) (*api.IntrospectResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.Introspect(cctx)
}

// Health answers with a fresh random token so clients can tell replies apart.
func (s *Service) Health() api.HealthResponse {
	id := uuid.New()
	return api.HealthResponse{Status: "ok", Timestamp: fmt.Sprintf("%x", id[:])}
}

func cacheKey(qid, query string) string {
	return "sqllab:run:" + qid + ":" + strconv.FormatUint(xxhash.Sum64String(query), 16)
}
