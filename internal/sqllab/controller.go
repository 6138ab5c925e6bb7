package sqllab

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sql-lab/pkg/api"
	"sql-lab/pkg/req"
	"sql-lab/pkg/res"
)

type ControllerDeps struct {
	*Service
	Logger *slog.Logger
}

type Controller struct {
	*Service
	log *slog.Logger
}

func NewController(router chi.Router, deps ControllerDeps) *Controller {
	c := &Controller{Service: deps.Service, log: deps.Logger}
	router.Get(api.PathHealth, c.HealthCheck())
	router.Get(api.PathQueries, c.Queries())
	router.Get(api.PathCatalog, c.CatalogEntries())
	router.Post(api.PathRunQuery, c.Run())
	router.Get(api.PathIntrospect, c.IntrospectSchema())
	return c
}

func (c *Controller) HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res.Json(w, c.Service.Health(), http.StatusOK)
	}
}

func (c *Controller) Queries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, err := c.Service.Catalog(r.Context())
		if err != nil {
			c.catalogError(w, err)
			return
		}
		res.Json(w, api.CatalogResponse{SQL: string(text)}, http.StatusOK)
	}
}

func (c *Controller) CatalogEntries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := c.Service.Entries(r.Context())
		if err != nil {
			c.catalogError(w, err)
			return
		}
		res.Json(w, api.CatalogEntriesResponse{Queries: entries}, http.StatusOK)
	}
}

func (c *Controller) Run() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := req.HandleBody[api.RunQueryRequest](&w, r)
		if err != nil {
			return
		}
		if err := ValidateRunRequest(body); err != nil {
			res.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out, err := c.Service.Run(r.Context(), body.QID)
		if err != nil {
			var connErr *ConnectionError
			switch {
			case errors.Is(err, ErrCatalogNotFound):
				c.catalogError(w, err)
			case errors.Is(err, ErrQueryNotFound):
				res.Error(w, "Query "+body.QID+" not found", http.StatusNotFound)
			case errors.As(err, &connErr):
				res.Error(w, "Database connection error: "+connErr.Err.Error(), http.StatusInternalServerError)
			default:
				res.Error(w, "Query execution failed: "+err.Error(), http.StatusInternalServerError)
			}
			return
		}

		res.Json(w, out, http.StatusOK)
	}
}

func (c *Controller) IntrospectSchema() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := c.Service.Introspect(r.Context())
		if err != nil {
			c.log.Error("introspection failed", "error", err)
			var connErr *ConnectionError
			if errors.As(err, &connErr) {
				res.Error(w, "Database connection error: "+connErr.Err.Error(), http.StatusInternalServerError)
				return
			}
			res.Error(w, "Introspection failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		res.Json(w, out, http.StatusOK)
	}
}

func (c *Controller) catalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrCatalogNotFound) {
		res.Error(w, c.Service.CatalogName()+" not found", http.StatusNotFound)
		return
	}
	c.log.Error("failed to load catalog", "error", err)
	res.Error(w, "Unable to read "+c.Service.CatalogName(), http.StatusInternalServerError)
}
