package scripts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sql-lab/pkg/api"
	"sql-lab/pkg/res"
)

type ControllerDeps struct {
	Store  Store
	Logger *slog.Logger
}

type Controller struct {
	store Store
	log   *slog.Logger
}

func NewController(router chi.Router, deps ControllerDeps) *Controller {
	c := &Controller{store: deps.Store, log: deps.Logger}
	router.Get(api.PathScripts, c.List())
	router.Get(api.PathScripts+"/{name}", c.Get())
	return c
}

func (c *Controller) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := c.store.List(r.Context())
		if err != nil {
			c.log.Error("failed to list scripts", "error", err)
			res.Error(w, "Unable to list scripts", http.StatusInternalServerError)
			return
		}
		if names == nil {
			names = []string{}
		}
		res.Json(w, api.ScriptsResponse{Scripts: names}, http.StatusOK)
	}
}

func (c *Controller) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := validName(name); err != nil || !isScript(name) {
			res.Error(w, "Invalid script name", http.StatusBadRequest)
			return
		}

		b, err := c.store.Read(r.Context(), name)
		if errors.Is(err, ErrNotFound) {
			res.Error(w, "Script "+name+" not found", http.StatusNotFound)
			return
		}
		if err != nil {
			c.log.Error("failed to read script", "name", name, "error", err)
			res.Error(w, "Unable to read script", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}
