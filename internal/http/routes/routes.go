package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp/syntax"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/poewatch/internal/http/middleware"
	"github.com/briangreenhill/poewatch/internal/jobs"
	"github.com/briangreenhill/poewatch/internal/kinds"
	"github.com/briangreenhill/poewatch/poewatch"
	"github.com/briangreenhill/poewatch/query"
)

// Enqueuer queues background tasks, satisfied by *asynq.Client
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	Router *chi.Mux
	Svc    *poewatch.Service
	Kinds  *kinds.Registry
	Queue  Enqueuer // optional, enables POST /refresh?async=true
}

type ServerOptions struct {
	Svc        *poewatch.Service
	Queue      Enqueuer
	AdminToken string
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Svc: opts.Svc, Kinds: kinds.FromService(opts.Svc), Queue: opts.Queue}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("write health check response")
		}
	})
	r.Get("/readyz", s.handleReady)

	for _, name := range s.Kinds.List() {
		r.Get("/"+name, s.handleWhere(name))
		r.Get("/"+name+"/count", s.handleCount(name))
		r.Get("/"+name+"/find", s.handleFind(name))
	}
	r.Get("/items/{itemID}/prices", s.handleItemPrices)
	r.Get("/cache/footprint", s.handleFootprint)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireToken(opts.AdminToken))
		pr.Post("/refresh", s.handleRefresh)
		pr.Delete("/cache", s.handleClear)
	})

	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("encode response")
	}
}

// writeError maps domain errors to statuses
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var syntaxErr *syntax.Error
	switch {
	case errors.Is(err, poewatch.ErrRefreshInProgress):
		status = http.StatusConflict
	case errors.Is(err, poewatch.ErrRemoteFetch),
		errors.Is(err, poewatch.ErrBadResponse),
		errors.Is(err, query.ErrMalformedDataset):
		status = http.StatusBadGateway
	case errors.Is(err, poewatch.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.As(err, &syntaxErr):
		status = http.StatusBadRequest
	}

	hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg("request failed")
	s.writeJSON(w, r, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready, err := s.Svc.Controller.Ready(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, r, status, map[string]any{
		"ready":      ready,
		"refreshing": s.Svc.Controller.Refreshing(),
	})
}

func (s *Server) handleWhere(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k, _ := s.Kinds.Get(name)
		p, err := kinds.ParsePredicates(r.URL.Query())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		found, err := k.Where(r.Context(), p)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, found)
	}
}

func (s *Server) handleFind(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k, _ := s.Kinds.Get(name)
		p, err := kinds.ParsePredicates(r.URL.Query())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		found, ok, err := k.Find(r.Context(), p)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !ok {
			s.writeJSON(w, r, http.StatusNotFound, map[string]string{"error": name + " not found"})
			return
		}
		s.writeJSON(w, r, http.StatusOK, found)
	}
}

func (s *Server) handleCount(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k, _ := s.Kinds.Get(name)
		n, err := k.Count(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, map[string]int{"count": n})
	}
}

func (s *Server) handleItemPrices(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid item ID", http.StatusBadRequest)
		return
	}

	item, ok, err := s.Svc.Items.Find(r.Context(), query.Predicates{"id": query.Exact(id)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	if league := r.URL.Query().Get("league"); league != "" {
		price, ok, err := item.PriceForLeague(r.Context(), league)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !ok {
			s.writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "no price in league " + league})
			return
		}
		s.writeJSON(w, r, http.StatusOK, price.Map())
		return
	}

	prices, err := item.Prices(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]map[string]any, len(prices))
	for i, p := range prices {
		out[i] = p.Map()
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleFootprint(w http.ResponseWriter, r *http.Request) {
	footprint, err := s.Svc.Controller.MemoryFootprint(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make(map[string]float64, len(footprint))
	for d, kb := range footprint {
		out[string(d)] = kb
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

// handleRefresh refreshes in the request, or queues a refresh task when
// async=true and a queue is configured. ttl takes a Go duration.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var ttl time.Duration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			http.Error(w, "invalid ttl", http.StatusBadRequest)
			return
		}
		ttl = d
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && s.Queue != nil {
		task, err := jobs.NewRefreshDatasetsTask(ttl)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		info, err := s.Queue.EnqueueContext(r.Context(), task)
		if errors.Is(err, asynq.ErrDuplicateTask) {
			s.writeJSON(w, r, http.StatusAccepted, map[string]any{"queued": false, "reason": "refresh already queued"})
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		hlog.FromRequest(r).Info().Str("task_id", info.ID).Str("queue", info.Queue).Msg("refresh queued")
		s.writeJSON(w, r, http.StatusAccepted, map[string]any{"queued": true, "task_id": info.ID})
		return
	}

	refreshed, err := s.Svc.Controller.RefreshTTL(r.Context(), ttl)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"refreshed": refreshed})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.Svc.Controller.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
