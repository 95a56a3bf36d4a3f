// Package server implements the centavo sync backend: a per-user document
// store exposed over HTTP, the remote side of the sync engine's push/pull
// protocol.
//
// Routes (all bearer-token authenticated, token subject must match {uid}):
//
//	PATCH /v1/users/{uid}/{table}/{id}   merge-write a document
//	GET   /v1/users/{uid}/{table}        ?updatedAfter= delta query
//	GET   /health
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/centavo-app/centavo/internal/remote"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Server is the sync backend.
type Server struct {
	collections *Collections
	jwt         JWTConfig
	logger      zerolog.Logger
}

// New creates a backend with an empty document store.
func New(jwtCfg JWTConfig, logger zerolog.Logger) *Server {
	return &Server{
		collections: NewCollections(),
		jwt:         jwtCfg,
		logger:      logger.With().Str("component", "server").Logger(),
	}
}

// Collections exposes the underlying document store, for tests.
func (s *Server) Collections() *Collections {
	return s.collections
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Use(authMiddleware(s.jwt))
		r.Use(s.requireOwnUser)
		r.Get("/{table}", s.handleQuery)
		r.Patch("/{table}/{docID}", s.handleMerge)
	})

	return r
}

// requireOwnUser rejects requests whose token subject differs from the
// {userID} path segment. Collections are strictly per-user.
func (s *Server) requireOwnUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "userID") != authedUser(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) tableParam(w http.ResponseWriter, r *http.Request) (budget.Table, bool) {
	table, err := budget.TableByName(chi.URLParam(r, "table"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return budget.Table{}, false
	}
	return table, true
}

// handleMerge merge-writes the request body into the addressed document.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	table, ok := s.tableParam(w, r)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "userID")
	docID := chi.URLParam(r, "docID")
	if docID == "" {
		http.Error(w, "document id is required", http.StatusBadRequest)
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	s.collections.Merge(userID, table, docID, fields)
	s.logger.Debug().Str("user", userID).Str("table", table.Name).
		Str("doc", docID).Msg("merged document")
	w.WriteHeader(http.StatusNoContent)
}

// handleQuery returns documents changed after the updatedAfter bound.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	table, ok := s.tableParam(w, r)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "userID")

	since := time.Unix(0, 0).UTC()
	if raw := r.URL.Query().Get("updatedAfter"); raw != "" {
		t, err := budget.ParseTime(raw)
		if err != nil {
			http.Error(w, "invalid updatedAfter timestamp", http.StatusBadRequest)
			return
		}
		since = t
	}

	docs := s.collections.ChangedAfter(userID, table, since)
	if docs == nil {
		docs = []remote.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
