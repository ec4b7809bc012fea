// Package server exposes the orchestrator over HTTP and a websocket relay.
// The HTTP endpoints serve request/response callers; the websocket carries
// the bidirectional worker protocol for externally connected workers.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/allendavis-developer/cashgen-extension/pkg/logging"
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// Orchestrator is the session engine the server drives.
type Orchestrator interface {
	Scrape(ctx context.Context, req types.ScrapeRequest) *types.SessionResponse
	StockLookup(ctx context.Context, req types.StockLookupRequest) *types.SessionResponse
	MarkListed(ctx context.Context, req types.MarkListedRequest) *types.SessionResponse
	DeliverBatch(batch types.ResultBatch) bool
	DeliverRecord(res types.StockResult) bool
	WorkerReady(sessionID, competitor string) (*types.StartWork, bool)
	AbortSession(sessionID string) bool
}

// Server serves the orchestrator's caller-facing API.
type Server struct {
	log  *logging.Logger
	orch Orchestrator
	addr string
	http *http.Server
}

// New creates a server bound to addr.
func New(orch Orchestrator, addr string) *Server {
	logger, _ := logging.NewLogger("server")
	return &Server{log: logger, orch: orch, addr: addr}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
		r.Post("/stock/lookup", s.handleStockLookup)
		r.Post("/stock/mark-listed", s.handleMarkListed)
	})
	r.Get("/ws", s.handleWebsocket)

	return r
}

// ListenAndServe blocks serving the API until Shutdown.
func (s *Server) ListenAndServe() error {
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Infof("listening on %s", s.addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req types.ScrapeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.orch.Scrape(r.Context(), req))
}

func (s *Server) handleStockLookup(w http.ResponseWriter, r *http.Request) {
	var req types.StockLookupRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.orch.StockLookup(r.Context(), req))
}

func (s *Server) handleMarkListed(w http.ResponseWriter, r *http.Request) {
	var req types.MarkListedRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.orch.MarkListed(r.Context(), req))
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, types.NewFailureResponse("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnf("failed to write response: %v", err)
	}
}
