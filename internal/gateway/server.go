// Package gateway exposes the agent over HTTP: chat requests, alert
// webhooks, health, metrics and the interaction timeline.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aruiz-p/sdwan-langgraph/internal/agent"
	"github.com/aruiz-p/sdwan-langgraph/internal/alerts"
	"github.com/aruiz-p/sdwan-langgraph/internal/timeline"
)

const maxBodyBytes = 1 << 20

// Agent answers one graph request.
type Agent interface {
	Handle(ctx context.Context, req agent.Request) (string, error)
}

// AlertProcessor runs firing alerts to completion.
type AlertProcessor interface {
	Process(ctx context.Context, source string, a alerts.Alert) bool
}

// Options configures a Server.
type Options struct {
	Agent     Agent
	Alerts    AlertProcessor
	Timeline  *timeline.TimelineService
	AuthToken string
}

// Server is the HTTP surface of the agent.
type Server struct {
	agent     Agent
	alerts    AlertProcessor
	timeline  *timeline.TimelineService
	authToken string
	mux       *http.ServeMux

	baseCtx context.Context
	wg      sync.WaitGroup
}

type chatRequest struct {
	Message string `json:"message"`
	Session string `json:"session,omitempty"`
}

// New creates a Server with its routes registered.
func New(opts Options) *Server {
	s := &Server{
		agent:     opts.Agent,
		alerts:    opts.Alerts,
		timeline:  opts.Timeline,
		authToken: strings.TrimSpace(opts.AuthToken),
		mux:       http.NewServeMux(),
		baseCtx:   context.Background(),
	}
	s.mux.HandleFunc("/chat", s.requireAuth(s.handleChat))
	s.mux.HandleFunc("/alert", s.requireAuth(s.handleAlert))
	s.mux.HandleFunc("/api/v1/timeline", s.requireAuth(s.handleTimeline))
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests and background alert runs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.baseCtx = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	s.Wait()
	return nil
}

// Wait blocks until background alert processing has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if token != s.authToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "missing message", http.StatusBadRequest)
		return
	}
	session := req.Session
	if session == "" {
		session = "api:default"
	}

	traceID := newTraceID()
	w.Header().Set("X-Trace-Id", traceID)
	slog.Info("Message received", "session", session, "trace_id", traceID)

	resp, err := s.agent.Handle(r.Context(), agent.Request{
		TraceID:    traceID,
		SessionKey: session,
		Channel:    "api",
		Sender:     session,
		Content:    req.Message,
	})
	if err != nil {
		slog.Error("Chat request failed", "trace_id", traceID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var a alerts.Alert
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&a); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	slog.Info("Webhook message received", "status", a.Status, "title", a.Title)

	if s.alerts != nil && a.IsFiring() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.alerts.Process(s.baseCtx, "http", a)
		}()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.timeline == nil {
		http.Error(w, "timeline disabled", http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	events, err := s.timeline.GetEvents(timeline.FilterArgs{
		TraceID:   r.URL.Query().Get("trace_id"),
		EventType: r.URL.Query().Get("type"),
		Limit:     limit,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []timeline.TimelineEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func newTraceID() string {
	return "tr_" + uuid.NewString()
}
