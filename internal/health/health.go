// Package health serves the liveness endpoint deployment platforms probe.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Status is a point-in-time snapshot of the assistant.
type Status struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	ChannelRunning bool   `json:"channel_running"`
	QuotaUsed      int    `json:"quota_used"`
}

// Probes supplies the live readings for a status snapshot. Nil funcs read
// as zero values.
type Probes struct {
	ChannelRunning func() bool
	QuotaUsed      func() int
}

// Server is the liveness HTTP listener.
type Server struct {
	port    int
	probes  Probes
	started time.Time
	srv     *http.Server
}

// NewServer builds a health server on port.
func NewServer(port int, probes Probes) *Server {
	return &Server{port: port, probes: probes, started: time.Now()}
}

// Handler returns the route mux, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	slog.Info("health server starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Asistente dental activo 🦷")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := Status{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}
	if s.probes.ChannelRunning != nil {
		st.ChannelRunning = s.probes.ChannelRunning()
	}
	if s.probes.QuotaUsed != nil {
		st.QuotaUsed = s.probes.QuotaUsed()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}
