package sigwatch

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server exposes the watcher's state over HTTP.
type Server struct {
	listen  string
	watcher *Watcher
	router  *chi.Mux
}

type statusResponse struct {
	UptimeSeconds float64           `json:"uptime_seconds"`
	Watched       []string          `json:"watched"`
	Counts        map[string]uint64 `json:"counts"`
	Suppressed    uint64            `json:"suppressed_log_lines"`
}

// NewServer builds the router. accessLog, when non-empty, appends one line
// per request to the named file.
func NewServer(cfg *Config, w *Watcher) *Server {
	r := chi.NewRouter()
	if cfg.AccessLog != "" {
		r.Use(accessLogger(cfg.AccessLog))
	}

	s := &Server{listen: cfg.Listen, watcher: w, router: r}

	r.Get("/healthz", func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/signals", s.handleSignals)

	return s
}

// Router returns the underlying router, useful for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleStatus(rw http.ResponseWriter, req *http.Request) {
	resp := statusResponse{
		UptimeSeconds: s.watcher.Uptime().Seconds(),
		Watched:       s.watcher.Watched(),
		Counts:        s.watcher.Counts(),
		Suppressed:    s.watcher.Suppressed(),
	}
	writeJSON(rw, resp)
}

func (s *Server) handleSignals(rw http.ResponseWriter, req *http.Request) {
	writeJSON(rw, s.watcher.Counts())
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
	}
}

func accessLogger(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("[sigwatch] open access log: %v", err)
			return next
		}
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(rw, req)
			rec := req.RemoteAddr + " " + req.Method + " " + req.URL.Path + "\n"
			_, _ = f.Write([]byte(rec))
		})
	}
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.listen, Handler: s.router}
	go func() {
		<-ctx.Done()
		ctxTo, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxTo)
	}()
	log.Printf("[sigwatch] listening on %s", s.listen)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
