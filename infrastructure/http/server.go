package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"dailyreport/frontend/dailyreport"
	"dailyreport/frontend/exports"
	sessioncontext "dailyreport/frontend/shared/context"
	"dailyreport/infrastructure/audit"
	"dailyreport/infrastructure/cache"
	sessioncookie "dailyreport/infrastructure/session"
	"dailyreport/infrastructure/sqlite"
	"dailyreport/reporting"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var ShutdownTimeout = 2 * time.Second

// Backend is the reporting API as the server uses it: top-level loads,
// per-node child fetches and name lookups.
type Backend interface {
	dailyreport.Backend
	reporting.Fetcher
	exports.Namer
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	DB           *sqlite.DB
	SessionCache *cache.ViewSessionCache
	Backend      Backend
	Audit        *audit.Service
	Exports      *exports.Runner
	ExpandLimit  int
}

// NewServer creates a new http server.
func NewServer(addr string, db *sqlite.DB, sessionCache *cache.ViewSessionCache, backend Backend, auditSvc *audit.Service, expandLimit int) *Server {
	s := &Server{
		Addr:         addr,
		router:       chi.NewRouter(),
		DB:           db,
		SessionCache: sessionCache,
		Backend:      backend,
		Audit:        auditSvc,
		Exports:      exports.NewRunner(auditSvc, backend, slog.Default()),
		ExpandLimit:  expandLimit,
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Compress(5))

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/reports", http.StatusSeeOther)
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := s.DB.Ping(r.Context()); err != nil {
			slog.Error("health check failed", slog.Any("err", err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/reports", func(r chi.Router) {
		r.Use(s.ViewSessionMiddleware)
		s.RegisterReportRoutes(r)
		s.RegisterExportRoutes(r)
	})

	s.server.Handler = s.router
	return s
}

// ViewSessionMiddleware attaches the caller's report view session. A missing,
// malformed or expired cookie gets a fresh id; reads then render a throwaway
// default session and only commands keep one in the cache.
func (s *Server) ViewSessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			id      string
			session *reporting.Session
		)
		if c, err := r.Cookie(sessioncookie.CookieName); err == nil && sessioncookie.ValidID(c.Value) {
			id = c.Value
			session, _ = s.SessionCache.FindSession(id)
		}
		if id == "" {
			id = sessioncookie.NewID()
		}
		if session == nil {
			session = s.newViewSession(id)
			if keepsSession(r) {
				s.SessionCache.AddSession(session)
				slog.Debug("view session started", slog.String("session_id", id))
			}
		}
		http.SetCookie(w, sessioncookie.SessionCookie(id, int(sessioncookie.IdleTimeout.Seconds())))

		ctx := sessioncontext.NewContextWithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func keepsSession(r *http.Request) bool {
	return r.Method != http.MethodGet && r.Method != http.MethodHead
}

func (s *Server) newViewSession(id string) *reporting.Session {
	tree := reporting.NewTreeStore(s.Backend, s.ExpandLimit, slog.Default())
	return reporting.NewSession(id, reporting.DefaultParams(time.Now()), tree)
}

// SweepSessions drops idle view sessions every interval until ctx is done.
func (s *Server) SweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SessionCache.Sweep(sessioncookie.IdleTimeout); n > 0 {
				slog.Info("expired view sessions removed", slog.Int("count", n), slog.Int("remaining", s.SessionCache.Len()))
			}
		}
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", slog.Any("err", err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}
