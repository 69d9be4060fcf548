package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fonteyn/internal/config"
	"fonteyn/internal/metrics"
	"fonteyn/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking API consumed by the presentation layer.
type HTTPServer struct {
	cfg      *config.Config
	auth     *service.AuthService
	bookings *service.BookingService
	catalog  *service.CatalogService
	limiter  *loginLimiter
	logger   zerolog.Logger
	server   *http.Server
}

func NewHTTPServer(
	cfg *config.Config,
	auth *service.AuthService,
	bookings *service.BookingService,
	catalog *service.CatalogService,
	logger *zerolog.Logger,
) *HTTPServer {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{
		cfg:      cfg,
		auth:     auth,
		bookings: bookings,
		catalog:  catalog,
		limiter:  newLoginLimiter(cfg.Auth.LoginLimit),
		logger:   log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/register", srv.handleRegister)
	mux.HandleFunc("/api/v1/login", srv.handleLogin)
	mux.HandleFunc("/api/v1/logout", srv.handleLogout)
	mux.HandleFunc("/api/v1/accommodations", srv.requireSession(srv.handleAccommodations))
	mux.HandleFunc("/api/v1/book", srv.requireSession(srv.handleBook))
	mux.HandleFunc("/api/v1/bookings/latest", srv.requireSession(srv.handleLatestBooking))
	mux.HandleFunc("/api/v1/bookings/export", srv.requireSession(srv.handleExport))
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured handler chain, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// requestContext bounds every storage interaction; a request that outlives
// the bound surfaces as a storage failure at the boundary.
func (s *HTTPServer) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.cfg.Server.RequestTimeout) * time.Second
	return context.WithTimeout(r.Context(), timeout)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.IncHTTP(r.URL.Path, fmt.Sprintf("%d", recorder.status))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code string) {
	writeJSON(w, statusCode, map[string]string{"error": code})
}

// writeRedirectError adds the entry point the caller should return to;
// auth and not-found conditions are recoverable, never error pages.
func writeRedirectError(w http.ResponseWriter, statusCode int, code, redirect string) {
	writeJSON(w, statusCode, map[string]string{"error": code, "redirect": redirect})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
