package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"healthops/internal/config"
	"healthops/internal/domain"
	"healthops/internal/export"
	"healthops/internal/metrics"
	"healthops/internal/models"
	"healthops/internal/workflow"
)

// Deps are the collaborators the HTTP API serves.
type Deps struct {
	Lifecycle domain.Lifecycle
	Camps     workflow.Source[models.Camp]
	Bookings  workflow.Source[models.TestBooking]
	Formatter *export.Formatter
	Sinks     map[string]export.Sink
	Console   config.ConsoleConfig
	Location  *time.Location
	Now       func() time.Time
}

// HTTPServer exposes the console over JSON.
type HTTPServer struct {
	cfg    *config.APIConfig
	deps   Deps
	server   *http.Server
	auth     *HTTPAuth
	exporter *export.ViewExporter
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Formatter == nil {
		deps.Formatter = export.DefaultFormatter()
	}
	l := logger.With().Str("component", "http").Logger()
	srv := &HTTPServer{cfg: cfg, deps: deps, logger: &l}
	srv.auth = NewHTTPAuth(cfg)
	srv.exporter = export.NewViewExporter(deps.Camps, deps.Bookings, deps.Formatter, deps.Sinks, deps.Location, deps.Now)

	mux := http.NewServeMux()
	srv.routes(mux)
	handler := requestLogger(srv.logger, srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /healthz", s.handleHealth)

	s.handle(mux, "GET /api/v1/contexts", s.handleContexts)
	s.handle(mux, "GET /api/v1/views/{context}", s.handleView)
	s.handle(mux, "POST /api/v1/views/{context}/export", s.handleExport)
	s.handle(mux, "GET /api/v1/select/{context}/{id}", s.handleSelect)

	s.handle(mux, "POST /api/v1/camps", s.handleScheduleCamp)
	s.handle(mux, "GET /api/v1/camps/{id}", s.handleGetCamp)
	s.handle(mux, "GET /api/v1/lookup/camps/{code}", s.handleFindCamp)
	s.handle(mux, "POST /api/v1/camps/{id}/complete", s.handleCompleteCamp)
	s.handle(mux, "POST /api/v1/camps/{id}/cancel", s.handleCancelCamp)
	s.handle(mux, "POST /api/v1/camps/{id}/close-report", s.handleCloseReport)
	s.handle(mux, "POST /api/v1/camps/{id}/vendor", s.handleCampVendor)
	s.handle(mux, "POST /api/v1/camps/{id}/test-counts", s.handleTestCounts)
	s.handle(mux, "POST /api/v1/camps/{id}/financials", s.handleFinancials)

	s.handle(mux, "POST /api/v1/bookings", s.handleCreateBooking)
	s.handle(mux, "GET /api/v1/bookings/{id}", s.handleGetBooking)
	s.handle(mux, "GET /api/v1/lookup/bookings/{masterID}", s.handleFindBooking)
	s.handle(mux, "GET /api/v1/bookings/{id}/camp", s.handleBookingCamp)
	s.handle(mux, "POST /api/v1/bookings/{id}/payment", s.handlePayment)
	s.handle(mux, "POST /api/v1/bookings/{id}/vendor", s.handleBookingVendor)
	s.handle(mux, "POST /api/v1/bookings/{id}/report", s.handleSubmitReport)
	s.handle(mux, "POST /api/v1/bookings/{id}/patient", s.handlePatient)
	s.handle(mux, "POST /api/v1/bookings/{id}/tests", s.handleSelectTests)
	s.handle(mux, "DELETE /api/v1/bookings/{id}/tests/{code}", s.handleRemoveTest)
}

func (s *HTTPServer) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(pattern)
		h(w, r)
	})
}

// Handler returns the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
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

func (s *HTTPServer) localNow() time.Time {
	return s.deps.Now().In(s.deps.Location)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
