package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cycleview/internal/analyzer"
	"cycleview/internal/config"
	"cycleview/internal/metrics"
	"cycleview/internal/view"
)

// Server is the HTTP dashboard over the snapshots API.
type Server struct {
	cfg    *config.Config
	src    view.Source
	filter *analyzer.Filterer
	log    *slog.Logger
	now    func() time.Time
}

func New(cfg *config.Config, src view.Source, filter *analyzer.Filterer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, src: src, filter: filter, log: logger, now: time.Now}
}

// Router registers every route without middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/devices", s.devices).Methods(http.MethodGet)

	dev := api.PathPrefix("/devices/{imei}").Subrouter()
	dev.Use(s.requireDevice)
	dev.HandleFunc("/cycles", s.cycles).Methods(http.MethodGet)
	dev.HandleFunc("/export.csv", s.exportAll).Methods(http.MethodGet)
	dev.HandleFunc("/soh.svg", s.sohChart).Methods(http.MethodGet)
	dev.HandleFunc("/cycles/{cycle:[0-9]+}", s.cycle).Methods(http.MethodGet)
	dev.HandleFunc("/cycles/{cycle:[0-9]+}/export.csv", s.exportCycle).Methods(http.MethodGet)
	dev.HandleFunc("/cycles/{cycle:[0-9]+}/temperature.svg", s.temperatureChart).Methods(http.MethodGet)

	return r
}

// Handler returns the router wrapped in request ids, metrics and access
// logging.
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	r := s.Router()
	r.Use(requestID, instrument)
	return handlers.LoggingHandler(accessLog, r)
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, accessLog io.Writer) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(accessLog),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.cfg.API.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", srv.Addr, "devices", len(s.cfg.Devices))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

const requestIDHeader = "X-Request-ID"

// requestID echoes the caller's request id or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// instrument records request count and latency per route template.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		m := httpsnoop.CaptureMetrics(next, w, r)

		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(m.Code)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(m.Duration.Seconds())
	})
}

// requireDevice rejects IMEIs outside the configured device list.
func (s *Server) requireDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		imei := mux.Vars(r)["imei"]
		if !s.cfg.Allowed(imei) {
			writeError(w, http.StatusNotFound, "unknown device "+imei)
			return
		}
		next.ServeHTTP(w, r)
	})
}
