package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"voiceqa-server/pkg/config"
	"voiceqa-server/pkg/errors"
	"voiceqa-server/pkg/metrics"
	"voiceqa-server/pkg/pipeline"
	"voiceqa-server/pkg/version"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server exposes the test API, health checks and metrics over HTTP
type Server struct {
	config     *config.Config
	logger     *logrus.Logger
	httpServer *http.Server
	mux        *http.ServeMux
	registry   *pipeline.Registry
	checker    ServiceChecker
	startTime  time.Time
	wsHub      *JobEventHub
	amqpClient interface{ IsConnected() bool }
}

// ServiceChecker probes the health of the pipeline's external services
type ServiceChecker interface {
	CheckServices(ctx context.Context) map[string]bool
}

// NewServer creates the HTTP server and registers all endpoints
func NewServer(logger *logrus.Logger, cfg *config.Config, registry *pipeline.Registry, checker ServiceChecker) *Server {
	server := &Server{
		config:    cfg,
		logger:    logger,
		registry:  registry,
		checker:   checker,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	server.mux = mux

	// Wrap handlers with middleware that adds Server header
	addServerHeader := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Server", version.ServerHeader())
			next(w, r)
		}
	}

	// Health endpoints
	mux.HandleFunc("/health", addServerHeader(server.HealthHandler))
	mux.HandleFunc("/health/live", addServerHeader(server.LivenessHandler))
	mux.HandleFunc("/health/ready", addServerHeader(server.ReadinessHandler))

	// Test API
	handlers := NewTestHandlers(registry, logger)
	mux.HandleFunc("/api/test/start", addServerHeader(handlers.StartTestHandler))
	mux.HandleFunc("/api/test/", addServerHeader(handlers.TestResourceHandler))
	mux.HandleFunc("/api/tests/list", addServerHeader(handlers.ListTestsHandler))
	mux.HandleFunc("/api/tests/cleanup", addServerHeader(handlers.CleanupHandler))

	mux.HandleFunc("/api/system/status", addServerHeader(server.systemStatusHandler))

	// Metrics endpoint based on configuration
	if cfg.HTTP.EnableMetrics {
		if registry := metrics.GetRegistry(); registry != nil {
			promHandler := promhttp.HandlerFor(
				registry,
				promhttp.HandlerOpts{
					EnableOpenMetrics: true,
					Registry:          registry,
				},
			)
			mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Server", version.ServerHeader())
				promHandler.ServeHTTP(w, r)
			})
			logger.Info("Prometheus metrics endpoint enabled at /metrics")
		} else {
			logger.Warn("Metrics registry not initialized, /metrics disabled")
		}
	} else {
		logger.Info("Metrics endpoint disabled")
	}

	// Serve stored audio artifacts under the public prefix
	prefix := cfg.Storage.PublicPrefix + "/"
	mux.Handle(prefix, http.StripPrefix(prefix,
		http.FileServer(http.Dir(cfg.Storage.Root))))

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return server
}

// SetWebSocketHub attaches the event hub and registers its endpoint
func (s *Server) SetWebSocketHub(hub *JobEventHub) {
	s.wsHub = hub
	if s.mux != nil {
		s.mux.HandleFunc("/ws", hub.ServeWs)
		s.logger.Info("WebSocket event endpoint registered at /ws")
	}
}

// SetAMQPClient sets the AMQP client reference for health checks
func (s *Server) SetAMQPClient(client interface{ IsConnected() bool }) {
	s.amqpClient = client
}

// Start starts the HTTP server in a goroutine
func (s *Server) Start() {
	s.logger.WithField("port", s.config.HTTP.Port).Info("Starting HTTP server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
	}()

	// Verify that we can actually bind to the port
	go func() {
		time.Sleep(500 * time.Millisecond)
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", s.config.HTTP.Port), 2*time.Second)
		if err != nil {
			s.logger.WithError(err).Error("Could not connect to HTTP server")
		} else {
			s.logger.Info("HTTP server is running correctly")
			conn.Close()
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the request mux, primarily for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// systemStatusHandler probes the pipeline's external services
func (s *Server) systemStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	services := map[string]bool{}
	if s.checker != nil {
		services = s.checker.CheckServices(r.Context())
	}

	allHealthy := true
	for _, ok := range services {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := "ok"
	if !allHealthy {
		status = "degraded"
	}

	response := map[string]interface{}{
		"status":      status,
		"services":    services,
		"active_jobs": s.registry.Size(),
		"uptime":      time.Since(s.startTime).Round(time.Second).String(),
		"version":     version.Version,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ErrorResponse sends a standardized error response
func (s *Server) ErrorResponse(w http.ResponseWriter, err error) {
	errors.WriteError(w, err)
	s.logger.WithError(err).Warn("HTTP error response sent")
}
