package http

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"voiceqa-server/pkg/version"

	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
	System    SystemInfo             `json:"system"`
}

// CheckResult represents an individual health check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfo contains system resource information
type SystemInfo struct {
	GoRoutines  int    `json:"goroutines"`
	MemoryMB    uint64 `json:"memory_mb"`
	CPUCount    int    `json:"cpu_count"`
	TrackedJobs int    `json:"tracked_jobs"`
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Version:   version.Version,
		Checks:    make(map[string]CheckResult),
	}

	// Check the job registry
	if s.registry != nil {
		health.Checks["registry"] = CheckResult{
			Status:  "healthy",
			Message: "Job registry operational",
		}
		health.System.TrackedJobs = s.registry.Size()
	} else {
		health.Checks["registry"] = CheckResult{
			Status:  "unhealthy",
			Message: "Job registry not initialized",
		}
		health.Status = "unhealthy"
	}

	// Check WebSocket service
	if s.wsHub != nil && s.wsHub.IsRunning() {
		health.Checks["websocket"] = CheckResult{
			Status:  "healthy",
			Message: "WebSocket hub is running",
		}
	} else {
		health.Checks["websocket"] = CheckResult{
			Status:  "degraded",
			Message: "WebSocket hub not running",
		}
	}

	// Check AMQP if configured
	if s.amqpClient != nil {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					health.Checks["amqp"] = CheckResult{
						Status:  "degraded",
						Message: "AMQP client error",
					}
				}
			}()

			if s.amqpClient.IsConnected() {
				health.Checks["amqp"] = CheckResult{
					Status:  "healthy",
					Message: "AMQP connected",
				}
			} else {
				health.Checks["amqp"] = CheckResult{
					Status:  "degraded",
					Message: "AMQP disconnected",
				}
			}
		}()
	}

	// System information
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	health.System.GoRoutines = runtime.NumGoroutine()
	health.System.MemoryMB = m.Alloc / 1024 / 1024
	health.System.CPUCount = runtime.NumCPU()

	if r.URL.Query().Get("detailed") == "true" {
		s.logger.WithFields(logrus.Fields{
			"status":   health.Status,
			"checks":   health.Checks,
			"duration": time.Since(startTime),
		}).Debug("Health check performed")
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(health)
}

// LivenessHandler handles kubernetes liveness probe
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ReadinessHandler handles kubernetes readiness probe
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.registry != nil {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("not ready"))
}
