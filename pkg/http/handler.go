package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voiceqa-server/pkg/errors"
	"voiceqa-server/pkg/pipeline"

	"github.com/sirupsen/logrus"
)

// TestHandlers manages HTTP endpoints for test job operations
type TestHandlers struct {
	registry *pipeline.Registry
	logger   *logrus.Logger
}

// NewTestHandlers creates new test job HTTP handlers
func NewTestHandlers(registry *pipeline.Registry, logger *logrus.Logger) *TestHandlers {
	return &TestHandlers{
		registry: registry,
		logger:   logger,
	}
}

// StartTestRequest represents a request to start a test job
type StartTestRequest struct {
	Script string `json:"script"`
}

// StartTestResponse represents the response to a test submission
type StartTestResponse struct {
	TestID  string `json:"test_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ListTestsResponse represents a windowed list of test jobs
type ListTestsResponse struct {
	Tests  []*pipeline.ListItem `json:"tests"`
	Count  int                  `json:"count"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// CleanupResponse reports how many terminal jobs were removed
type CleanupResponse struct {
	Removed   int    `json:"removed"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message"`
}

// StartTestHandler handles test job submission
func (h *TestHandlers) StartTestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req StartTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Warn("Failed to decode test submission request")
		errors.WriteError(w, errors.NewValidation("invalid request body"))
		return
	}

	id, err := h.registry.Submit(req.Script)
	if err != nil {
		h.logger.WithError(err).Warn("Test submission rejected")
		errors.WriteError(w, err)
		return
	}

	response := StartTestResponse{
		TestID:  id,
		Status:  string(pipeline.StatusPending),
		Message: "Test submitted successfully",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// TestResourceHandler routes per-job requests: GET status/result/report
// subresources and DELETE of the job itself.
func (h *TestHandlers) TestResourceHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/test/")
	if rest == "" {
		http.Error(w, "Missing test ID", http.StatusBadRequest)
		return
	}

	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "Missing test ID", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodDelete && sub == "" {
		h.deleteTest(w, id)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch sub {
	case "status":
		view, err := h.registry.GetStatus(id)
		h.writeView(w, view, err)
	case "result":
		view, err := h.registry.GetResult(id)
		h.writeView(w, view, err)
	case "report":
		view, err := h.registry.GetReport(id)
		h.writeView(w, view, err)
	default:
		http.Error(w, "Unknown test resource", http.StatusNotFound)
	}
}

func (h *TestHandlers) writeView(w http.ResponseWriter, view interface{}, err error) {
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(view)
}

func (h *TestHandlers) deleteTest(w http.ResponseWriter, id string) {
	if err := h.registry.Delete(id); err != nil {
		h.logger.WithError(err).WithField("test_id", id).Warn("Test deletion rejected")
		errors.WriteError(w, err)
		return
	}

	h.logger.WithField("test_id", id).Info("Test deleted via API")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"test_id": id,
		"message": "Test deleted successfully",
	})
}

// ListTestsHandler handles job listing requests
func (h *TestHandlers) ListTestsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	limit := parseIntParam(query.Get("limit"), 50)
	offset := parseIntParam(query.Get("offset"), 0)

	items, total := h.registry.List(limit, offset)

	response := ListTestsResponse{
		Tests:  items,
		Count:  len(items),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// CleanupHandler removes terminal jobs older than the requested age
func (h *TestHandlers) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxAgeHours := parseIntParam(r.URL.Query().Get("max_age_hours"), 24)
	removed := h.registry.Cleanup(time.Duration(maxAgeHours) * time.Hour)

	h.logger.WithFields(logrus.Fields{
		"removed":       removed,
		"max_age_hours": maxAgeHours,
	}).Info("Cleanup requested via API")

	response := CleanupResponse{
		Removed:   removed,
		Remaining: h.registry.Size(),
		Message:   "Cleanup completed",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
