package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceqa-server/pkg/config"
	"voiceqa-server/pkg/llm"
	"voiceqa-server/pkg/pipeline"
	"voiceqa-server/pkg/sim"
	"voiceqa-server/pkg/storage"
	"voiceqa-server/pkg/stt"
	"voiceqa-server/pkg/tts"
	"voiceqa-server/pkg/util"
)

const testScript = "客戶: 你好，我想詢問帳單問題\n客服: 好的，請提供您的帳號"

func newTestServer(t *testing.T) (*Server, *pipeline.Registry) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Port:         0,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Storage: config.StorageConfig{
			Backend:      "memory",
			Root:         dir,
			PublicPrefix: "/storage/audio",
		},
		TTS: config.TTSConfig{
			DefaultProvider: "mock",
			SampleRate:      16000,
			CustomerVoice:   "zh_en_female_1",
			AgentVoice:      "zh_en_male_1",
			DefaultPause:    100 * time.Millisecond,
			RequestTimeout:  5 * time.Second,
		},
	}

	manager := tts.NewProviderManager(logger, "mock")
	require.NoError(t, manager.RegisterProvider(tts.NewMockProvider(logger, cfg.TTS.SampleRate)))

	orchestrator := pipeline.NewOrchestrator(
		logger, cfg, manager,
		sim.NewMockSimulator(logger, dir),
		storage.NewMemoryStore(),
		stt.NewMockTranscriber(logger),
		llm.NewMockScorer(logger),
	)

	pool := util.NewWorkerPool(2, 8)
	pool.Start()
	t.Cleanup(func() { pool.Stop(5 * time.Second) })

	registry := pipeline.NewRegistry(logger, orchestrator, pool, cfg.Storage.PublicPrefix)
	return NewServer(logger, cfg, registry, orchestrator), registry
}

func doJSON(t *testing.T, server *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	decoded := map[string]interface{}{}
	if rec.Body.Len() > 0 && strings.Contains(rec.Header().Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func startTest(t *testing.T, server *Server) string {
	t.Helper()
	payload, err := json.Marshal(StartTestRequest{Script: testScript})
	require.NoError(t, err)
	rec, body := doJSON(t, server, http.MethodPost, "/api/test/start", string(payload))
	require.Equal(t, http.StatusAccepted, rec.Code)
	id, _ := body["test_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func waitForCompletion(t *testing.T, server *Server, id string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec, body := doJSON(t, server, http.MethodGet, "/api/test/"+id+"/status", "")
		require.Equal(t, http.StatusOK, rec.Code)
		status, _ := body["status"].(string)
		if status == "completed" || status == "failed" {
			return body
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("test did not finish in time")
	return nil
}

func TestStartTestAndPoll(t *testing.T) {
	server, _ := newTestServer(t)

	id := startTest(t, server)
	status := waitForCompletion(t, server, id)

	assert.Equal(t, "completed", status["status"])
	assert.Equal(t, 95.0, status["accuracy_score"])
	assert.Equal(t, 1.0, status["progress"])
}

func TestStartTestRejectsBlankScript(t *testing.T) {
	server, registry := newTestServer(t)

	rec, _ := doJSON(t, server, http.MethodPost, "/api/test/start", `{"script":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, registry.Size())
}

func TestStartTestRejectsMalformedBody(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doJSON(t, server, http.MethodPost, "/api/test/start", "not json at all")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartTestMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)

	rec, _ := doJSON(t, server, http.MethodGet, "/api/test/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetResultAndReport(t *testing.T) {
	server, _ := newTestServer(t)

	id := startTest(t, server)
	waitForCompletion(t, server, id)

	rec, result := doJSON(t, server, http.MethodGet, "/api/test/"+id+"/result", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testScript, result["original_script"])
	assert.NotEmpty(t, result["transcribed_text"])

	// Artifacts surface only as web paths
	ttsAudio, ok := result["tts_audio"].(map[string]interface{})
	require.True(t, ok)
	webPath, _ := ttsAudio["web_path"].(string)
	assert.True(t, strings.HasPrefix(webPath, "/storage/audio/"))

	rec, report := doJSON(t, server, http.MethodGet, "/api/test/"+id+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "excellent", report["grade"])
	assert.Equal(t, 95.0, report["accuracy_score"])
}

func TestUnknownTestReturns404(t *testing.T) {
	server, _ := newTestServer(t)

	for _, sub := range []string{"status", "result", "report"} {
		rec, _ := doJSON(t, server, http.MethodGet, "/api/test/no-such-id/"+sub, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec, _ := doJSON(t, server, http.MethodDelete, "/api/test/no-such-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownSubresourceReturns404(t *testing.T) {
	server, _ := newTestServer(t)
	id := startTest(t, server)

	rec, _ := doJSON(t, server, http.MethodGet, "/api/test/"+id+"/bogus", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCompletedTest(t *testing.T) {
	server, registry := newTestServer(t)

	id := startTest(t, server)
	waitForCompletion(t, server, id)

	rec, _ := doJSON(t, server, http.MethodDelete, "/api/test/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, registry.Size())
}

func TestListTests(t *testing.T) {
	server, _ := newTestServer(t)

	first := startTest(t, server)
	waitForCompletion(t, server, first)
	second := startTest(t, server)
	waitForCompletion(t, server, second)

	rec, body := doJSON(t, server, http.MethodGet, "/api/tests/list?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["total"])
	assert.Equal(t, 1.0, body["count"])

	tests, ok := body["tests"].([]interface{})
	require.True(t, ok)
	require.Len(t, tests, 1)
}

func TestCleanupEndpoint(t *testing.T) {
	server, registry := newTestServer(t)

	id := startTest(t, server)
	waitForCompletion(t, server, id)

	rec, body := doJSON(t, server, http.MethodPost, "/api/tests/cleanup?max_age_hours=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["removed"])
	assert.Equal(t, 0, registry.Size())
}

func TestHealthEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	rec, body := doJSON(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("Server"))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	assert.Equal(t, "ok", recorder.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	recorder = httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	assert.Equal(t, "ready", recorder.Body.String())
}

func TestSystemStatus(t *testing.T) {
	server, _ := newTestServer(t)

	rec, body := doJSON(t, server, http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	services, ok := body["services"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, services["tts"])
	assert.Equal(t, true, services["stt"])
	assert.Equal(t, true, services["llm"])
}
