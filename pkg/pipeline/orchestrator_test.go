package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceqa-server/pkg/config"
	"voiceqa-server/pkg/llm"
	"voiceqa-server/pkg/sim"
	"voiceqa-server/pkg/storage"
	"voiceqa-server/pkg/stt"
	"voiceqa-server/pkg/tts"
)

const testScript = "客戶: 你好，我想詢問帳單問題\n客服: 好的，請提供您的帳號"

type testFixture struct {
	orchestrator *Orchestrator
	synth        *tts.MockProvider
	transcriber  *stt.MockTranscriber
	scorer       *llm.MockScorer
	store        *storage.MemoryStore
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
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
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	logger := quietLogger()
	cfg := testConfig(t)

	synthProvider := tts.NewMockProvider(logger, cfg.TTS.SampleRate)
	manager := tts.NewProviderManager(logger, "mock")
	require.NoError(t, manager.RegisterProvider(synthProvider))

	transcriber := stt.NewMockTranscriber(logger)
	scorer := llm.NewMockScorer(logger)
	store := storage.NewMemoryStore()
	simulator := sim.NewMockSimulator(logger, cfg.Storage.Root)

	return &testFixture{
		orchestrator: NewOrchestrator(logger, cfg, manager, simulator, store, transcriber, scorer),
		synth:        synthProvider,
		transcriber:  transcriber,
		scorer:       scorer,
		store:        store,
	}
}

func TestRunHappyPath(t *testing.T) {
	f := newTestFixture(t)
	result := NewTestResult(testScript)

	f.orchestrator.Run(context.Background(), result)

	assert.Equal(t, StatusCompleted, result.Status())
	assert.Equal(t, 95.0, result.FinalScore())

	// Both dialogue lines synthesized with role-matched voices
	require.Len(t, f.synth.Calls, 2)
	assert.Equal(t, "zh_en_female_1", f.synth.Calls[0].Voice)
	assert.Equal(t, "zh_en_male_1", f.synth.Calls[1].Voice)

	// The response artifact was stored and transcribed
	require.Len(t, f.transcriber.Calls, 1)
	require.Len(t, f.scorer.Calls, 1)

	view := result.ResultView("/storage/audio")
	assert.Equal(t, "你好 我想詢問帳單問題", view.TranscribedText)
	assert.NotEmpty(t, view.StorageID)
	assert.NotNil(t, view.Analysis)
	require.NotNil(t, view.TTSAudio)
	assert.Contains(t, view.TTSAudio.WebPath, "/storage/audio/dialogue_")
	require.NotNil(t, view.ResponseAudio)
	assert.Contains(t, view.ResponseAudio.WebPath, "/storage/audio/response_")

	status := result.StatusView()
	assert.Equal(t, 1.0, status.Progress)
	assert.Empty(t, status.CurrentStep)
}

func TestRunEmptyScriptFailsAtSynthesize(t *testing.T) {
	f := newTestFixture(t)
	result := NewTestResult("no recognizable dialogue lines here")

	f.orchestrator.Run(context.Background(), result)

	assert.Equal(t, StatusFailed, result.Status())
	assert.Equal(t, 0.0, result.FinalScore())

	view := result.ResultView("")
	assert.Equal(t, string(StepSynthesize), view.FailedStep)
	assert.NotEmpty(t, view.ErrorMessage)

	// No downstream step ran
	assert.Empty(t, f.transcriber.Calls)
	assert.Empty(t, f.scorer.Calls)
}

func TestRunTranscriptionFailure(t *testing.T) {
	f := newTestFixture(t)
	f.transcriber.Fail = errors.New("quota exceeded")
	result := NewTestResult(testScript)

	f.orchestrator.Run(context.Background(), result)

	assert.Equal(t, StatusFailed, result.Status())
	assert.Equal(t, 0.0, result.FinalScore())

	view := result.ResultView("")
	assert.Equal(t, string(StepTranscribe), view.FailedStep)
	assert.Contains(t, view.ErrorMessage, "quota exceeded")

	// Scoring never ran
	assert.Empty(t, f.scorer.Calls)

	// The score in the status view stays zero for a failed job
	assert.Equal(t, 0.0, result.StatusView().AccuracyScore)
}

func TestRunEmptyTranscriptCompletesDegraded(t *testing.T) {
	f := newTestFixture(t)
	f.transcriber.Transcript = ""
	result := NewTestResult(testScript)

	f.orchestrator.Run(context.Background(), result)

	// An empty transcript is a legitimate degraded outcome
	assert.Equal(t, StatusCompleted, result.Status())
	assert.Equal(t, 0.0, result.FinalScore())
	assert.Empty(t, f.scorer.Calls)

	view := result.ResultView("")
	require.NotNil(t, view.Analysis)
	assert.True(t, view.Analysis.Degraded)
	assert.Empty(t, view.FailedStep)
}

func TestRunSynthesisFailure(t *testing.T) {
	f := newTestFixture(t)
	f.synth.Fail = errors.New("backend unreachable")
	result := NewTestResult(testScript)

	f.orchestrator.Run(context.Background(), result)

	assert.Equal(t, StatusFailed, result.Status())
	view := result.ResultView("")
	assert.Equal(t, string(StepSynthesize), view.FailedStep)
	assert.Contains(t, view.ErrorMessage, "backend unreachable")
}

func TestRunStorageFailure(t *testing.T) {
	f := newTestFixture(t)
	f.store.Fail = errors.New("bucket gone")
	result := NewTestResult(testScript)

	f.orchestrator.Run(context.Background(), result)

	assert.Equal(t, StatusFailed, result.Status())
	view := result.ResultView("")
	assert.Equal(t, string(StepStore), view.FailedStep)
	assert.Contains(t, view.ErrorMessage, "bucket gone")
	assert.Empty(t, f.transcriber.Calls)
}

func TestRunScoringFailure(t *testing.T) {
	f := newTestFixture(t)
	f.scorer.Fail = errors.New("model overloaded")
	result := NewTestResult(testScript)

	f.orchestrator.Run(context.Background(), result)

	assert.Equal(t, StatusFailed, result.Status())
	view := result.ResultView("")
	assert.Equal(t, string(StepScore), view.FailedStep)
	assert.Contains(t, view.ErrorMessage, "model overloaded")
}

func TestRunEmitsLifecycleEvents(t *testing.T) {
	f := newTestFixture(t)

	var events []Event
	f.orchestrator.AddListener(func(event Event) {
		events = append(events, event)
	})

	result := NewTestResult(testScript)
	f.orchestrator.Run(context.Background(), result)

	require.NotEmpty(t, events)
	assert.Equal(t, EventStarted, events[0].Type)
	assert.Equal(t, EventCompleted, events[len(events)-1].Type)

	stepEvents := 0
	for _, event := range events {
		assert.Equal(t, result.ID(), event.JobUUID)
		if event.Type == EventStepCompleted {
			stepEvents++
		}
	}
	assert.Equal(t, 6, stepEvents)
}

func TestRunWritesDialogueArtifact(t *testing.T) {
	f := newTestFixture(t)
	result := NewTestResult(testScript)

	f.orchestrator.Run(context.Background(), result)
	require.Equal(t, StatusCompleted, result.Status())

	artifact := result.ttsAudioRef()
	require.NotNil(t, artifact)

	info, err := os.Stat(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, artifact.Size, info.Size())
	assert.Greater(t, artifact.Duration, 0.0)
	assert.Equal(t, "wav", artifact.Format)
}

func TestCheckServices(t *testing.T) {
	f := newTestFixture(t)

	status := f.orchestrator.CheckServices(context.Background())
	assert.True(t, status["tts"])
	assert.True(t, status["stt"])
	assert.True(t, status["llm"])
	assert.True(t, status["storage"])

	f.transcriber.Fail = errors.New("down")
	status = f.orchestrator.CheckServices(context.Background())
	assert.False(t, status["stt"])
	assert.True(t, status["tts"])
}
