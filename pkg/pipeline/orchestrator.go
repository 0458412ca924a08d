package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/config"
	"voiceqa-server/pkg/dialog"
	"voiceqa-server/pkg/errors"
	"voiceqa-server/pkg/llm"
	"voiceqa-server/pkg/media"
	"voiceqa-server/pkg/metrics"
	"voiceqa-server/pkg/sim"
	"voiceqa-server/pkg/storage"
	"voiceqa-server/pkg/stt"
	"voiceqa-server/pkg/tts"
)

// Event is a job lifecycle notification
type Event struct {
	JobUUID   string    `json:"job_uuid"`
	Type      string    `json:"type"`
	Step      string    `json:"step,omitempty"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types emitted by the orchestrator and registry
const (
	EventSubmitted     = "submitted"
	EventStarted       = "started"
	EventStepCompleted = "step_completed"
	EventCompleted     = "completed"
	EventFailed        = "failed"
)

// EventListener receives job lifecycle events
type EventListener func(Event)

// Orchestrator drives the pipeline state machine over one accumulator.
// Run never returns an error: every failure is absorbed into the
// accumulator's terminal FAILED state.
type Orchestrator struct {
	logger *logrus.Logger
	cfg    *config.Config

	synth     *tts.ProviderManager
	simulator sim.Simulator
	store     storage.Store
	stt       stt.Transcriber
	scorer    llm.Scorer

	listeners []EventListener
}

// NewOrchestrator wires the pipeline collaborators together
func NewOrchestrator(
	logger *logrus.Logger,
	cfg *config.Config,
	synth *tts.ProviderManager,
	simulator sim.Simulator,
	store storage.Store,
	transcriber stt.Transcriber,
	scorer llm.Scorer,
) *Orchestrator {
	return &Orchestrator{
		logger:    logger,
		cfg:       cfg,
		synth:     synth,
		simulator: simulator,
		store:     store,
		stt:       transcriber,
		scorer:    scorer,
	}
}

// AddListener registers a lifecycle event listener
func (o *Orchestrator) AddListener(listener EventListener) {
	o.listeners = append(o.listeners, listener)
}

func (o *Orchestrator) emit(r *TestResult, eventType string, step Step) {
	if len(o.listeners) == 0 {
		return
	}
	event := Event{
		JobUUID:   r.ID(),
		Type:      eventType,
		Step:      string(step),
		Status:    r.Status(),
		Timestamp: time.Now().UTC(),
	}
	for _, listener := range o.listeners {
		listener(event)
	}
}

// Run executes the pipeline for one job, mutating the accumulator in
// place. Steps are strictly sequential; the first failure aborts the
// remaining sequence and is recorded as the terminal FAILED state.
func (o *Orchestrator) Run(ctx context.Context, r *TestResult) {
	if !r.markRunning() {
		o.logger.WithField("job_uuid", r.ID()).Debug("Job canceled before start, skipping")
		return
	}
	metrics.JobStarted()
	started := time.Now()
	o.emit(r, EventStarted, StepSynthesize)

	o.logger.WithField("job_uuid", r.ID()).Info("Starting test pipeline")

	for step := StepSynthesize; step != StepDone; {
		stepStart := time.Now()
		next, err := o.transition(ctx, step, r)
		metrics.ObserveStep(string(step), stepStart, err != nil)

		if err != nil {
			r.fail(step, err.Error())
			metrics.JobFailed(string(step), time.Since(started))
			o.logger.WithFields(logrus.Fields{
				"job_uuid": r.ID(),
				"step":     step,
				"error":    err,
			}).Error("Test pipeline failed")
			o.emit(r, EventFailed, step)
			return
		}

		r.completeStep(step, next)
		o.emit(r, EventStepCompleted, step)
		step = next
	}

	r.complete()
	metrics.JobCompleted(time.Since(started), r.FinalScore())
	o.logger.WithFields(logrus.Fields{
		"job_uuid":       r.ID(),
		"accuracy_score": r.FinalScore(),
		"duration_ms":    time.Since(started).Milliseconds(),
	}).Info("Test pipeline completed")
	o.emit(r, EventCompleted, StepDone)
}

// transition executes one state of the machine and returns the next
func (o *Orchestrator) transition(ctx context.Context, step Step, r *TestResult) (Step, error) {
	switch step {
	case StepSynthesize:
		return StepSimulate, o.synthesize(ctx, r)
	case StepSimulate:
		return StepStore, o.simulate(ctx, r)
	case StepStore:
		return StepTranscribe, o.storeAudio(ctx, r)
	case StepTranscribe:
		return StepScore, o.transcribe(ctx, r)
	case StepScore:
		return StepFinalize, o.score(ctx, r)
	case StepFinalize:
		return StepDone, o.finalize(r)
	default:
		return StepDone, fmt.Errorf("unknown pipeline step: %s", step)
	}
}

// synthesize parses the script and produces one concatenated dialogue
// recording with silence gaps between lines.
func (o *Orchestrator) synthesize(ctx context.Context, r *TestResult) error {
	script := dialog.Parse(r.OriginalScript(), o.cfg.TTS.DefaultPause)
	if len(script.Lines) == 0 {
		return errors.NewStepError(errors.ErrSynthesisFailed, errors.ErrEmptyScript,
			"script synthesis failed", map[string]interface{}{"job_uuid": r.ID()})
	}

	o.logger.WithFields(logrus.Fields{
		"job_uuid": r.ID(),
		"lines":    len(script.Lines),
	}).Info("Synthesizing dialogue audio")

	sampleRate := o.cfg.TTS.SampleRate
	segments := make([][]byte, 0, len(script.Lines)*2)

	for i, line := range script.Lines {
		pcm, err := o.synthesizeLine(ctx, line)
		if err != nil {
			return errors.NewStepError(errors.ErrSynthesisFailed, err,
				fmt.Sprintf("synthesis failed for line %d", i+1),
				map[string]interface{}{"job_uuid": r.ID(), "line": i + 1})
		}
		segments = append(segments, pcm)

		// Insert silence between successive lines, not after the last
		if i < len(script.Lines)-1 {
			segments = append(segments, media.Silence(line.PauseAfter.Seconds(), sampleRate))
		}
	}

	combined := media.CombineSegments(segments)

	name := fmt.Sprintf("dialogue_%s.wav", uuid.New().String()[:8])
	path := filepath.Join(o.cfg.Storage.Root, name)
	if err := media.WriteWAV(path, combined, sampleRate); err != nil {
		return errors.NewStepError(errors.ErrSynthesisFailed, err, "failed to persist dialogue audio")
	}

	artifact, err := media.ProbeWAV(path)
	if err != nil {
		return errors.NewStepError(errors.ErrSynthesisFailed, err, "failed to inspect dialogue audio")
	}

	r.setTTSAudio(artifact)
	o.logger.WithFields(logrus.Fields{
		"job_uuid": r.ID(),
		"file":     name,
		"duration": artifact.Duration,
	}).Info("Dialogue audio generated")
	return nil
}

// synthesizeLine converts one dialogue line, bounding the individual
// call so a hung backend cannot stall a multi-line job.
func (o *Orchestrator) synthesizeLine(ctx context.Context, line dialog.Line) ([]byte, error) {
	callCtx := ctx
	if o.cfg.TTS.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.TTS.RequestTimeout)
		defer cancel()
	}

	metrics.SynthesisRequest(o.cfg.TTS.DefaultProvider)
	return o.synth.Synthesize(callCtx, line.Text, o.voiceFor(line.Speaker))
}

func (o *Orchestrator) voiceFor(speaker dialog.Speaker) string {
	if speaker == dialog.SpeakerAgent {
		return o.cfg.TTS.AgentVoice
	}
	return o.cfg.TTS.CustomerVoice
}

// simulate produces the audio heard on the other end of the call
func (o *Orchestrator) simulate(ctx context.Context, r *TestResult) error {
	source := r.ttsAudioRef()
	if source == nil {
		return errors.NewStepError(errors.ErrSimulationFailed, nil,
			"synthesized audio missing, cannot simulate call")
	}

	artifact, err := o.simulator.Simulate(ctx, source.Path)
	if err != nil {
		return errors.NewStepError(errors.ErrSimulationFailed, err, "call simulation failed",
			map[string]interface{}{"job_uuid": r.ID()})
	}

	r.setResponseAudio(artifact)
	return nil
}

// storeAudio persists the response artifact with job metadata
func (o *Orchestrator) storeAudio(ctx context.Context, r *TestResult) error {
	response := r.responseAudioRef()
	if response == nil {
		return errors.NewStepError(errors.ErrStorageFailed, nil,
			"response audio missing, cannot store")
	}

	metadata := map[string]string{
		"test_id":    r.ID(),
		"type":       "customer_service_response",
		"created_at": time.Now().Format(time.RFC3339),
	}

	id, err := o.store.Store(ctx, response.Path, metadata)
	if err != nil {
		return errors.NewStepError(errors.ErrStorageFailed, err, "audio storage failed",
			map[string]interface{}{"job_uuid": r.ID()})
	}

	r.setStorageID(id)
	o.logger.WithFields(logrus.Fields{
		"job_uuid": r.ID(),
		"file_id":  id,
		"backend":  o.store.Name(),
	}).Info("Response audio stored")
	return nil
}

// transcribe converts the response audio back to text
func (o *Orchestrator) transcribe(ctx context.Context, r *TestResult) error {
	response := r.responseAudioRef()
	if response == nil {
		return errors.NewStepError(errors.ErrTranscriptionFailed, nil,
			"response audio missing, cannot transcribe")
	}

	metrics.TranscriptionSubmitted(response.Size)

	result, err := o.stt.TranscribeFile(ctx, response.Path)
	if err != nil {
		return errors.NewStepError(errors.ErrTranscriptionFailed, err, "transcription failed",
			map[string]interface{}{"job_uuid": r.ID()})
	}

	r.setTranscription(result.Text, result.Confidence)
	o.logger.WithFields(logrus.Fields{
		"job_uuid":       r.ID(),
		"transcript_len": len(result.Text),
		"confidence":     result.Confidence,
	}).Info("Transcription recorded")
	return nil
}

// score compares the transcript against the original script. An empty
// transcript is a valid degraded outcome: scoring is skipped and an
// empty analysis recorded, to surface as a zero score at finalize.
func (o *Orchestrator) score(ctx context.Context, r *TestResult) error {
	transcript := r.transcript()
	if strings.TrimSpace(transcript) == "" {
		o.logger.WithField("job_uuid", r.ID()).Warn("Transcript is empty, skipping semantic analysis")
		r.setAnalysis(llm.EmptyAnalysis("no transcript to analyze"))
		return nil
	}

	analysis, err := o.scorer.Analyze(ctx, r.OriginalScript(), transcript)
	if err != nil {
		return errors.NewStepError(errors.ErrScoringFailed, err, "semantic scoring failed",
			map[string]interface{}{"job_uuid": r.ID()})
	}

	r.setAnalysis(analysis)
	return nil
}

// finalize extracts and clamps the accumulator's final score
func (o *Orchestrator) finalize(r *TestResult) error {
	analysis := r.analysisRef()
	score := 0.0
	if analysis != nil {
		score = llm.ClampScore(analysis.AccuracyScore)
	}
	r.setAccuracyScore(score)
	return nil
}

// CheckServices independently probes each external capability. A probe
// failure for one capability never prevents probing the others.
func (o *Orchestrator) CheckServices(ctx context.Context) map[string]bool {
	status := make(map[string]bool)

	status["tts"] = o.probe(ctx, o.synth.Ping)
	status["stt"] = o.probe(ctx, o.stt.Ping)
	status["llm"] = o.probe(ctx, o.scorer.Ping)

	// The simulation and storage collaborators are local stand-ins
	// with no backend to fail.
	status["simulator"] = true
	status["storage"] = true

	return status
}

func (o *Orchestrator) probe(ctx context.Context, ping func(context.Context) error) (healthy bool) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.WithField("panic", rec).Error("Service probe panicked")
			healthy = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := ping(probeCtx); err != nil {
		o.logger.WithError(err).Debug("Service probe failed")
		return false
	}
	return true
}
