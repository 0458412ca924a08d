package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"voiceqa-server/pkg/llm"
	"voiceqa-server/pkg/media"
)

// Status is the lifecycle state of a test job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further step will execute
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step identifies one stage of the pipeline state machine
type Step string

const (
	StepSynthesize Step = "synthesize"
	StepSimulate   Step = "simulate"
	StepStore      Step = "store"
	StepTranscribe Step = "transcribe"
	StepScore      Step = "score"
	StepFinalize   Step = "finalize"
	StepDone       Step = "done"
)

// stepCount is the number of executable pipeline steps
const stepCount = 6

// TestResult is the accumulator for one test job. It is created by the
// Registry, mutated in place by exactly one Orchestrator run, and read
// concurrently by status queries.
type TestResult struct {
	mu sync.RWMutex

	id        string
	createdAt time.Time

	status         Status
	canceled       bool
	currentStep    Step
	completedSteps []Step
	failedStep     Step

	originalScript  string
	ttsAudio        *media.Artifact
	responseAudio   *media.Artifact
	storageID       string
	transcribedText string
	confidence      float64
	analysis        *llm.Analysis
	accuracyScore   float64
	errorMessage    string

	startedAt  time.Time
	finishedAt time.Time
}

// NewTestResult creates a fresh accumulator in the pending state
func NewTestResult(script string) *TestResult {
	return &TestResult{
		id:             uuid.New().String(),
		createdAt:      time.Now(),
		status:         StatusPending,
		originalScript: script,
	}
}

// ID returns the immutable job identifier
func (r *TestResult) ID() string {
	return r.id
}

// CreatedAt returns the creation timestamp
func (r *TestResult) CreatedAt() time.Time {
	return r.createdAt
}

// Status returns the current lifecycle state
func (r *TestResult) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// OriginalScript returns the submitted script text
func (r *TestResult) OriginalScript() string {
	return r.originalScript
}

// markRunning transitions the job to RUNNING. It reports false when
// the job was canceled while still queued, in which case the caller
// must not execute the pipeline.
func (r *TestResult) markRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.canceled {
		return false
	}
	r.status = StatusRunning
	r.currentStep = StepSynthesize
	r.startedAt = time.Now()
	return true
}

// cancel marks a still-PENDING job so its queued task is skipped.
// It reports false once the job has started running; cancel and
// markRunning take the same lock, so a successful cancel guarantees
// the pipeline never executes.
func (r *TestResult) cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPending {
		return false
	}
	r.canceled = true
	return true
}

// fail records a terminal failure caused by the given step
func (r *TestResult) fail(step Step, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusFailed
	r.failedStep = step
	r.errorMessage = message
	r.finishedAt = time.Now()
}

// complete records the successful terminal state
func (r *TestResult) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusCompleted
	r.currentStep = StepDone
	r.finishedAt = time.Now()
}

// completeStep marks a step done and advances the current step marker
func (r *TestResult) completeStep(step, next Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completedSteps = append(r.completedSteps, step)
	r.currentStep = next
}

func (r *TestResult) setTTSAudio(a *media.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttsAudio = a
}

func (r *TestResult) setResponseAudio(a *media.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responseAudio = a
}

func (r *TestResult) setStorageID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storageID = id
}

func (r *TestResult) setTranscription(text string, confidence float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcribedText = text
	r.confidence = confidence
}

func (r *TestResult) setAnalysis(a *llm.Analysis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analysis = a
}

func (r *TestResult) setAccuracyScore(score float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accuracyScore = score
}

func (r *TestResult) ttsAudioRef() *media.Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ttsAudio
}

func (r *TestResult) responseAudioRef() *media.Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.responseAudio
}

func (r *TestResult) transcript() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transcribedText
}

func (r *TestResult) analysisRef() *llm.Analysis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.analysis
}

// FinalScore returns the accuracy score, which is only meaningful once
// the job has completed; for any other state it reports zero.
func (r *TestResult) FinalScore() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.status != StatusCompleted {
		return 0
	}
	return r.accuracyScore
}
