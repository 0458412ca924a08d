package pipeline

import (
	"time"

	"voiceqa-server/pkg/llm"
)

// StatusView is the lightweight polling projection of a job
type StatusView struct {
	TestID         string   `json:"test_id"`
	Status         Status   `json:"status"`
	Timestamp      string   `json:"timestamp"`
	CompletedSteps []string `json:"completed_steps"`
	CurrentStep    string   `json:"current_step,omitempty"`
	Progress       float64  `json:"progress"`
	AccuracyScore  float64  `json:"accuracy_score"`
	ErrorMessage   string   `json:"error_message,omitempty"`
}

// ArtifactView is the external projection of an audio artifact. Only
// the derived web path is exposed, never the internal storage path.
type ArtifactView struct {
	Duration float64 `json:"duration"`
	Size     int64   `json:"file_size"`
	Format   string  `json:"format"`
	WebPath  string  `json:"web_path"`
}

// ResultView is the full snapshot of an accumulator
type ResultView struct {
	TestID          string        `json:"test_id"`
	Timestamp       string        `json:"timestamp"`
	Status          Status        `json:"status"`
	OriginalScript  string        `json:"original_script"`
	TTSAudio        *ArtifactView `json:"tts_audio"`
	ResponseAudio   *ArtifactView `json:"mock_response_audio"`
	StorageID       string        `json:"storage_id,omitempty"`
	TranscribedText string        `json:"transcribed_text"`
	Confidence      float64       `json:"confidence"`
	Analysis        *llm.Analysis `json:"llm_analysis"`
	AccuracyScore   float64       `json:"accuracy_score"`
	FailedStep      string        `json:"failed_step,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// ReportView is the human-oriented summary of a finished job
type ReportView struct {
	TestID          string   `json:"test_id"`
	Status          Status   `json:"status"`
	Message         string   `json:"message,omitempty"`
	Error           string   `json:"error,omitempty"`
	AccuracyScore   float64  `json:"accuracy_score,omitempty"`
	Grade           string   `json:"grade,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	KeyDifferences  []string `json:"key_differences,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
	OriginalScript  string   `json:"original_script,omitempty"`
	TranscribedText string   `json:"transcribed_text,omitempty"`
	Timestamp       string   `json:"timestamp,omitempty"`
}

// ListItem is one row of the paginated job listing
type ListItem struct {
	TestID        string  `json:"test_id"`
	Status        Status  `json:"status"`
	AccuracyScore float64 `json:"accuracy_score"`
	Timestamp     string  `json:"timestamp"`
	ScriptPreview string  `json:"script_preview"`
}

// StatusView builds the polling projection
func (r *TestResult) StatusView() *StatusView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]string, len(r.completedSteps))
	for i, s := range r.completedSteps {
		steps[i] = string(s)
	}

	view := &StatusView{
		TestID:         r.id,
		Status:         r.status,
		Timestamp:      r.createdAt.Format(time.RFC3339),
		CompletedSteps: steps,
		Progress:       float64(len(r.completedSteps)) / stepCount,
		ErrorMessage:   r.errorMessage,
	}

	if r.status == StatusRunning {
		view.CurrentStep = string(r.currentStep)
	}
	// The score is only meaningful for a completed job; failed or
	// in-progress jobs always report zero.
	if r.status == StatusCompleted {
		view.AccuracyScore = r.accuracyScore
	}

	return view
}

// ResultView builds the full snapshot. Artifact references are exposed
// through web paths derived with publicPrefix.
func (r *TestResult) ResultView(publicPrefix string) *ResultView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := &ResultView{
		TestID:          r.id,
		Timestamp:       r.createdAt.Format(time.RFC3339),
		Status:          r.status,
		OriginalScript:  r.originalScript,
		StorageID:       r.storageID,
		TranscribedText: r.transcribedText,
		Confidence:      r.confidence,
		Analysis:        r.analysis,
		FailedStep:      string(r.failedStep),
		ErrorMessage:    r.errorMessage,
	}

	if r.status == StatusCompleted {
		view.AccuracyScore = r.accuracyScore
	}
	if r.ttsAudio != nil {
		view.TTSAudio = &ArtifactView{
			Duration: r.ttsAudio.Duration,
			Size:     r.ttsAudio.Size,
			Format:   r.ttsAudio.Format,
			WebPath:  r.ttsAudio.WebPath(publicPrefix),
		}
	}
	if r.responseAudio != nil {
		view.ResponseAudio = &ArtifactView{
			Duration: r.responseAudio.Duration,
			Size:     r.responseAudio.Size,
			Format:   r.responseAudio.Format,
			WebPath:  r.responseAudio.WebPath(publicPrefix),
		}
	}

	return view
}

// ReportView builds the human-oriented report
func (r *TestResult) ReportView() *ReportView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := &ReportView{
		TestID: r.id,
		Status: r.status,
	}

	switch r.status {
	case StatusPending, StatusRunning:
		report.Message = "test still in progress"
		return report
	case StatusFailed:
		report.Message = "test execution failed"
		report.Error = r.errorMessage
		return report
	}

	report.AccuracyScore = r.accuracyScore
	report.Grade = gradeFor(r.accuracyScore)
	report.OriginalScript = r.originalScript
	report.TranscribedText = r.transcribedText
	report.Timestamp = r.createdAt.Format(time.RFC3339)

	if r.analysis != nil {
		report.Summary = r.analysis.Summary
		report.KeyDifferences = r.analysis.KeyDifferences
		report.Suggestions = r.analysis.Suggestions
	}

	return report
}

// ListItem builds the listing row
func (r *TestResult) ListItem() *ListItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item := &ListItem{
		TestID:        r.id,
		Status:        r.status,
		Timestamp:     r.createdAt.Format(time.RFC3339),
		ScriptPreview: previewOf(r.originalScript),
	}
	if r.status == StatusCompleted {
		item.AccuracyScore = r.accuracyScore
	}
	return item
}

func gradeFor(score float64) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 80:
		return "good"
	case score >= 70:
		return "fair"
	default:
		return "needs improvement"
	}
}

func previewOf(script string) string {
	const maxPreview = 50
	runes := []rune(script)
	if len(runes) <= maxPreview {
		return script
	}
	return string(runes[:maxPreview]) + "..."
}
