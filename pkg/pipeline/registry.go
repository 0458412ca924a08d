package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/errors"
	"voiceqa-server/pkg/metrics"
	"voiceqa-server/pkg/util"
)

// Registry tracks every test job by UUID and dispatches accepted jobs
// onto a bounded worker pool. It is the single source of truth the
// polling API reads from.
type Registry struct {
	logger       *logrus.Logger
	orchestrator *Orchestrator
	pool         *util.WorkerPool
	publicPrefix string

	mutex sync.RWMutex
	jobs  map[string]*TestResult
}

// NewRegistry creates a job registry backed by the given worker pool.
// The pool must already be started by the caller.
func NewRegistry(logger *logrus.Logger, orchestrator *Orchestrator, pool *util.WorkerPool, publicPrefix string) *Registry {
	return &Registry{
		logger:       logger,
		orchestrator: orchestrator,
		pool:         pool,
		publicPrefix: publicPrefix,
		jobs:         make(map[string]*TestResult),
	}
}

// Submit validates the script, registers a new PENDING job, and
// dispatches it for asynchronous execution. The returned UUID is
// usable for status polling immediately, before the job starts.
func (reg *Registry) Submit(script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", errors.NewValidation("script must not be empty")
	}

	result := NewTestResult(script)
	id := result.ID()

	reg.mutex.Lock()
	reg.jobs[id] = result
	reg.mutex.Unlock()

	accepted := reg.pool.Submit(func() {
		reg.orchestrator.Run(context.Background(), result)
	})
	if !accepted {
		// The job never ran, so it must not linger as PENDING
		reg.mutex.Lock()
		delete(reg.jobs, id)
		reg.mutex.Unlock()
		return "", errors.Wrap(errors.ErrUnavailable, "job queue is full, try again later").
			WithCode("QUEUE_FULL")
	}

	metrics.JobSubmitted()
	reg.orchestrator.emit(result, EventSubmitted, "")
	reg.logger.WithFields(logrus.Fields{
		"job_uuid":   id,
		"script_len": len(script),
	}).Info("Test job submitted")
	return id, nil
}

func (reg *Registry) get(id string) (*TestResult, error) {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	result, ok := reg.jobs[id]
	if !ok {
		return nil, errors.NewJobNotFound(id)
	}
	return result, nil
}

// GetStatus returns the lightweight polling view for a job
func (reg *Registry) GetStatus(id string) (*StatusView, error) {
	result, err := reg.get(id)
	if err != nil {
		return nil, err
	}
	return result.StatusView(), nil
}

// GetResult returns the full result snapshot for a job
func (reg *Registry) GetResult(id string) (*ResultView, error) {
	result, err := reg.get(id)
	if err != nil {
		return nil, err
	}
	return result.ResultView(reg.publicPrefix), nil
}

// GetReport returns the human-oriented report for a job
func (reg *Registry) GetReport(id string) (*ReportView, error) {
	result, err := reg.get(id)
	if err != nil {
		return nil, err
	}
	return result.ReportView(), nil
}

// List returns jobs ordered most recent first, windowed by limit and
// offset. Total is the registry size before windowing.
func (reg *Registry) List(limit, offset int) ([]*ListItem, int) {
	reg.mutex.RLock()
	results := make([]*TestResult, 0, len(reg.jobs))
	for _, result := range reg.jobs {
		results = append(results, result)
	}
	reg.mutex.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt().After(results[j].CreatedAt())
	})

	total := len(results)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	items := make([]*ListItem, 0, end-offset)
	for _, result := range results[offset:end] {
		items = append(items, result.ListItem())
	}
	return items, total
}

// Delete removes a job from the registry. Terminal jobs are removed
// outright, PENDING jobs are canceled so their queued task never
// executes, and RUNNING jobs are protected from removal.
func (reg *Registry) Delete(id string) error {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	result, ok := reg.jobs[id]
	if !ok {
		return errors.NewJobNotFound(id)
	}
	// cancel succeeds only while the job is still queued. When it
	// fails the status can only be RUNNING or terminal.
	if !result.cancel() && result.Status() == StatusRunning {
		return errors.NewConflict("job is still in progress").WithField("job_uuid", id)
	}

	delete(reg.jobs, id)
	reg.logger.WithField("job_uuid", id).Info("Test job deleted")
	return nil
}

// Cleanup removes terminal jobs older than the given age and returns
// the number removed. In-progress jobs are always retained.
func (reg *Registry) Cleanup(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	removed := 0
	for id, result := range reg.jobs {
		if result.Status().IsTerminal() && result.CreatedAt().Before(cutoff) {
			delete(reg.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		reg.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(reg.jobs),
		}).Info("Cleaned up old test jobs")
	}
	return removed
}

// Size returns the number of jobs currently tracked
func (reg *Registry) Size() int {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	return len(reg.jobs)
}
