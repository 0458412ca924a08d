package util

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CleanupCallback removes expired records and returns how many it evicted
type CleanupCallback func(olderThan time.Duration) int

// RetentionService periodically evicts expired records through a
// registered callback.
type RetentionService struct {
	logger    *logrus.Logger
	interval  time.Duration
	maxAge    time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	callbacks []CleanupCallback
	mutex     sync.RWMutex
}

// RetentionConfig holds configuration for the retention service
type RetentionConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// NewRetentionService creates a new retention service
func NewRetentionService(logger *logrus.Logger, config RetentionConfig) *RetentionService {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.MaxAge == 0 {
		config.MaxAge = 7 * 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &RetentionService{
		logger:   logger,
		interval: config.Interval,
		maxAge:   config.MaxAge,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterCleanupCallback registers a callback for record eviction
func (rs *RetentionService) RegisterCleanupCallback(callback CleanupCallback) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	rs.callbacks = append(rs.callbacks, callback)
}

// Start begins the retention loop
func (rs *RetentionService) Start() {
	rs.wg.Add(1)
	go rs.retentionLoop()
	rs.logger.WithFields(logrus.Fields{
		"interval": rs.interval,
		"max_age":  rs.maxAge,
	}).Info("Retention service started")
}

// Stop gracefully stops the retention service
func (rs *RetentionService) Stop(timeout time.Duration) {
	rs.logger.Info("Stopping retention service")
	rs.cancel()

	done := make(chan struct{})
	go func() {
		rs.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		rs.logger.Info("Retention service stopped")
	case <-time.After(timeout):
		rs.logger.Warning("Retention service stop timed out")
	}
}

func (rs *RetentionService) retentionLoop() {
	defer rs.wg.Done()

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.ctx.Done():
			return
		case <-ticker.C:
			rs.performCleanup()
		}
	}
}

func (rs *RetentionService) performCleanup() {
	start := time.Now()
	totalEvicted := 0

	rs.mutex.RLock()
	callbacks := make([]CleanupCallback, len(rs.callbacks))
	copy(callbacks, rs.callbacks)
	rs.mutex.RUnlock()

	for _, callback := range callbacks {
		totalEvicted += callback(rs.maxAge)
	}

	if totalEvicted > 0 {
		rs.logger.WithFields(logrus.Fields{
			"evicted":     totalEvicted,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Retention pass evicted expired jobs")
	}
}
