package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CandidatesClassified   int64
	ItemsAccepted          int64
	ClassificationFailures int64
	SourcesFailed          int64
	DuplicatesRemoved      int64
	DedupFailures          int64
	VerdictCacheHits       int64
	DigestsDelivered       int64
	DeliveryFailures       int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime    time.Time
	LastRunID      string
	LastDigestSize int
	LastErrorTime  time.Time
	LastError      string
	IsHealthy      bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) IncrementCandidatesClassified() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesClassified++
}

func (m *Metrics) IncrementItemsAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsAccepted++
}

func (m *Metrics) IncrementClassificationFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClassificationFailures++
}

func (m *Metrics) IncrementSourcesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesFailed++
}

func (m *Metrics) AddDuplicatesRemoved(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesRemoved += int64(n)
}

func (m *Metrics) IncrementDedupFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DedupFailures++
}

func (m *Metrics) IncrementVerdictCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerdictCacheHits++
}

func (m *Metrics) IncrementDigestsDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DigestsDelivered++
}

func (m *Metrics) IncrementDeliveryFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveryFailures++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

// SetLastRun records a completed run and marks the process healthy.
func (m *Metrics) SetLastRun(runID string, digestSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.LastRunID = runID
	m.LastDigestSize = digestSize
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"candidates_classified":      m.CandidatesClassified,
		"items_accepted":             m.ItemsAccepted,
		"classification_failures":    m.ClassificationFailures,
		"sources_failed":             m.SourcesFailed,
		"duplicates_removed":         m.DuplicatesRemoved,
		"dedup_failures":             m.DedupFailures,
		"verdict_cache_hits":         m.VerdictCacheHits,
		"digests_delivered":          m.DigestsDelivered,
		"delivery_failures":          m.DeliveryFailures,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_run_id":                m.LastRunID,
		"last_digest_size":           m.LastDigestSize,
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
