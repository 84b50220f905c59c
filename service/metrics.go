package service

import (
	"sync"
	"time"

	"ivr-voting/models"
)

// Operation names tracked by MetricsCollector.
const (
	OpAuthenticate = "authenticate"
	OpRecordVote   = "record-vote"
)

// MetricsCollector tracks counts and timings per operation. It is the only
// state shared between invocations and holds no voter data.
type MetricsCollector struct {
	mu  sync.RWMutex
	ops map[string]*opMetrics
}

type opMetrics struct {
	startTime time.Time
	endTime   time.Time
	count     int
	succeeded int
	failed    map[models.ErrorKind]int
	totalTime time.Duration
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	StartTime      time.Time                `json:"start_time"`
	EndTime        time.Time                `json:"end_time"`
	Count          int                      `json:"count"`
	Succeeded      int                      `json:"succeeded"`
	Failed         map[models.ErrorKind]int `json:"failed"`
	ProcessingTime int64                    `json:"processing_time_ms"`
}

// MetricsResponse provides the metrics for all operations
type MetricsResponse struct {
	Authenticate OperationMetrics `json:"authenticate"`
	RecordVote   OperationMetrics `json:"record_vote"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{ops: make(map[string]*opMetrics)}
}

func (mc *MetricsCollector) op(name string) *opMetrics {
	m, ok := mc.ops[name]
	if !ok {
		m = &opMetrics{failed: make(map[models.ErrorKind]int)}
		mc.ops[name] = m
	}
	return m
}

// RecordStart marks the start of an operation
func (mc *MetricsCollector) RecordStart(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m := mc.op(name)
	if m.count == 0 {
		m.startTime = time.Now()
	}
	m.count++
}

// RecordEnd marks the end of an operation; err is nil on success.
func (mc *MetricsCollector) RecordEnd(name string, duration time.Duration, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m := mc.op(name)
	m.endTime = time.Now()
	m.totalTime += duration
	if err == nil {
		m.succeeded++
		return
	}
	kind := models.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	m.failed[kind]++
}

// GetMetrics returns current metrics for all operations
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsResponse{
		Authenticate: mc.snapshot(OpAuthenticate),
		RecordVote:   mc.snapshot(OpRecordVote),
	}
}

func (mc *MetricsCollector) snapshot(name string) OperationMetrics {
	m, ok := mc.ops[name]
	if !ok {
		return OperationMetrics{Failed: map[models.ErrorKind]int{}}
	}
	failed := make(map[models.ErrorKind]int, len(m.failed))
	for k, v := range m.failed {
		failed[k] = v
	}
	return OperationMetrics{
		StartTime:      m.startTime,
		EndTime:        m.endTime,
		Count:          m.count,
		Succeeded:      m.succeeded,
		Failed:         failed,
		ProcessingTime: m.totalTime.Milliseconds(),
	}
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.ops = make(map[string]*opMetrics)
}
