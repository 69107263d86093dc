package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	appanalysis "github.com/bryanwahyu/research-camera/internal/application/analysis"
)

// Metrics stores request and analysis counters. Safe for concurrent use.
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	AnalysesTotal      uint64
	AnalysesOK         uint64
	AnalysesInvalid    uint64
	QuotaHits          uint64
	AnalysesFailed     uint64
	AnalysisMillis     uint64
	StartTime          time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RecordAnalysis implements analysis.Recorder.
func (m *Metrics) RecordAnalysis(outcome string, d time.Duration) {
	atomic.AddUint64(&m.AnalysesTotal, 1)
	switch outcome {
	case appanalysis.OutcomeOK:
		atomic.AddUint64(&m.AnalysesOK, 1)
		atomic.AddUint64(&m.AnalysisMillis, uint64(d.Milliseconds()))
	case appanalysis.OutcomeInvalid:
		atomic.AddUint64(&m.AnalysesInvalid, 1)
	case appanalysis.OutcomeQuota:
		atomic.AddUint64(&m.QuotaHits, 1)
	default:
		atomic.AddUint64(&m.AnalysesFailed, 1)
	}
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]interface{} {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	ok := atomic.LoadUint64(&m.AnalysesOK)
	var avg float64
	if ok > 0 {
		avg = float64(atomic.LoadUint64(&m.AnalysisMillis)) / float64(ok)
	}

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&m.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&m.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&m.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&m.RequestsFailed),
		"analyses_total":       atomic.LoadUint64(&m.AnalysesTotal),
		"analyses_ok":          ok,
		"analyses_invalid":     atomic.LoadUint64(&m.AnalysesInvalid),
		"analyses_failed":      atomic.LoadUint64(&m.AnalysesFailed),
		"quota_hits":           atomic.LoadUint64(&m.QuotaHits),
		"analysis_avg_ms":      avg,
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       ms.Alloc,
			"total_alloc_bytes": ms.TotalAlloc,
			"sys_bytes":         ms.Sys,
			"num_gc":            ms.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&m.RequestsTotal, 1)
		atomic.AddUint64(&m.RequestsInProgress, 1)
		defer atomic.AddUint64(&m.RequestsInProgress, ^uint64(0))

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			atomic.AddUint64(&m.RequestsSuccess, 1)
		} else {
			atomic.AddUint64(&m.RequestsFailed, 1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
