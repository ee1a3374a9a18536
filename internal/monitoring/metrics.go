package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	CacheHits           int64
	CacheMisses         int64
	ComputeCount        int64
	ComputeFailures     int64
	RecommendationCount int64
	SimulationCount     int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	// Lifecycle transition counts
	InterventionsStarted   int64
	InterventionsCompleted int64
	InterventionsDismissed int64

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	// Rate limit metrics
	RateLimitBlocks        int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		RequestCountByStatus: make(map[int]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// IncrementCompute increments the readiness computation count
func (m *Metrics) IncrementCompute() {
	atomic.AddInt64(&m.ComputeCount, 1)
}

// IncrementComputeFailure increments the failed computation count
func (m *Metrics) IncrementComputeFailure() {
	atomic.AddInt64(&m.ComputeFailures, 1)
}

// IncrementRecommendation increments the recommendation count
func (m *Metrics) IncrementRecommendation() {
	atomic.AddInt64(&m.RecommendationCount, 1)
}

// IncrementSimulation increments the simulation count
func (m *Metrics) IncrementSimulation() {
	atomic.AddInt64(&m.SimulationCount, 1)
}

// IncrementInterventionStarted increments started intervention count
func (m *Metrics) IncrementInterventionStarted() {
	atomic.AddInt64(&m.InterventionsStarted, 1)
}

// IncrementInterventionCompleted increments completed intervention count
func (m *Metrics) IncrementInterventionCompleted() {
	atomic.AddInt64(&m.InterventionsCompleted, 1)
}

// IncrementInterventionDismissed increments dismissed intervention count
func (m *Metrics) IncrementInterventionDismissed() {
	atomic.AddInt64(&m.InterventionsDismissed, 1)
}

// IncrementRateLimitBlock increments rate limit block count
func (m *Metrics) IncrementRateLimitBlock() {
	atomic.AddInt64(&m.RateLimitBlocks, 1)
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// RecordResponseTime records response time for averaging
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64)
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	totalCacheRequests := cacheHits + cacheMisses
	if totalCacheRequests > 0 {
		cacheHitRate = float64(cacheHits) / float64(totalCacheRequests) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":           time.Since(m.StartTime).Seconds(),
		"total_requests":           requests,
		"error_count":              errors,
		"error_rate_percent":       errorRate,
		"cache_hits":               cacheHits,
		"cache_misses":             cacheMisses,
		"cache_hit_rate_percent":   cacheHitRate,
		"compute_count":            atomic.LoadInt64(&m.ComputeCount),
		"compute_failures":         atomic.LoadInt64(&m.ComputeFailures),
		"recommendation_count":     atomic.LoadInt64(&m.RecommendationCount),
		"simulation_count":         atomic.LoadInt64(&m.SimulationCount),
		"interventions_started":    atomic.LoadInt64(&m.InterventionsStarted),
		"interventions_completed":  atomic.LoadInt64(&m.InterventionsCompleted),
		"interventions_dismissed":  atomic.LoadInt64(&m.InterventionsDismissed),
		"rate_limit_blocks":        atomic.LoadInt64(&m.RateLimitBlocks),
		"rate_limit_redis_errors":  atomic.LoadInt64(&m.RateLimitRedisErrors),
		"rate_limit_fallbacks":     atomic.LoadInt64(&m.RateLimitFallbackCount),
		"avg_response_time_ms":     float64(atomic.LoadInt64(&m.AverageResponseTime)) / 1000000,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"start_time":               m.StartTime.Format(time.RFC3339),
	}
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.ComputeCount, 0)
	atomic.StoreInt64(&m.ComputeFailures, 0)
	atomic.StoreInt64(&m.RecommendationCount, 0)
	atomic.StoreInt64(&m.SimulationCount, 0)
	atomic.StoreInt64(&m.InterventionsStarted, 0)
	atomic.StoreInt64(&m.InterventionsCompleted, 0)
	atomic.StoreInt64(&m.InterventionsDismissed, 0)
	atomic.StoreInt64(&m.RateLimitBlocks, 0)
	atomic.StoreInt64(&m.RateLimitRedisErrors, 0)
	atomic.StoreInt64(&m.RateLimitFallbackCount, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.StartTime = time.Now()
}
