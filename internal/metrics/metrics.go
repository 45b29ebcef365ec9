package metrics

// Per-packet replay metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Metric describes one replayed packet.
type Metric struct {
	Timestamp    time.Time `json:"timestamp"`
	Sequence     int       `json:"sequence"`
	CaptureIndex int       `json:"capture_index"`
	Bytes        int       `json:"bytes"`
	Success      bool      `json:"success"`
	DelayMs      float64   `json:"delay_ms"`
	LatenessMs   float64   `json:"lateness_ms"`
	Error        string    `json:"error,omitempty"`
}

// Sink collects packet metrics. It is safe for concurrent use.
type Sink struct {
	mu      sync.RWMutex
	metrics []Metric
}

// Summary aggregates send lateness, the gap between when a packet was
// scheduled and when it actually left.
type Summary struct {
	TotalPackets    int            `json:"total_packets"`
	Sent            int            `json:"sent"`
	Failed          int            `json:"failed"`
	Bytes           int            `json:"bytes"`
	MinLateness     float64        `json:"min_lateness_ms"`
	MaxLateness     float64        `json:"max_lateness_ms"`
	AvgLateness     float64        `json:"avg_lateness_ms"`
	P50Lateness     float64        `json:"p50_lateness_ms"`
	P90Lateness     float64        `json:"p90_lateness_ms"`
	P95Lateness     float64        `json:"p95_lateness_ms"`
	P99Lateness     float64        `json:"p99_lateness_ms"`
	LatenessBuckets map[string]int `json:"lateness_buckets"`
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{metrics: make([]Metric, 0)}
}

// Record appends m.
func (s *Sink) Record(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
}

// GetMetrics returns a copy of every recorded metric in record order.
func (s *Sink) GetMetrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metrics := make([]Metric, len(s.metrics))
	copy(metrics, s.metrics)
	return metrics
}

// GetSummary aggregates the recorded metrics. Lateness covers sent packets only.
func (s *Sink) GetSummary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{LatenessBuckets: make(map[string]int)}
	lateness := make([]float64, 0, len(s.metrics))
	var sum float64
	for _, m := range s.metrics {
		summary.TotalPackets++
		if !m.Success {
			summary.Failed++
			continue
		}
		summary.Sent++
		summary.Bytes += m.Bytes

		v := m.LatenessMs
		if v < 0 {
			v = 0
		}
		if len(lateness) == 0 || v < summary.MinLateness {
			summary.MinLateness = v
		}
		if v > summary.MaxLateness {
			summary.MaxLateness = v
		}
		sum += v
		lateness = append(lateness, v)
		incrementBucket(summary.LatenessBuckets, v)
	}
	if len(lateness) > 0 {
		summary.AvgLateness = sum / float64(len(lateness))
	}
	p := computePercentiles(lateness)
	summary.P50Lateness = p[0]
	summary.P90Lateness = p[1]
	summary.P95Lateness = p[2]
	summary.P99Lateness = p[3]
	return summary
}

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func incrementBucket(buckets map[string]int, value float64) {
	switch {
	case value < 1:
		buckets["lt_1ms"]++
	case value < 5:
		buckets["1_5ms"]++
	case value < 10:
		buckets["5_10ms"]++
	case value < 50:
		buckets["10_50ms"]++
	case value < 100:
		buckets["50_100ms"]++
	case value < 500:
		buckets["100_500ms"]++
	default:
		buckets["gt_500ms"]++
	}
}

func computePercentiles(values []float64) [4]float64 {
	var result [4]float64
	if len(values) == 0 {
		return result
	}
	sort.Float64s(values)
	result[0] = percentile(values, 0.50)
	result[1] = percentile(values, 0.90)
	result[2] = percentile(values, 0.95)
	result[3] = percentile(values, 0.99)
	return result
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
