package observability

import (
	"log/slog"
	"math"
	"sync"
)

// ScoreDriftMonitor tracks a rolling window of scores per evaluation path and
// reports how far its mean has moved from the baseline. The first full window
// becomes the baseline unless one is set explicitly.
type ScoreDriftMonitor struct {
	mu         sync.Mutex
	windowSize int
	threshold  float64
	baselines  map[string]float64
	recent     map[string][]float64
}

// NewScoreDriftMonitor builds a monitor. Non-positive arguments fall back to a
// window of 50 and a threshold of 1.5 points.
func NewScoreDriftMonitor(windowSize int, threshold float64) *ScoreDriftMonitor {
	if windowSize <= 0 {
		windowSize = 50
	}
	if threshold <= 0 {
		threshold = 1.5
	}
	return &ScoreDriftMonitor{
		windowSize: windowSize,
		threshold:  threshold,
		baselines:  map[string]float64{},
		recent:     map[string][]float64{},
	}
}

// SetBaseline pins the reference mean for path.
func (m *ScoreDriftMonitor) SetBaseline(path string, mean float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[path] = mean
}

// Baseline returns the reference mean for path, if one exists.
func (m *ScoreDriftMonitor) Baseline(path string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.baselines[path]
	return b, ok
}

// Record adds one score and returns the current drift (0 without a baseline).
func (m *ScoreDriftMonitor) Record(path string, score float64) float64 {
	m.mu.Lock()
	window := append(m.recent[path], score)
	if len(window) > m.windowSize {
		window = window[len(window)-m.windowSize:]
	}
	m.recent[path] = window

	baseline, ok := m.baselines[path]
	if !ok {
		if len(window) == m.windowSize {
			m.baselines[path] = mean(window)
		}
		m.mu.Unlock()
		return 0
	}
	drift := math.Abs(mean(window) - baseline)
	m.mu.Unlock()

	EvaluationScoreDrift.WithLabelValues(path).Set(drift)
	if drift > m.threshold {
		slog.Warn("score drift detected",
			slog.String("path", path),
			slog.Float64("drift", drift),
			slog.Float64("baseline", baseline),
			slog.Float64("threshold", m.threshold))
	}
	return drift
}

// Reset forgets every window and baseline.
func (m *ScoreDriftMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines = map[string]float64{}
	m.recent = map[string][]float64{}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
