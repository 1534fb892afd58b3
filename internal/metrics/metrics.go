package metrics

import (
	"sync"
	"time"

	"seedkey/go-keygen/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seedkey"

type stageMetric struct {
	Count   int
	Errors  int
	TotalNs int64
	MaxNs   int64
	LastNs  int64
}

// State records per-stage latency and failures both as Prometheus
// collectors and as an in-process snapshot for --json output.
type State struct {
	registry      *prometheus.Registry
	keysDerived   *prometheus.CounterVec
	failures      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	mu            sync.RWMutex
	stages        map[string]*stageMetric
	lastUpdatedAt time.Time
}

func New() *State {
	s := &State{
		registry: prometheus.NewRegistry(),
		keysDerived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_derived_total",
			Help:      "Key pairs derived and encoded, by algorithm.",
		}, []string{"algorithm"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_failures_total",
			Help:      "Pipeline runs aborted, by failing stage.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),
		stages: map[string]*stageMetric{},
	}
	s.registry.MustRegister(s.keysDerived, s.failures, s.stageDuration)
	return s
}

func (s *State) Registry() *prometheus.Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *State) RecordStage(stage string, started time.Time) {
	if s == nil {
		return
	}
	elapsed := time.Since(started)
	s.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())

	latency := elapsed.Nanoseconds()
	s.mu.Lock()
	defer s.mu.Unlock()
	metric := s.stage(stage)
	metric.Count++
	metric.TotalNs += latency
	metric.LastNs = latency
	if latency > metric.MaxNs {
		metric.MaxNs = latency
	}
	s.lastUpdatedAt = time.Now().UTC()
}

func (s *State) RecordStageError(stage string) {
	if s == nil {
		return
	}
	s.failures.WithLabelValues(stage).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage(stage).Errors++
	s.lastUpdatedAt = time.Now().UTC()
}

func (s *State) RecordKeyDerived(algorithm string) {
	if s == nil {
		return
	}
	s.keysDerived.WithLabelValues(algorithm).Inc()
}

// stage must be called with mu held.
func (s *State) stage(name string) *stageMetric {
	metric, ok := s.stages[name]
	if !ok {
		metric = &stageMetric{}
		s.stages[name] = metric
	}
	return metric
}

func (s *State) Snapshot() models.MetricsSnapshot {
	if s == nil {
		return models.MetricsSnapshot{Stages: map[string]models.OperationMetric{}}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.MetricsSnapshot{
		Stages:        make(map[string]models.OperationMetric, len(s.stages)),
		LastUpdatedAt: s.lastUpdatedAt,
	}
	for name, metric := range s.stages {
		avg := int64(0)
		if metric.Count > 0 {
			avg = metric.TotalNs / int64(metric.Count) / int64(time.Microsecond)
		}
		out.Stages[name] = models.OperationMetric{
			Count:         metric.Count,
			Errors:        metric.Errors,
			AvgLatencyUs:  avg,
			MaxLatencyUs:  metric.MaxNs / int64(time.Microsecond),
			LastLatencyUs: metric.LastNs / int64(time.Microsecond),
		}
	}
	return out
}

// WriteTextfile dumps the registry in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (s *State) WriteTextfile(path string) error {
	if s == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, s.registry)
}
