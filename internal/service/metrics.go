package service

import (
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "artifact_sync"

// Metrics 同步引擎指标
type Metrics struct {
	// 引擎操作
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// 单个制品
	ItemsTotal *prometheus.CounterVec

	// 仓库当前是否处于同步中
	Running *prometheus.GaugeVec
}

// NewMetrics 在 reg 上注册指标，reg 为 nil 时使用默认注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		OperationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "Sync engine operations by result",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "operation_duration_seconds",
				Help:      "Sync engine operation latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"operation"},
		),
		ItemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "items_total",
				Help:      "Artifacts processed by kind, action and result",
			},
			[]string{"type", "action", "result"},
		),
		Running: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "repository_running",
				Help:      "1 while a repository is being synced",
			},
			[]string{"repository"},
		),
	}
}

func (m *Metrics) observeOperation(op string, status domain.SyncStatus, start time.Time) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, string(status)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeItem(o domain.SyncOutcome) {
	if m == nil {
		return
	}
	result := "success"
	switch {
	case o.Conflict:
		result = "conflict"
	case !o.Success:
		result = "failed"
	}
	action := string(o.Action)
	if action == "" {
		action = "none"
	}
	m.ItemsTotal.WithLabelValues(string(o.Kind), action, result).Inc()
}

func (m *Metrics) running(repositoryID string, on bool) {
	if m == nil {
		return
	}
	if on {
		m.Running.WithLabelValues(repositoryID).Set(1)
		return
	}
	m.Running.DeleteLabelValues(repositoryID)
}
