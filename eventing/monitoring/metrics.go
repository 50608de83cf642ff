// Package monitoring 提供事件分发与仓储操作的 Prometheus 指标。
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 结果标签取值
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	// OutcomeIgnored 尽力而为处理器失败：已记录但未向发布方返回。
	OutcomeIgnored = "ignored"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics 核心组件的指标集合。
//
// 所有方法对 nil 接收者安全，未配置指标时调用方无需判空。
type Metrics struct {
	EventsPublished    *prometheus.CounterVec
	HandlerInvocations *prometheus.CounterVec
	HandlerDuration    *prometheus.HistogramVec
	RepositoryOps      *prometheus.CounterVec
	RepositoryDuration *prometheus.HistogramVec
	RelayForwarded     *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册全部指标；reg 为 nil 时使用 prometheus.DefaultRegisterer。
//
// 同一 Registerer 上重复注册会 panic，每个进程（或每个测试 Registry）只调用一次。
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published to the dispatcher by event type",
		}, []string{"event_type"}),

		HandlerInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_invocations_total",
			Help:      "Event handler invocations by event type, handler and outcome",
		}, []string{"event_type", "handler", "outcome"}),

		HandlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_duration_seconds",
			Help:      "Duration of event handler invocations",
			Buckets:   durationBuckets,
		}, []string{"event_type", "handler"}),

		RepositoryOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Repository operations by entity, operation and outcome",
		}, []string{"entity", "operation", "outcome"}),

		RepositoryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operation_duration_seconds",
			Help:      "Duration of repository operations",
			Buckets:   durationBuckets,
		}, []string{"entity", "operation"}),

		RelayForwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "forwarded_total",
			Help:      "Events forwarded to external brokers by target and outcome",
		}, []string{"target", "outcome"}),
	}
}

// Outcome 将错误折算为结果标签。
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// IncEventPublished 记录一次事件发布。
func (m *Metrics) IncEventPublished(eventType string) {
	if m != nil {
		m.EventsPublished.WithLabelValues(eventType).Inc()
	}
}

// ObserveHandler 记录一次处理器调用。
func (m *Metrics) ObserveHandler(eventType, handler, outcome string, d time.Duration) {
	if m != nil {
		m.HandlerInvocations.WithLabelValues(eventType, handler, outcome).Inc()
		m.HandlerDuration.WithLabelValues(eventType, handler).Observe(d.Seconds())
	}
}

// ObserveRepository 记录一次仓储操作。
func (m *Metrics) ObserveRepository(entity, operation, outcome string, d time.Duration) {
	if m != nil {
		m.RepositoryOps.WithLabelValues(entity, operation, outcome).Inc()
		m.RepositoryDuration.WithLabelValues(entity, operation).Observe(d.Seconds())
	}
}

// IncRelayForwarded 记录一次外部转发。
func (m *Metrics) IncRelayForwarded(target, outcome string) {
	if m != nil {
		m.RelayForwarded.WithLabelValues(target, outcome).Inc()
	}
}
