// Package relay 把进程内领域事件以尽力而为的方式转发到外部消息系统（Redis Streams、NATS）。
//
// 转发处理器以 bus.WithBestEffort 登记：外部系统不可用时只记录日志和指标，
// 不影响进程内其他处理器，也不向发布方返回错误。
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/eventing/bus"
	"github.com/tbarracha/Spirekit-sub001/eventing/monitoring"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

// Envelope 外部消息的统一封装
type Envelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ISink 外部投递目标
type ISink interface {
	// Target 目标名称，用作指标标签与处理器名称的一部分
	Target() string
	Send(ctx context.Context, env Envelope) error
}

// Relay 将事件封装后投递到 sink
type Relay struct {
	sink    ISink
	logger  logging.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
	newID   func() string
	retry   RetryPolicy
}

// Option Relay 配置项
type Option func(*Relay)

func WithLogger(l logging.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// WithIDGenerator 替换消息 ID 生成器（测试用）
func WithIDGenerator(gen func() string) Option {
	return func(r *Relay) { r.newID = gen }
}

// New 创建 Relay，sink 不能为 nil
func New(sink ISink, opts ...Option) *Relay {
	if sink == nil {
		panic("relay: sink is nil")
	}
	r := &Relay{
		sink:  sink,
		now:   time.Now,
		newID: uuid.NewString,
		retry: RetryPolicy{MaxAttempts: 1},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = logging.ComponentLogger(r.logger, "eventing.relay").
		WithFields(logging.String("target", sink.Target()))
	return r
}

// Target 返回 sink 名称
func (r *Relay) Target() string { return r.sink.Target() }

// Forward 封装并投递一个事件
func (r *Relay) Forward(ctx context.Context, evt domain.IDomainEvent) error {
	env, err := r.envelope(evt)
	if err == nil {
		err = r.retry.do(ctx, func(ctx context.Context) error {
			return r.sink.Send(ctx, env)
		})
	}
	r.metrics.IncRelayForwarded(r.sink.Target(), monitoring.Outcome(err))
	if err != nil {
		return fmt.Errorf("relay %s: %w", r.sink.Target(), err)
	}
	r.logger.Debug(ctx, "event forwarded",
		logging.String("event_type", env.EventType),
		logging.String("message_id", env.ID))
	return nil
}

func (r *Relay) envelope(evt domain.IDomainEvent) (Envelope, error) {
	if bus.IsNilEvent(evt) {
		return Envelope{}, bus.ErrNilEvent
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", evt.EventType(), err)
	}
	return Envelope{
		ID:        r.newID(),
		EventType: evt.EventType(),
		Timestamp: r.now().UTC(),
		Payload:   payload,
	}, nil
}

// Bind 为事件类型 E 登记一个尽力而为的转发处理器，处理器名为 relay.<target>.<Go 类型>。
func Bind[E domain.IDomainEvent](reg *bus.Registry, r *Relay) {
	name := fmt.Sprintf("relay.%s.%s", r.Target(), reflect.TypeOf((*E)(nil)).Elem())
	bus.RegisterFunc(reg, name, func(ctx context.Context, evt E) error {
		return r.Forward(ctx, evt)
	}, bus.WithBestEffort())
}

// errNotConfigured 既没有注入客户端也没有地址
var errNotConfigured = errors.New("relay: client not configured")
