package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbarracha/Spirekit-sub001/eventing/bus"
	"github.com/tbarracha/Spirekit-sub001/eventing/monitoring"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

type accountOpened struct {
	AccountID string `json:"account_id"`
	Owner     string `json:"owner"`
}

func (accountOpened) EventType() string { return "account.opened" }

type fakeRedis struct {
	calls  []*redis.XAddArgs
	err    error
	closed bool
}

func (f *fakeRedis) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	return redis.NewStringResult("1-0", f.err)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

type fakeNats struct {
	msgs    []*nats.Msg
	err     error
	flushed int
	closed  bool
}

func (f *fakeNats) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeNats) FlushWithContext(ctx context.Context) error {
	f.flushed++
	return nil
}

func (f *fakeNats) Close() { f.closed = true }

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

func newRelay(sink ISink, m *monitoring.Metrics) *Relay {
	return New(sink,
		WithLogger(logging.NewNoopLogger()),
		WithMetrics(m),
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() string { return "msg-1" }),
	)
}

func TestRedisSink_Forward(t *testing.T) {
	fake := &fakeRedis{}
	sink := &RedisSink{cfg: RedisConfig{StreamPrefix: "events:", MaxLen: 1000}, client: fake}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry(), "test")
	r := newRelay(sink, metrics)

	require.NoError(t, r.Forward(context.Background(), accountOpened{AccountID: "a1", Owner: "ann"}))
	require.Len(t, fake.calls, 1)

	args := fake.calls[0]
	assert.Equal(t, "events:account.opened", args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]any)
	assert.Equal(t, "msg-1", values["id"])
	assert.Equal(t, "account.opened", values["event_type"])
	assert.Equal(t, fixedTime.UnixNano(), values["timestamp"])
	assert.JSONEq(t, `{"account_id":"a1","owner":"ann"}`, values["payload"].(string))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RelayForwarded.WithLabelValues("redis", monitoring.OutcomeSuccess)))
}

func TestRedisSink_Error(t *testing.T) {
	down := errors.New("connection refused")
	fake := &fakeRedis{err: down}
	sink := &RedisSink{cfg: RedisConfig{StreamPrefix: "events:"}, client: fake}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry(), "test")

	err := newRelay(sink, metrics).Forward(context.Background(), accountOpened{AccountID: "a1"})
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "relay redis")
	assert.Zero(t, fake.calls[0].MaxLen)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RelayForwarded.WithLabelValues("redis", monitoring.OutcomeError)))
}

func TestRedisSink_Close(t *testing.T) {
	injected := &fakeRedis{}
	require.NoError(t, (&RedisSink{client: injected}).Close())
	assert.False(t, injected.closed, "注入的客户端由调用方关闭")

	owned := &fakeRedis{}
	require.NoError(t, (&RedisSink{client: owned, ownClient: true}).Close())
	assert.True(t, owned.closed)

	_, err := NewRedisSink(RedisConfig{})
	assert.ErrorIs(t, err, errNotConfigured)

	sink, err := NewRedisSink(RedisConfig{Addr: "127.0.0.1:6379"})
	require.NoError(t, err)
	assert.Equal(t, "events:", sink.cfg.StreamPrefix)
	assert.True(t, sink.ownClient)
	require.NoError(t, sink.Close())
}

func TestNatsSink_Forward(t *testing.T) {
	fake := &fakeNats{}
	sink := &NatsSink{cfg: NatsConfig{SubjectPrefix: "events.", Flush: true}, conn: fake}
	r := newRelay(sink, nil)

	require.NoError(t, r.Forward(context.Background(), accountOpened{AccountID: "a1", Owner: "ann"}))
	require.Len(t, fake.msgs, 1)
	assert.Equal(t, 1, fake.flushed)

	msg := fake.msgs[0]
	assert.Equal(t, "events.account.opened", msg.Subject)
	assert.Equal(t, "msg-1", msg.Header.Get(nats.MsgIdHdr))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, "msg-1", env.ID)
	assert.Equal(t, "account.opened", env.EventType)
	assert.True(t, env.Timestamp.Equal(fixedTime))
	assert.Equal(t, time.UTC, env.Timestamp.Location())
	assert.JSONEq(t, `{"account_id":"a1","owner":"ann"}`, string(env.Payload))
}

func TestNatsSink_CancelledContext(t *testing.T) {
	fake := &fakeNats{}
	sink := &NatsSink{cfg: NatsConfig{SubjectPrefix: "events."}, conn: fake}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newRelay(sink, nil).Forward(ctx, accountOpened{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.msgs)

	_, err = NewNatsSink(NatsConfig{})
	assert.ErrorIs(t, err, errNotConfigured)
}

func TestBind_BestEffort(t *testing.T) {
	fake := &fakeNats{err: nats.ErrConnectionClosed}
	sink := &NatsSink{cfg: NatsConfig{SubjectPrefix: "events."}, conn: fake}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry(), "test")
	r := newRelay(sink, metrics)

	reg := bus.NewRegistry(bus.WithLogger(logging.NewNoopLogger()))
	var local []string
	bus.RegisterFunc(reg, "projection", func(ctx context.Context, evt accountOpened) error {
		local = append(local, evt.AccountID)
		return nil
	})
	Bind[accountOpened](reg, r)
	d, err := reg.Build()
	require.NoError(t, err)

	// 外部系统不可用不影响发布方
	require.NoError(t, d.Publish(context.Background(), accountOpened{AccountID: "a1"}))
	assert.Equal(t, []string{"a1"}, local)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RelayForwarded.WithLabelValues("nats", monitoring.OutcomeError)))

	handlers := d.Handlers(accountOpened{})
	require.Len(t, handlers, 2)
	assert.Equal(t, "relay.nats.relay.accountOpened", handlers[1].Name)
	assert.Equal(t, bus.BestEffort, handlers[1].Mode)
}

func TestNew_NilSink(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestRelay_NilEvent(t *testing.T) {
	sink := &flakySink{}
	r := New(sink)
	assert.ErrorIs(t, r.Forward(context.Background(), nil), bus.ErrNilEvent)
	assert.ErrorIs(t, r.Forward(context.Background(), (*accountOpened)(nil)), bus.ErrNilEvent)
	assert.Zero(t, sink.calls)
}

// flakySink 前 failures 次投递失败
type flakySink struct {
	failures int
	calls    int
}

func (s *flakySink) Target() string { return "flaky" }

func (s *flakySink) Send(ctx context.Context, env Envelope) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("temporarily unavailable")
	}
	return nil
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 2 * time.Millisecond}
}

func TestRelay_Retry(t *testing.T) {
	sink := &flakySink{failures: 2}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry(), "test")
	r := New(sink, WithMetrics(metrics), WithRetry(fastRetry(3)))

	require.NoError(t, r.Forward(context.Background(), accountOpened{AccountID: "a1"}))
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RelayForwarded.WithLabelValues("flaky", monitoring.OutcomeSuccess)))

	sink = &flakySink{failures: 5}
	err := New(sink, WithRetry(fastRetry(2))).Forward(context.Background(), accountOpened{})
	assert.Error(t, err)
	assert.Equal(t, 2, sink.calls)

	// 默认不重试
	sink = &flakySink{failures: 1}
	assert.Error(t, New(sink).Forward(context.Background(), accountOpened{}))
	assert.Equal(t, 1, sink.calls)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 10 * time.Millisecond, Multiplier: 2, MaxDelay: 50 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, p.delay(1))
	assert.Equal(t, 20*time.Millisecond, p.delay(2))
	assert.Equal(t, 40*time.Millisecond, p.delay(3))
	assert.Equal(t, 50*time.Millisecond, p.delay(4))

	p.Multiplier = 0
	assert.Equal(t, 10*time.Millisecond, p.delay(3))
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour}.do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, calls)

	calls = 0
	err = DefaultRetryPolicy().do(context.Background(), func(ctx context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}
