package relay

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy 投递失败时的指数退避重试
type RetryPolicy struct {
	// MaxAttempts 最大尝试次数（含首次），小于 1 视为 1
	MaxAttempts int
	// InitialDelay 首次重试前的等待
	InitialDelay time.Duration
	// Multiplier 退避倍数，小于 1 视为 1
	Multiplier float64
	// MaxDelay 单次等待上限，0 表示不限
	MaxDelay time.Duration
}

// DefaultRetryPolicy 3 次尝试，10ms 起步，翻倍，最长 200ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 10 * time.Millisecond, Multiplier: 2, MaxDelay: 200 * time.Millisecond}
}

// WithRetry 为 sink 投递启用重试
func WithRetry(p RetryPolicy) Option {
	return func(r *Relay) { r.retry = p }
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	m := p.Multiplier
	if m < 1 {
		m = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(m, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// do 执行 op 直到成功、次数用尽或 ctx 结束；返回最后一次的错误。
// ctx 的取消与超时错误不重试。
func (p RetryPolicy) do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || attempt == attempts {
			return err
		}
		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
