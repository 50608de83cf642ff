package relay

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// redisClient 转发所需的 go-redis 子集，便于测试替换
type redisClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisConfig Redis Streams 目标配置
type RedisConfig struct {
	// Client 已有客户端；为空时按 Addr 等参数创建并由 sink 负责关闭
	Client   redis.UniversalClient
	Addr     string `env:"ADDR"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"`

	// StreamPrefix 流名前缀，流名为前缀 + 事件类型
	StreamPrefix string `env:"STREAM_PREFIX" envDefault:"events:"`
	// MaxLen 流的近似最大长度，0 表示不裁剪
	MaxLen int64 `env:"MAX_LEN"`
}

// RedisSink 以 XADD 写入 Redis Streams
type RedisSink struct {
	cfg       RedisConfig
	client    redisClient
	ownClient bool
}

// NewRedisSink 创建 Redis Streams 目标
func NewRedisSink(cfg RedisConfig) (*RedisSink, error) {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "events:"
	}
	s := &RedisSink{cfg: cfg}
	switch {
	case cfg.Client != nil:
		s.client = cfg.Client
	case cfg.Addr != "":
		s.client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		s.ownClient = true
	default:
		return nil, errNotConfigured
	}
	return s, nil
}

func (s *RedisSink) Target() string { return "redis" }

// Send 写入 stream <prefix><event_type>
func (s *RedisSink) Send(ctx context.Context, env Envelope) error {
	args := &redis.XAddArgs{
		Stream: s.streamName(env.EventType),
		Values: encodeValues(env),
	}
	if s.cfg.MaxLen > 0 {
		args.MaxLen = s.cfg.MaxLen
		args.Approx = true
	}
	return s.client.XAdd(ctx, args).Err()
}

// Close 只关闭自己创建的客户端
func (s *RedisSink) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}

func (s *RedisSink) streamName(eventType string) string {
	return s.cfg.StreamPrefix + eventType
}

func encodeValues(env Envelope) map[string]any {
	return map[string]any{
		"id":         env.ID,
		"event_type": env.EventType,
		"timestamp":  env.Timestamp.UnixNano(),
		"payload":    string(env.Payload),
	}
}
