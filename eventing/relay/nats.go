package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// natsConn 转发所需的 nats.Conn 子集
type natsConn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NatsConfig NATS 目标配置
type NatsConfig struct {
	// Conn 已有连接；为空时按 URL 建立连接并由 sink 负责关闭
	Conn *nats.Conn
	URL  string `env:"URL"`
	// SubjectPrefix 主题前缀，主题为前缀 + 事件类型
	SubjectPrefix string `env:"SUBJECT_PREFIX" envDefault:"events."`
	// Flush 为 true 时每次发布后等待服务器确认收到
	Flush bool `env:"FLUSH"`
	// ConnectTimeout 建立连接超时
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
}

// NatsSink 把信封发布到 NATS 主题，消息头带 Nats-Msg-Id 供 JetStream 去重
type NatsSink struct {
	cfg      NatsConfig
	conn     natsConn
	ownsConn bool
}

// NewNatsSink 创建 NATS 目标
func NewNatsSink(cfg NatsConfig) (*NatsSink, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "events."
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	s := &NatsSink{cfg: cfg}
	switch {
	case cfg.Conn != nil:
		s.conn = cfg.Conn
	case cfg.URL != "":
		nc, err := nats.Connect(cfg.URL, nats.Name("spirekit-relay"), nats.Timeout(cfg.ConnectTimeout))
		if err != nil {
			return nil, err
		}
		s.conn = nc
		s.ownsConn = true
	default:
		return nil, errNotConfigured
	}
	return s, nil
}

func (s *NatsSink) Target() string { return "nats" }

// Send 发布到 <prefix><event_type>
func (s *NatsSink) Send(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(s.subjectName(env.EventType))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, env.ID)
	if err := s.conn.PublishMsg(msg); err != nil {
		return err
	}
	if s.cfg.Flush {
		return s.conn.FlushWithContext(ctx)
	}
	return nil
}

// Close 只关闭自己建立的连接
func (s *NatsSink) Close() error {
	if s.ownsConn {
		s.conn.Close()
	}
	return nil
}

func (s *NatsSink) subjectName(eventType string) string {
	return s.cfg.SubjectPrefix + eventType
}
