package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	dbcore "github.com/tbarracha/Spirekit-sub001/data/db"
	"github.com/tbarracha/Spirekit-sub001/eventing/relay"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

// EnvPrefix 全部环境变量的公共前缀
const EnvPrefix = "SPIREKIT_"

// Config 应用启动配置
type Config struct {
	DB dbcore.DBConfig `envPrefix:"DB_"`

	// AutoMigrate 启动时按实体配置建表建索引
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"spirekit"`

	Relay RelayConfig `envPrefix:"RELAY_"`
}

// RelayConfig 外部转发目标；未配置地址的目标不启用
type RelayConfig struct {
	Redis relay.RedisConfig `envPrefix:"REDIS_"`
	Nats  relay.NatsConfig  `envPrefix:"NATS_"`

	// RetryAttempts 单次投递的最大尝试次数
	RetryAttempts int `env:"RETRY_ATTEMPTS" envDefault:"3"`
}

// LoadConfig 从环境变量加载配置。
//
// files 为可选的 .env 文件，按顺序加载，不存在的文件跳过；
// 已存在的环境变量不会被 .env 覆盖。
func LoadConfig(files ...string) (Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig 不读取环境变量的默认配置（内存 sqlite）
func DefaultConfig() Config {
	return Config{
		DB:               dbcore.DBConfig{Driver: "sqlite", Database: ":memory:"},
		AutoMigrate:      true,
		LogLevel:         "info",
		MetricsNamespace: "spirekit",
		Relay:            RelayConfig{RetryAttempts: 3},
	}
}

func (c Config) newLogger() logging.Logger {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logging.InfoLevel
	}
	return logging.NewStdLoggerWithOptions("", logging.Options{Level: level, JSON: c.LogJSON})
}
