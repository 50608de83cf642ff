// Package app 负责应用装配：加载配置、打开数据库、登记领域模块、
// 构建实体配置注册表与事件分发器，并向模块提供仓储。
package app

import (
	"context"
	ers "errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	dbcore "github.com/tbarracha/Spirekit-sub001/data/db"
	dbbasic "github.com/tbarracha/Spirekit-sub001/data/db/basic"
	"github.com/tbarracha/Spirekit-sub001/data/db/dialect"
	"github.com/tbarracha/Spirekit-sub001/data/orm"
	ormbasic "github.com/tbarracha/Spirekit-sub001/data/orm/basic"
	"github.com/tbarracha/Spirekit-sub001/data/orm/repo"
	"github.com/tbarracha/Spirekit-sub001/data/schema"
	"github.com/tbarracha/Spirekit-sub001/domain"
	"github.com/tbarracha/Spirekit-sub001/errors"
	"github.com/tbarracha/Spirekit-sub001/eventing/bus"
	"github.com/tbarracha/Spirekit-sub001/eventing/monitoring"
	"github.com/tbarracha/Spirekit-sub001/eventing/relay"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

// Application 已装配完成的应用。构建后只读，可被多个 goroutine 共享。
type Application struct {
	cfg        Config
	db         dbcore.IDatabase
	orm        orm.IOrm
	schemas    *schema.Registry
	dispatcher *bus.Dispatcher
	relays     []*relay.Relay
	metrics    *monitoring.Metrics
	logger     logging.Logger
	clock      func() time.Time
	modules    []string
	closers    []io.Closer
}

// Option Bootstrap 配置项
type Option func(*bootstrapOptions)

type bootstrapOptions struct {
	db         dbcore.IDatabase
	registerer prometheus.Registerer
	logger     logging.Logger
	clock      func() time.Time
}

// WithDatabase 使用外部数据库；应用关闭时不会关闭它
func WithDatabase(db dbcore.IDatabase) Option {
	return func(o *bootstrapOptions) { o.db = db }
}

// WithRegisterer 指定 Prometheus 注册器，默认新建独立的 prometheus.Registry
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *bootstrapOptions) { o.registerer = reg }
}

// WithLogger 替换按配置创建的 Logger
func WithLogger(l logging.Logger) Option {
	return func(o *bootstrapOptions) { o.logger = l }
}

// WithClock 替换仓储时间源（测试用）
func WithClock(clock func() time.Time) Option {
	return func(o *bootstrapOptions) { o.clock = clock }
}

// Bootstrap 按顺序装配应用：
// 打开数据库，登记并构建实体配置（可选迁移），创建外部转发目标，登记并构建事件分发器。
// 任何一步失败都会释放已获取的资源并返回错误；实体配置错误以 *schema.ConfigurationError 可见。
func Bootstrap(ctx context.Context, cfg Config, modules []IModule, opts ...Option) (_ *Application, err error) {
	o := bootstrapOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	a := &Application{cfg: cfg, clock: o.clock}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.logger = o.logger
	if a.logger == nil {
		a.logger = cfg.newLogger()
	}
	a.logger = logging.ComponentLogger(a.logger, "app")

	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}
	a.metrics = monitoring.NewMetrics(o.registerer, cfg.MetricsNamespace)

	if err := checkModules(modules); err != nil {
		return nil, err
	}
	for _, m := range modules {
		a.modules = append(a.modules, m.Name())
	}

	if err := a.openDatabase(ctx, o.db, cfg.DB); err != nil {
		return nil, err
	}
	if err := a.buildSchemas(ctx, modules); err != nil {
		return nil, err
	}
	a.orm = ormbasic.New(a.db)

	if err := a.openRelays(ctx, cfg.Relay); err != nil {
		return nil, err
	}
	if err := a.buildDispatcher(modules); err != nil {
		return nil, err
	}

	a.logger.Info(ctx, "application started",
		logging.Int("modules", len(modules)),
		logging.Int("entities", len(a.schemas.Models())),
		logging.Int("relays", len(a.relays)),
		logging.String("dialect", string(dialect.FromDatabase(a.db).Name())))
	return a, nil
}

func checkModules(modules []IModule) error {
	seen := make(map[string]bool, len(modules))
	for i, m := range modules {
		if m == nil {
			return errors.NewError(errors.ErrCodeConfiguration, fmt.Sprintf("module #%d is nil", i))
		}
		if m.Name() == "" {
			return errors.NewError(errors.ErrCodeConfiguration, fmt.Sprintf("module #%d has no name", i))
		}
		if seen[m.Name()] {
			return errors.NewError(errors.ErrCodeConfiguration, fmt.Sprintf("module %q registered more than once", m.Name()))
		}
		seen[m.Name()] = true
	}
	return nil
}

func (a *Application) openDatabase(ctx context.Context, db dbcore.IDatabase, cfg dbcore.DBConfig) error {
	if db != nil {
		a.db = db
		return nil
	}
	db, err := dbbasic.New(cfg)
	if err != nil {
		return errors.WrapWithLog(ctx, a.logger, err, errors.ErrCodeDatabase, "open database",
			logging.String("driver", cfg.Driver))
	}
	a.db = db
	a.closers = append(a.closers, db)
	return nil
}

func (a *Application) buildSchemas(ctx context.Context, modules []IModule) error {
	a.schemas = schema.NewRegistry()
	for _, m := range modules {
		m.RegisterEntities(a.schemas)
	}
	if err := a.schemas.Build(); err != nil {
		return errors.WrapError(err, errors.ErrCodeConfiguration, "build entity configuration")
	}
	if !a.cfg.AutoMigrate {
		return nil
	}
	if err := schema.Migrate(ctx, a.db, a.schemas.Models()...); err != nil {
		return errors.WrapWithLog(ctx, a.logger, err, errors.ErrCodeDatabase, "migrate")
	}
	return nil
}

func (a *Application) openRelays(ctx context.Context, cfg RelayConfig) error {
	retry := relay.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.RetryAttempts
	relayOpts := []relay.Option{relay.WithLogger(a.logger), relay.WithMetrics(a.metrics), relay.WithRetry(retry)}
	if cfg.Redis.Client != nil || cfg.Redis.Addr != "" {
		sink, err := relay.NewRedisSink(cfg.Redis)
		if err != nil {
			return errors.WrapWithLog(ctx, a.logger, err, errors.ErrCodeQueue, "open redis relay")
		}
		a.closers = append(a.closers, sink)
		a.relays = append(a.relays, relay.New(sink, relayOpts...))
	}
	if cfg.Nats.Conn != nil || cfg.Nats.URL != "" {
		sink, err := relay.NewNatsSink(cfg.Nats)
		if err != nil {
			return errors.WrapWithLog(ctx, a.logger, err, errors.ErrCodeQueue, "open nats relay")
		}
		a.closers = append(a.closers, sink)
		a.relays = append(a.relays, relay.New(sink, relayOpts...))
	}
	return nil
}

func (a *Application) buildDispatcher(modules []IModule) error {
	reg := bus.NewRegistry(bus.WithLogger(a.logger), bus.WithMetrics(a.metrics))
	reg.Use(bus.NewLoggingMiddleware(a.logger))
	reg.Use(bus.NewMetricsMiddleware(a.metrics))

	for _, m := range modules {
		w := &Wiring{
			Bus:    reg,
			Relays: a.relays,
			Logger: a.logger.WithFields(logging.String("module", m.Name())),
		}
		if err := m.RegisterHandlers(w); err != nil {
			return errors.WrapError(err, errors.ErrCodeConfiguration, fmt.Sprintf("module %s: register handlers", m.Name()))
		}
	}
	d, err := reg.Build()
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeConfiguration, "build dispatcher")
	}
	a.dispatcher = d
	return nil
}

// Repository 为已登记的实体类型 T 创建仓储，自动注入应用的日志、指标与时钟。
func Repository[T domain.IEntity[ID], ID comparable](a *Application, opts ...repo.Option) (*repo.Repo[T, ID], error) {
	model, ok := schema.ModelFor[T](a.schemas)
	if !ok {
		var zero T
		return nil, errors.NewError(errors.ErrCodeConfiguration, fmt.Sprintf("entity %T is not registered", zero))
	}
	base := []repo.Option{repo.WithLogger(a.logger), repo.WithMetrics(a.metrics)}
	if a.clock != nil {
		base = append(base, repo.WithClock(a.clock))
	}
	return repo.New[T, ID](a.orm, model, append(base, opts...)...)
}

// MustRepository 同 Repository，失败时 panic（用于启动代码）
func MustRepository[T domain.IEntity[ID], ID comparable](a *Application, opts ...repo.Option) *repo.Repo[T, ID] {
	r, err := Repository[T, ID](a, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (a *Application) Config() Config               { return a.cfg }
func (a *Application) DB() dbcore.IDatabase         { return a.db }
func (a *Application) Orm() orm.IOrm                { return a.orm }
func (a *Application) Schemas() *schema.Registry    { return a.schemas }
func (a *Application) Dispatcher() *bus.Dispatcher  { return a.dispatcher }
func (a *Application) Publisher() bus.IPublisher    { return a.dispatcher }
func (a *Application) Relays() []*relay.Relay       { return append([]*relay.Relay(nil), a.relays...) }
func (a *Application) Metrics() *monitoring.Metrics { return a.metrics }
func (a *Application) Logger() logging.Logger       { return a.logger }
func (a *Application) Modules() []string            { return append([]string(nil), a.modules...) }

// Close 逆序释放应用自己打开的资源
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return ers.Join(errs...)
}
