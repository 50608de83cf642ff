package app

import (
	"bytes"
	"context"
	ers "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	dbcore "github.com/tbarracha/Spirekit-sub001/data/db"
	dbbasic "github.com/tbarracha/Spirekit-sub001/data/db/basic"
	"github.com/tbarracha/Spirekit-sub001/data/schema"
	"github.com/tbarracha/Spirekit-sub001/domain/entity"
	"github.com/tbarracha/Spirekit-sub001/errors"
	"github.com/tbarracha/Spirekit-sub001/eventing/bus"
	"github.com/tbarracha/Spirekit-sub001/logging"
)

type note struct {
	entity.AuditedEntity[string]
	Title string
}

type noteCreated struct{ NoteID string }

func (noteCreated) EventType() string { return "note.created" }

// notesModule 测试用领域模块
type notesModule struct {
	name      string
	configure schema.ConfigureFunc
	handlers  func(w *Wiring) error
	seen      []string
}

func (m *notesModule) Name() string { return m.name }

func (m *notesModule) RegisterEntities(reg *schema.Registry) {
	configure := m.configure
	if configure == nil {
		configure = func(b *schema.Builder) {
			schema.ConfigureAudited(b)
			b.Property("Title").MaxLength(200)
		}
	}
	schema.Register[note](reg, configure)
}

func (m *notesModule) RegisterHandlers(w *Wiring) error {
	if m.handlers != nil {
		return m.handlers(w)
	}
	bus.RegisterFunc(w.Bus, m.name+".index", func(ctx context.Context, evt noteCreated) error {
		m.seen = append(m.seen, evt.NoteID)
		return nil
	})
	BindRelays[noteCreated](w)
	return nil
}

func testOptions() []Option {
	return []Option{WithLogger(logging.NewNoopLogger()), WithRegisterer(prometheus.NewRegistry())}
}

func TestBootstrap_EndToEnd(t *testing.T) {
	ctx := context.Background()
	mod := &notesModule{name: "notes"}
	a, err := Bootstrap(ctx, DefaultConfig(), []IModule{mod}, testOptions()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, []string{"notes"}, a.Modules())
	assert.Empty(t, a.Relays())
	require.Len(t, a.Schemas().Models(), 1)

	notes, err := Repository[*note, string](a)
	require.NoError(t, err)

	n := &note{Title: "hello"}
	n.ID = "n1"
	added, err := notes.Add(ctx, n)
	require.NoError(t, err)
	assert.False(t, added.CreatedAt.IsZero())

	require.NoError(t, a.Publisher().Publish(ctx, noteCreated{NoteID: added.ID}))
	assert.Equal(t, []string{"n1"}, mod.seen)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().EventsPublished.WithLabelValues("note.created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().RepositoryOps.WithLabelValues("note", "add", "success")))
}

func TestBootstrap_ConfigurationError(t *testing.T) {
	mod := &notesModule{name: "notes", configure: func(b *schema.Builder) {
		schema.ConfigureEntity(b)
		b.Property("Missing").Required()
	}}
	_, err := Bootstrap(context.Background(), DefaultConfig(), []IModule{mod}, testOptions()...)
	require.Error(t, err)

	var cfgErr *schema.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, errors.ErrCodeConfiguration, errors.GetErrorCode(err))
}

func TestBootstrap_ModuleErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Bootstrap(ctx, DefaultConfig(), []IModule{&notesModule{name: "notes"}, &notesModule{name: "notes"}}, testOptions()...)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "registered more than once")

	_, err = Bootstrap(ctx, DefaultConfig(), []IModule{nil}, testOptions()...)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeConfiguration))

	_, err = Bootstrap(ctx, DefaultConfig(), []IModule{&notesModule{name: ""}}, testOptions()...)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "has no name")

	failing := ers.New("no handlers today")
	_, err = Bootstrap(ctx, DefaultConfig(), []IModule{&notesModule{name: "notes", handlers: func(w *Wiring) error {
		return failing
	}}}, testOptions()...)
	assert.ErrorIs(t, err, failing)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeConfiguration))

	// 处理器登记错误在构建分发器时暴露
	_, err = Bootstrap(ctx, DefaultConfig(), []IModule{&notesModule{name: "notes", handlers: func(w *Wiring) error {
		bus.RegisterFunc(w.Bus, "", func(ctx context.Context, evt noteCreated) error { return nil })
		return nil
	}}}, testOptions()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build dispatcher")
}

func TestRepository_Unregistered(t *testing.T) {
	type other struct {
		entity.Entity[int64]
	}
	a, err := Bootstrap(context.Background(), DefaultConfig(), nil, testOptions()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = Repository[*other, int64](a)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeConfiguration))
	assert.Panics(t, func() { MustRepository[*other, int64](a) })
}

func TestBootstrap_ExternalDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := dbbasic.New(dbcore.DBConfig{Driver: "sqlite", Database: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := DefaultConfig()
	cfg.AutoMigrate = false
	a, err := Bootstrap(ctx, cfg, []IModule{&notesModule{name: "notes"}}, append(testOptions(), WithDatabase(db))...)
	require.NoError(t, err)
	assert.Same(t, db, a.DB())
	require.NoError(t, a.Close())

	// 外部数据库不随应用关闭；未迁移时表不存在
	require.NoError(t, db.Ping(ctx))
	_, err = db.Exec(ctx, "SELECT 1 FROM note")
	assert.Error(t, err)
}

func TestBootstrap_RelaysFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relay.Redis.Addr = "127.0.0.1:6379"
	a, err := Bootstrap(context.Background(), cfg, []IModule{&notesModule{name: "notes"}}, testOptions()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.Len(t, a.Relays(), 1)
	assert.Equal(t, "redis", a.Relays()[0].Target())

	handlers := a.Dispatcher().Handlers(noteCreated{})
	require.Len(t, handlers, 2)
	assert.Equal(t, "notes.index", handlers[0].Name)
	assert.Equal(t, bus.BestEffort, handlers[1].Mode)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("SPIREKIT_METRICS_NAMESPACE=fromfile\nSPIREKIT_LOG_LEVEL=warn\n"), 0o600))

	// 由 .env 写入的变量在测试结束时还原
	t.Setenv("SPIREKIT_METRICS_NAMESPACE", "")
	require.NoError(t, os.Unsetenv("SPIREKIT_METRICS_NAMESPACE"))

	t.Setenv("SPIREKIT_DB_DRIVER", "sqlite")
	t.Setenv("SPIREKIT_DB_NAME", "file:test.db")
	t.Setenv("SPIREKIT_DB_MAX_OPEN_CONNS", "4")
	t.Setenv("SPIREKIT_AUTO_MIGRATE", "false")
	t.Setenv("SPIREKIT_LOG_LEVEL", "debug")
	t.Setenv("SPIREKIT_RELAY_NATS_URL", "nats://localhost:4222")

	cfg, err := LoadConfig(filepath.Join(dir, "missing.env"), dotenv)
	require.NoError(t, err)
	assert.Equal(t, "file:test.db", cfg.DB.Database)
	assert.Equal(t, 4, cfg.DB.MaxOpenConns)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, "debug", cfg.LogLevel, "已有环境变量优先于 .env")
	assert.Equal(t, "fromfile", cfg.MetricsNamespace)
	assert.Equal(t, "nats://localhost:4222", cfg.Relay.Nats.URL)
	assert.Equal(t, "events.", cfg.Relay.Nats.SubjectPrefix)
	assert.Equal(t, "events:", cfg.Relay.Redis.StreamPrefix)
	assert.Equal(t, 3, cfg.Relay.RetryAttempts)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "spirekit", cfg.MetricsNamespace)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, ":memory:", cfg.DB.Database)

	t.Setenv("SPIREKIT_LOG_LEVEL", "chatty")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestBootstrap_DatabaseFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStdLoggerWithOptions("", logging.Options{Writer: &buf})

	cfg := DefaultConfig()
	cfg.DB.Driver = "nosuchdriver"
	_, err := Bootstrap(context.Background(), cfg, []IModule{&notesModule{name: "notes"}},
		WithLogger(logger), WithRegisterer(prometheus.NewRegistry()))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeDatabase))

	out := buf.String()
	assert.Contains(t, out, "open database")
	assert.Contains(t, out, "driver=nosuchdriver")
	assert.Contains(t, out, "error_code=DATABASE_ERROR")
}

func TestBootstrap_LogsDialect(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStdLoggerWithOptions("", logging.Options{Writer: &buf})

	a, err := Bootstrap(context.Background(), DefaultConfig(), []IModule{&notesModule{name: "notes"}},
		WithLogger(logger), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Contains(t, buf.String(), "application started")
	assert.Contains(t, buf.String(), "dialect=sqlite")
}
