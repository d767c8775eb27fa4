package factory

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/lychee-technology/swatches"
	"github.com/lychee-technology/swatches/internal"
	"github.com/lychee-technology/swatches/internal/export"
	"go.uber.org/zap"
)

// Stores bundles the persistence ports the services are built on.
type Stores struct {
	Catalog     swatches.Catalog
	Options     swatches.OptionStore
	ProductMeta swatches.ProductMetaStore
	TermMeta    swatches.TermMetaStore
	Queue       swatches.WorkQueue
}

// PostgresStores builds every store over one pool.
func PostgresStores(pool *pgxpool.Pool) Stores {
	store := internal.NewPostgresStore(pool)
	return Stores{
		Catalog:     internal.NewPostgresCatalog(pool),
		Options:     store,
		ProductMeta: store,
		TermMeta:    store,
		Queue:       internal.NewPostgresWorkQueue(pool),
	}
}

// MemoryStores builds every store over one in-memory store.
func MemoryStores(mem *internal.MemoryStore) Stores {
	return Stores{Catalog: mem, Options: mem, ProductMeta: mem, TermMeta: mem, Queue: mem}
}

// Plugin is the assembled set of swatch services.
type Plugin struct {
	Config     *swatches.Config
	Stores     Stores
	Registry   *internal.Registry
	Builder    *internal.ProductSwatchBuilder
	Cache      *internal.SwatchCache
	Engine     *internal.BatchEngine
	Settings   *internal.SettingsStore
	Scheduler  *internal.Scheduler
	Dispatcher *internal.Dispatcher
	Fields     *internal.AttributeFields
	Storefront *internal.Storefront
	Events     *internal.CatalogEvents
	Installer  *internal.Installer
	Migrator   *internal.Migrator
	Exporter   *export.Exporter
	Telemetry  *internal.Telemetry
	Logger     *zap.Logger
}

type options struct {
	hooks          *swatches.Hooks
	logger         *zap.Logger
	telemetry      *internal.Telemetry
	attributeTypes []swatches.AttributeType
	fieldTypes     []swatches.FieldType
	uploader       export.Uploader
}

// Option customizes New.
type Option func(*options)

// WithHooks installs integrator hooks.
func WithHooks(h *swatches.Hooks) Option { return func(o *options) { o.hooks = h } }

// WithLogger sets the logger shared by every service.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithTelemetry replaces the default log-backed telemetry.
func WithTelemetry(t *internal.Telemetry) Option { return func(o *options) { o.telemetry = t } }

// WithAttributeType registers an extra attribute type before the registry is frozen.
func WithAttributeType(t swatches.AttributeType) Option {
	return func(o *options) { o.attributeTypes = append(o.attributeTypes, t) }
}

// WithFieldType registers an extra field type before the registry is frozen.
func WithFieldType(t swatches.FieldType) Option {
	return func(o *options) { o.fieldTypes = append(o.fieldTypes, t) }
}

// WithUploader replaces the S3 uploader of the snapshot exporter.
func WithUploader(u export.Uploader) Option { return func(o *options) { o.uploader = u } }

// New assembles the services. The registry is frozen before New returns.
func New(ctx context.Context, cfg *swatches.Config, stores Stores, opts ...Option) (*Plugin, error) {
	if cfg == nil {
		cfg = swatches.DefaultConfig()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.telemetry == nil {
		o.telemetry = internal.NewLogTelemetry(o.logger)
	}
	if o.hooks == nil {
		o.hooks = &swatches.Hooks{}
	}

	registry := internal.NewDefaultRegistry()
	for _, ft := range o.fieldTypes {
		if err := registry.RegisterFieldType(ft); err != nil {
			return nil, err
		}
	}
	for _, at := range o.attributeTypes {
		if err := registry.RegisterAttributeType(at); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	logger := o.logger
	cache := internal.NewSwatchCache(stores.ProductMeta)
	resolver := internal.NewValueResolver(registry, stores.TermMeta)
	renderer := internal.NewRenderer(o.hooks)
	builder := internal.NewProductSwatchBuilder(stores.Catalog, cache, registry, resolver, renderer, o.hooks, logger.Named("builder"))
	lock := internal.NewRunLock(stores.Options, cfg.Batch.LockStaleAfter)
	engine := internal.NewBatchEngine(stores.Catalog, builder, cache, stores.Options, lock, cfg.Batch, o.telemetry, logger.Named("engine"))
	settings := internal.NewSettingsStore(stores.Options)
	scheduler := internal.NewScheduler(settings, stores.Queue, logger.Named("scheduler"))
	dispatcher := internal.NewDispatcher(stores.Queue, engine, scheduler, cfg.Schedule, logger.Named("dispatcher"))
	fields := internal.NewAttributeFields(stores.Catalog, registry, stores.TermMeta, resolver, o.hooks, dispatcher, logger.Named("fields"))

	p := &Plugin{
		Config:     cfg,
		Stores:     stores,
		Registry:   registry,
		Builder:    builder,
		Cache:      cache,
		Engine:     engine,
		Settings:   settings,
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Fields:     fields,
		Storefront: internal.NewStorefront(stores.Catalog, builder, cache, settings),
		Events:     internal.NewCatalogEvents(stores.Catalog, builder, logger.Named("events")),
		Installer:  internal.NewInstaller(stores.Catalog, registry, stores.TermMeta, stores.Options, engine, stores.Queue, logger.Named("installer")),
		Migrator:   internal.NewMigrator(stores.Catalog, stores.TermMeta, fields, logger.Named("migrator")),
		Telemetry:  o.telemetry,
		Logger:     logger,
	}

	if cfg.Export.Enabled {
		if err := export.ValidateConfig(cfg.Export); err != nil {
			return nil, err
		}
		uploader := o.uploader
		if uploader == nil {
			s3u, err := export.NewS3Uploader(ctx, cfg.Export)
			if err != nil {
				return nil, fmt.Errorf("create snapshot uploader: %w", err)
			}
			uploader = s3u
		}
		p.Exporter = export.NewExporter(stores.ProductMeta, uploader, cfg.Export, logger.Named("export"))
	}
	return p, nil
}

// generateAuthToken is swapped in tests.
var generateAuthToken = func(ctx context.Context, endpoint, region string, creds aws.CredentialsProvider) (string, error) {
	return auth.GenerateDbConnectAuthToken(ctx, endpoint, region, creds)
}

// ConnString builds a postgres URL from the database settings.
func ConnString(cfg swatches.DatabaseConfig) string {
	var user *url.Userinfo
	if cfg.Password != "" {
		user = url.UserPassword(cfg.Username, cfg.Password)
	} else {
		user = url.User(cfg.Username)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// NewPool creates and pings a PostgreSQL pool. With UseIAMAuth a fresh DSQL token is generated
// for every new connection.
func NewPool(ctx context.Context, cfg swatches.DatabaseConfig) (*pgxpool.Pool, error) {
	if err := internal.ValidatePostgresConfig(cfg); err != nil {
		return nil, err
	}
	poolConfig, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout

	if cfg.UseIAMAuth {
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, err := generateAuthToken(ctx, endpoint, cfg.Region, awsCfg.Credentials)
			if err != nil {
				return fmt.Errorf("generate dsql auth token: %w", err)
			}
			cc.Password = token
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewLogger builds the process logger. Format "console" selects the development encoder.
func NewLogger(cfg swatches.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

// LoadConfig reads an optional .env file and YAML file, then overlays environment variables.
func LoadConfig(path string) (*swatches.Config, error) {
	_ = godotenv.Load()
	cfg, err := swatches.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	swatches.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
