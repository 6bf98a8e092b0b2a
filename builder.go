package authclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/authclient/middleware"
	"github.com/MrEthical07/authclient/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a Client. Each Builder builds at most one Client.
type Builder struct {
	config Config

	storage    session.Storage
	redis      redis.UniversalClient
	httpClient *http.Client
	logger     *zap.Logger
	auditSink  AuditSink
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the identity service root.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithStorage injects the session backend, overriding Config.Session.Backend.
func (b *Builder) WithStorage(storage session.Storage) *Builder {
	b.storage = storage
	return b
}

// WithRedis supplies the client used by the redis session backend. Without it Build
// dials Config.Session.RedisAddr itself.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the client used for identity service calls. Its Timeout is left
// alone when non-zero.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the diagnostic logger. The default discards.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the remote latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides time.Now for login timestamps and token expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns the Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		cfg:     cfg,
		baseURL: cfg.BaseURL,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		now:     now,
	}

	storage, closer, err := b.openStorage(cfg.Session)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	c.store = session.NewStore(storage, cfg.Session.Key,
		session.WithLogger(logger.Named("session")),
		session.WithFaultHook(c.onStorageFault),
	)

	c.decorator = middleware.NewDecorator(c.store,
		middleware.WithLogger(logger.Named("decorator")),
		middleware.WithClock(now),
		middleware.WithModeHook(c.onDecorate),
	)
	c.plain = middleware.NewDecorator(noSession{},
		middleware.WithLogger(zap.NewNop()),
	)

	hc := b.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Timeout == 0 {
		clone := *hc
		clone.Timeout = cfg.HTTP.Timeout
		hc = &clone
	}
	c.http = hc
	c.authed = middleware.NewClient(hc, c.decorator)

	c.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger.Named("audit"))

	b.built = true
	logger.Debug("auth client built",
		zap.String("base_url", cfg.BaseURL),
		zap.String("session_backend", cfg.Session.Backend),
		zap.String("session_key", c.store.Key()),
	)
	return c, nil
}

func (b *Builder) openStorage(cfg SessionConfig) (session.Storage, func() error, error) {
	if b.storage != nil {
		return b.storage, nil, nil
	}

	switch cfg.Backend {
	case BackendMemory:
		return session.NewMemoryStorage(), nil, nil
	case BackendFile:
		dir := cfg.Dir
		if dir == "" {
			d, err := session.DefaultFileDir("authclient")
			if err != nil {
				return nil, nil, fmt.Errorf("resolve session dir: %w", err)
			}
			dir = d
		}
		fs, err := session.NewFileStorage(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open file session storage: %w", err)
		}
		return fs, nil, nil
	case BackendRedis:
		if b.redis != nil {
			return session.NewRedisStorage(b.redis, cfg.RedisPrefix, cfg.RedisTTL), nil, nil
		}
		if cfg.RedisAddr == "" {
			return nil, nil, errors.New("redis session backend requires RedisAddr or WithRedis")
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return session.NewRedisStorage(rdb, cfg.RedisPrefix, cfg.RedisTTL), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}
