package goSession

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/transport"
)

// Builder defines a public type used by goSession APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	store  credential.Store
	redis  *redis.Client

	provider  AuthProvider
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL describes the withbaseurl operation and its observable behavior.
//
// WithBaseURL may return an error when input validation, dependency calls, or security checks fail.
// WithBaseURL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithStore describes the withstore operation and its observable behavior.
//
// WithStore may return an error when input validation, dependency calls, or security checks fail.
// WithStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithProvider describes the withprovider operation and its observable behavior.
//
// WithProvider may return an error when input validation, dependency calls, or security checks fail.
// WithProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithProvider(p AuthProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := b.resolveStore(cfg)
	if err != nil {
		return nil, err
	}

	deviceID := resolveDeviceID(cfg, store)
	metrics := NewMetrics(cfg.Metrics)

	client, err := transport.NewClient(transport.Config{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		UserAgent:    cfg.API.UserAgent,
		DeviceID:     deviceID,
		DeviceHeader: deviceHeader(cfg),
		Store:        store,
		OnReplay: func() {
			metrics.Inc(MetricReplayRetried)
		},
	})
	if err != nil {
		return nil, err
	}

	provider := b.provider
	if provider == nil {
		provider = newHTTPAuthProvider(client, cfg.API.Paths)
	}

	m := &Manager{
		config:   cfg,
		store:    store,
		client:   client,
		provider: provider,
		metrics:  metrics,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		deviceID: deviceID,
		snap:     Snapshot{State: StateRestoring, Loading: true},
		subs:     make(map[uint64]func(Snapshot)),
	}

	coord, err := transport.NewCoordinator(transport.CoordinatorConfig{
		Store:   store,
		Timeout: cfg.API.RefreshTimeout,
		Refresh: func(ctx context.Context, refreshToken string) (string, error) {
			start := time.Now()
			access, err := provider.Refresh(ctx, refreshToken)
			metrics.Observe(MetricRefreshLatency, time.Since(start))
			if err != nil {
				metrics.Inc(MetricRefreshFailure)
				m.emitAudit(ctx, auditEventRefreshFailure, false, "", "", err, nil)
				return "", err
			}
			metrics.Inc(MetricRefreshSuccess)
			m.emitAudit(ctx, auditEventRefreshSuccess, true, "", "", nil, nil)
			return access, nil
		},
		OnTeardown: m.handleAuthExpired,
		OnWait: func() {
			metrics.Inc(MetricRefreshCoalesced)
		},
	})
	if err != nil {
		return nil, err
	}

	client.SetCoordinator(coord)
	m.coord = coord

	b.built = true
	return m, nil
}

func (b *Builder) resolveStore(cfg Config) (credential.Store, error) {
	if b.store != nil {
		return b.store, nil
	}
	if b.redis != nil {
		return credential.NewRedisStore(b.redis, cfg.Credential.RedisPrefix, cfg.Credential.RedisTTL)
	}
	if cfg.Credential.FilePath != "" {
		return credential.NewFileStore(cfg.Credential.FilePath, cfg.Credential.FileSecret)
	}
	return credential.NewMemoryStore(), nil
}

func deviceHeader(cfg Config) string {
	if !cfg.Device.Enabled {
		return ""
	}
	return cfg.Device.Header
}

// resolveDeviceID reuses the persisted device identifier, minting one on first
// run. The identifier deliberately survives logout so the server sees a stable
// device across sessions.
func resolveDeviceID(cfg Config, store credential.Store) string {
	if !cfg.Device.Enabled {
		return ""
	}

	ctx := context.Background()
	if id, ok := store.Get(ctx, credential.KeyDeviceID); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	if err := store.Set(ctx, credential.KeyDeviceID, id); err != nil {
		log.Print("goSession: device id persist failed, using ephemeral id")
	}
	return id
}
