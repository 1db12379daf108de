package goSession

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	API        APIConfig
	Credential CredentialConfig
	Device     DeviceConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig defines a public type used by goSession APIs.
//
// APIConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RefreshTimeout time.Duration
	RevokeTimeout  time.Duration
	UserAgent      string
	Paths          EndpointPaths
}

// EndpointPaths defines a public type used by goSession APIs.
//
// EndpointPaths instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EndpointPaths struct {
	SendOTP       string
	VerifyOTP     string
	ProviderLogin string
	Refresh       string
	Revoke        string
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig defines a public type used by goSession APIs.
//
// CredentialConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CredentialConfig struct {
	FilePath    string
	FileSecret  []byte
	RedisPrefix string
	RedisTTL    time.Duration
}

/*
====================================
DEVICE CONFIG
====================================
*/

// DeviceConfig defines a public type used by goSession APIs.
//
// DeviceConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DeviceConfig struct {
	Enabled bool
	Header  string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goSession APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goSession APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:        15 * time.Second,
			RefreshTimeout: 15 * time.Second,
			RevokeTimeout:  5 * time.Second,
			UserAgent:      "goSession",
			Paths: EndpointPaths{
				SendOTP:       "/auth/otp/send",
				VerifyOTP:     "/auth/otp/verify",
				ProviderLogin: "/auth/provider/login",
				Refresh:       "/auth/refresh",
				Revoke:        "/auth/revoke",
			},
		},
		Device: DeviceConfig{
			Enabled: true,
			Header:  "X-Device-ID",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Credential.FileSecret = cloneBytes(cfg.Credential.FileSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || !u.IsAbs() {
		return errors.New("API BaseURL must be an absolute URL")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	if c.API.RefreshTimeout <= 0 {
		return errors.New("API RefreshTimeout must be > 0")
	}
	if c.API.RevokeTimeout <= 0 {
		return errors.New("API RevokeTimeout must be > 0")
	}

	for _, p := range []struct {
		name string
		path string
	}{
		{"SendOTP", c.API.Paths.SendOTP},
		{"VerifyOTP", c.API.Paths.VerifyOTP},
		{"ProviderLogin", c.API.Paths.ProviderLogin},
		{"Refresh", c.API.Paths.Refresh},
		{"Revoke", c.API.Paths.Revoke},
	} {
		if p.path == "" {
			return errors.New("API Paths " + p.name + " is required")
		}
		if !strings.HasPrefix(p.path, "/") {
			return errors.New("API Paths " + p.name + " must start with '/'")
		}
	}

	// Credential
	if c.Credential.FilePath != "" && len(c.Credential.FileSecret) < 16 {
		return errors.New("Credential FileSecret must be >= 16 bytes when FilePath is set")
	}
	if c.Credential.RedisTTL < 0 {
		return errors.New("Credential RedisTTL must be >= 0")
	}

	// Device
	if c.Device.Enabled && strings.TrimSpace(c.Device.Header) == "" {
		return errors.New("Device Header is required when device identity is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
