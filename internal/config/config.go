// Package config provides configuration management for corehub.
package config

import "time"

// Config is the root configuration structure for the core.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Platform     PlatformConfig     `mapstructure:"platform"`
	Access       AccessConfig       `mapstructure:"access"`
	PreviewCache PreviewCacheConfig `mapstructure:"preview_cache"`
}

// ServerConfig holds the handful of HTTP server settings the abridged
// surface needs; routing itself is out of scope.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return s.Host + ":" + itoa(s.Port)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	negative := i < 0
	if negative {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if negative {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}

// DatabaseConfig holds settings shared by every per-user event database and
// the control database (usersindex, accountstorage).
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	WALMode         bool          `mapstructure:"wal_mode"`
	CacheSize       int           `mapstructure:"cache_size"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	ForeignKeys     bool          `mapstructure:"foreign_keys"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// MallSize bounds the number of open per-user event databases kept in
	// the eventstore.Mall LRU before the least-recently-used is evicted.
	MallSize int `mapstructure:"mall_size"`

	// RetryBudget bounds the number of SQLITE_BUSY retries on a write.
	RetryBudget int `mapstructure:"retry_budget"`
}

// AuthConfig holds authentication-adjacent settings. Password is applied by
// accountstorage; JWT and RateLimit are defaulted and validated, but no
// component reads them.
type AuthConfig struct {
	JWT       JWTConfig           `mapstructure:"jwt"`
	Password  PasswordConfig      `mapstructure:"password"`
	RateLimit AuthRateLimitConfig `mapstructure:"rate_limit"`
}

// JWTConfig holds JWT token settings. The module has no JWT codec: access
// tokens are always opaque, and these settings are only defaulted and
// validated.
type JWTConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   []string      `mapstructure:"audience"`
}

// PasswordConfig holds password policy settings.
type PasswordConfig struct {
	MinLength        int  `mapstructure:"min_length"`
	RequireUppercase bool `mapstructure:"require_uppercase"`
	RequireLowercase bool `mapstructure:"require_lowercase"`
	RequireNumber    bool `mapstructure:"require_number"`
	RequireSpecial   bool `mapstructure:"require_special"`
	HistoryLength    int  `mapstructure:"history_length"`
}

// AuthRateLimitConfig holds rate limiting settings for auth endpoints; no
// rate limiter in the module applies them.
type AuthRateLimitConfig struct {
	Login    RateLimitRule `mapstructure:"login"`
	Register RateLimitRule `mapstructure:"register"`
}

// RateLimitRule defines a rate limit rule.
type RateLimitRule struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Caller    bool   `mapstructure:"caller"`
	Timestamp bool   `mapstructure:"timestamp"`
	Output    string `mapstructure:"output"`
}

// PlatformConfig configures the PlatformRegistry HTTP adapter. An empty
// ServiceInfoURL means DNS-less mode: the register is never consulted and
// uniqueness is enforced locally only.
type PlatformConfig struct {
	ServiceInfoURL string        `mapstructure:"service_info_url"`
	AuthSecret     string        `mapstructure:"auth_secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryConfig    RetryConfig   `mapstructure:"retry"`
}

// RetryConfig is the bounded-attempts, exponential backoff shape used for
// outbound calls to the service-register: the wait starts at BaseDelay and
// doubles after each failed attempt.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// DNSLess reports whether the platform runs standalone ("DNS-less mode"):
// the register is never consulted.
func (p PlatformConfig) DNSLess() bool {
	return p.ServiceInfoURL == ""
}

// AccessConfig configures AccessLogic construction.
type AccessConfig struct {
	SelfAuditEnabled bool `mapstructure:"self_audit_enabled"`
}

// PreviewCacheConfig configures the background sweep and on-disk layout of
// the preview image cache.
type PreviewCacheConfig struct {
	Dir             string        `mapstructure:"dir"`
	MaxAge          time.Duration `mapstructure:"max_age"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}
