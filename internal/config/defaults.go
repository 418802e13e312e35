package config

import "time"

// Default configuration values.
const (
	DefaultHost         = "localhost"
	DefaultPort         = 8080
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second

	DefaultDBPath       = "corehub.db"
	DefaultCacheSize    = -64000 // 64MB
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 1 // SQLite works best with a single writer
	DefaultMaxIdleConns = 1
	DefaultMallSize     = 500
	DefaultRetryBudget  = 8

	DefaultAccessTTL      = 15 * time.Minute
	DefaultRefreshTTL     = 7 * 24 * time.Hour
	DefaultJWTIssuer      = "corehub"
	DefaultMinPassword    = 8
	DefaultHistoryLength  = 5
	DefaultLoginRateLimit = 5
	DefaultLoginWindow    = time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultPlatformTimeout     = 10 * time.Second
	DefaultRetryMaxAttempts    = 5
	DefaultRetryBaseDelay      = 1 * time.Second

	DefaultPreviewCacheDir       = "previews"
	DefaultPreviewCacheMaxAge    = 30 * 24 * time.Hour
	DefaultPreviewSweepInterval  = time.Hour
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
		},
		Database: DatabaseConfig{
			Path:            DefaultDBPath,
			WALMode:         true,
			CacheSize:       DefaultCacheSize,
			BusyTimeout:     DefaultBusyTimeout,
			ForeignKeys:     true,
			MaxOpenConns:    DefaultMaxOpenConns,
			MaxIdleConns:    DefaultMaxIdleConns,
			ConnMaxLifetime: 0,
			MallSize:        DefaultMallSize,
			RetryBudget:     DefaultRetryBudget,
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				Enabled:    false,
				AccessTTL:  DefaultAccessTTL,
				RefreshTTL: DefaultRefreshTTL,
				Issuer:     DefaultJWTIssuer,
			},
			Password: PasswordConfig{
				MinLength:     DefaultMinPassword,
				HistoryLength: DefaultHistoryLength,
			},
			RateLimit: AuthRateLimitConfig{
				Login: RateLimitRule{
					Max:    DefaultLoginRateLimit,
					Window: DefaultLoginWindow,
				},
				Register: RateLimitRule{
					Max:    3,
					Window: time.Minute,
				},
			},
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			Caller:    false,
			Timestamp: true,
		},
		Platform: PlatformConfig{
			Timeout: DefaultPlatformTimeout,
			RetryConfig: RetryConfig{
				MaxAttempts: DefaultRetryMaxAttempts,
				BaseDelay:   DefaultRetryBaseDelay,
			},
		},
		Access: AccessConfig{
			SelfAuditEnabled: true,
		},
		PreviewCache: PreviewCacheConfig{
			Dir:           DefaultPreviewCacheDir,
			MaxAge:        DefaultPreviewCacheMaxAge,
			SweepInterval: DefaultPreviewSweepInterval,
		},
	}
}
