package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	SessionSecret     string
	RefreshSecret     string
	SessionTTL        time.Duration
	RefreshTTL        time.Duration
	MinPasswordLength int
	MaxFailedLogins   int
	LockoutDuration   time.Duration
}

type OTPConfig struct {
	Cooldown    time.Duration
	TTL         time.Duration
	MaxAttempts int
	// ThrottlePerMinute caps OTP endpoint hits per client IP; it is the
	// coarse transport-level guard in front of the per-email cooldown.
	ThrottlePerMinute int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Auth             AuthConfig
	OTP              OTPConfig
	SMTP             SMTPConfig
	AllowCORSOrigins []string
}

// Production reports whether the process runs with production hardening.
// Outside production, issued OTP codes are echoed in API responses for
// interactive and test flows.
func (c *AppConfig) Production() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("COURTBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Production() {
		if cfg.Auth.SessionSecret == "" || cfg.Auth.RefreshSecret == "" {
			return nil, fmt.Errorf("auth.sessionsecret and auth.refreshsecret are required in production")
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.sessionsecret", "dev-session-secret")
	v.SetDefault("auth.refreshsecret", "dev-refresh-secret")
	v.SetDefault("auth.sessionttl", "24h")
	v.SetDefault("auth.refreshttl", "168h") // 7 days
	v.SetDefault("auth.minpasswordlength", 8)
	v.SetDefault("auth.maxfailedlogins", 5)
	v.SetDefault("auth.lockoutduration", "30m")

	v.SetDefault("otp.cooldown", "30s")
	v.SetDefault("otp.ttl", "10m")
	v.SetDefault("otp.maxattempts", 3)
	v.SetDefault("otp.throttleperminute", 20)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@courtbook.local")
}
