package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Clinic    ClinicConfig    `mapstructure:"clinic"`
	SMS       SMSConfig       `mapstructure:"sms"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Mode           string        `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type JWTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type CacheConfig struct {
	// Driver is "redis" or "local".
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type ClinicConfig struct {
	Timezone       string        `mapstructure:"timezone"`
	ReminderWindow time.Duration `mapstructure:"reminder_window"`
}

type SMSConfig struct {
	// Driver is "log" or "mail".
	Driver        string        `mapstructure:"driver"`
	SMTPHost      string        `mapstructure:"smtp_host"`
	SMTPPort      int           `mapstructure:"smtp_port"`
	SMTPUser      string        `mapstructure:"smtp_user"`
	SMTPPassword  string        `mapstructure:"smtp_password"`
	From          string        `mapstructure:"from"`
	GatewayDomain string        `mapstructure:"gateway_domain"`
	MaxFailures   uint32        `mapstructure:"max_failures"`
	OpenTimeout   time.Duration `mapstructure:"open_timeout"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// secrets are never read from the YAML file in production; they come from
// the environment (or a local .env file) with the QUEUE_ prefix.
type secrets struct {
	DBPassword   string `envconfig:"DB_PASSWORD"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	RedisURL     string `envconfig:"REDIS_URL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "opd_queue")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("jwt.enabled", true)
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("cache.driver", "local")
	v.SetDefault("cache.ttl", 5*time.Second)

	v.SetDefault("clinic.timezone", "Asia/Kolkata")
	v.SetDefault("clinic.reminder_window", 10*time.Minute)

	v.SetDefault("sms.driver", "log")
	v.SetDefault("sms.smtp_port", 587)
	v.SetDefault("sms.max_failures", 5)
	v.SetDefault("sms.open_timeout", 30*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path (or the usual locations when path
// is empty), then overlays QUEUE_* environment variables. A missing file is
// not an error; defaults and the environment are enough to run.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix("QUEUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process("QUEUE", &s); err != nil {
		return nil, fmt.Errorf("failed to read secrets from environment: %w", err)
	}
	overlay(&config.Database.Password, s.DBPassword)
	overlay(&config.JWT.Secret, s.JWTSecret)
	overlay(&config.SMS.SMTPPassword, s.SMTPPassword)
	overlay(&config.Redis.URL, s.RedisURL)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("unknown server.mode %q", c.Server.Mode))
	}
	if c.JWT.Enabled && c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required when jwt.enabled is true")
	}
	switch c.Cache.Driver {
	case "local":
	case "redis":
		if c.Redis.URL == "" {
			problems = append(problems, "redis.url is required for the redis cache driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache.driver %q", c.Cache.Driver))
	}
	if c.Cache.TTL <= 0 {
		problems = append(problems, "cache.ttl must be positive")
	}
	switch c.SMS.Driver {
	case "log":
	case "mail":
		if c.SMS.SMTPHost == "" || c.SMS.GatewayDomain == "" {
			problems = append(problems, "sms.smtp_host and sms.gateway_domain are required for the mail sms driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown sms.driver %q", c.SMS.Driver))
	}
	if _, err := time.LoadLocation(c.Clinic.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid clinic.timezone %q", c.Clinic.Timezone))
	}
	if c.Clinic.ReminderWindow <= 0 {
		problems = append(problems, "clinic.reminder_window must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the clinic time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Clinic.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
