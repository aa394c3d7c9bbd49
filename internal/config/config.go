package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Rules     RulesConfig     `mapstructure:"rules"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type RedisConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	ChannelPrefix string        `mapstructure:"channel_prefix"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CacheConfig struct {
	CatalogTTL      time.Duration `mapstructure:"catalog_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

type RulesConfig struct {
	Timezone              string       `mapstructure:"timezone"`
	ServiceEditWindowDays int          `mapstructure:"service_edit_window_days"`
	Stages                StagesConfig `mapstructure:"stages"`
}

// StagesConfig is the funnel table. Transitions are a list rather than a map
// because viper lowercases map keys and stage names are case sensitive.
type StagesConfig struct {
	Initial     string             `mapstructure:"initial"`
	Lost        string             `mapstructure:"lost"`
	Transitions []StageTransitions `mapstructure:"transitions"`
}

type StageTransitions struct {
	From string   `mapstructure:"from"`
	To   []string `mapstructure:"to"`
}

// Location resolves the rules timezone.
func (r RulesConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid rules.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// secrets are read from CLINIC_* environment variables and win over the file.
type secrets struct {
	DBPassword string `envconfig:"DB_PASSWORD"`
	JWTSecret  string `envconfig:"JWT_SECRET"`
	RedisURL   string `envconfig:"REDIS_URL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "clinic")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.issuer", "clinic-backoffice")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel_prefix", "clinic")
	v.SetDefault("redis.timeout", 2*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cache.catalog_ttl", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.namespace", "clinic")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rules.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("rules.service_edit_window_days", 33)
}

// LoadConfig reads config.yml from the usual search paths, falls back to
// defaults when no file exists, then overlays CLINIC_* secrets.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	return load(v)
}

// LoadFile reads an explicit config file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process("clinic", &s); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if s.DBPassword != "" {
		cfg.Database.Password = s.DBPassword
	}
	if s.JWTSecret != "" {
		cfg.JWT.Secret = s.JWTSecret
	}
	if s.RedisURL != "" {
		cfg.Redis.URL = s.RedisURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Rules.ServiceEditWindowDays <= 0 {
		return fmt.Errorf("rules.service_edit_window_days must be positive, got %d", c.Rules.ServiceEditWindowDays)
	}
	if _, err := c.Rules.Location(); err != nil {
		return err
	}
	st := c.Rules.Stages
	if len(st.Transitions) > 0 && (st.Initial == "" || st.Lost == "") {
		return errors.New("rules.stages.initial and rules.stages.lost are required with a custom table")
	}
	return nil
}
