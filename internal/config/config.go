package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Source      SourceConnection  `mapstructure:"source"`
	Analytics   AnalyticsStore    `mapstructure:"analytics"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Cache       CacheConfig       `mapstructure:"cache"`
}

// SourceConnection describes the remote operational database.
// Driver is "mysql" or "sqlserver".
type SourceConnection struct {
	Driver   string        `mapstructure:"driver"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Database string        `mapstructure:"database"`
	Charset  string        `mapstructure:"charset"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type AnalyticsStore struct {
	Path      string `mapstructure:"path"`
	Threads   int    `mapstructure:"threads"`
	MaxMemory string `mapstructure:"max_memory"`
}

type SyncConfig struct {
	BatchInsertSize int           `mapstructure:"batch_insert_size"`
	DaysBack        int           `mapstructure:"days_back"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Host         string   `mapstructure:"host"`
	ReadTimeout  string   `mapstructure:"read_timeout"`
	WriteTimeout string   `mapstructure:"write_timeout"`
	CorsOrigins  []string `mapstructure:"cors_origins"`
}

func (s ServerConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(s.ReadTimeout)
	return d
}

func (s ServerConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(s.WriteTimeout)
	return d
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LeaderboardConfig holds the ranking policy. GradYearSentinel is the source's
// "unset" graduation year value.
type LeaderboardConfig struct {
	MinAtBats        int    `mapstructure:"min_at_bats"`
	PlayerMinAtBats  int    `mapstructure:"player_min_at_bats"`
	TopN             int    `mapstructure:"top_n"`
	MinGradYear      int    `mapstructure:"min_grad_year"`
	MaxGradYear      int    `mapstructure:"max_grad_year"`
	GradYearSentinel int    `mapstructure:"grad_year_sentinel"`
	OverridesFile    string `mapstructure:"overrides_file"`
}

type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.driver", "sqlserver")
	v.SetDefault("source.host", "localhost")
	v.SetDefault("source.user", "")
	v.SetDefault("source.password", "")
	v.SetDefault("source.port", 1433)
	v.SetDefault("source.database", "HitTrax")
	v.SetDefault("source.charset", "utf8mb4")
	v.SetDefault("source.timeout", "30s")

	v.SetDefault("analytics.path", "hittrax_local.duckdb")
	v.SetDefault("analytics.max_memory", "1GB")

	v.SetDefault("sync.batch_insert_size", 500)
	v.SetDefault("sync.days_back", 0)
	v.SetDefault("sync.timeout", "10m")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", "@every 6h")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8050)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("leaderboard.min_at_bats", 50)
	v.SetDefault("leaderboard.player_min_at_bats", 10)
	v.SetDefault("leaderboard.top_n", 5)
	v.SetDefault("leaderboard.min_grad_year", 2025)
	v.SetDefault("leaderboard.max_grad_year", 2034)
	v.SetDefault("leaderboard.grad_year_sentinel", 0)
	v.SetDefault("leaderboard.overrides_file", "")

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "10m")
}

// LoadConfig reads the YAML file at path. A missing file is not an error: defaults
// and HTDASH_* environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HTDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Source.Driver {
	case "mysql", "sqlserver":
	default:
		return fmt.Errorf("unsupported source driver %q", c.Source.Driver)
	}
	if c.Sync.BatchInsertSize <= 0 {
		return fmt.Errorf("sync.batch_insert_size must be positive, got %d", c.Sync.BatchInsertSize)
	}
	if c.Leaderboard.MinGradYear > c.Leaderboard.MaxGradYear {
		return fmt.Errorf("leaderboard grad year range %d-%d is empty",
			c.Leaderboard.MinGradYear, c.Leaderboard.MaxGradYear)
	}
	if c.Leaderboard.TopN <= 0 {
		return fmt.Errorf("leaderboard.top_n must be positive, got %d", c.Leaderboard.TopN)
	}
	return nil
}
