package properties

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	RootPath     string        `env:"ROOT_PATH" envDefault:"."`
	BearerToken  string        `env:"BLACKMARBLE_BEARER_TOKEN"`
	LaadsBaseURL string        `env:"LAADS_BASE_URL" envDefault:"https://ladsweb.modaps.eosdis.nasa.gov/archive/allData"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"5m"`

	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" envDefault:"2"`
	DownloadRetries   int     `env:"DOWNLOAD_RETRIES" envDefault:"3"`

	Workers              int   `env:"WORKERS" envDefault:"4"`
	Strict               bool  `env:"STRICT" envDefault:"false"`
	ExcludedQualityCodes []int `env:"EXCLUDED_QUALITY_CODES" envSeparator:","`
	CacheEnabled         bool  `env:"CACHE_ENABLED" envDefault:"true"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`
	MetricsAddr string `env:"METRICS_ADDR"`

	DiscordErrorNotificationURL   string `env:"DISCORD_ERROR_NOTIFICATION_URL"`
	DiscordSuccessNotificationURL string `env:"DISCORD_SUCCESS_NOTIFICATION_URL"`
}

// Load reads .env files (missing files are ignored) and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", "../.env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.DownloadRetries < 1 {
		cfg.DownloadRetries = 1
	}
	return cfg, nil
}

func (c *Config) DataPath() string {
	return filepath.Join(c.RootPath, "data")
}

// DownloadPath holds raw granules; files found there are not downloaded again.
func (c *Config) DownloadPath() string {
	return filepath.Join(c.DataPath(), "blackmarble")
}

func (c *Config) RecordCachePath() string {
	return filepath.Join(c.DataPath(), "cache", "records")
}

func (c *Config) ResultPath() string {
	return filepath.Join(c.DataPath(), "result")
}
