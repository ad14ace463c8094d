package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string
	DBPath      string
	PostgresURL string
	ProxyURL    string
	LogPath     string
	Headless    bool
	Extractor   ExtractorConfig
}

// ExtractorConfig is the tunable extraction policy, loaded from
// config/extractor.yaml when present.
type ExtractorConfig struct {
	NavTimeoutMS   int      `yaml:"nav_timeout_ms"`
	ReadyTimeoutMS int      `yaml:"ready_timeout_ms"`
	UserAgent      string   `yaml:"user_agent"`
	AcceptLanguage string   `yaml:"accept_language"`
	ViewportWidth  int      `yaml:"viewport_width"`
	ViewportHeight int      `yaml:"viewport_height"`
	MaxImages      int      `yaml:"max_images"`
	RequiredFields []string `yaml:"required_fields"`
	RatePerMinute  int      `yaml:"rate_per_minute"`
	RateBurst      int      `yaml:"rate_burst"`
	JobTTLHours    int      `yaml:"job_ttl_hours"`
	JanitorCron    string   `yaml:"janitor_cron"`
	PollIntervalMS int      `yaml:"poll_interval_ms"`
}

const extractorConfigPath = "config/extractor.yaml"

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        getEnv("ADDR", ":8080"),
		DBPath:      getEnv("DB_PATH", "extractor.db"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		ProxyURL:    os.Getenv("PROXY_URL"),
		LogPath:     getEnv("LOG_PATH", "extractor.log"),
		Headless:    getEnv("HEADLESS", "true") == "true",
		Extractor: ExtractorConfig{
			NavTimeoutMS:   90000,
			ReadyTimeoutMS: 8000,
			MaxImages:      12,
			RatePerMinute:  12,
			RateBurst:      3,
			JobTTLHours:    24,
			JanitorCron:    "@hourly",
			PollIntervalMS: 2000,
		},
	}

	if err := cfg.loadExtractorConfig(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadExtractorConfig() error {
	data, err := os.ReadFile(extractorConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, &c.Extractor)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
