package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" env-default:"9090"`
	DBPath   string `env:"DB_PATH" env-default:"./dealwatch.db"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	Scraper   Scraper
	Analytics Analytics
}

type Scraper struct {
	Renderer          string        `env:"RENDERER" env-default:"chrome"` // chrome or static
	RequestsPerMinute int           `env:"REQUESTS_PER_MINUTE" env-default:"30"`
	MaxRetries        int           `env:"MAX_RETRIES" env-default:"3"`
	RetryBaseDelay    time.Duration `env:"RETRY_BASE_DELAY" env-default:"4s"`
	RenderTimeout     time.Duration `env:"RENDER_TIMEOUT" env-default:"30s"`
	PagePause         time.Duration `env:"PAGE_PAUSE" env-default:"2s"`
	MaxPages          int           `env:"MAX_PAGES" env-default:"3"`
	Queries           []string      `env:"SCRAPE_QUERIES" env-default:"laptop,smartphone,televisor"`
	IntervalHours     int           `env:"SCRAPE_INTERVAL_HOURS" env-default:"0"`
}

type Analytics struct {
	MinDiscountPct        float64 `env:"MIN_DISCOUNT_PCT" env-default:"10"`
	InflationThresholdPct float64 `env:"PRICE_INFLATION_THRESHOLD_PCT" env-default:"20"`
	LookbackDays          int     `env:"PRICE_LOOKBACK_DAYS" env-default:"7"`
	TrendDays             int     `env:"TREND_DAYS" env-default:"30"`
}

// MustLoad reads configuration from the environment and exits on invalid
// values.
func MustLoad() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("cannot read config: %v", err)
	}
	return &cfg
}
