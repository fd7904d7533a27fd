package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode  string   `yaml:"mode"` // PAPER or LIVE
	Pairs []string `yaml:"pairs"`

	Intervals struct {
		AnalysisSeconds int `yaml:"analysis_seconds"`
		MonitorSeconds  int `yaml:"monitor_seconds"`
	} `yaml:"intervals"`

	Risk struct {
		InitialCapital   float64 `yaml:"initial_capital"`
		MaxPositionSize  float64 `yaml:"max_position_size"` // fraction, 0-1
		MaxDailyLoss     float64 `yaml:"max_daily_loss"`    // fraction, 0-1
		MaxOpenPositions int     `yaml:"max_open_positions"`
		StopLossPct      float64 `yaml:"stop_loss_pct"`
		TakeProfitPct    float64 `yaml:"take_profit_pct"`
		SizingMethod     string  `yaml:"sizing_method"` // FIXED, KELLY, VOLATILITY
		TrailingStop     bool    `yaml:"trailing_stop"`
	} `yaml:"risk"`

	Arbiter struct {
		MinConfidence float64 `yaml:"min_confidence"`
	} `yaml:"arbiter"`

	MarketData struct {
		BaseURL       string `yaml:"base_url"`
		CandleLimit   int    `yaml:"candle_limit"`
		CacheSeconds  int    `yaml:"cache_seconds"`
		TimeoutSecond int    `yaml:"timeout_seconds"`
	} `yaml:"market_data"`

	Sentiment struct {
		Enabled      bool `yaml:"enabled"`
		MaxArticles  int  `yaml:"max_articles"`
		CacheMinutes int  `yaml:"cache_minutes"`
	} `yaml:"sentiment"`

	Advisor struct {
		Provider    string  `yaml:"provider"` // OPENAI or empty for noop
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
	} `yaml:"advisor"`

	Venue struct {
		BaseURL     string  `yaml:"base_url"`
		FeeRate     float64 `yaml:"fee_rate"`
		SlippageBps float64 `yaml:"slippage_bps"`
	} `yaml:"venue"`

	Events struct {
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
	} `yaml:"events"`
}

func (c *Config) AnalysisInterval() time.Duration {
	return time.Duration(c.Intervals.AnalysisSeconds) * time.Second
}

func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Intervals.MonitorSeconds) * time.Second
}

func (c *Config) Validate() error {
	if c.Mode != "PAPER" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'PAPER' or 'LIVE'", c.Mode)
	}
	if len(c.Pairs) == 0 {
		return errors.New("pairs cannot be empty")
	}
	if c.Risk.MaxPositionSize <= 0 || c.Risk.MaxPositionSize > 1 {
		return fmt.Errorf("risk.max_position_size must be in (0,1], got %.4f", c.Risk.MaxPositionSize)
	}
	if c.Risk.MaxDailyLoss <= 0 || c.Risk.MaxDailyLoss > 1 {
		return fmt.Errorf("risk.max_daily_loss must be in (0,1], got %.4f", c.Risk.MaxDailyLoss)
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive, got %d", c.Risk.MaxOpenPositions)
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.TakeProfitPct <= 0 {
		return errors.New("risk.stop_loss_pct and risk.take_profit_pct must be positive")
	}
	switch c.Risk.SizingMethod {
	case "FIXED", "KELLY", "VOLATILITY":
	default:
		return fmt.Errorf("risk.sizing_method must be 'FIXED', 'KELLY', or 'VOLATILITY', got '%s'", c.Risk.SizingMethod)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Intervals.AnalysisSeconds == 0 {
		c.Intervals.AnalysisSeconds = 300
	}
	if c.Intervals.MonitorSeconds == 0 {
		c.Intervals.MonitorSeconds = 10
	}
	if c.Risk.InitialCapital == 0 {
		c.Risk.InitialCapital = 10000
	}
	if c.Risk.SizingMethod == "" {
		c.Risk.SizingMethod = "FIXED"
	}
	if c.Arbiter.MinConfidence == 0 {
		c.Arbiter.MinConfidence = 0.6
	}
	if c.MarketData.CandleLimit == 0 {
		c.MarketData.CandleLimit = 250
	}
	if c.MarketData.CacheSeconds == 0 {
		c.MarketData.CacheSeconds = 60
	}
	if c.MarketData.TimeoutSecond == 0 {
		c.MarketData.TimeoutSecond = 15
	}
	if c.Sentiment.MaxArticles == 0 {
		c.Sentiment.MaxArticles = 15
	}
	if c.Sentiment.CacheMinutes == 0 {
		c.Sentiment.CacheMinutes = 60
	}
	if c.Venue.FeeRate == 0 {
		c.Venue.FeeRate = 0.001
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
