package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"feesuggest/internal/feesuggest"
)

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	if value.Tag == "!!int" {
		var v int64
		if err := value.Decode(&v); err != nil {
			return err
		}
		d.Duration = time.Duration(v) * time.Millisecond
		return nil
	}
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = dur
	return nil
}

type Config struct {
	RPC struct {
		HTTP      string `yaml:"http"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"rpc"`

	Performance struct {
		RequestTimeout  Duration `yaml:"request_timeout"`
		RetryMax        *int     `yaml:"retry_max"`
		RetryBackoff    Duration `yaml:"retry_backoff"`
		RetryBackoffCap Duration `yaml:"retry_backoff_cap"`
	} `yaml:"performance"`

	Estimator struct {
		NewestBlock             string          `yaml:"newest_block"`
		BaseFeeHistoryBlocks    int             `yaml:"base_fee_history_blocks"`
		BaseFeePadding          float64         `yaml:"base_fee_padding"`
		ConfirmationMultipliers map[int]float64 `yaml:"confirmation_multipliers"`
		TrendBlocks             int             `yaml:"trend_blocks"`
		TrendTolerance          *float64        `yaml:"trend_tolerance"`
		PriorityFeeBlocks       int             `yaml:"priority_fee_blocks"`
		RewardPercentiles       []float64       `yaml:"reward_percentiles"`
		RewardSource            string          `yaml:"reward_source"`
		OutlierThreshold        float64         `yaml:"outlier_threshold"`
		Bands                   struct {
			Normal *feesuggest.Band `yaml:"normal"`
			Fast   *feesuggest.Band `yaml:"fast"`
			Urgent *feesuggest.Band `yaml:"urgent"`
		} `yaml:"bands"`
	} `yaml:"estimator"`

	API struct {
		Listen    string `yaml:"listen"`
		AuthToken string `yaml:"auth_token"`
	} `yaml:"api"`

	Watch struct {
		Interval Duration `yaml:"interval"`
	} `yaml:"watch"`

	Output struct {
		JSONLPath string `yaml:"jsonl_path"`
	} `yaml:"output"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := feesuggest.DefaultParams()
	if c.RPC.UserAgent == "" {
		c.RPC.UserAgent = "feesuggest"
	}
	if c.Performance.RequestTimeout.Duration == 0 {
		c.Performance.RequestTimeout = Duration{Duration: 10 * time.Second}
	}
	if c.Performance.RetryMax == nil {
		retryMax := 3
		c.Performance.RetryMax = &retryMax
	}
	if c.Performance.RetryBackoff.Duration == 0 {
		c.Performance.RetryBackoff = Duration{Duration: 500 * time.Millisecond}
	}
	if c.Performance.RetryBackoffCap.Duration == 0 {
		c.Performance.RetryBackoffCap = Duration{Duration: 5 * time.Second}
	}
	if c.Estimator.NewestBlock == "" {
		c.Estimator.NewestBlock = "latest"
	}
	if c.Estimator.BaseFeeHistoryBlocks == 0 {
		c.Estimator.BaseFeeHistoryBlocks = def.MaxHistoryBlocks
	}
	if c.Estimator.BaseFeePadding == 0 {
		c.Estimator.BaseFeePadding = def.BaseFeePadding
	}
	if len(c.Estimator.ConfirmationMultipliers) == 0 {
		c.Estimator.ConfirmationMultipliers = def.ConfirmationMultipliers
	}
	if c.Estimator.TrendBlocks == 0 {
		c.Estimator.TrendBlocks = def.TrendBlocks
	}
	if c.Estimator.TrendTolerance == nil {
		c.Estimator.TrendTolerance = &def.TrendTolerance
	}
	if c.Estimator.PriorityFeeBlocks == 0 {
		c.Estimator.PriorityFeeBlocks = def.PriorityBlocks
	}
	if len(c.Estimator.RewardPercentiles) == 0 {
		c.Estimator.RewardPercentiles = def.RewardPercentiles
	}
	if c.Estimator.RewardSource == "" {
		c.Estimator.RewardSource = def.RewardSource
	}
	if c.Estimator.OutlierThreshold == 0 {
		c.Estimator.OutlierThreshold = def.OutlierThreshold
	}
	if c.Estimator.Bands.Normal == nil {
		c.Estimator.Bands.Normal = &def.NormalBand
	}
	if c.Estimator.Bands.Fast == nil {
		c.Estimator.Bands.Fast = &def.FastBand
	}
	if c.Estimator.Bands.Urgent == nil {
		c.Estimator.Bands.Urgent = &def.UrgentBand
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8080"
	}
	if c.Watch.Interval.Duration == 0 {
		c.Watch.Interval = Duration{Duration: 12 * time.Second}
	}
	if c.Output.JSONLPath == "" {
		c.Output.JSONLPath = "-"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) validate() error {
	if c.RPC.HTTP == "" {
		return fmt.Errorf("rpc.http is required")
	}
	if *c.Performance.RetryMax < 0 {
		return fmt.Errorf("retry_max must be >= 0")
	}
	if c.Watch.Interval.Duration < time.Second {
		return fmt.Errorf("watch.interval must be at least 1s")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text", c.Log.Format)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("estimator: %w", err)
	}
	return nil
}

// Params maps the estimator section onto the estimator tuning.
func (c *Config) Params() feesuggest.Params {
	p := feesuggest.DefaultParams()
	p.MaxHistoryBlocks = c.Estimator.BaseFeeHistoryBlocks
	p.BaseFeePadding = c.Estimator.BaseFeePadding
	p.ConfirmationMultipliers = c.Estimator.ConfirmationMultipliers
	p.TrendBlocks = c.Estimator.TrendBlocks
	if c.Estimator.TrendTolerance != nil {
		p.TrendTolerance = *c.Estimator.TrendTolerance
	}
	p.PriorityBlocks = c.Estimator.PriorityFeeBlocks
	p.RewardPercentiles = c.Estimator.RewardPercentiles
	p.RewardSource = strings.ToLower(c.Estimator.RewardSource)
	p.OutlierThreshold = c.Estimator.OutlierThreshold
	if c.Estimator.Bands.Normal != nil {
		p.NormalBand = *c.Estimator.Bands.Normal
	}
	if c.Estimator.Bands.Fast != nil {
		p.FastBand = *c.Estimator.Bands.Fast
	}
	if c.Estimator.Bands.Urgent != nil {
		p.UrgentBand = *c.Estimator.Bands.Urgent
	}
	return p
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
