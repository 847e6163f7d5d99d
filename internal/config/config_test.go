package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"feesuggest/internal/feesuggest"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("rpc:\n  http: http://localhost:8545\n"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8545", cfg.RPC.HTTP)
	require.Equal(t, 10*time.Second, cfg.Performance.RequestTimeout.Duration)
	require.Equal(t, 3, *cfg.Performance.RetryMax)
	require.Equal(t, "latest", cfg.Estimator.NewestBlock)
	require.Equal(t, ":8080", cfg.API.Listen)
	require.Equal(t, "-", cfg.Output.JSONLPath)
	require.Equal(t, feesuggest.DefaultParams(), cfg.Params())

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
}

func TestParseOverrides(t *testing.T) {
	doc := `
rpc:
  http: http://node:8545
performance:
  request_timeout: 2s
  retry_backoff: 250
estimator:
  base_fee_history_blocks: 50
  base_fee_padding: 1.2
  confirmation_multipliers:
    4: 1.5
    240: 0.9
  reward_source: NODE
  bands:
    urgent:
      min: 3
      max: 12
watch:
  interval: 30s
log:
  level: debug
  format: text
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.Performance.RequestTimeout.Duration)
	require.Equal(t, 250*time.Millisecond, cfg.Performance.RetryBackoff.Duration)
	require.Equal(t, 30*time.Second, cfg.Watch.Interval.Duration)

	p := cfg.Params()
	require.Equal(t, 50, p.MaxHistoryBlocks)
	require.Equal(t, 1.2, p.BaseFeePadding)
	require.Equal(t, map[int]float64{4: 1.5, 240: 0.9}, p.ConfirmationMultipliers)
	require.Equal(t, feesuggest.RewardSourceNode, p.RewardSource)
	require.Equal(t, feesuggest.Band{Min: 3, Max: 12}, p.UrgentBand)
	require.Equal(t, feesuggest.DefaultParams().NormalBand, p.NormalBand)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestParseKeepsExplicitZero(t *testing.T) {
	doc := "rpc:\n  http: x\nperformance:\n  retry_max: 0\nestimator:\n  trend_tolerance: 0\n"
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 0, *cfg.Performance.RetryMax)
	require.Equal(t, 0.0, cfg.Params().TrendTolerance)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no rpc":     "api:\n  listen: :9000\n",
		"percentile": "rpc:\n  http: x\nestimator:\n  reward_percentiles: [10, 20]\n",
		"source":     "rpc:\n  http: x\nestimator:\n  reward_source: mempool\n",
		"level":      "rpc:\n  http: x\nlog:\n  level: loud\n",
		"format":     "rpc:\n  http: x\nlog:\n  format: xml\n",
		"interval":   "rpc:\n  http: x\nwatch:\n  interval: 10ms\n",
		"duration":   "rpc:\n  http: x\nperformance:\n  request_timeout: soon\n",
		"retries":    "rpc:\n  http: x\nperformance:\n  retry_max: -1\n",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		require.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc:\n  http: http://localhost:8545\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8545", cfg.RPC.HTTP)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
