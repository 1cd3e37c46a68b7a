package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
market:
  symbols: ["BTCUSDT"]
`))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9992", cfg.App.HTTPAddr)
	assert.Equal(t, 10000.0, cfg.Engine.InitialBalance)
	assert.Equal(t, 0.0004, cfg.Engine.FeeRate)
	assert.Equal(t, 20, cfg.Engine.MaxPositions)
	assert.Equal(t, 200, cfg.Engine.TradeHistoryLimit)
	assert.Equal(t, 10, cfg.Engine.DefaultLeverage)
	assert.Equal(t, "cross", cfg.Engine.DefaultMarginType)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.True(t, cfg.Market.Enabled)
	assert.Equal(t, "https://fapi.binance.com", cfg.Market.RESTBaseURL)
	assert.Equal(t, 3, cfg.Notify.FailureThreshold)
}

func TestLoadExplicitZeroFeeRateKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  fee_rate: 0
market:
  enabled: false
`))
	require.NoError(t, err)
	// 显式写 0 表示免手续费模式, 不回填默认费率
	assert.Equal(t, 0.0, cfg.Engine.FeeRate)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  log_level: debug
  http_addr: ":8080"
engine:
  initial_balance: 5000
  default_leverage: 25
  default_margin_type: isolated
store:
  backend: sqlite
  sqlite_path: /tmp/paper.db
market:
  enabled: false
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 5000.0, cfg.Engine.InitialBalance)
	assert.Equal(t, 25, cfg.Engine.DefaultLeverage)
	assert.Equal(t, "isolated", cfg.Engine.DefaultMarginType)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestLoadValidationFailures(t *testing.T) {
	cases := map[string]string{
		"bad margin type": `
engine:
  default_margin_type: hedged
market:
  enabled: false
`,
		"bad backend": `
store:
  backend: redis
market:
  enabled: false
`,
		"market without symbols": `
market:
  enabled: true
`,
		"telegram without token": `
market:
  enabled: false
notify:
  telegram:
    enabled: true
`,
		"zero scan interval": `
engine:
  scan_interval_ms: 0
market:
  enabled: false
`,
		"zero snapshot interval": `
engine:
  snapshot_interval_seconds: 0
market:
  enabled: false
`,
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	_, err = Load("")
	assert.Error(t, err)
}
