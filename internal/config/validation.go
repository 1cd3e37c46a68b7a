package config

import (
	"fmt"
	"strings"

	symbolpkg "paperperp/internal/pkg/symbol"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if e.InitialBalance <= 0 {
		return fmt.Errorf("engine.initial_balance must be > 0")
	}
	if e.FeeRate < 0 || e.FeeRate >= 1 {
		return fmt.Errorf("engine.fee_rate must be in [0, 1)")
	}
	if e.DefaultLeverage < 1 {
		return fmt.Errorf("engine.default_leverage must be >= 1")
	}
	switch strings.ToLower(strings.TrimSpace(e.DefaultMarginType)) {
	case "isolated", "cross":
	default:
		return fmt.Errorf("engine.default_margin_type must be isolated or cross")
	}
	// ticker 周期为 0 会直接 panic, 显式写 0 也不放行
	if e.ScanIntervalMs <= 0 {
		return fmt.Errorf("engine.scan_interval_ms must be > 0")
	}
	if e.SnapshotIntervalSeconds <= 0 {
		return fmt.Errorf("engine.snapshot_interval_seconds must be > 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if !m.Enabled {
		return nil
	}
	if len(symbolpkg.NormalizeList(m.Symbols)) == 0 {
		return fmt.Errorf("market.symbols requires at least one symbol when market.enabled")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.Backend {
	case "file":
		if strings.TrimSpace(s.SnapshotPath) == "" {
			return fmt.Errorf("store.snapshot_path cannot be empty for file backend")
		}
	case "sqlite":
		if strings.TrimSpace(s.SQLitePath) == "" {
			return fmt.Errorf("store.sqlite_path cannot be empty for sqlite backend")
		}
	default:
		return fmt.Errorf("store.backend must be file or sqlite (got %q)", s.Backend)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if !n.Telegram.Enabled {
		return nil
	}
	if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
