package config

import "strings"

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9992"
	defaultAppLogPath  = "/data/logs/paperperp.log"

	defaultEngineBalance      = 10000
	defaultEngineFeeRate      = 0.0004
	defaultEngineMaxPositions = 20
	defaultEngineHistory      = 200
	defaultEngineLeverage     = 10
	defaultEngineMarginType   = "cross"
	defaultEngineScanMs       = 1000
	defaultEngineSnapshotSec  = 30

	defaultMarketREST      = "https://fapi.binance.com"
	defaultMarketTimeout   = 15
	defaultStoreBackend    = "file"
	defaultStoreSnapshot   = "/data/paper/state.json"
	defaultStoreSQLite     = "/data/paper/paper.db"
	defaultNotifyThreshold = 3
	defaultNotifyCooldown  = 30
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "engine.initial_balance",
			need:  func() bool { return e.InitialBalance <= 0 },
			apply: func() { e.InitialBalance = defaultEngineBalance },
		},
		fieldDefault{
			key:   "engine.fee_rate",
			need:  func() bool { return e.FeeRate < 0 },
			apply: func() { e.FeeRate = defaultEngineFeeRate },
		},
		fieldDefault{
			key:   "engine.max_positions",
			need:  func() bool { return e.MaxPositions <= 0 },
			apply: func() { e.MaxPositions = defaultEngineMaxPositions },
		},
		fieldDefault{
			key:   "engine.trade_history_limit",
			need:  func() bool { return e.TradeHistoryLimit <= 0 },
			apply: func() { e.TradeHistoryLimit = defaultEngineHistory },
		},
		fieldDefault{
			key:   "engine.default_leverage",
			need:  func() bool { return e.DefaultLeverage <= 0 },
			apply: func() { e.DefaultLeverage = defaultEngineLeverage },
		},
		stringFieldDefault("engine.default_margin_type", &e.DefaultMarginType, defaultEngineMarginType),
		fieldDefault{
			key:   "engine.scan_interval_ms",
			need:  func() bool { return e.ScanIntervalMs <= 0 },
			apply: func() { e.ScanIntervalMs = defaultEngineScanMs },
		},
		fieldDefault{
			key:   "engine.snapshot_interval_seconds",
			need:  func() bool { return e.SnapshotIntervalSeconds <= 0 },
			apply: func() { e.SnapshotIntervalSeconds = defaultEngineSnapshotSec },
		},
	)
	if e.FeeRate == 0 && !keys.isSet("engine.fee_rate") {
		e.FeeRate = defaultEngineFeeRate
	}
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("market.enabled", &m.Enabled, true),
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		fieldDefault{
			key:   "market.http_timeout_seconds",
			need:  func() bool { return m.HTTPTimeoutSeconds <= 0 },
			apply: func() { m.HTTPTimeoutSeconds = defaultMarketTimeout },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.backend", &s.Backend, defaultStoreBackend),
		stringFieldDefault("store.snapshot_path", &s.SnapshotPath, defaultStoreSnapshot),
		stringFieldDefault("store.sqlite_path", &s.SQLitePath, defaultStoreSQLite),
	)
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "notify.failure_threshold",
			need:  func() bool { return n.FailureThreshold <= 0 },
			apply: func() { n.FailureThreshold = defaultNotifyThreshold },
		},
		fieldDefault{
			key:   "notify.cooldown_seconds",
			need:  func() bool { return n.CooldownSeconds <= 0 },
			apply: func() { n.CooldownSeconds = defaultNotifyCooldown },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
