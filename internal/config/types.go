package config

import "strings"

// Config 是 PaperPerp 的主配置载体。
type Config struct {
	App    AppConfig    `toml:"app"`
	Engine EngineConfig `toml:"engine"`
	Market MarketConfig `toml:"market"`
	Store  StoreConfig  `toml:"store"`
	Notify NotifyConfig `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// EngineConfig 控制模拟账户的初始资金与风控缺省值。
type EngineConfig struct {
	InitialBalance          float64 `toml:"initial_balance"`
	FeeRate                 float64 `toml:"fee_rate"`
	MaxPositions            int     `toml:"max_positions"`
	TradeHistoryLimit       int     `toml:"trade_history_limit"`
	DefaultLeverage         int     `toml:"default_leverage"`
	DefaultMarginType       string  `toml:"default_margin_type"`
	ScanIntervalMs          int     `toml:"scan_interval_ms"`
	SnapshotIntervalSeconds int     `toml:"snapshot_interval_seconds"`
}

// MarketConfig 描述行情源的访问方式。
type MarketConfig struct {
	Enabled            bool     `toml:"enabled"`
	Symbols            []string `toml:"symbols"`
	RESTBaseURL        string   `toml:"rest_base_url"`
	HTTPTimeoutSeconds int      `toml:"http_timeout_seconds"`
	ProxyEnabled       bool     `toml:"proxy_enabled"`
	RESTProxyURL       string   `toml:"rest_proxy_url"`
	WSProxyURL         string   `toml:"ws_proxy_url"`
}

// StoreConfig 选择状态快照的持久化后端。
type StoreConfig struct {
	Backend      string `toml:"backend"` // "file" | "sqlite"
	SnapshotPath string `toml:"snapshot_path"`
	SQLitePath   string `toml:"sqlite_path"`
}

type NotifyConfig struct {
	Telegram         TelegramConfig `toml:"telegram"`
	FailureThreshold int            `toml:"failure_threshold"`
	CooldownSeconds  int            `toml:"cooldown_seconds"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
