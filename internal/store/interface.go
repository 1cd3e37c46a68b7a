// Package store 定义引擎状态的持久化接口。
// 具体实现：filestore（JSON 快照文件）与 gormstore（SQLite 归档）。
package store

import (
	"context"

	"paperperp/internal/engine"
)

// SnapshotStore 保存/恢复整套引擎状态。
// Load 的第二个返回值表示是否拿到了可用快照；损坏或缺失都按"无快照"降级，
// 不向上抛致命错误。
type SnapshotStore interface {
	Save(ctx context.Context, st engine.State) error
	Load(ctx context.Context) (engine.State, bool, error)
	Close() error
}

// TradeArchive 追加归档成交记录，容量不受内存 FIFO 上限约束，
// 供看板翻阅更久远的历史。
type TradeArchive interface {
	AppendTrades(ctx context.Context, trades []engine.Trade) error
	RecentTrades(ctx context.Context, limit int) ([]engine.Trade, error)
}
