package model

import "gorm.io/datatypes"

// SnapshotModel 存整套引擎状态的 JSON 载荷，单行覆盖写。
type SnapshotModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Payload       datatypes.JSON `gorm:"column:payload"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (SnapshotModel) TableName() string { return "engine_snapshots" }

// TradeModel 逐条归档成交，不受内存历史上限约束。
type TradeModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Symbol        string         `gorm:"column:symbol;index"`
	Side          string         `gorm:"column:side"`
	Action        string         `gorm:"column:action"`
	Price         float64        `gorm:"column:price"`
	Quantity      float64        `gorm:"column:quantity"`
	Leverage      int            `gorm:"column:leverage"`
	RealizedPnL   float64        `gorm:"column:realized_pnl"`
	Fee           float64        `gorm:"column:fee"`
	CloseReason   string         `gorm:"column:close_reason"`
	TimestampMs   int64          `gorm:"column:timestamp_ms;index"`
	Raw           datatypes.JSON `gorm:"column:raw"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (TradeModel) TableName() string { return "trades" }
