// Package gormstore 用 Gorm + SQLite 实现快照与成交归档存储。
package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"paperperp/internal/engine"
	"paperperp/internal/risk"
	"paperperp/internal/store/model"
	"paperperp/internal/store/statejson"
)

const snapshotRowID = 1

type GormStore struct {
	db         *gorm.DB
	maxHistory int
}

func New(path string, maxHistory int) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: sqlite path is empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.SnapshotModel{}, &model.TradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：给并发的 HTTP 读留一点余地，同时压低锁竞争
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return &GormStore{db: db, maxHistory: maxHistory}, nil
}

// Save 覆盖写唯一的快照行。
func (s *GormStore) Save(ctx context.Context, st engine.State) error {
	payload, err := statejson.Encode(st)
	if err != nil {
		return fmt.Errorf("gorm store: encode state: %w", err)
	}
	row := model.SnapshotModel{
		ID:            snapshotRowID,
		Payload:       datatypes.JSON(payload),
		UpdatedAtUnix: time.Now().Unix(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

// Load 取快照行并走防御性解码；行缺失或载荷损坏都按"无快照"返回。
func (s *GormStore) Load(ctx context.Context) (engine.State, bool, error) {
	var row model.SnapshotModel
	err := s.db.WithContext(ctx).First(&row, snapshotRowID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return engine.State{}, false, nil
		}
		return engine.State{}, false, fmt.Errorf("gorm store: load snapshot: %w", err)
	}
	st, ok := statejson.Decode([]byte(row.Payload), s.maxHistory)
	if !ok {
		return engine.State{}, false, nil
	}
	return st, true, nil
}

// AppendTrades 按主键去重追加成交归档；重复提交（例如重放快照）不报错。
func (s *GormStore) AppendTrades(ctx context.Context, trades []engine.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	rows := make([]model.TradeModel, 0, len(trades))
	now := time.Now().Unix()
	for _, t := range trades {
		raw, err := statejson.EncodeTrade(t)
		if err != nil {
			return fmt.Errorf("gorm store: encode trade %s: %w", t.ID, err)
		}
		rows = append(rows, model.TradeModel{
			ID:            t.ID,
			Symbol:        t.Symbol,
			Side:          string(t.Side),
			Action:        string(t.Action),
			Price:         t.Price,
			Quantity:      t.Quantity,
			Leverage:      t.Leverage,
			RealizedPnL:   t.RealizedPnL,
			Fee:           t.Fee,
			CloseReason:   string(t.CloseReason),
			TimestampMs:   t.Timestamp.UnixMilli(),
			Raw:           datatypes.JSON(raw),
			CreatedAtUnix: now,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// RecentTrades 按时间倒序取归档成交。
func (s *GormStore) RecentTrades(ctx context.Context, limit int) ([]engine.Trade, error) {
	if limit <= 0 {
		limit = s.maxHistory
	}
	var rows []model.TradeModel
	err := s.db.WithContext(ctx).
		Order("timestamp_ms DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gorm store: recent trades: %w", err)
	}
	out := make([]engine.Trade, 0, len(rows))
	for _, row := range rows {
		out = append(out, engine.Trade{
			ID:          row.ID,
			Symbol:      row.Symbol,
			Side:        risk.Side(row.Side),
			Action:      engine.Action(row.Action),
			Price:       row.Price,
			Quantity:    row.Quantity,
			Leverage:    row.Leverage,
			RealizedPnL: row.RealizedPnL,
			Fee:         row.Fee,
			CloseReason: engine.CloseReason(row.CloseReason),
			Timestamp:   time.UnixMilli(row.TimestampMs).UTC(),
		})
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("gorm store: create db dir: %w", err)
	}
	return nil
}
