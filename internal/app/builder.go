package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	ppcfg "paperperp/internal/config"
	"paperperp/internal/engine"
	"paperperp/internal/gateway/binance"
	"paperperp/internal/gateway/notifier"
	"paperperp/internal/logger"
	"paperperp/internal/market"
	"paperperp/internal/pkg/circuit"
	symbolpkg "paperperp/internal/pkg/symbol"
	"paperperp/internal/risk"
	"paperperp/internal/store"
	"paperperp/internal/store/filestore"
	"paperperp/internal/store/gormstore"
	paperhttp "paperperp/internal/transport/http/paper"
)

// buildApp 按依赖顺序组装应用: 存储 → 引擎 → 行情 → 通知 → HTTP。
func buildApp(ctx context.Context, cfg *ppcfg.Config) (*App, error) {
	snapshots, archive, err := buildStores(cfg.Store, cfg.Engine.TradeHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}

	eng := engine.New(engine.Config{
		InitialBalance:    cfg.Engine.InitialBalance,
		FeeRate:           cfg.Engine.FeeRate,
		MaxPositions:      cfg.Engine.MaxPositions,
		MaxHistory:        cfg.Engine.TradeHistoryLimit,
		DefaultLeverage:   cfg.Engine.DefaultLeverage,
		DefaultMarginType: parseMarginType(cfg.Engine.DefaultMarginType),
	})
	if st, ok, err := snapshots.Load(ctx); err != nil {
		return nil, fmt.Errorf("读取状态快照失败: %w", err)
	} else if ok {
		eng.Hydrate(st)
		logger.Infof("✓ 状态快照已恢复 balance=%.2f positions=%d trades=%d",
			st.WalletBalance, len(st.Positions), len(st.Trades))
	} else {
		logger.Infof("未找到可用快照, 使用初始资金 %.2f", cfg.Engine.InitialBalance)
	}

	book := market.NewPriceBook()
	var source market.Source
	var updater *market.TickUpdater
	symbols := symbolpkg.NormalizeList(cfg.Market.Symbols)
	if cfg.Market.Enabled {
		source, err = binance.New(binance.Config{
			RESTBaseURL:  cfg.Market.RESTBaseURL,
			HTTPTimeout:  time.Duration(cfg.Market.HTTPTimeoutSeconds) * time.Second,
			ProxyEnabled: cfg.Market.ProxyEnabled,
			RESTProxyURL: cfg.Market.RESTProxyURL,
			WSProxyURL:   cfg.Market.WSProxyURL,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化行情源失败: %w", err)
		}
		updater = market.NewTickUpdater(book, source,
			market.WithTickCallbacks(
				func() { logger.Infof("[行情] websocket 已连接") },
				func(err error) { logger.Warnf("[行情] websocket 断开: %v", err) },
			),
		)
	}

	var notify notifier.TextNotifier
	if cfg.Notify.Telegram.Enabled {
		breaker := circuit.NewBreaker("telegram",
			cfg.Notify.FailureThreshold,
			time.Duration(cfg.Notify.CooldownSeconds)*time.Second)
		notify = notifier.NewGuarded(
			notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID),
			breaker)
	}

	httpSrv, err := paperhttp.NewServer(paperhttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Engine:  eng,
		Book:    book,
		Archive: archive,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	return &App{
		cfg:       cfg,
		engine:    eng,
		book:      book,
		source:    source,
		updater:   updater,
		symbols:   symbols,
		snapshots: snapshots,
		archive:   archive,
		notify:    notify,
		httpSrv:   httpSrv,
	}, nil
}

func parseMarginType(raw string) risk.MarginType {
	return risk.MarginType(strings.ToLower(strings.TrimSpace(raw)))
}

func buildStores(cfg ppcfg.StoreConfig, maxHistory int) (store.SnapshotStore, store.TradeArchive, error) {
	switch cfg.Backend {
	case "sqlite":
		gs, err := gormstore.New(cfg.SQLitePath, maxHistory)
		if err != nil {
			return nil, nil, err
		}
		return gs, gs, nil
	default:
		fs, err := filestore.New(cfg.SnapshotPath, maxHistory)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	}
}
