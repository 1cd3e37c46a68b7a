package app

import (
	"context"
	"fmt"
	"time"

	ppcfg "paperperp/internal/config"
	"paperperp/internal/engine"
	"paperperp/internal/gateway/notifier"
	"paperperp/internal/logger"
	"paperperp/internal/market"
	"paperperp/internal/store"
	paperhttp "paperperp/internal/transport/http/paper"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动扫描与 HTTP 服务。
type App struct {
	cfg     *ppcfg.Config
	engine  *engine.Engine
	book    *market.PriceBook
	source  market.Source
	updater *market.TickUpdater
	symbols []string

	snapshots store.SnapshotStore
	archive   store.TradeArchive
	notify    notifier.TextNotifier
	httpSrv   *paperhttp.Server
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *ppcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildApp(context.Background(), cfg)
}

// Engine 暴露底层引擎实例（测试与回放用）。
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// ApplyDynamic 消费配置热更新。
func (a *App) ApplyDynamic(dyn ppcfg.Dynamic) {
	if dyn.LogLevel != "" && dyn.LogLevel != logger.Level() {
		logger.SetLevel(dyn.LogLevel)
		logger.Infof("日志级别已切换为 %s", dyn.LogLevel)
	}
	if dyn.DefaultLeverage > 0 && a.engine.SetDefaultLeverage(dyn.DefaultLeverage) {
		logger.Infof("默认杠杆已切换为 %dx", dyn.DefaultLeverage)
	}
	if dyn.DefaultMarginType != "" {
		a.engine.SetDefaultMarginType(parseMarginType(dyn.DefaultMarginType))
	}
}

// Run 启动行情订阅、自动平仓扫描、快照落盘与 HTTP 服务。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.updater != nil {
		if err := a.updater.Start(ctx, a.symbols); err != nil {
			return fmt.Errorf("启动行情订阅失败: %w", err)
		}
	}

	if a.httpSrv != nil {
		group.Go(func() error {
			logger.Infof("HTTP 服务监听 %s", a.httpSrv.Addr())
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("paper http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		return a.runScanner(ctx)
	})
	group.Go(func() error {
		return a.runSnapshotter(ctx)
	})

	err := group.Wait()
	a.shutdown()
	return err
}

// runScanner 周期性用最新价扫描强平与止盈止损。
func (a *App) runScanner(ctx context.Context) error {
	interval := time.Duration(a.cfg.Engine.ScanIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			prices := a.book.Snapshot()
			if len(prices) == 0 {
				continue
			}
			events := a.engine.CheckAutoClose(prices)
			if len(events) == 0 {
				continue
			}
			a.afterAutoClose(ctx, events)
		}
	}
}

// afterAutoClose 对一轮扫描产生的平仓做落盘与推送。
func (a *App) afterAutoClose(ctx context.Context, events []engine.CloseEvent) {
	trades := a.engine.Trades()
	closed := matchCloseTrades(events, trades)

	if a.archive != nil {
		if err := a.archive.AppendTrades(ctx, closed); err != nil {
			logger.Errorf("写入成交归档失败: %v", err)
		}
	}
	if err := a.snapshots.Save(ctx, a.engine.State()); err != nil {
		logger.Errorf("自动平仓后保存快照失败: %v", err)
	}
	if a.notify == nil {
		return
	}
	for _, t := range closed {
		msg := notifier.BuildCloseMessage(t)
		if err := a.notify.SendText(msg.RenderMarkdown()); err != nil {
			logger.Warnf("平仓通知发送失败 symbol=%s reason=%s err=%v", t.Symbol, t.CloseReason, err)
		}
	}
}

// runSnapshotter 定期保存全量状态, 进程被杀时最多丢一个周期。
func (a *App) runSnapshotter(ctx context.Context) error {
	interval := time.Duration(a.cfg.Engine.SnapshotIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.snapshots.Save(saveCtx, a.engine.State()); err != nil {
				logger.Errorf("退出前保存快照失败: %v", err)
			}
			cancel()
			return nil
		case <-ticker.C:
			if err := a.snapshots.Save(ctx, a.engine.State()); err != nil {
				logger.Errorf("保存快照失败: %v", err)
			}
		}
	}
}

func (a *App) shutdown() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			logger.Warnf("关闭行情源失败: %v", err)
		}
	}
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			logger.Warnf("关闭存储失败: %v", err)
		}
	}
}

// matchCloseTrades 把平仓事件对应到成交历史里最新的平仓记录。
// 成交按新在前排列, 每个事件取首条未被占用的匹配。
func matchCloseTrades(events []engine.CloseEvent, trades []engine.Trade) []engine.Trade {
	used := make(map[string]bool, len(events))
	out := make([]engine.Trade, 0, len(events))
	for _, ev := range events {
		for _, t := range trades {
			if used[t.ID] || t.Action != engine.ActionClose {
				continue
			}
			if t.Symbol == ev.Symbol && t.Side == ev.Side && t.CloseReason == ev.Reason {
				used[t.ID] = true
				out = append(out, t)
				break
			}
		}
	}
	return out
}
