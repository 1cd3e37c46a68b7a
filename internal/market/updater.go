package market

import (
	"context"
	"fmt"
	"sync"

	"paperperp/internal/logger"
)

// TickUpdater 把行情源的逐笔事件灌进 PriceBook。
type TickUpdater struct {
	Book   *PriceBook
	Source Source

	OnConnected    func()
	OnDisconnected func(error)

	OnTick func(TickEvent)

	startOnce sync.Once
}

type TickUpdaterOption func(*TickUpdater)

func WithTickCallbacks(onConnect func(), onDisconnect func(error)) TickUpdaterOption {
	return func(u *TickUpdater) {
		u.OnConnected = onConnect
		u.OnDisconnected = onDisconnect
	}
}

func WithTickHandler(handler func(TickEvent)) TickUpdaterOption {
	return func(u *TickUpdater) {
		u.OnTick = handler
	}
}

func NewTickUpdater(book *PriceBook, src Source, opts ...TickUpdaterOption) *TickUpdater {
	u := &TickUpdater{Book: book, Source: src}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

func (u *TickUpdater) Start(ctx context.Context, symbols []string) error {
	if u.Source == nil {
		return fmt.Errorf("tick updater missing source")
	}
	if len(symbols) == 0 {
		return fmt.Errorf("tick updater requires symbols")
	}

	// 先 REST 拉一轮最新价, websocket 首帧之前引擎就能扫描
	if prices, err := u.Source.BootstrapPrices(ctx, symbols); err != nil {
		logger.Warnf("[行情] 启动价格预热失败: %v", err)
	} else {
		u.Book.SetBatch(prices)
	}

	opts := SubscribeOptions{
		OnConnect:    u.OnConnected,
		OnDisconnect: u.OnDisconnected,
	}
	events, err := u.Source.SubscribeTrades(ctx, symbols, opts)
	if err != nil {
		return err
	}
	u.startOnce.Do(func() {
		go u.consume(ctx, events)
	})
	logger.Infof("[行情] 逐笔订阅已启动 symbols=%v", symbols)
	return nil
}

func (u *TickUpdater) consume(ctx context.Context, events <-chan TickEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			u.Book.Set(ev.Symbol, ev.Price)
			if u.OnTick != nil {
				u.OnTick(ev)
			}
		}
	}
}
