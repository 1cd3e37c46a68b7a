package market

import "sync"

// PriceBook 保存每个交易对的最新成交价, 供风控扫描按快照读取。
type PriceBook struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]float64)}
}

func (b *PriceBook) Set(symbol string, price float64) {
	if symbol == "" || price <= 0 {
		return
	}
	b.mu.Lock()
	b.prices[symbol] = price
	b.mu.Unlock()
}

func (b *PriceBook) SetBatch(prices map[string]float64) {
	b.mu.Lock()
	for symbol, price := range prices {
		if symbol == "" || price <= 0 {
			continue
		}
		b.prices[symbol] = price
	}
	b.mu.Unlock()
}

func (b *PriceBook) Price(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[symbol]
	return p, ok
}

// Snapshot 返回一份拷贝, 调用方可以放心在持锁的引擎里使用。
func (b *PriceBook) Snapshot() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.prices))
	for symbol, price := range b.prices {
		out[symbol] = price
	}
	return out
}

func (b *PriceBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prices)
}
