package engine

import (
	"paperperp/internal/logger"
	"paperperp/internal/risk"
)

// OpenPosition 开仓或同向加仓。业务规则不满足时返回 false 且不改动任何状态：
// 非法价格/数量/杠杆、同一交易对已有反向仓位（不支持对冲，需先平反向）、
// 仓位数达到上限、增量保证金超过可用余额。
// 成功时只从钱包扣除手续费，保证金为名义占用，不减少可支配余额。
func (e *Engine) OpenPosition(symbol string, side risk.Side, price, qty float64, leverage int, marginType risk.MarginType, takeProfit, stopLoss *float64) bool {
	if symbol == "" || !side.Valid() || price <= 0 || qty <= 0 {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if leverage == 0 {
		leverage = e.defaultLeverage
	}
	if leverage < 1 {
		return false
	}
	if marginType == "" {
		marginType = e.defaultMarginType
	}
	if !marginType.Valid() {
		return false
	}

	if _, exists := e.positions[Key{Symbol: symbol, Side: side.Opposite()}]; exists {
		logger.Debugf("engine: open %s %s rejected, opposite position exists", symbol, side)
		return false
	}

	key := Key{Symbol: symbol, Side: side}
	existing := e.positions[key]
	if existing == nil && len(e.positions) >= e.cfg.MaxPositions {
		logger.Debugf("engine: open %s %s rejected, position cap %d reached", symbol, side, e.cfg.MaxPositions)
		return false
	}

	var newEntry, newQty float64
	if existing != nil {
		newEntry = risk.AverageEntry(existing.EntryPrice, existing.Quantity, price, qty)
		newQty = existing.Quantity + qty
	} else {
		newEntry = price
		newQty = qty
	}
	newMargin := risk.Margin(newEntry, newQty, leverage)

	required := newMargin
	if existing != nil {
		required = newMargin - existing.Margin
	}
	available := e.balance - e.totalMarginLocked()
	if required > available {
		logger.Debugf("engine: open %s %s rejected, margin %.4f exceeds free %.4f", symbol, side, required, available)
		return false
	}

	fee := risk.Fee(price, qty, e.cfg.FeeRate)
	e.balance = clampBalance(e.balance - fee)

	now := e.now()
	if existing != nil {
		existing.EntryPrice = newEntry
		existing.Quantity = newQty
		existing.Leverage = leverage
		existing.MarginType = marginType
		existing.Margin = newMargin
		existing.LiquidationPrice = risk.LiquidationPrice(newEntry, leverage, side, marginType)
		if takeProfit != nil || stopLoss != nil {
			existing.TakeProfit = cloneFloat(takeProfit)
			existing.StopLoss = cloneFloat(stopLoss)
		}
	} else {
		pos := &Position{
			ID:               e.newID(),
			Symbol:           symbol,
			Side:             side,
			EntryPrice:       newEntry,
			Quantity:         newQty,
			Leverage:         leverage,
			MarginType:       marginType,
			Margin:           newMargin,
			LiquidationPrice: risk.LiquidationPrice(newEntry, leverage, side, marginType),
			TakeProfit:       cloneFloat(takeProfit),
			StopLoss:         cloneFloat(stopLoss),
			OpenedAt:         now,
		}
		e.positions[key] = pos
		e.order = append(e.order, key)
	}

	e.recordTradeLocked(Trade{
		ID:        e.newID(),
		Symbol:    symbol,
		Side:      side,
		Action:    ActionOpen,
		Price:     price,
		Quantity:  qty,
		Leverage:  leverage,
		Fee:       fee,
		Timestamp: now,
	})
	return true
}

// ClosePosition 以给定价格平掉部分或全部仓位，reason 记为 manual。
func (e *Engine) ClosePosition(symbol string, side risk.Side, price, qty float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeLocked(Key{Symbol: symbol, Side: side}, price, qty, CloseManual)
}

// closeLocked 是手动平仓与 TP/SL 自动平仓共用的执行路径。
func (e *Engine) closeLocked(key Key, price, qty float64, reason CloseReason) bool {
	pos := e.positions[key]
	if pos == nil || price <= 0 || qty <= 0 {
		return false
	}
	if qty > pos.Quantity*(1+qtyTolerance) {
		return false
	}

	rawPnL := risk.UnrealizedPnL(pos.EntryPrice, price, qty, pos.Side)
	fee := risk.Fee(price, qty, e.cfg.FeeRate)
	realized := rawPnL - fee
	e.balance = clampBalance(e.balance + realized)

	full := qty >= pos.Quantity*(1-qtyTolerance)
	if full {
		e.removePositionLocked(key)
	} else {
		remaining := pos.Quantity - qty
		pos.Margin *= remaining / pos.Quantity
		pos.Quantity = remaining
		// 强平价不变：仍基于原始均价计算
	}

	e.recordTradeLocked(Trade{
		ID:          e.newID(),
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		Action:      ActionClose,
		Price:       price,
		Quantity:    qty,
		Leverage:    pos.Leverage,
		RealizedPnL: realized,
		Fee:         fee,
		CloseReason: reason,
		Timestamp:   e.now(),
	})
	return true
}

// UpdateRiskTriggers 整体覆盖止盈/止损两个可选字段，传 nil 即清除。
// 触发价与仓位大小相互独立，可随时调整。
func (e *Engine) UpdateRiskTriggers(symbol string, side risk.Side, takeProfit, stopLoss *float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.positions[Key{Symbol: symbol, Side: side}]
	if pos == nil {
		return false
	}
	pos.TakeProfit = cloneFloat(takeProfit)
	pos.StopLoss = cloneFloat(stopLoss)
	return true
}
