package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"paperperp/internal/risk"
)

// 部分平仓数量与持仓数量的相对容差：剩余比例低于该值按全平处理。
const qtyTolerance = 1e-9

// Engine 持有一套独立的模拟交易状态（钱包、账本、历史、默认参数）。
// 每个公开操作都是一次原子状态迁移；互斥锁只存在于公开入口，
// 内部不会再挂起，外部观察不到半更新状态。
// 多实例（期货/现货各一套）直接 New 两次即可。
type Engine struct {
	mu  sync.Mutex
	cfg Config

	balance   float64
	positions map[Key]*Position
	order     []Key
	trades    []Trade

	defaultLeverage   int
	defaultMarginType risk.MarginType
	hydrated          bool

	now   func() time.Time
	newID func() string
}

func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	e.resetLocked()
	return e
}

// Reset 丢弃全部仓位与历史，资金回到初始值。
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.balance = e.cfg.InitialBalance
	e.positions = make(map[Key]*Position)
	e.order = nil
	e.trades = nil
	e.defaultLeverage = e.cfg.DefaultLeverage
	e.defaultMarginType = e.cfg.DefaultMarginType
	e.hydrated = false
}

// Hydrate 用持久化状态覆盖当前状态。字段级校验由持久化层负责，
// 这里只做账本一致性兜底：非法仓位跳过、重复键保留先到者、历史截断。
func (e *Engine) Hydrate(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	if st.WalletBalance >= 0 {
		e.balance = st.WalletBalance
	}
	for i := range st.Positions {
		p := st.Positions[i]
		if p.Symbol == "" || !p.Side.Valid() || p.Quantity <= 0 || p.Leverage < 1 {
			continue
		}
		key := Key{Symbol: p.Symbol, Side: p.Side}
		if _, dup := e.positions[key]; dup {
			continue
		}
		cp := clonePosition(p)
		e.positions[key] = &cp
		e.order = append(e.order, key)
	}
	if n := len(st.Trades); n > 0 {
		limit := n
		if limit > e.cfg.MaxHistory {
			limit = e.cfg.MaxHistory
		}
		e.trades = append([]Trade(nil), st.Trades[:limit]...)
	}
	if st.DefaultLeverage >= 1 {
		e.defaultLeverage = st.DefaultLeverage
	}
	if st.DefaultMarginType.Valid() {
		e.defaultMarginType = st.DefaultMarginType
	}
	e.hydrated = true
}

// State 返回深拷贝快照，持久化层可直接序列化。
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	st := State{
		WalletBalance:     e.balance,
		DefaultLeverage:   e.defaultLeverage,
		DefaultMarginType: e.defaultMarginType,
	}
	st.Positions = make([]Position, 0, len(e.order))
	for _, key := range e.order {
		if p, ok := e.positions[key]; ok {
			st.Positions = append(st.Positions, clonePosition(*p))
		}
	}
	st.Trades = append([]Trade(nil), e.trades...)
	return st
}

// Balance 返回当前钱包余额。
func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// Positions 按账本插入顺序返回仓位副本。
func (e *Engine) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Position, 0, len(e.order))
	for _, key := range e.order {
		if p, ok := e.positions[key]; ok {
			out = append(out, clonePosition(*p))
		}
	}
	return out
}

// Position 返回指定键的仓位副本。
func (e *Engine) Position(symbol string, side risk.Side) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[Key{Symbol: symbol, Side: side}]
	if !ok {
		return Position{}, false
	}
	return clonePosition(*p), true
}

// Trades 返回成交历史副本，新在前。
func (e *Engine) Trades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Trade(nil), e.trades...)
}

func (e *Engine) Hydrated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hydrated
}

func (e *Engine) DefaultLeverage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.defaultLeverage
}

func (e *Engine) DefaultMarginType() risk.MarginType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.defaultMarginType
}

// SetDefaultLeverage 设置 UI 未显式给出杠杆时的缺省值。
func (e *Engine) SetDefaultLeverage(leverage int) bool {
	if leverage < 1 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultLeverage = leverage
	return true
}

// SetDefaultMarginType 设置缺省保证金模式。
func (e *Engine) SetDefaultMarginType(mt risk.MarginType) bool {
	if !mt.Valid() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultMarginType = mt
	return true
}

func (e *Engine) totalMarginLocked() float64 {
	var sum float64
	for _, p := range e.positions {
		sum += p.Margin
	}
	return sum
}

func (e *Engine) recordTradeLocked(t Trade) {
	e.trades = append([]Trade{t}, e.trades...)
	if len(e.trades) > e.cfg.MaxHistory {
		e.trades = e.trades[:e.cfg.MaxHistory]
	}
}

func (e *Engine) removePositionLocked(key Key) {
	delete(e.positions, key)
	for i, k := range e.order {
		if k == key {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func clampBalance(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clonePosition(p Position) Position {
	p.TakeProfit = cloneFloat(p.TakeProfit)
	p.StopLoss = cloneFloat(p.StopLoss)
	return p
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
