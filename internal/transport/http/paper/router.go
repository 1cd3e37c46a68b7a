package paperhttp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"paperperp/internal/engine"
	"paperperp/internal/logger"
	"paperperp/internal/market"
	symbolpkg "paperperp/internal/pkg/symbol"
	"paperperp/internal/pkg/trading"
	"paperperp/internal/risk"
	"paperperp/internal/store"

	"github.com/gin-gonic/gin"
)

// Router 暴露模拟盘账户与下单接口。
type Router struct {
	Engine  *engine.Engine
	Book    *market.PriceBook
	Archive store.TradeArchive
}

// NewRouter 构造模拟盘 HTTP router。
func NewRouter(eng *engine.Engine, book *market.PriceBook, archive store.TradeArchive) *Router {
	return &Router{Engine: eng, Book: book, Archive: archive}
}

// Register 将 /api/paper 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/account", r.handleAccount)
	group.GET("/positions", r.handlePositions)
	group.GET("/trades", r.handleTrades)
	group.POST("/open", r.handleOpen)
	group.POST("/close", r.handleClose)
	group.POST("/triggers", r.handleTriggers)
	group.POST("/defaults", r.handleDefaults)
	group.POST("/reset", r.handleReset)
}

func (r *Router) handleAccount(c *gin.Context) {
	positions := r.Engine.Positions()
	totalMargin := 0.0
	unrealized := 0.0
	for _, p := range positions {
		totalMargin += p.Margin
		if mark, ok := r.markPrice(p.Symbol); ok {
			unrealized += risk.UnrealizedPnL(p.EntryPrice, mark, p.Quantity, p.Side)
		}
	}
	balance := r.Engine.Balance()
	c.JSON(http.StatusOK, gin.H{
		"wallet_balance":      balance,
		"total_margin":        totalMargin,
		"available_balance":   balance - totalMargin,
		"unrealized_pnl":      unrealized,
		"equity":              balance + unrealized,
		"position_count":      len(positions),
		"default_leverage":    r.Engine.DefaultLeverage(),
		"default_margin_type": string(r.Engine.DefaultMarginType()),
	})
}

func (r *Router) handlePositions(c *gin.Context) {
	positions := r.Engine.Positions()
	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		view := PositionView{
			ID:               p.ID,
			Symbol:           p.Symbol,
			Side:             string(p.Side),
			EntryPrice:       p.EntryPrice,
			Quantity:         p.Quantity,
			Leverage:         p.Leverage,
			MarginType:       string(p.MarginType),
			Margin:           p.Margin,
			LiquidationPrice: p.LiquidationPrice,
			TakeProfit:       p.TakeProfit,
			StopLoss:         p.StopLoss,
			OpenedAt:         p.OpenedAt.UnixMilli(),
		}
		if mark, ok := r.markPrice(p.Symbol); ok {
			pnl := risk.UnrealizedPnL(p.EntryPrice, mark, p.Quantity, p.Side)
			view.MarkPrice = &mark
			view.UnrealizedPnL = &pnl
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"positions": views})
}

func (r *Router) handleTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit < 0 {
		limit = 0
	}

	// 默认读内存里的滚动历史; archive=1 时查 SQLite 归档
	if parseBool(c.Query("archive")) && r.Archive != nil {
		trades, err := r.Archive.RecentTrades(c.Request.Context(), limit)
		if err != nil {
			logger.Errorf("[api] 查询成交归档失败 ip=%s err=%v", c.ClientIP(), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"trades": tradeViews(trades), "source": "archive"})
		return
	}

	trades := r.Engine.Trades()
	if limit > 0 && limit < len(trades) {
		trades = trades[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"trades": tradeViews(trades), "source": "memory"})
}

func tradeViews(trades []engine.Trade) []TradeView {
	views := make([]TradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, TradeView{
			ID:          t.ID,
			Symbol:      t.Symbol,
			Side:        string(t.Side),
			Action:      string(t.Action),
			Price:       t.Price,
			Quantity:    t.Quantity,
			Leverage:    t.Leverage,
			RealizedPnL: t.RealizedPnL,
			Fee:         t.Fee,
			CloseReason: string(t.CloseReason),
			TimestampMs: t.Timestamp.UnixMilli(),
		})
	}
	return views
}

func (r *Router) handleOpen(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Errorf("[api] 开仓请求解析失败 ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	symbol := symbolpkg.Normalize(req.Symbol)
	side := risk.Side(strings.ToLower(strings.TrimSpace(req.Side)))
	marginType := risk.MarginType(strings.ToLower(strings.TrimSpace(req.MarginType)))

	ok := r.Engine.OpenPosition(symbol, side, req.Price, req.Quantity, req.Leverage, marginType, req.TakeProfit, req.StopLoss)
	if !ok {
		logger.Warnf("[api] 开仓被拒绝 ip=%s symbol=%s side=%s price=%.6g qty=%.6g lev=%d",
			c.ClientIP(), symbol, side, req.Price, req.Quantity, req.Leverage)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false})
		return
	}
	logger.Infof("[api] 开仓成功 ip=%s symbol=%s side=%s price=%.6g qty=%.6g lev=%d",
		c.ClientIP(), symbol, side, req.Price, req.Quantity, req.Leverage)
	c.JSON(http.StatusOK, gin.H{"ok": true, "balance": r.Engine.Balance()})
}

func (r *Router) handleClose(c *gin.Context) {
	var req CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Errorf("[api] 平仓请求解析失败 ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	symbol := symbolpkg.Normalize(req.Symbol)
	side := risk.Side(strings.ToLower(strings.TrimSpace(req.Side)))

	qty := req.Quantity
	if pos, found := r.Engine.Position(symbol, side); found {
		qty = trading.CloseQuantity(pos.Quantity, req.Quantity, req.CloseRatio)
	}

	ok := r.Engine.ClosePosition(symbol, side, req.Price, qty)
	if !ok {
		logger.Warnf("[api] 平仓被拒绝 ip=%s symbol=%s side=%s price=%.6g qty=%.6g ratio=%.4f",
			c.ClientIP(), symbol, side, req.Price, qty, req.CloseRatio)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false})
		return
	}
	logger.Infof("[api] 平仓成功 ip=%s symbol=%s side=%s price=%.6g qty=%.6g",
		c.ClientIP(), symbol, side, req.Price, qty)
	c.JSON(http.StatusOK, gin.H{"ok": true, "balance": r.Engine.Balance()})
}

func (r *Router) handleTriggers(c *gin.Context) {
	var req TriggersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	symbol := symbolpkg.Normalize(req.Symbol)
	side := risk.Side(strings.ToLower(strings.TrimSpace(req.Side)))
	if !r.Engine.UpdateRiskTriggers(symbol, side, req.TakeProfit, req.StopLoss) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false})
		return
	}
	logger.Infof("[api] 止盈止损已更新 ip=%s symbol=%s side=%s", c.ClientIP(), symbol, side)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (r *Router) handleDefaults(c *gin.Context) {
	var req DefaultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if req.Leverage != 0 && !r.Engine.SetDefaultLeverage(req.Leverage) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": "无效的默认杠杆"})
		return
	}
	if mt := strings.ToLower(strings.TrimSpace(req.MarginType)); mt != "" {
		if !r.Engine.SetDefaultMarginType(risk.MarginType(mt)) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": "无效的保证金模式"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                  true,
		"default_leverage":    r.Engine.DefaultLeverage(),
		"default_margin_type": string(r.Engine.DefaultMarginType()),
	})
}

func (r *Router) handleReset(c *gin.Context) {
	r.Engine.Reset()
	logger.Infof("[api] 模拟账户已重置 ip=%s time=%s", c.ClientIP(), time.Now().Format(time.RFC3339))
	c.JSON(http.StatusOK, gin.H{"ok": true, "balance": r.Engine.Balance()})
}

func (r *Router) markPrice(symbol string) (float64, bool) {
	if r.Book == nil {
		return 0, false
	}
	return r.Book.Price(symbol)
}

func parseBool(val string) bool {
	s := strings.TrimSpace(strings.ToLower(val))
	return s == "1" || s == "true" || s == "yes"
}
