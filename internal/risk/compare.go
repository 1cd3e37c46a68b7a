package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// 触发判断走 decimal 比较，避免浮点误差导致边界价（恰好打到触发价）漏判。

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func cmp(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

// LiquidationHit 判断当前价是否触及强平价。target 为 0（全仓哨兵）时恒为否。
func LiquidationHit(side Side, price, target float64) bool {
	if target <= 0 || price <= 0 {
		return false
	}
	if side == SideShort {
		return cmp(price, target) >= 0
	}
	return cmp(price, target) <= 0
}

// TakeProfitHit 判断当前价是否触及止盈价。
func TakeProfitHit(side Side, price, target float64) bool {
	if target <= 0 || price <= 0 {
		return false
	}
	if side == SideShort {
		return cmp(price, target) <= 0
	}
	return cmp(price, target) >= 0
}

// StopLossHit 判断当前价是否触及止损价。
func StopLossHit(side Side, price, target float64) bool {
	if target <= 0 || price <= 0 {
		return false
	}
	if side == SideShort {
		return cmp(price, target) >= 0
	}
	return cmp(price, target) <= 0
}
