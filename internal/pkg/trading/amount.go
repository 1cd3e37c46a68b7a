// Package trading provides trading calculation utilities.
package trading

// CloseQuantity resolves the base-asset quantity for a close request that may
// be expressed either as an absolute quantity or as a ratio of the held size.
// An explicit quantity wins over the ratio and is passed through untouched so
// oversized requests are rejected downstream instead of silently shrunk.
func CloseQuantity(held, quantity, ratio float64) float64 {
	if quantity > 0 {
		return quantity
	}
	if held <= 0 || ratio <= 0 {
		return 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return held * ratio
}
