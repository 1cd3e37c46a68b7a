package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceBook(t *testing.T) {
	b := NewPriceBook()

	b.Set("BTCUSDT", 50000)
	b.Set("", 1)          // ignored
	b.Set("ETHUSDT", -10) // ignored

	p, ok := b.Price("BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, 50000.0, p)

	_, ok = b.Price("ETHUSDT")
	assert.False(t, ok)
	assert.Equal(t, 1, b.Len())

	b.SetBatch(map[string]float64{"ETHUSDT": 3000, "SOLUSDT": 0})
	assert.Equal(t, 2, b.Len())

	snap := b.Snapshot()
	snap["BTCUSDT"] = 1
	p, _ = b.Price("BTCUSDT")
	assert.Equal(t, 50000.0, p) // snapshot is a copy
}
