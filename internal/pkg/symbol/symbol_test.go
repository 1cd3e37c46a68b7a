package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Normalize("btcusdt"))
	assert.Equal(t, "ETHUSDT", Normalize("ETH/USDT"))
	assert.Equal(t, "ETHUSDT", Normalize("ETH/USDT:USDT"))
	assert.Equal(t, "SOLUSDT", Normalize("  sol/usdt  "))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalizeList(t *testing.T) {
	out := NormalizeList([]string{"btcusdt", "BTC/USDT", "", "eth/usdt:usdt"})
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, out)
	assert.Nil(t, NormalizeList(nil))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("BTCUSDT"))
	assert.False(t, IsValid("  "))
}
