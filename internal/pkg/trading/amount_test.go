package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseQuantity(t *testing.T) {
	// explicit quantity wins and is never shrunk
	assert.Equal(t, 0.5, CloseQuantity(1, 0.5, 0.9))
	assert.Equal(t, 2.0, CloseQuantity(1, 2, 0))

	// ratio of held size
	assert.Equal(t, 0.5, CloseQuantity(1, 0, 0.5))
	assert.Equal(t, 1.0, CloseQuantity(1, 0, 1.5)) // ratio capped at 1

	assert.Equal(t, 0.0, CloseQuantity(0, 0, 0.5))
	assert.Equal(t, 0.0, CloseQuantity(1, 0, 0))
	assert.Equal(t, 0.0, CloseQuantity(1, -1, -1))
}
