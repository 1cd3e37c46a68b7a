package binance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsTrackSubscribeFailures(t *testing.T) {
	s := &Source{}
	s.recordSubscribeError(errors.New("dial tcp: timeout"))
	s.recordReconnect(errors.New("ws closed"))

	stats := s.Stats()
	assert.Equal(t, 1, stats.SubscribeErrors)
	assert.Equal(t, 1, stats.Reconnects)
	assert.Equal(t, "ws closed", stats.LastError)
}

func TestClearLastErrorAfterReconnect(t *testing.T) {
	s := &Source{}
	s.recordSubscribeError(errors.New("dial tcp: timeout"))
	assert.NotEmpty(t, s.Stats().LastError)

	// 重连成功后不应继续报旧错误, 计数保留
	s.ClearLastError()
	stats := s.Stats()
	assert.Empty(t, stats.LastError)
	assert.Equal(t, 1, stats.SubscribeErrors)
}
