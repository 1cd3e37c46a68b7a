package paperhttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperperp/internal/engine"
	"paperperp/internal/market"
	"paperperp/internal/risk"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine, *market.PriceBook) {
	t.Helper()
	eng := engine.New(engine.Config{InitialBalance: 10000})
	book := market.NewPriceBook()
	srv, err := NewServer(ServerConfig{Addr: ":0", Engine: eng, Book: book})
	require.NoError(t, err)
	return srv, eng, book
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenAndAccount(t *testing.T) {
	srv, eng, book := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/paper/open", OpenRequest{
		Symbol: "btc/usdt", Side: "long", Price: 50000, Quantity: 0.1,
		Leverage: 10, MarginType: "isolated",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])

	// 符号被清洗成交易所格式
	_, found := eng.Position("BTCUSDT", risk.SideLong)
	assert.True(t, found)

	book.Set("BTCUSDT", 55000)
	rec = doJSON(t, srv, http.MethodGet, "/api/paper/account", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.InDelta(t, 500.0, body["unrealized_pnl"].(float64), 1e-6)
	assert.Equal(t, 1.0, body["position_count"])
}

func TestOpenRejectedReturns422(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/paper/open", OpenRequest{
		Symbol: "BTCUSDT", Side: "long", Price: -1, Quantity: 0.1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["ok"])
}

func TestOpenBadJSONReturns400(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/paper/open", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseByRatio(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	require.True(t, eng.OpenPosition("BTCUSDT", risk.SideLong, 50000, 1, 10, risk.MarginIsolated, nil, nil))

	rec := doJSON(t, srv, http.MethodPost, "/api/paper/close", CloseRequest{
		Symbol: "BTCUSDT", Side: "long", Price: 51000, CloseRatio: 0.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	pos, found := eng.Position("BTCUSDT", risk.SideLong)
	require.True(t, found)
	assert.InDelta(t, 0.5, pos.Quantity, 1e-12)
}

func TestCloseOversizedQuantityRejected(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	require.True(t, eng.OpenPosition("BTCUSDT", risk.SideLong, 50000, 1, 10, risk.MarginIsolated, nil, nil))

	// 显式数量不会被收缩, 超仓直接拒绝
	rec := doJSON(t, srv, http.MethodPost, "/api/paper/close", CloseRequest{
		Symbol: "BTCUSDT", Side: "long", Price: 51000, Quantity: 2,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTriggersAndDefaults(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	require.True(t, eng.OpenPosition("BTCUSDT", risk.SideLong, 50000, 1, 10, risk.MarginIsolated, nil, nil))

	tpPrice := 60000.0
	rec := doJSON(t, srv, http.MethodPost, "/api/paper/triggers", TriggersRequest{
		Symbol: "BTCUSDT", Side: "long", TakeProfit: &tpPrice,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	pos, _ := eng.Position("BTCUSDT", risk.SideLong)
	require.NotNil(t, pos.TakeProfit)
	assert.InDelta(t, 60000.0, *pos.TakeProfit, 1e-9)

	rec = doJSON(t, srv, http.MethodPost, "/api/paper/defaults", DefaultsRequest{
		Leverage: 25, MarginType: "isolated",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, eng.DefaultLeverage())
	assert.Equal(t, risk.MarginIsolated, eng.DefaultMarginType())

	rec = doJSON(t, srv, http.MethodPost, "/api/paper/defaults", DefaultsRequest{Leverage: -3})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPositionsAndTrades(t *testing.T) {
	srv, eng, book := newTestServer(t)
	require.True(t, eng.OpenPosition("BTCUSDT", risk.SideLong, 50000, 0.1, 10, risk.MarginIsolated, nil, nil))
	book.Set("BTCUSDT", 52000)

	rec := doJSON(t, srv, http.MethodGet, "/api/paper/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var posBody struct {
		Positions []PositionView `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posBody))
	require.Len(t, posBody.Positions, 1)
	require.NotNil(t, posBody.Positions[0].UnrealizedPnL)
	assert.InDelta(t, 200.0, *posBody.Positions[0].UnrealizedPnL, 1e-6)

	rec = doJSON(t, srv, http.MethodGet, "/api/paper/trades?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "memory", body["source"])
	assert.Len(t, body["trades"], 1)

	// 成交记录对外字段统一 snake_case
	var tradeBody struct {
		Trades []map[string]any `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tradeBody))
	require.Len(t, tradeBody.Trades, 1)
	raw := tradeBody.Trades[0]
	assert.Contains(t, raw, "realized_pnl")
	assert.Contains(t, raw, "close_reason")
	assert.Contains(t, raw, "timestamp_ms")
	assert.NotContains(t, raw, "RealizedPnL")
	assert.Equal(t, "BTCUSDT", raw["symbol"])
	assert.Equal(t, "open", raw["action"])
}

func TestReset(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	require.True(t, eng.OpenPosition("BTCUSDT", risk.SideLong, 50000, 0.1, 10, risk.MarginIsolated, nil, nil))

	rec := doJSON(t, srv, http.MethodPost, "/api/paper/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10000.0, eng.Balance())
	assert.Empty(t, eng.Positions())
}
