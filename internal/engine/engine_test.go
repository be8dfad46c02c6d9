package engine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skoll/internal/common"
	"skoll/internal/engine"
)

// captureReporter collects the trades the engine reports.
type captureReporter struct {
	trades []common.Trade
}

func (r *captureReporter) ReportTrade(trade common.Trade) error {
	r.trades = append(r.trades, trade)
	return nil
}

func newOrder(id uint64, trader, symbol string, side common.Side, size, price int32) common.Order {
	return common.Order{
		ID:     id,
		Trader: trader,
		Symbol: symbol,
		Side:   side,
		Size:   size,
		Price:  price,
	}
}

func TestEngine_RoutesBySymbol(t *testing.T) {
	eng := engine.New("SKOL", "HATI")

	require.NoError(t, eng.PlaceOrder(newOrder(1, "A", "SKOL", common.Sell, 10, 100)))
	require.NoError(t, eng.PlaceOrder(newOrder(2, "B", "HATI", common.Sell, 5, 200)))

	skol, err := eng.Snapshot("SKOL")
	require.NoError(t, err)
	assert.Len(t, skol.Asks, 1)

	hati, err := eng.Snapshot("HATI")
	require.NoError(t, err)
	assert.Len(t, hati.Asks, 1)
	assert.Equal(t, int32(200), hati.Asks[0].Price)
}

func TestEngine_UnknownSymbol(t *testing.T) {
	eng := engine.New("SKOL")

	err := eng.PlaceOrder(newOrder(1, "A", "MISC", common.Buy, 10, 100))
	assert.ErrorIs(t, err, common.ErrUnknownSymbol)

	_, err = eng.CancelOrder("MISC", 1)
	assert.ErrorIs(t, err, common.ErrUnknownSymbol)

	_, err = eng.Snapshot("MISC")
	assert.ErrorIs(t, err, common.ErrUnknownSymbol)
}

func TestEngine_RecordsTrades(t *testing.T) {
	eng := engine.New("SKOL")
	reporter := &captureReporter{}
	eng.SetReporter(reporter)
	var sink bytes.Buffer
	eng.SetTradeSink(&sink)

	require.NoError(t, eng.PlaceOrder(newOrder(1, "A", "SKOL", common.Sell, 10, 100)))
	require.NoError(t, eng.PlaceOrder(newOrder(2, "B", "SKOL", common.Buy, 10, 100)))

	require.Len(t, reporter.trades, 1)
	trade := reporter.trades[0]
	assert.NotEmpty(t, trade.ID)
	assert.False(t, trade.Timestamp.IsZero())
	assert.Equal(t, "B", trade.Taker)
	assert.Equal(t, "A", trade.Maker)

	assert.Equal(t, "TRADE: SKOL BUY 10 @ 100 against A\n", sink.String())
}

func TestEngine_CancelOrder(t *testing.T) {
	eng := engine.New("SKOL")

	require.NoError(t, eng.PlaceOrder(newOrder(1, "A", "SKOL", common.Buy, 10, 100)))

	cancelled, err := eng.CancelOrder("SKOL", 1)
	require.NoError(t, err)
	assert.True(t, cancelled)

	cancelled, err = eng.CancelOrder("SKOL", 1)
	require.NoError(t, err)
	assert.False(t, cancelled)
}
