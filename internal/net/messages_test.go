package net

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skoll/internal/common"
)

func buildNewOrder(id uint64, symbol string, price, size int32, side common.Side, trader string) []byte {
	buf := make([]byte, NewOrderMessageHeaderLen+len(trader))
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	binary.BigEndian.PutUint64(buf[2:10], id)
	copy(buf[10:14], symbol)
	binary.BigEndian.PutUint32(buf[14:18], uint32(price))
	binary.BigEndian.PutUint32(buf[18:22], uint32(size))
	buf[22] = byte(side)
	buf[23] = uint8(len(trader))
	copy(buf[24:], trader)
	return buf
}

func TestParseMessage_NewOrder(t *testing.T) {
	msg, err := parseMessage(buildNewOrder(42, "SKOL", 101, 7, common.Sell, "alice"))
	require.NoError(t, err)

	newOrder, ok := msg.(NewOrderMessage)
	require.True(t, ok)
	assert.Equal(t, NewOrder, newOrder.GetType())

	order := newOrder.Order()
	assert.Equal(t, common.Order{
		ID:     42,
		Trader: "alice",
		Symbol: "SKOL",
		Side:   common.Sell,
		Price:  101,
		Size:   7,
	}, order)
}

func TestParseMessage_CancelOrder(t *testing.T) {
	buf := make([]byte, CancelOrderMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	copy(buf[2:6], "SKOL")
	binary.BigEndian.PutUint64(buf[6:14], 42)

	msg, err := parseMessage(buf)
	require.NoError(t, err)

	cancel, ok := msg.(CancelOrderMessage)
	require.True(t, ok)
	assert.Equal(t, "SKOL", cancel.Symbol)
	assert.Equal(t, uint64(42), cancel.OrderID)
}

func TestParseMessage_Snapshot(t *testing.T) {
	buf := make([]byte, SnapshotMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(Snapshot))
	copy(buf[2:6], "SKOL")

	msg, err := parseMessage(buf)
	require.NoError(t, err)

	snapshot, ok := msg.(SnapshotMessage)
	require.True(t, ok)
	assert.Equal(t, "SKOL", snapshot.Symbol)
}

func TestParseMessage_Malformed(t *testing.T) {
	_, err := parseMessage([]byte{0x00})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	unknown := make([]byte, 4)
	binary.BigEndian.PutUint16(unknown[0:2], 0xffff)
	_, err = parseMessage(unknown)
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	// A new order whose trader label overruns the payload.
	truncated := buildNewOrder(1, "SKOL", 100, 10, common.Buy, "alice")
	truncated[23] = 200
	_, err = parseMessage(truncated)
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestGenerateWireTradeReports(t *testing.T) {
	trade := common.Trade{
		ID:         "0c6a3a13-9f4e-4f6a-8b44-2a35b52f9e01",
		Symbol:     "SKOL",
		Side:       common.Buy,
		Size:       10,
		Price:      100,
		Taker:      "alice",
		Maker:      "bob",
		TieBreaker: true,
	}

	takerBuf, makerBuf, err := generateWireTradeReports(trade)
	require.NoError(t, err)

	// Taker report carries the aggressor side and the maker as
	// counterparty; the maker report mirrors both.
	assert.Equal(t, byte(ExecutionReport), takerBuf[0])
	assert.Equal(t, byte(common.Buy), takerBuf[1])
	assert.Equal(t, byte(1), takerBuf[2])
	assert.Equal(t, uint32(10), binary.BigEndian.Uint32(takerBuf[3:7]))
	assert.Equal(t, uint32(100), binary.BigEndian.Uint32(takerBuf[7:11]))
	assert.Equal(t, "SKOL", string(takerBuf[25:29]))
	assert.Equal(t, trade.ID, string(takerBuf[29:65]))
	assert.Equal(t, "bob", string(takerBuf[reportFixedHeaderLen:]))

	assert.Equal(t, byte(common.Sell), makerBuf[1])
	assert.Equal(t, "alice", string(makerBuf[reportFixedHeaderLen:]))
}

func TestGenerateWireErrorReport(t *testing.T) {
	buf, err := generateWireErrorReport(ErrUnknownOrderID)
	require.NoError(t, err)

	assert.Equal(t, byte(ErrorReport), buf[0])
	errLen := binary.BigEndian.Uint32(buf[21:25])
	assert.Equal(t, ErrUnknownOrderID.Error(), string(buf[reportFixedHeaderLen:reportFixedHeaderLen+int(errLen)]))
}
