package net

import (
	"encoding/binary"
	"errors"

	"skoll/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	Snapshot
)

type ReportMessageType int

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Message format constants
const (
	BaseMessageHeaderLen        = 2
	NewOrderMessageHeaderLen    = 2 + 8 + 4 + 4 + 4 + 1 + 1
	CancelOrderMessageHeaderLen = 2 + 4 + 8
	SnapshotMessageHeaderLen    = 2 + 4
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case Snapshot:
		return parseSnapshot(msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	OrderID   uint64      // 8 bytes
	Symbol    string      // 4 bytes
	Price     int32       // 4 bytes
	Size      int32       // 4 bytes
	Side      common.Side // 1 byte
	TraderLen uint8       // 1 byte
	Trader    string      // n bytes
}

// Order converts the wire message into the domain order.
func (o *NewOrderMessage) Order() common.Order {
	return common.Order{
		ID:     o.OrderID,
		Trader: o.Trader,
		Symbol: o.Symbol,
		Side:   o.Side,
		Price:  o.Price,
		Size:   o.Size,
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	if len(msg) < NewOrderMessageHeaderLen-BaseMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.OrderID = binary.BigEndian.Uint64(msg[0:8])
	m.Symbol = string(msg[8:12]) // Assuming ASCII/UTF-8 string
	m.Price = int32(binary.BigEndian.Uint32(msg[12:16]))
	m.Size = int32(binary.BigEndian.Uint32(msg[16:20]))
	m.Side = common.Side(msg[20])
	m.TraderLen = uint8(msg[21])

	// Calculate expected total length.
	expectedTotalLen := NewOrderMessageHeaderLen - BaseMessageHeaderLen + int(m.TraderLen)
	if len(msg) < expectedTotalLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Trader = string(msg[22 : 22+m.TraderLen])

	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	Symbol  string // 4 bytes
	OrderID uint64 // 8 bytes
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}

	if len(msg) < CancelOrderMessageHeaderLen-BaseMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	m.Symbol = string(msg[0:4])
	m.OrderID = binary.BigEndian.Uint64(msg[4:12])

	return m, nil
}

type SnapshotMessage struct {
	BaseMessage
	Symbol string // 4 bytes
}

func parseSnapshot(msg []byte) (SnapshotMessage, error) {
	m := SnapshotMessage{BaseMessage: BaseMessage{TypeOf: Snapshot}}

	if len(msg) < SnapshotMessageHeaderLen-BaseMessageHeaderLen {
		return SnapshotMessage{}, ErrMessageTooShort
	}
	m.Symbol = string(msg[0:4])

	return m, nil
}

type Report struct {
	MessageType     ReportMessageType // 1 byte
	Side            common.Side       // 1 byte
	TieBreaker      bool              // 1 byte
	Size            int32             // 4 bytes
	Price           int32             // 4 bytes
	Timestamp       uint64            // 8 bytes
	CounterpartyLen uint16            // 2 bytes
	ErrStrLen       uint32            // 4 bytes
	Symbol          string            // 4 bytes
	TradeID         string            // 36 bytes
	Err             string            // n bytes
	Counterparty    string            // n bytes
}

const reportFixedHeaderLen = 1 + 1 + 1 + 4 + 4 + 8 + 2 + 4 + 4 + 36

// Serialize converts the report to be sent on the wire.
func (r *Report) Serialize() ([]byte, error) {
	totalSize := reportFixedHeaderLen + len(r.Err) + len(r.Counterparty)

	buf := make([]byte, totalSize)
	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	if r.TieBreaker {
		buf[2] = 1
	}
	binary.BigEndian.PutUint32(buf[3:7], uint32(r.Size))
	binary.BigEndian.PutUint32(buf[7:11], uint32(r.Price))
	binary.BigEndian.PutUint64(buf[11:19], r.Timestamp)
	binary.BigEndian.PutUint16(buf[19:21], r.CounterpartyLen)
	binary.BigEndian.PutUint32(buf[21:25], r.ErrStrLen)

	// Pack strings into fixed buffers. copy() ensures we don't panic if
	// the strings are shorter.
	copy(buf[25:29], r.Symbol)
	copy(buf[29:65], r.TradeID)

	offset := reportFixedHeaderLen
	if r.ErrStrLen > 0 {
		copy(buf[offset:], r.Err)
	}
	offset += int(r.ErrStrLen)
	if r.CounterpartyLen > 0 {
		copy(buf[offset:], r.Counterparty)
	}
	return buf, nil
}

// generateWireTradeReports generates both execution reports, each
// addressed from its receiver's point of view.
func generateWireTradeReports(trade common.Trade) ([]byte, []byte, error) {
	createReport := func(side common.Side, counterparty string) Report {
		return Report{
			MessageType:     ExecutionReport,
			Side:            side,
			TieBreaker:      trade.TieBreaker,
			Size:            trade.Size,
			Price:           trade.Price,
			Timestamp:       uint64(trade.Timestamp.Unix()),
			CounterpartyLen: uint16(len(counterparty)),
			Symbol:          trade.Symbol,
			TradeID:         trade.ID,
			Counterparty:    counterparty,
		}
	}

	// The taker sees the aggressor side, the maker the opposite.
	taker := createReport(trade.Side, trade.Maker)
	maker := createReport(trade.Side.Opposite(), trade.Taker)

	takerBuf, err := taker.Serialize()
	if err != nil {
		return nil, nil, err
	}
	makerBuf, err := maker.Serialize()
	if err != nil {
		return nil, nil, err
	}
	return takerBuf, makerBuf, nil
}

func generateWireErrorReport(reportErr error) ([]byte, error) {
	errStr := reportErr.Error()
	report := Report{
		MessageType: ErrorReport,
		ErrStrLen:   uint32(len(errStr)),
		Err:         errStr,
	}
	return report.Serialize()
}
