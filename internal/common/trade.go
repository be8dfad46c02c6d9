package common

import (
	"fmt"
	"time"
)

// Trade accounts for one fill between an aggressor and a resting order.
// TieBreaker marks the single remainder fill a pro-rata pass may append
// after its floored allocations.
type Trade struct {
	ID         string    // Assigned when the trade is recorded
	Symbol     string    //
	Side       Side      // The aggressor's direction
	Size       int32     // Matched quantity
	Price      int32     // Resting level price
	Taker      string    // Aggressor owner label
	Maker      string    // Resting owner label
	TakerID    uint64    //
	MakerID    uint64    //
	TieBreaker bool      //
	Timestamp  time.Time //
}

// String renders the line written to the trade sink.
func (t Trade) String() string {
	if t.TieBreaker {
		return fmt.Sprintf("TRADE: %s %v %d @ %d against %s (tie-breaker)",
			t.Symbol, t.Side, t.Size, t.Price, t.Maker)
	}
	return fmt.Sprintf("TRADE: %s %v %d @ %d against %s",
		t.Symbol, t.Side, t.Size, t.Price, t.Maker)
}
