package book

import (
	"math"

	"skoll/internal/common"
)

// Matcher allocates an incoming order across one price level pro-rata.
//
// The first pass hands each resting order floor(restingSize * ratio) where
// ratio is incoming size over level liquidity, clamped so neither party is
// overfilled. Flooring drops less than one unit per resting order; a
// single follow-up fill against the largest post-pass remainder takes as
// much of that loss as that order still holds. Whatever it cannot take
// stays on the incoming order.
type Matcher struct {
	locator *OrderLocator
}

func NewMatcher(locator *OrderLocator) Matcher {
	return Matcher{locator: locator}
}

// MatchLevel fills incoming against level and appends the resulting trades.
// Both the incoming order and the resting orders are mutated; fully
// consumed resting orders leave the level and the locator. The incoming
// order may return with size left when it outsized the level's starting
// liquidity, or when the rounding loss exceeded the largest remainder
// (resting 1, 1, 1 against an incoming 2 leaves 1 unfilled).
func (m Matcher) MatchLevel(incoming *common.Order, level *PriceLevel, trades []common.Trade) []common.Trade {
	available := level.TotalSize()
	if available <= 0 || incoming.Size <= 0 {
		return trades
	}
	ratio := float64(incoming.Size) / float64(available)

	var largest *common.Order
	var largestCapacity int32
	var filled []uint64

	for _, resting := range level.Orders() {
		if incoming.Size <= 0 {
			break
		}

		fill := int32(math.Floor(float64(resting.Size) * ratio))
		fill = min(fill, resting.Size, incoming.Size)
		if fill > 0 {
			level.Reduce(resting, fill)
			incoming.Size -= fill
			trades = append(trades, m.trade(incoming, resting, fill, level.price, false))
		}

		// Strict greater keeps the earliest arrival on equal remainders.
		if resting.Size > largestCapacity {
			largest = resting
			largestCapacity = resting.Size
		}
		if resting.Size == 0 {
			filled = append(filled, resting.ID)
		}
	}

	// Deferred so the walk above never sees a mutated queue.
	for _, id := range filled {
		level.Remove(id)
		m.locator.Remove(id)
	}

	// Tie-breaker: the largest remainder absorbs the rounding loss.
	if incoming.Size > 0 && largest != nil && largest.Size > 0 {
		fill := min(incoming.Size, largest.Size)
		level.Reduce(largest, fill)
		incoming.Size -= fill
		trades = append(trades, m.trade(incoming, largest, fill, level.price, true))
		if largest.Size == 0 {
			level.Remove(largest.ID)
			m.locator.Remove(largest.ID)
		}
	}

	return trades
}

func (m Matcher) trade(incoming, resting *common.Order, fill, price int32, tieBreaker bool) common.Trade {
	return common.Trade{
		Symbol:     incoming.Symbol,
		Side:       incoming.Side,
		Size:       fill,
		Price:      price,
		Taker:      incoming.Trader,
		Maker:      resting.Trader,
		TakerID:    incoming.ID,
		MakerID:    resting.ID,
		TieBreaker: tieBreaker,
	}
}
