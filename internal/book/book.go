package book

import (
	"fmt"
	"strings"

	"skoll/internal/common"
)

// Book is a single-symbol limit order book matched pro-rata. It owns a
// SideIndex per side plus the locator; everything below hangs off those.
//
// The book is single-writer: AddOrder and Cancel must be called from one
// goroutine (the net server's session handler is that goroutine). Reads may
// only run concurrently under an external reader-writer discipline.
type Book struct {
	symbol  string
	bids    *SideIndex
	asks    *SideIndex
	locator *OrderLocator
	matcher Matcher
}

func New(symbol string) *Book {
	locator := NewOrderLocator()
	return &Book{
		symbol:  symbol,
		bids:    NewSideIndex(common.Buy),
		asks:    NewSideIndex(common.Sell),
		locator: locator,
		matcher: NewMatcher(locator),
	}
}

func (book *Book) Symbol() string {
	return book.symbol
}

// AddOrder matches the order against the opposite side while prices cross,
// then rests any remainder at its own limit. Returns the fills in the order
// the matcher produced them.
//
// Validation happens before any state is touched, so a rejected order
// leaves the book exactly as it was.
func (book *Book) AddOrder(order common.Order) ([]common.Trade, error) {
	if err := book.validate(order); err != nil {
		return nil, err
	}

	own, opposite := book.bids, book.asks
	if order.Side == common.Sell {
		own, opposite = book.asks, book.bids
	}

	// Consume opposite levels best price first while they cross. A level
	// can take several matcher passes when the pro-rata remainder does not
	// drain in one; each pass fills at least one unit, so this terminates.
	var trades []common.Trade
	for order.Size > 0 {
		level, ok := opposite.Best()
		if !ok || !crosses(order.Side, order.Price, level.price) {
			break
		}
		trades = book.matcher.MatchLevel(&order, level, trades)
		if level.Empty() {
			opposite.RemoveLevel(level.price)
		}
	}

	// Rest the residual at the order's own limit.
	if order.Size > 0 {
		resting := order
		level := own.GetOrCreate(order.Price)
		if err := level.Add(&resting); err != nil {
			return trades, err
		}
		if err := book.locator.Insert(order.ID, order.Side, order.Price); err != nil {
			return trades, err
		}
	}
	return trades, nil
}

// crosses reports whether an aggressor at limit can trade at levelPrice.
func crosses(side common.Side, limit, levelPrice int32) bool {
	if side == common.Buy {
		return levelPrice <= limit
	}
	return levelPrice >= limit
}

func (book *Book) validate(order common.Order) error {
	if order.Size <= 0 || order.Price < 0 || order.Symbol != book.symbol {
		return common.ErrInvalidOrder
	}
	if book.locator.Contains(order.ID) {
		return common.ErrDuplicateOrderID
	}
	return nil
}

// Cancel removes a resting order. Unknown ids, including ids already filled
// or already cancelled, report false with no state change.
func (book *Book) Cancel(id uint64) bool {
	side, price, ok := book.locator.Remove(id)
	if !ok {
		return false
	}

	index := book.bids
	if side == common.Sell {
		index = book.asks
	}
	level, ok := index.Level(price)
	if !ok {
		return false
	}
	if _, ok := level.Remove(id); !ok {
		return false
	}
	if level.Empty() {
		index.RemoveLevel(price)
	}
	return true
}

func (book *Book) BestBid() (int32, bool) {
	return book.bids.BestPrice()
}

func (book *Book) BestAsk() (int32, bool) {
	return book.asks.BestPrice()
}

// LevelSummary is one (price, resting size) pair of a snapshot.
type LevelSummary struct {
	Price int32
	Size  int32
}

// Snapshot is resting liquidity aggregated by level: asks ascending, bids
// descending, non-empty levels only.
type Snapshot struct {
	Symbol string
	Asks   []LevelSummary
	Bids   []LevelSummary
}

func (book *Book) Snapshot() Snapshot {
	snapshot := Snapshot{Symbol: book.symbol}
	book.asks.Scan(func(level *PriceLevel) bool {
		snapshot.Asks = append(snapshot.Asks, LevelSummary{Price: level.price, Size: level.totalSize})
		return true
	})
	book.bids.Scan(func(level *PriceLevel) bool {
		snapshot.Bids = append(snapshot.Bids, LevelSummary{Price: level.price, Size: level.totalSize})
		return true
	})
	return snapshot
}

// String renders the operator dump of the book.
func (s Snapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Order Book for %s ===\n", s.Symbol)
	sb.WriteString("Asks:\n")
	for _, level := range s.Asks {
		fmt.Fprintf(&sb, "Price %d | Size %d\n", level.Price, level.Size)
	}
	sb.WriteString("Bids:\n")
	for _, level := range s.Bids {
		fmt.Fprintf(&sb, "Price %d | Size %d\n", level.Price, level.Size)
	}
	return sb.String()
}
