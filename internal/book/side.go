package book

import (
	"skoll/internal/common"

	"github.com/tidwall/btree"
)

// SideIndex orders one side's price levels in a btree. Bids sort greatest
// first and asks least first, so Min is the best price on either side.
type SideIndex struct {
	side   common.Side
	levels *btree.BTreeG[*PriceLevel]
}

func NewSideIndex(side common.Side) *SideIndex {
	var less func(a, b *PriceLevel) bool
	if side == common.Buy {
		// Sorted greatest first.
		less = func(a, b *PriceLevel) bool {
			return a.price > b.price
		}
	} else {
		// Sorted least first.
		less = func(a, b *PriceLevel) bool {
			return a.price < b.price
		}
	}
	return &SideIndex{
		side:   side,
		levels: btree.NewBTreeG(less),
	}
}

// Best returns the level at the best price: the highest bid or the lowest
// ask. Every level held is non-empty, so the returned level is matchable.
func (index *SideIndex) Best() (*PriceLevel, bool) {
	return index.levels.MinMut()
}

func (index *SideIndex) BestPrice() (int32, bool) {
	level, ok := index.levels.MinMut()
	if !ok {
		return 0, false
	}
	return level.price, true
}

// Level finds an existing level by price.
func (index *SideIndex) Level(price int32) (*PriceLevel, bool) {
	// Comparator only reads the price, so probe with a dummy level.
	return index.levels.GetMut(&PriceLevel{price: price})
}

// GetOrCreate finds the level at price, creating it if this is the first
// rest there.
func (index *SideIndex) GetOrCreate(price int32) *PriceLevel {
	level, ok := index.levels.GetMut(&PriceLevel{price: price})
	if ok {
		return level
	}
	level = NewPriceLevel(price)
	index.levels.Set(level)
	return level
}

// RemoveLevel drops the entry at price. Only empty levels may be dropped.
func (index *SideIndex) RemoveLevel(price int32) {
	index.levels.Delete(&PriceLevel{price: price})
}

// Scan walks the levels best price first until fn returns false.
func (index *SideIndex) Scan(fn func(level *PriceLevel) bool) {
	index.levels.Scan(fn)
}

func (index *SideIndex) Len() int {
	return index.levels.Len()
}
