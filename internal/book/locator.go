package book

import (
	"skoll/internal/common"
)

type location struct {
	side  common.Side
	price int32
}

// OrderLocator maps live order ids to where they rest. Carrying the side in
// the entry means cancel never has to probe both indexes. The locator holds
// no order handle; traversal back to the order goes through the side index.
type OrderLocator struct {
	entries map[uint64]location
}

func NewOrderLocator() *OrderLocator {
	return &OrderLocator{
		entries: make(map[uint64]location),
	}
}

func (locator *OrderLocator) Insert(id uint64, side common.Side, price int32) error {
	if _, ok := locator.entries[id]; ok {
		return common.ErrDuplicateOrderID
	}
	locator.entries[id] = location{side: side, price: price}
	return nil
}

func (locator *OrderLocator) Lookup(id uint64) (common.Side, int32, bool) {
	entry, ok := locator.entries[id]
	return entry.side, entry.price, ok
}

func (locator *OrderLocator) Remove(id uint64) (common.Side, int32, bool) {
	entry, ok := locator.entries[id]
	if ok {
		delete(locator.entries, id)
	}
	return entry.side, entry.price, ok
}

func (locator *OrderLocator) Contains(id uint64) bool {
	_, ok := locator.entries[id]
	return ok
}

func (locator *OrderLocator) Len() int {
	return len(locator.entries)
}
