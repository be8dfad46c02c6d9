package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"skoll/internal/book"
	"skoll/internal/common"
)

// Reporter receives the execution report for a recorded trade. The net
// server implements this to fan reports back to both owners' sessions.
type Reporter interface {
	ReportTrade(trade common.Trade) error
}

// Engine routes orders to per-symbol books and records the fills they
// produce. Mutating calls must arrive on a single goroutine; the server's
// session handler is that queue consumer, which satisfies each book's
// single-writer contract.
type Engine struct {
	Books map[string]*book.Book

	reporter Reporter
	sink     io.Writer
}

func New(symbols ...string) *Engine {
	engine := &Engine{
		Books: make(map[string]*book.Book),
	}
	for _, symbol := range symbols {
		engine.Books[symbol] = book.New(symbol)
	}
	return engine
}

// SetReporter wires the execution report sink. Done post-construction
// because the server needs the engine first.
func (engine *Engine) SetReporter(reporter Reporter) {
	engine.reporter = reporter
}

// SetTradeSink directs the line-format trade tape at w.
func (engine *Engine) SetTradeSink(w io.Writer) {
	engine.sink = w
}

// PlaceOrder submits a limit order to its symbol's book and records every
// fill that results.
func (engine *Engine) PlaceOrder(order common.Order) error {
	bk, ok := engine.Books[order.Symbol]
	if !ok {
		return common.ErrUnknownSymbol
	}

	trades, err := bk.AddOrder(order)
	for _, trade := range trades {
		engine.recordTrade(trade)
	}
	return err
}

// CancelOrder pulls a resting order off its book. Unknown ids report false.
func (engine *Engine) CancelOrder(symbol string, id uint64) (bool, error) {
	bk, ok := engine.Books[symbol]
	if !ok {
		return false, common.ErrUnknownSymbol
	}
	return bk.Cancel(id), nil
}

// Snapshot returns the resting liquidity of one book by level.
func (engine *Engine) Snapshot(symbol string) (book.Snapshot, error) {
	bk, ok := engine.Books[symbol]
	if !ok {
		return book.Snapshot{}, common.ErrUnknownSymbol
	}
	return bk.Snapshot(), nil
}

// LogBook dumps every book to the log.
func (engine *Engine) LogBook() {
	for _, bk := range engine.Books {
		log.Info().Msg(bk.Snapshot().String())
	}
}

// recordTrade stamps the fill, writes the tape line and hands the report
// to the reporter.
func (engine *Engine) recordTrade(trade common.Trade) {
	trade.ID = uuid.New().String()
	trade.Timestamp = time.Now()

	log.Info().
		Str("trade", trade.ID).
		Str("symbol", trade.Symbol).
		Str("side", trade.Side.String()).
		Int32("size", trade.Size).
		Int32("price", trade.Price).
		Str("maker", trade.Maker).
		Str("taker", trade.Taker).
		Bool("tieBreaker", trade.TieBreaker).
		Msg("trade")

	if engine.sink != nil {
		fmt.Fprintln(engine.sink, trade.String())
	}
	if engine.reporter != nil {
		if err := engine.reporter.ReportTrade(trade); err != nil {
			log.Error().Err(err).Str("trade", trade.ID).Msg("unable to report trade")
		}
	}
}
