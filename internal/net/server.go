package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"skoll/internal/book"
	"skoll/internal/common"
	"skoll/internal/utils"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
	ErrUnknownOrderID     = errors.New("unknown order id")
)

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	conn net.Conn
}

// ClientMessage links a message to the client sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// Engine is the interface that provides access to order handling.
type Engine interface {
	PlaceOrder(order common.Order) error
	CancelOrder(symbol string, id uint64) (bool, error)
	Snapshot(symbol string) (book.Snapshot, error)
	LogBook()
}

type Server struct {
	address            string
	port               int
	engine             Engine
	pool               utils.WorkerPool
	cancel             context.CancelFunc
	clientSessions     map[string]ClientSession
	clientSessionsLock sync.Mutex
	traderAddresses    map[string]string
	clientMessages     chan (ClientMessage)
}

func New(address string, port int, engine Engine) *Server {
	return &Server{
		address:         address,
		port:            port,
		engine:          engine,
		pool:            utils.NewWorkerPool(defaultNWorkers),
		clientSessions:  make(map[string]ClientSession),
		traderAddresses: make(map[string]string),
		clientMessages:  make(chan ClientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Start the worker pool.
	s.pool.Setup(t, s.handleConnection)

	// Start the session handler. All engine mutations happen on this one
	// goroutine, which is what keeps each book single-writer.
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Msg("server running")

	// Start accepting connections.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			log.Info().Msg("listening for new client connections")
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			log.Info().
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")
			// Add the client to client sessions we are tracking.
			// We expect to potentially maintain a long TCP session.
			s.addClientSession(conn)

			// Pass over the connection to be read from.
			s.pool.AddTask(conn)
		}
	}
}

// ReportTrade sends an execution report to both owners of a fill. A party
// without a live session is skipped; the trade already stands.
func (s *Server) ReportTrade(trade common.Trade) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	takerReport, makerReport, err := generateWireTradeReports(trade)
	if err != nil {
		return err
	}

	if err := s.sendToTrader(trade.Taker, takerReport); err != nil {
		return err
	}
	return s.sendToTrader(trade.Maker, makerReport)
}

// sendToTrader writes a report to the session registered for a trader
// label. Caller holds clientSessionsLock.
func (s *Server) sendToTrader(trader string, report []byte) error {
	address, ok := s.traderAddresses[trader]
	if !ok {
		log.Debug().Str("trader", trader).Msg("no session registered for trader")
		return nil
	}
	client, ok := s.clientSessions[address]
	if !ok {
		log.Debug().Str("trader", trader).Msg("no live session for trader")
		return nil
	}
	if _, err := client.conn.Write(report); err != nil {
		delete(s.clientSessions, address)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) ReportError(clientAddress string, reportErr error) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	report, err := generateWireErrorReport(reportErr)
	if err != nil {
		return err
	}

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}

	if _, err := client.conn.Write(report); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

// sessionHandler reads off incoming messages from clients and handles high-level
// session logic. Messages are received from the pool of workers.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case message := <-s.clientMessages:
			if err := s.handleMessage(message); err != nil {
				log.Error().
					Err(err).
					Str("clientAddress", message.clientAddress).
					Msg("error handling message")
				// Log the error back to the client
				s.ReportError(message.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(message ClientMessage) error {
	switch message.message.GetType() {
	case NewOrder:
		order, ok := message.message.(NewOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		s.registerTrader(order.Trader, message.clientAddress)
		if err := s.engine.PlaceOrder(order.Order()); err != nil {
			return err
		}
	case CancelOrder:
		cancel, ok := message.message.(CancelOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		cancelled, err := s.engine.CancelOrder(cancel.Symbol, cancel.OrderID)
		if err != nil {
			return err
		}
		if !cancelled {
			return ErrUnknownOrderID
		}
	case Snapshot:
		snapshot, ok := message.message.(SnapshotMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		snap, err := s.engine.Snapshot(snapshot.Symbol)
		if err != nil {
			return err
		}
		return s.sendSnapshot(message.clientAddress, snap)
	default:
		log.Error().
			Int("messageType", int(message.message.GetType())).
			Any("message", message).
			Msg("invalid message type")
		return ErrInvalidMessageType
	}
	return nil
}

// sendSnapshot writes the line-oriented book dump to the requesting client.
func (s *Server) sendSnapshot(clientAddress string, snap book.Snapshot) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}
	if _, err := client.conn.Write([]byte(snap.String())); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send snapshot: %w", err)
	}
	return nil
}

// handleConnection is a short-lived worker method which reads the next message off the
// connection, parses and passes it forward to sessionHandler to handle it. If the
// connection dies, the client session is cleaned up. This method does not lock any
// client session directly and gives up early if the connection is terminated.
// Note, any error returned from here is fatal.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	// Set max read timeout.
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("address", conn.RemoteAddr().String()).
			Err(err).
			Msg("failed setting deadline for connection")
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			log.Error().
				Err(err).
				Str("address", conn.RemoteAddr().String()).
				Msg("error reading from connection")

			// If a read from a client fails, it is likely that the client
			// has exited. Clean up the client session.
			// TODO: Should handle this properly and check for graceful EOF.
			s.deleteClientSession(conn.RemoteAddr().String())
			if err := conn.Close(); err != nil {
				log.Error().Str("address", conn.RemoteAddr().String()).Err(err)
			}
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", conn.RemoteAddr().String()).
				Msg("error parsing message")
			s.ReportError(conn.RemoteAddr().String(), err)
		} else {
			// Pass over to the message handling buffer.
			s.clientMessages <- ClientMessage{
				message:       message,
				clientAddress: conn.RemoteAddr().String(),
			}
		}

		// Push the client connection back to handle the next message.
		s.pool.AddTask(conn)
	}
	return nil
}

// registerTrader remembers which session a trader label submits from, for
// execution report routing.
func (s *Server) registerTrader(trader, clientAddress string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	s.traderAddresses[trader] = clientAddress
}

// addClientSession is an atomic map add
func (s *Server) addClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	s.clientSessions[conn.RemoteAddr().String()] = ClientSession{
		conn: conn,
	}
}

// deleteClientSession is an atomic map remove
func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	delete(s.clientSessions, address)
}
