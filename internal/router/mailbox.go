package router

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/sirupsen/logrus"
)

// Mailbox is the reference asynchronous bridge backend: a Hyperlane-style
// in-process mailbox connecting the routers of several chains. Messages queue
// on dispatch and move only when a relayer step (DeliverNext/Flush) runs, so
// the cross-chain asynchrony of a real bridge is observable in tests. It can
// also redeliver, modelling at-least-once transports.
type Mailbox struct {
	mu      sync.Mutex
	log     *logrus.Logger
	routers map[uint64]*Router
	queue   []Envelope
	// last holds the most recently delivered envelope for redelivery.
	last *Envelope

	baseFee    *big.Int
	perByteFee *big.Int
}

func NewMailbox(log *logrus.Logger, baseFee, perByteFee *big.Int) *Mailbox {
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	if perByteFee == nil {
		perByteFee = new(big.Int)
	}
	return &Mailbox{
		log:        log,
		routers:    make(map[uint64]*Router),
		baseFee:    new(big.Int).Set(baseFee),
		perByteFee: new(big.Int).Set(perByteFee),
	}
}

// Connect attaches a chain's router to the mailbox and registers the mailbox
// as that router's Hyperlane backend.
func (m *Mailbox) Connect(r *Router) {
	m.mu.Lock()
	m.routers[r.ChainID()] = r
	m.mu.Unlock()
	r.RegisterBackend(m)
}

func (m *Mailbox) Kind() BridgeKind { return BridgeHyperlane }

// EstimateFee quotes base + perByte * len(payload).
func (m *Mailbox) EstimateFee(_ uint64, payload, _ []byte) *big.Int {
	fee := new(big.Int).Mul(m.perByteFee, big.NewInt(int64(len(payload))))
	return fee.Add(fee, m.baseFee)
}

func (m *Mailbox) Dispatch(env Envelope, fee *big.Int, options []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routers[env.DestinationChainID]; !ok {
		return fmt.Errorf("%w: chain %d not connected", ErrUnsupportedBridgingRoute, env.DestinationChainID)
	}
	if fee.Cmp(m.EstimateFee(env.DestinationChainID, env.Payload, options)) < 0 {
		return ErrInsufficientBridgeFee
	}
	m.queue = append(m.queue, env)
	if m.log != nil {
		m.log.Debugf("mailbox: queued message %d -> %d (%d pending)",
			env.SourceChainID, env.DestinationChainID, len(m.queue))
	}
	return nil
}

// Pending returns the number of queued, undelivered messages.
func (m *Mailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// DeliverNext relays the oldest queued message to its destination router. The
// receiving contract's error propagates; the message is consumed either way,
// matching a relayer whose transaction landed and reverted.
func (m *Mailbox) DeliverNext() error {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("mailbox: no pending messages")
	}
	env := m.queue[0]
	m.queue = m.queue[1:]
	m.last = &env
	dest := m.routers[env.DestinationChainID]
	m.mu.Unlock()

	return dest.Deliver(env)
}

// Redeliver replays the most recently delivered envelope, modelling an
// at-least-once transport handing the same message to the chain twice.
func (m *Mailbox) Redeliver() error {
	m.mu.Lock()
	if m.last == nil {
		m.mu.Unlock()
		return fmt.Errorf("mailbox: nothing delivered yet")
	}
	env := *m.last
	dest := m.routers[env.DestinationChainID]
	m.mu.Unlock()

	return dest.Deliver(env)
}

// Flush relays queued messages until the queue is empty, including messages
// enqueued by the deliveries themselves. Stops at the first receiver error.
func (m *Mailbox) Flush() error {
	for m.Pending() > 0 {
		if err := m.DeliverNext(); err != nil {
			return err
		}
	}
	return nil
}
