package types

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Event is an indexable protocol event. Off-chain tooling (indexers, solvers)
// consumes these the way listeners consume contract logs.
type Event interface {
	EventName() string
}

// Sink receives emitted events.
type Sink interface {
	Emit(Event)
}

// OrderCreated carries the full order detail for off-chain indexing.
type OrderCreated struct {
	OrderID    common.Hash
	OrderNonce uint64
	Order      Order
}

func (OrderCreated) EventName() string { return "OrderCreated" }

// OrderWithdrawn is emitted when the user reclaims escrowed inputs.
type OrderWithdrawn struct {
	OrderID common.Hash
	User    Address
}

func (OrderWithdrawn) EventName() string { return "OrderWithdrawn" }

// OrderSettled is emitted on the hub when escrowed inputs are released to the
// filler's funding wallet.
type OrderSettled struct {
	OrderID       common.Hash
	FundingWallet Address
}

func (OrderSettled) EventName() string { return "OrderSettled" }

// OrderPending is emitted on the spoke when the pending notification arrives.
type OrderPending struct {
	OrderID       common.Hash
	SourceChainID uint64
}

func (OrderPending) EventName() string { return "OrderPending" }

// OrderFilled is emitted on the spoke after a successful fill.
type OrderFilled struct {
	OrderID       common.Hash
	Filler        Address
	FundingWallet Address
}

func (OrderFilled) EventName() string { return "OrderFilled" }

// ConfigChanged is emitted by every owner-gated setter with the old and new
// value rendered as strings.
type ConfigChanged struct {
	Name string
	Old  string
	New  string
}

func (ConfigChanged) EventName() string { return "ConfigChanged" }

// MessageSent is emitted by the router on outbound dispatch.
type MessageSent struct {
	Bridge             uint8
	DestinationChainID uint64
	Destination        Address
	Fee                *big.Int
}

func (MessageSent) EventName() string { return "MessageSent" }

// Recorder is a Sink that keeps every event in order. Used by tests and the
// demo tooling in place of a real log index.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// NopSink drops all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
