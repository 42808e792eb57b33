package assets

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

// Clock supplies the chain timestamp (unix seconds) for deadline checks.
type Clock interface {
	Now() uint64
}

// ManualClock is a settable Clock for tests and local simulation.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewManualClock(now uint64) *ManualClock { return &ManualClock{now: now} }

func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Call models one entry point invocation on a contract: the caller identity
// and the attached native value. The value moves caller -> contract up front
// (journaled, so it reverts with everything else) and is then consumed piece
// by piece: native inputs, bridging fees, hook value. Whatever remains can be
// refunded.
type Call struct {
	Caller types.Address

	self      types.Address
	ledger    *Ledger
	remaining uint256.Int
}

// NewCall opens a call from caller to the contract at self with the given
// attached native value.
func NewCall(l *Ledger, caller, self types.Address, value *big.Int) (*Call, error) {
	w, err := toWord(value)
	if err != nil {
		return nil, err
	}
	if !w.IsZero() {
		if err := l.moveNative(caller, self, w); err != nil {
			return nil, err
		}
	}
	return &Call{Caller: caller, self: self, ledger: l, remaining: *w}, nil
}

// Self returns the contract address the call executes as.
func (c *Call) Self() types.Address { return c.self }

// Remaining returns the unconsumed attached value.
func (c *Call) Remaining() *big.Int { return c.remaining.ToBig() }

// Consume deducts amount from the remaining attached value.
func (c *Call) Consume(amount *uint256.Int) error {
	if c.remaining.Lt(amount) {
		return ErrInsufficientGasValue
	}
	c.remaining.Sub(&c.remaining, amount)
	return nil
}

// ConsumeBig is Consume for big.Int amounts.
func (c *Call) ConsumeBig(amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	return c.Consume(w)
}

// RefundRemaining pushes whatever attached value is left to the given address
// and zeroes the counter.
func (c *Call) RefundRemaining(to types.Address) error {
	if c.remaining.IsZero() {
		return nil
	}
	amount := c.remaining
	if err := c.ledger.moveNative(c.self, to, &amount); err != nil {
		return err
	}
	c.remaining.Clear()
	return nil
}
