package solver

// Module: reference filler.
// Watches the protocol event stream the way an off-chain solver watches
// contract logs: OrderCreated on the hub chain supplies the order detail,
// OrderPending on the spoke chain signals fillability. FillPending runs the
// acceptance rules and fills through the spoke.

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/NethermindEth/intent-settlement/internal/assets"
	"github.com/NethermindEth/intent-settlement/internal/router"
	"github.com/NethermindEth/intent-settlement/internal/spoke"
	"github.com/NethermindEth/intent-settlement/internal/types"
)

// Rule is one acceptance check run before a fill is attempted. A non-nil
// error rejects the order for this pass; it may become acceptable later.
type Rule func(order *types.Order, now uint64) error

// MinTimeLeft rejects orders with less than the given number of seconds until
// their deadline, leaving headroom for the settlement to travel back.
func MinTimeLeft(seconds uint64) Rule {
	return func(o *types.Order, now uint64) error {
		if now+seconds > o.Deadline {
			return fmt.Errorf("less than %ds left before deadline %d", seconds, o.Deadline)
		}
		return nil
	}
}

// AllowOutputTokens rejects orders whose fungible outputs are not in the given
// set. Native outputs always pass.
func AllowOutputTokens(tokens ...types.Address) Rule {
	allowed := make(map[types.Address]bool, len(tokens))
	for _, t := range tokens {
		allowed[t] = true
	}
	return func(o *types.Order, _ uint64) error {
		for _, out := range o.Outputs {
			if out.Kind == types.KindNative {
				continue
			}
			if !allowed[out.Address] {
				return fmt.Errorf("output token %s not allowed", out.Address)
			}
		}
		return nil
	}
}

// Config wires a Solver to its filler identity and policy.
type Config struct {
	Filler        types.Address
	FundingWallet types.Address
	// Budget is the native value attached to every fill: call value plus
	// bridging fee headroom. The spoke refunds whatever goes unused.
	Budget *big.Int
	Bridge router.BridgeKind
	Rules  []Rule
	Log    *logrus.Logger
}

type candidate struct {
	order   types.Order
	nonce   uint64
	pending bool
	done    bool
}

// Solver is a types.Sink; register it alongside the other sinks (via
// types.MultiSink) on both the hub's and the spoke's event streams.
type Solver struct {
	mu    sync.Mutex
	spoke *spoke.Spoke
	clock assets.Clock
	cfg   Config

	orders map[common.Hash]*candidate
	filled int
}

func New(sp *spoke.Spoke, clock assets.Clock, cfg Config) *Solver {
	return &Solver{
		spoke:  sp,
		clock:  clock,
		cfg:    cfg,
		orders: make(map[common.Hash]*candidate),
	}
}

// Emit records the events the solver cares about. Fills never happen here:
// the event may arrive mid-transaction, so the actual filling waits for an
// explicit FillPending pass, the way a real solver acts on indexed logs.
func (s *Solver) Emit(e types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := e.(type) {
	case types.OrderCreated:
		s.orders[ev.OrderID] = &candidate{order: ev.Order, nonce: ev.OrderNonce}
	case types.OrderPending:
		if c, ok := s.orders[ev.OrderID]; ok {
			c.pending = true
		}
	case types.OrderFilled:
		if c, ok := s.orders[ev.OrderID]; ok {
			c.done = true
		}
	}
}

// Filled returns how many orders this solver has filled.
func (s *Solver) Filled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filled
}

// FillPending attempts every known pending order against the rules and fills
// the ones that pass. Returns the number filled in this pass.
func (s *Solver) FillPending() int {
	now := s.clock.Now()

	s.mu.Lock()
	ready := make(map[common.Hash]candidate)
	for id, c := range s.orders {
		if c.pending && !c.done {
			ready[id] = *c
		}
	}
	s.mu.Unlock()

	n := 0
	for id, c := range ready {
		if err := s.accept(&c.order, now); err != nil {
			if s.cfg.Log != nil {
				s.cfg.Log.Debugf("solver: skipping order %s: %v", id.Hex(), err)
			}
			continue
		}
		err := s.spoke.FillOrder(s.cfg.Filler, s.cfg.Budget, &c.order, c.nonce,
			s.cfg.FundingWallet, 0, s.cfg.Bridge, nil)
		if err != nil {
			if s.cfg.Log != nil {
				s.cfg.Log.Warnf("⚠️  Fill failed for order %s: %v", id.Hex(), err)
			}
			continue
		}
		n++
		if s.cfg.Log != nil {
			s.cfg.Log.Infof("🟢 Filled order %s", id.Hex())
		}

		// the spoke's OrderFilled event already marked the candidate done when
		// this solver is on the spoke's event stream; mark it regardless
		s.mu.Lock()
		if c, ok := s.orders[id]; ok {
			c.done = true
		}
		s.filled++
		s.mu.Unlock()
	}
	return n
}

func (s *Solver) accept(order *types.Order, now uint64) error {
	if !order.Filler.IsZero() && order.Filler != s.cfg.Filler && now <= order.PrimaryFillerDeadline {
		return fmt.Errorf("reserved for primary filler %s", order.Filler)
	}
	for _, rule := range s.cfg.Rules {
		if err := rule(order, now); err != nil {
			return err
		}
	}
	return nil
}
