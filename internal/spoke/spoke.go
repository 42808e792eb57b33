package spoke

// Module: destination-chain fulfillment.
// - OnMessageReceived marks orders PENDING when the hub's notification arrives
// - FillOrder moves the outputs (minus protocol fee) from the filler to the
//   recipient, optionally runs the post-fill hook, and reports back to the hub
// Status per order id: NULL -> PENDING -> FILLED. The spoke never custodies
// output assets beyond the fee skim; everything moves within the fill call.

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/NethermindEth/intent-settlement/internal/assets"
	"github.com/NethermindEth/intent-settlement/internal/orderhash"
	"github.com/NethermindEth/intent-settlement/internal/router"
	"github.com/NethermindEth/intent-settlement/internal/types"
)

var (
	ErrInvalidOrder              = errors.New("unknown order")
	ErrOrderAlreadyFilled        = errors.New("order already filled")
	ErrOrderExpired              = errors.New("order expired")
	ErrInvalidDestinationChain   = errors.New("order targets a different chain")
	ErrRestrictedToPrimaryFiller = errors.New("restricted to primary filler")
	ErrInvalidFundingWallet      = errors.New("invalid funding wallet")
	ErrExternalCallFailed        = errors.New("post-fill call failed")
	ErrInvalidFeeValue           = errors.New("fee rate exceeds resolution")
	ErrUndefinedHub              = errors.New("no hub configured for source chain")
	ErrRestrictedToRouter        = errors.New("restricted to router")
	ErrNotOwner                  = errors.New("restricted to owner")
	ErrReentrantCall             = errors.New("reentrant call")
)

// FeeResolution is the denominator of the protocol fee rate: a rate of 500
// means 5%.
const FeeResolution = 10_000

// Params wires a Spoke to its chain environment.
type Params struct {
	ChainID  uint64
	Address  types.Address
	Owner    types.Address
	Clock    assets.Clock
	Ledger   *assets.Ledger
	Router   *router.Router
	Executor *Executor

	// FeeRate out of FeeResolution, skimmed from native and fungible outputs.
	FeeRate uint64

	Log    *logrus.Logger
	Events types.Sink
}

// Spoke is the destination-chain contract through which fillers deliver
// outputs and trigger settlement.
type Spoke struct {
	chainID  uint64
	addr     types.Address
	owner    types.Address
	clock    assets.Clock
	ledger   *assets.Ledger
	router   *router.Router
	executor *Executor
	log      *logrus.Logger
	events   types.Sink

	feeRate uint64
	entered bool

	statuses map[common.Hash]types.OrderStatus
	// hubs maps source chain id -> hub contract address there.
	hubs map[uint64]types.Address
}

func New(p Params) (*Spoke, error) {
	if p.Clock == nil || p.Ledger == nil || p.Router == nil {
		return nil, fmt.Errorf("spoke: clock, ledger and router are required")
	}
	if p.FeeRate > FeeResolution {
		return nil, ErrInvalidFeeValue
	}
	if p.Executor == nil {
		p.Executor = NewExecutor()
	}
	if p.Events == nil {
		p.Events = types.NopSink{}
	}
	return &Spoke{
		chainID:  p.ChainID,
		addr:     p.Address,
		owner:    p.Owner,
		clock:    p.Clock,
		ledger:   p.Ledger,
		router:   p.Router,
		executor: p.Executor,
		log:      p.Log,
		events:   p.Events,
		feeRate:  p.FeeRate,
		statuses: make(map[common.Hash]types.OrderStatus),
		hubs:     make(map[uint64]types.Address),
	}, nil
}

func (s *Spoke) Address() types.Address { return s.addr }

// Status returns the spoke-side lifecycle state for an order id.
func (s *Spoke) Status(orderID common.Hash) types.OrderStatus {
	return s.statuses[orderID]
}

// Executor returns the hook executor for deployment wiring.
func (s *Spoke) HookExecutor() *Executor { return s.executor }

func (s *Spoke) enter() error {
	if s.entered {
		return ErrReentrantCall
	}
	s.entered = true
	return nil
}

func (s *Spoke) exit() { s.entered = false }

// OnMessageReceived consumes the hub's pending notification. Re-delivery
// simply re-sets PENDING; fillOrder enforces the real one-shot guarantee.
func (s *Spoke) OnMessageReceived(caller types.Address, sourceChainID uint64, payload []byte) error {
	if caller != s.router.Address() {
		return ErrRestrictedToRouter
	}
	if hub, ok := s.hubs[sourceChainID]; !ok || hub.IsZero() {
		return ErrUndefinedHub
	}
	orderID, err := router.DecodePending(payload)
	if err != nil {
		return err
	}
	if s.statuses[orderID] == types.StatusFilled {
		// late or duplicated notification for a settled order, nothing to do
		return nil
	}
	s.statuses[orderID] = types.StatusPending
	s.events.Emit(types.OrderPending{OrderID: orderID, SourceChainID: sourceChainID})
	if s.log != nil {
		s.log.Infof("📩 Order pending: %s (from chain %d)", orderID.Hex(), sourceChainID)
	}
	return nil
}

// feeFor computes the protocol fee for one output. Only native and fungible
// outputs pay fees; unit-based kinds transfer unmodified.
func (s *Spoke) feeFor(kind types.TokenKind, amount *big.Int) *big.Int {
	if kind != types.KindNative && kind != types.KindFungible {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(s.feeRate))
	return fee.Div(fee, big.NewInt(FeeResolution))
}

// FillOrder lets a filler supply the order's outputs to the recipient, minus
// the protocol fee skim, then reports the fill to the hub for escrow release.
// fundingWallet is the address that will receive the escrowed inputs on the
// source chain; maxGas bounds the optional post-fill hook.
func (s *Spoke) FillOrder(
	caller types.Address,
	value *big.Int,
	order *types.Order,
	orderNonce uint64,
	fundingWallet types.Address,
	maxGas uint64,
	bridge router.BridgeKind,
	bridgeOptions []byte,
) (err error) {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.exit()

	if value == nil {
		value = new(big.Int)
	}
	if value.Cmp(order.CallValueOrZero()) < 0 {
		return assets.ErrInsufficientGasValue
	}
	hubAddr, ok := s.hubs[order.SourceChainID]
	if !ok || hubAddr.IsZero() {
		return ErrUndefinedHub
	}
	if fundingWallet.IsZero() || fundingWallet == hubAddr {
		return ErrInvalidFundingWallet
	}

	orderID := orderhash.OrderID(orderNonce, order)
	switch s.statuses[orderID] {
	case types.StatusPending:
	case types.StatusFilled:
		return ErrOrderAlreadyFilled
	default:
		return ErrInvalidOrder
	}

	now := s.clock.Now()
	if now > order.Deadline {
		return ErrOrderExpired
	}
	if order.DestinationChainID != s.chainID {
		return ErrInvalidDestinationChain
	}
	if !order.Filler.IsZero() && now <= order.PrimaryFillerDeadline && caller != order.Filler {
		return ErrRestrictedToPrimaryFiller
	}

	snap := s.ledger.Snapshot()
	defer func() {
		if err != nil {
			s.ledger.RevertTo(snap)
			s.statuses[orderID] = types.StatusPending
		}
	}()
	s.statuses[orderID] = types.StatusFilled

	call, err := assets.NewCall(s.ledger, caller, s.addr, value)
	if err != nil {
		return err
	}

	for i, output := range order.Outputs {
		if err = s.deliverOutput(call, caller, order.Recipient, output); err != nil {
			return fmt.Errorf("delivery of output %d failed: %w", i, err)
		}
	}

	if len(order.CallData) > 0 {
		if err = s.runHook(call, order, maxGas); err != nil {
			return err
		}
	}

	payload, err := router.EncodeSettlement(order, orderNonce, fundingWallet)
	if err != nil {
		return err
	}
	fee, err := s.router.EstimateFee(bridge, order.SourceChainID, payload, bridgeOptions)
	if err != nil {
		return err
	}
	if err = s.payBridgeFee(call, fee); err != nil {
		return err
	}
	err = s.router.Send(s.addr, router.Message{
		Bridge:             bridge,
		DestinationChainID: order.SourceChainID,
		Destination:        hubAddr,
		Payload:            payload,
		ExtraOptions:       bridgeOptions,
		RefundAddress:      caller,
		Fee:                fee,
	})
	if err != nil {
		return err
	}
	if err = call.RefundRemaining(caller); err != nil {
		return err
	}

	s.events.Emit(types.OrderFilled{OrderID: orderID, Filler: caller, FundingWallet: fundingWallet})
	if s.log != nil {
		s.log.Infof("🟢 Order filled: %s by %s", orderID.Hex(), caller.Hex())
	}
	return nil
}

// deliverOutput moves one output from the filler to the recipient, skimming
// the protocol fee into the spoke's own balance.
func (s *Spoke) deliverOutput(call *assets.Call, filler, recipient types.Address, output types.Token) error {
	amount := output.NormalizedAmount()
	fee := s.feeFor(output.Kind, amount)
	net := new(big.Int).Sub(amount, fee)

	switch output.Kind {
	case types.KindNative:
		// pull the full amount out of the attached value, forward the net
		// portion; the fee stays with the spoke
		if err := assets.Transfer(call, output.Kind, filler, s.addr, output.Address, output.NormalizedID(), amount); err != nil {
			return err
		}
		return assets.Transfer(call, output.Kind, s.addr, recipient, output.Address, output.NormalizedID(), net)

	case types.KindFungible:
		if err := assets.Transfer(call, output.Kind, filler, recipient, output.Address, output.NormalizedID(), net); err != nil {
			return err
		}
		if fee.Sign() > 0 {
			return assets.Transfer(call, output.Kind, filler, s.addr, output.Address, output.NormalizedID(), fee)
		}
		return nil

	default:
		return assets.Transfer(call, output.Kind, filler, recipient, output.Address, output.NormalizedID(), amount)
	}
}

// runHook executes the optional post-fill call with order.callValue attached.
// Failure is fatal to the whole fill: there is no partial settlement.
func (s *Spoke) runHook(call *assets.Call, order *types.Order, maxGas uint64) error {
	callValue := order.CallValueOrZero()
	if callValue.Sign() > 0 {
		if err := call.ConsumeBig(callValue); err != nil {
			return err
		}
		if err := assets.Transfer(call, types.KindNative, s.addr, order.CallRecipient, types.ZeroAddress, nil, callValue); err != nil {
			return err
		}
	}
	if _, err := s.executor.Call(s.addr, order.CallRecipient, order.CallData, callValue, maxGas); err != nil {
		return fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
	}
	return nil
}

func (s *Spoke) payBridgeFee(call *assets.Call, fee *big.Int) error {
	if fee.Sign() == 0 {
		return nil
	}
	if err := call.ConsumeBig(fee); err != nil {
		return err
	}
	return assets.Transfer(call, types.KindNative, s.addr, s.router.Address(), types.ZeroAddress, nil, fee)
}

// SetFeeRate owner-gates the protocol fee rate, bounded by FeeResolution.
func (s *Spoke) SetFeeRate(caller types.Address, rate uint64) error {
	if caller != s.owner {
		return ErrNotOwner
	}
	if rate > FeeResolution {
		return ErrInvalidFeeValue
	}
	old := s.feeRate
	s.feeRate = rate
	s.events.Emit(types.ConfigChanged{
		Name: "spoke.feeRate",
		Old:  fmt.Sprintf("%d", old),
		New:  fmt.Sprintf("%d", rate),
	})
	return nil
}

// SetHub owner-gates the hub contract address for a source chain.
func (s *Spoke) SetHub(caller types.Address, chainID uint64, hub types.Address) error {
	if caller != s.owner {
		return ErrNotOwner
	}
	old := s.hubs[chainID]
	s.hubs[chainID] = hub
	s.events.Emit(types.ConfigChanged{
		Name: fmt.Sprintf("spoke.hub[%d]", chainID),
		Old:  old.Hex(),
		New:  hub.Hex(),
	})
	return nil
}

// Sweep owner-gates moving any balance held by the spoke (collected fees,
// stray transfers) to an arbitrary address.
func (s *Spoke) Sweep(caller types.Address, kind types.TokenKind, asset types.Address, id, amount *big.Int, to types.Address) error {
	if caller != s.owner {
		return ErrNotOwner
	}
	call, err := assets.NewCall(s.ledger, caller, s.addr, nil)
	if err != nil {
		return err
	}
	return assets.Transfer(call, kind, s.addr, to, asset, id, amount)
}
