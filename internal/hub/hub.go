package hub

// Module: source-chain escrow for the intent settlement protocol.
// - CreateOrder validates a signed OrderRequest, escrows the inputs and
//   notifies the spoke chain through the router
// - WithdrawOrder is the user's escape hatch once deadline + time buffer passed
// - OnMessageReceived consumes the settlement callback and releases escrow to
//   the filler's funding wallet
// Status per order id: NULL -> ACTIVE -> {FILLED, WITHDRAWN}.

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
	ErrRequestNonceReused         = errors.New("request nonce already used")
	ErrRequestExpired             = errors.New("request expired")
	ErrInvalidOrderSignature      = errors.New("invalid order signature")
	ErrInvalidOrderInputApprovals = errors.New("input count does not match approvals count")
	ErrInvalidSourceChain         = errors.New("invalid source chain")
	ErrOrderDeadlinesMismatch     = errors.New("primary filler deadline exceeds order deadline")
	ErrOrderExpired               = errors.New("order expired")
	ErrOrderPrimaryFillerExpired  = errors.New("primary filler deadline passed")
	ErrInvalidDeadline            = errors.New("deadline beyond configured maximum")
	ErrUndefinedSpoke             = errors.New("no spoke configured for destination chain")
	ErrOrderCannotBeWithdrawn     = errors.New("order cannot be withdrawn")
	ErrOrderCannotBeFilled        = errors.New("order cannot be filled")
	ErrRestrictedToRouter         = errors.New("restricted to router")
	ErrNotOwner                   = errors.New("restricted to owner")
	ErrReentrantCall              = errors.New("reentrant call")
)

const (
	// DefaultMaxOrderDeadline bounds how far in the future an order deadline
	// may sit, in seconds.
	DefaultMaxOrderDeadline = 7 * 24 * 3600
	// DefaultTimeBuffer is the grace period after an order's deadline before
	// withdrawal unlocks, protecting in-flight settlements.
	DefaultTimeBuffer = 3600
)

// PreAuthorizer applies a one-time transfer authorization proof (a signed
// allowance grant or similar) before an input is pulled. The proof encoding is
// external to the core; an empty proof means a standing approval exists.
type PreAuthorizer interface {
	Apply(asset, owner types.Address, proof []byte) error
}

type rejectingPermits struct{}

func (rejectingPermits) Apply(_, _ types.Address, proof []byte) error {
	return fmt.Errorf("no pre-authorization scheme configured (%d byte proof)", len(proof))
}

// Params wires a Hub to its chain environment.
type Params struct {
	ChainID   uint64
	Address   types.Address
	Owner     types.Address
	Clock     assets.Clock
	Ledger    *assets.Ledger
	Router    *router.Router
	Validator *orderhash.Validator
	Permits   PreAuthorizer

	MaxOrderDeadline uint64
	TimeBuffer       uint64

	Log    *logrus.Logger
	Events types.Sink
}

// Hub is the source-chain contract: authoritative custodian of escrowed
// inputs for ACTIVE orders.
type Hub struct {
	chainID   uint64
	addr      types.Address
	owner     types.Address
	clock     assets.Clock
	ledger    *assets.Ledger
	router    *router.Router
	validator *orderhash.Validator
	permits   PreAuthorizer
	log       *logrus.Logger
	events    types.Sink

	maxOrderDeadline uint64
	timeBuffer       uint64

	entered bool

	statuses      map[common.Hash]types.OrderStatus
	requestNonces map[types.Address]map[common.Hash]bool
	// orderNonce is the hub-global, monotonically-increasing creation counter
	// folded into every order id.
	orderNonce uint64

	// spokes maps destination chain id -> spoke contract address there.
	spokes map[uint64]types.Address
}

func New(p Params) (*Hub, error) {
	if p.Clock == nil || p.Ledger == nil || p.Router == nil || p.Validator == nil {
		return nil, fmt.Errorf("hub: clock, ledger, router and validator are required")
	}
	if p.MaxOrderDeadline == 0 {
		p.MaxOrderDeadline = DefaultMaxOrderDeadline
	}
	if p.TimeBuffer == 0 {
		p.TimeBuffer = DefaultTimeBuffer
	}
	if p.Permits == nil {
		p.Permits = rejectingPermits{}
	}
	if p.Events == nil {
		p.Events = types.NopSink{}
	}
	return &Hub{
		chainID:          p.ChainID,
		addr:             p.Address,
		owner:            p.Owner,
		clock:            p.Clock,
		ledger:           p.Ledger,
		router:           p.Router,
		validator:        p.Validator,
		permits:          p.Permits,
		log:              p.Log,
		events:           p.Events,
		maxOrderDeadline: p.MaxOrderDeadline,
		timeBuffer:       p.TimeBuffer,
		statuses:         make(map[common.Hash]types.OrderStatus),
		requestNonces:    make(map[types.Address]map[common.Hash]bool),
		spokes:           make(map[uint64]types.Address),
	}, nil
}

func (h *Hub) Address() types.Address { return h.addr }

// Status returns the hub-side lifecycle state for an order id.
func (h *Hub) Status(orderID common.Hash) types.OrderStatus {
	return h.statuses[orderID]
}

// OrderNonce returns the current value of the global creation counter.
func (h *Hub) OrderNonce() uint64 { return h.orderNonce }

func (h *Hub) enter() error {
	if h.entered {
		return ErrReentrantCall
	}
	h.entered = true
	return nil
}

func (h *Hub) exit() { h.entered = false }

func nonceKey(nonce *big.Int) common.Hash {
	if nonce == nil {
		return common.Hash{}
	}
	return common.BigToHash(nonce)
}

// CreateOrder validates and accepts a signed order request, escrows its
// inputs and emits the pending notification to the spoke chain. value is the
// native amount attached by the caller; it funds native inputs and the
// bridging fee, any excess is refunded to the caller.
func (h *Hub) CreateOrder(
	caller types.Address,
	value *big.Int,
	req *types.OrderRequest,
	preAuthorizations [][]byte,
	signature []byte,
	bridge router.BridgeKind,
	bridgeOptions []byte,
) (orderID common.Hash, err error) {
	if err := h.enter(); err != nil {
		return common.Hash{}, err
	}
	defer h.exit()

	order := &req.Order
	now := h.clock.Now()

	// Request-level checks before touching any state.
	nk := nonceKey(req.Nonce)
	if h.requestNonces[order.User][nk] {
		return common.Hash{}, ErrRequestNonceReused
	}
	if now > req.Deadline {
		return common.Hash{}, ErrRequestExpired
	}
	if !h.validator.ValidateOrderRequest(req, signature) {
		return common.Hash{}, ErrInvalidOrderSignature
	}
	if len(order.Inputs) != len(preAuthorizations) {
		return common.Hash{}, ErrInvalidOrderInputApprovals
	}
	if order.SourceChainID != h.chainID {
		return common.Hash{}, ErrInvalidSourceChain
	}
	if order.PrimaryFillerDeadline > order.Deadline {
		return common.Hash{}, ErrOrderDeadlinesMismatch
	}
	if now >= order.Deadline {
		return common.Hash{}, ErrOrderExpired
	}
	if now >= order.PrimaryFillerDeadline {
		return common.Hash{}, ErrOrderPrimaryFillerExpired
	}
	if order.Deadline > now+h.maxOrderDeadline {
		return common.Hash{}, ErrInvalidDeadline
	}
	spoke, ok := h.spokes[order.DestinationChainID]
	if !ok || spoke.IsZero() {
		return common.Hash{}, ErrUndefinedSpoke
	}

	// All mutations below revert together on failure.
	snap := h.ledger.Snapshot()
	prevNonce := h.orderNonce
	defer func() {
		if err != nil {
			h.ledger.RevertTo(snap)
			h.orderNonce = prevNonce
			delete(h.requestNonces[order.User], nk)
			delete(h.statuses, orderID)
			orderID = common.Hash{}
		}
	}()

	if h.requestNonces[order.User] == nil {
		h.requestNonces[order.User] = make(map[common.Hash]bool)
	}
	h.requestNonces[order.User][nk] = true

	h.orderNonce++
	orderID = orderhash.OrderID(h.orderNonce, order)
	h.statuses[orderID] = types.StatusActive

	call, err := assets.NewCall(h.ledger, caller, h.addr, value)
	if err != nil {
		return orderID, fmt.Errorf("failed to open call: %w", err)
	}

	for i, input := range order.Inputs {
		if len(preAuthorizations[i]) > 0 {
			if err = h.permits.Apply(input.Address, order.User, preAuthorizations[i]); err != nil {
				return orderID, fmt.Errorf("pre-authorization for input %d failed: %w", i, err)
			}
		}
		if err = assets.Transfer(call, input.Kind, order.User, h.addr, input.Address, input.NormalizedID(), input.NormalizedAmount()); err != nil {
			return orderID, fmt.Errorf("escrow of input %d failed: %w", i, err)
		}
	}

	payload := router.EncodePending(orderID)
	fee, err := h.router.EstimateFee(bridge, order.DestinationChainID, payload, bridgeOptions)
	if err != nil {
		return orderID, err
	}
	if err = h.payBridgeFee(call, fee); err != nil {
		return orderID, err
	}
	err = h.router.Send(h.addr, router.Message{
		Bridge:             bridge,
		DestinationChainID: order.DestinationChainID,
		Destination:        spoke,
		Payload:            payload,
		ExtraOptions:       bridgeOptions,
		RefundAddress:      caller,
		Fee:                fee,
	})
	if err != nil {
		return orderID, err
	}
	if err = call.RefundRemaining(caller); err != nil {
		return orderID, err
	}

	h.events.Emit(types.OrderCreated{OrderID: orderID, OrderNonce: h.orderNonce, Order: *order})
	if h.log != nil {
		h.log.Infof("🔵 Order created: %s (nonce %d, %d inputs, dest chain %d)",
			orderID.Hex(), h.orderNonce, len(order.Inputs), order.DestinationChainID)
	}
	return orderID, nil
}

// payBridgeFee consumes the fee from the attached value and pushes it to the
// router as the bridging payment.
func (h *Hub) payBridgeFee(call *assets.Call, fee *big.Int) error {
	if fee.Sign() == 0 {
		return nil
	}
	if err := call.ConsumeBig(fee); err != nil {
		return err
	}
	return assets.Transfer(call, types.KindNative, h.addr, h.router.Address(), types.ZeroAddress, nil, fee)
}

// WithdrawOrder returns escrowed inputs to the user once the order deadline
// plus the configured time buffer has elapsed without a settlement. Wrong
// caller, early withdrawal, non-ACTIVE status and unknown orders all surface
// as the same error on purpose: callers learn nothing about internal timing.
func (h *Hub) WithdrawOrder(caller types.Address, order *types.Order, orderNonce uint64) (err error) {
	if err := h.enter(); err != nil {
		return err
	}
	defer h.exit()

	orderID := orderhash.OrderID(orderNonce, order)
	now := h.clock.Now()
	if caller != order.User || now < order.Deadline+h.timeBuffer || h.statuses[orderID] != types.StatusActive {
		return ErrOrderCannotBeWithdrawn
	}

	snap := h.ledger.Snapshot()
	defer func() {
		if err != nil {
			h.ledger.RevertTo(snap)
			h.statuses[orderID] = types.StatusActive
		}
	}()
	h.statuses[orderID] = types.StatusWithdrawn

	call, err := assets.NewCall(h.ledger, caller, h.addr, nil)
	if err != nil {
		return err
	}
	for i, input := range order.Inputs {
		if err = assets.Transfer(call, input.Kind, h.addr, order.User, input.Address, input.NormalizedID(), input.NormalizedAmount()); err != nil {
			return fmt.Errorf("return of input %d failed: %w", i, err)
		}
	}

	h.events.Emit(types.OrderWithdrawn{OrderID: orderID, User: order.User})
	if h.log != nil {
		h.log.Infof("↩️  Order withdrawn: %s", orderID.Hex())
	}
	return nil
}

// OnMessageReceived consumes the settlement callback relayed by the router:
// the spoke reports the fill and names the funding wallet that should receive
// the escrowed inputs. Only the router may call. A duplicate or forged
// delivery fails on the ACTIVE check without moving funds.
func (h *Hub) OnMessageReceived(caller types.Address, sourceChainID uint64, payload []byte) (err error) {
	if caller != h.router.Address() {
		return ErrRestrictedToRouter
	}
	if err := h.enter(); err != nil {
		return err
	}
	defer h.exit()

	order, orderNonce, fundingWallet, err := router.DecodeSettlement(payload)
	if err != nil {
		return err
	}
	// A buggy or malicious bridge could violate these; check explicitly.
	if order.SourceChainID != h.chainID || sourceChainID != order.DestinationChainID {
		return fmt.Errorf("%w: settlement from chain %d for order %d->%d",
			ErrInvalidSourceChain, sourceChainID, order.SourceChainID, order.DestinationChainID)
	}

	orderID := orderhash.OrderID(orderNonce, &order)
	if h.statuses[orderID] != types.StatusActive {
		return fmt.Errorf("%w: status %s", ErrOrderCannotBeFilled, h.statuses[orderID])
	}

	snap := h.ledger.Snapshot()
	defer func() {
		if err != nil {
			h.ledger.RevertTo(snap)
			h.statuses[orderID] = types.StatusActive
		}
	}()
	h.statuses[orderID] = types.StatusFilled

	call, err := assets.NewCall(h.ledger, caller, h.addr, nil)
	if err != nil {
		return err
	}
	for i, input := range order.Inputs {
		if err = assets.Transfer(call, input.Kind, h.addr, fundingWallet, input.Address, input.NormalizedID(), input.NormalizedAmount()); err != nil {
			return fmt.Errorf("release of input %d failed: %w", i, err)
		}
	}

	h.events.Emit(types.OrderSettled{OrderID: orderID, FundingWallet: fundingWallet})
	if h.log != nil {
		h.log.Infof("✅ Order settled: %s -> %s", orderID.Hex(), fundingWallet.Hex())
	}
	return nil
}

// SetSpoke owner-gates the spoke contract address for a destination chain.
func (h *Hub) SetSpoke(caller types.Address, chainID uint64, spoke types.Address) error {
	if caller != h.owner {
		return ErrNotOwner
	}
	old := h.spokes[chainID]
	h.spokes[chainID] = spoke
	h.events.Emit(types.ConfigChanged{
		Name: fmt.Sprintf("hub.spoke[%d]", chainID),
		Old:  old.Hex(),
		New:  spoke.Hex(),
	})
	return nil
}

// SetMaxOrderDeadline owner-gates the bound on how far out order deadlines
// may be set, in seconds.
func (h *Hub) SetMaxOrderDeadline(caller types.Address, seconds uint64) error {
	if caller != h.owner {
		return ErrNotOwner
	}
	old := h.maxOrderDeadline
	h.maxOrderDeadline = seconds
	h.events.Emit(types.ConfigChanged{
		Name: "hub.maxOrderDeadline",
		Old:  fmt.Sprintf("%d", old),
		New:  fmt.Sprintf("%d", seconds),
	})
	return nil
}

// SetTimeBuffer owner-gates the post-deadline grace period before withdrawal
// unlocks, in seconds.
func (h *Hub) SetTimeBuffer(caller types.Address, seconds uint64) error {
	if caller != h.owner {
		return ErrNotOwner
	}
	old := h.timeBuffer
	h.timeBuffer = seconds
	h.events.Emit(types.ConfigChanged{
		Name: "hub.timeBuffer",
		Old:  fmt.Sprintf("%d", old),
		New:  fmt.Sprintf("%d", seconds),
	})
	return nil
}
