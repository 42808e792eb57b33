package spoke

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/intent-settlement/internal/assets"
	"github.com/NethermindEth/intent-settlement/internal/orderhash"
	"github.com/NethermindEth/intent-settlement/internal/router"
	"github.com/NethermindEth/intent-settlement/internal/types"
)

const (
	hubChain   = uint64(1)
	spokeChain = uint64(2)
	startTime  = uint64(1_700_000_000)
)

func addr(b byte) types.Address {
	var a types.Address
	a[31] = b
	return a
}

var (
	ownerAddr   = addr(0xa0)
	hubAddr     = addr(0x11)
	spokeAddr   = addr(0x22)
	routerAddr  = addr(0x33) // hub-chain router
	router2Addr = addr(0x44) // spoke-chain router
	fillerAddr  = addr(0xf1)
	walletAddr  = addr(0xf2)
	recipAddr   = addr(0xc1)
	tokenY      = addr(0xe2)
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type fixture struct {
	clock   *assets.ManualClock
	ledger  *assets.Ledger
	mailbox *router.Mailbox
	spoke   *Spoke
}

func newFixture(t *testing.T, feeRate uint64) *fixture {
	t.Helper()

	clock := assets.NewManualClock(startTime)
	ledger := assets.NewLedger()

	r1 := router.New(hubChain, routerAddr, ownerAddr, nil, nil)
	r2 := router.New(spokeChain, router2Addr, ownerAddr, nil, nil)
	mailbox := router.NewMailbox(nil, nil, nil)
	mailbox.Connect(r1)
	mailbox.Connect(r2)
	require.NoError(t, r2.SetWhitelisted(ownerAddr, spokeAddr, true))
	require.NoError(t, r1.SetPeer(ownerAddr, spokeChain, router2Addr))
	require.NoError(t, r2.SetPeer(ownerAddr, hubChain, routerAddr))

	s, err := New(Params{
		ChainID: spokeChain, Address: spokeAddr, Owner: ownerAddr,
		Clock: clock, Ledger: ledger, Router: r2, FeeRate: feeRate,
	})
	require.NoError(t, err)
	r2.RegisterReceiver(spokeAddr, s)
	require.NoError(t, s.SetHub(ownerAddr, hubChain, hubAddr))

	require.NoError(t, ledger.MintFungible(tokenY, fillerAddr, e18(10)))
	require.NoError(t, ledger.Approve(tokenY, fillerAddr, spokeAddr, e18(10)))
	require.NoError(t, ledger.MintNative(fillerAddr, e18(10)))

	return &fixture{clock: clock, ledger: ledger, mailbox: mailbox, spoke: s}
}

func (f *fixture) order() types.Order {
	now := f.clock.Now()
	return types.Order{
		User:                  addr(0x01),
		Recipient:             recipAddr,
		Inputs:                []types.Token{types.NewFungibleToken(addr(0xe1), e18(1))},
		Outputs:               []types.Token{types.NewFungibleToken(tokenY, e18(2))},
		SourceChainID:         hubChain,
		DestinationChainID:    spokeChain,
		PrimaryFillerDeadline: now + 60,
		Deadline:              now + 300,
	}
}

// markPending replays the hub's notification for the order.
func (f *fixture) markPending(t *testing.T, order *types.Order, nonce uint64) {
	t.Helper()
	payload := router.EncodePending(orderhash.OrderID(nonce, order))
	require.NoError(t, f.spoke.OnMessageReceived(router2Addr, hubChain, payload))
}

func (f *fixture) fill(order *types.Order, nonce uint64, value *big.Int) error {
	return f.spoke.FillOrder(fillerAddr, value, order, nonce, walletAddr, 0, router.BridgeHyperlane, nil)
}

func TestPendingNotification(t *testing.T) {
	f := newFixture(t, 0)
	order := f.order()
	id := orderhash.OrderID(1, &order)
	payload := router.EncodePending(id)

	t.Run("only the router may call", func(t *testing.T) {
		assert.ErrorIs(t, f.spoke.OnMessageReceived(addr(0x99), hubChain, payload), ErrRestrictedToRouter)
	})

	t.Run("unknown source chain rejected", func(t *testing.T) {
		assert.ErrorIs(t, f.spoke.OnMessageReceived(router2Addr, 7, payload), ErrUndefinedHub)
	})

	t.Run("marks the order pending", func(t *testing.T) {
		require.NoError(t, f.spoke.OnMessageReceived(router2Addr, hubChain, payload))
		assert.Equal(t, types.StatusPending, f.spoke.Status(id))
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		require.NoError(t, f.spoke.OnMessageReceived(router2Addr, hubChain, payload))
		assert.Equal(t, types.StatusPending, f.spoke.Status(id))
	})

	t.Run("late notification for a filled order is a no-op", func(t *testing.T) {
		require.NoError(t, f.fill(&order, 1, nil))
		require.NoError(t, f.spoke.OnMessageReceived(router2Addr, hubChain, payload))
		assert.Equal(t, types.StatusFilled, f.spoke.Status(id))
	})

	t.Run("garbage payload rejected", func(t *testing.T) {
		assert.Error(t, f.spoke.OnMessageReceived(router2Addr, hubChain, []byte{0x01}))
	})
}

func TestFillOrderFungible(t *testing.T) {
	f := newFixture(t, 500)
	order := f.order()
	f.markPending(t, &order, 1)

	require.NoError(t, f.fill(&order, 1, nil))

	// 5% of 2e18 stays with the spoke as protocol fee
	assert.Equal(t, new(big.Int).Sub(e18(2), new(big.Int).SetUint64(1e17)), f.ledger.FungibleBalance(tokenY, recipAddr))
	assert.Equal(t, new(big.Int).SetUint64(1e17), f.ledger.FungibleBalance(tokenY, spokeAddr))
	assert.Equal(t, e18(8), f.ledger.FungibleBalance(tokenY, fillerAddr))
	assert.Equal(t, types.StatusFilled, f.spoke.Status(orderhash.OrderID(1, &order)))
	assert.Equal(t, 1, f.mailbox.Pending(), "settlement queued for the hub chain")
}

func TestFillOrderNative(t *testing.T) {
	f := newFixture(t, 500)
	order := f.order()
	order.Outputs = []types.Token{types.NewNativeToken(e18(2))}
	f.markPending(t, &order, 1)

	require.NoError(t, f.fill(&order, 1, e18(2)))

	assert.Equal(t, new(big.Int).Sub(e18(2), new(big.Int).SetUint64(1e17)), f.ledger.NativeBalance(recipAddr))
	assert.Equal(t, new(big.Int).SetUint64(1e17), f.ledger.NativeBalance(spokeAddr), "fee stays with the spoke")
	assert.Equal(t, e18(8), f.ledger.NativeBalance(fillerAddr), "unused value refunded")
}

func TestFillOrderZeroFee(t *testing.T) {
	f := newFixture(t, 0)
	order := f.order()
	f.markPending(t, &order, 1)

	require.NoError(t, f.fill(&order, 1, nil))
	assert.Equal(t, e18(2), f.ledger.FungibleBalance(tokenY, recipAddr))
	assert.Zero(t, f.ledger.FungibleBalance(tokenY, spokeAddr).Sign())
}

func TestFillOrderRejections(t *testing.T) {
	t.Run("order not pending", func(t *testing.T) {
		f := newFixture(t, 0)
		order := f.order()
		assert.ErrorIs(t, f.fill(&order, 1, nil), ErrInvalidOrder)
	})

	t.Run("double fill", func(t *testing.T) {
		f := newFixture(t, 0)
		order := f.order()
		f.markPending(t, &order, 1)
		require.NoError(t, f.fill(&order, 1, nil))
		assert.ErrorIs(t, f.fill(&order, 1, nil), ErrOrderAlreadyFilled)
	})

	t.Run("expiry boundary", func(t *testing.T) {
		f := newFixture(t, 0)
		order := f.order()
		f.markPending(t, &order, 1)

		f.clock.Set(order.Deadline + 1)
		assert.ErrorIs(t, f.fill(&order, 1, nil), ErrOrderExpired)

		// exactly at the deadline the order is still fillable
		f.clock.Set(order.Deadline)
		assert.NoError(t, f.fill(&order, 1, nil))
	})

	t.Run("wrong destination chain", func(t *testing.T) {
		f := newFixture(t, 0)
		order := f.order()
		order.DestinationChainID = 9
		f.markPending(t, &order, 1)
		assert.ErrorIs(t, f.fill(&order, 1, nil), ErrInvalidDestinationChain)
	})

	t.Run("unknown source hub", func(t *testing.T) {
		f := newFixture(t, 0)
		order := f.order()
		order.SourceChainID = 9
		assert.ErrorIs(t, f.fill(&order, 1, nil), ErrUndefinedHub)
	})

	t.Run("funding wallet checks", func(t *testing.T) {
		f := newFixture(t, 0)
		order := f.order()
		f.markPending(t, &order, 1)

		err := f.spoke.FillOrder(fillerAddr, nil, &order, 1, types.ZeroAddress, 0, router.BridgeHyperlane, nil)
		assert.ErrorIs(t, err, ErrInvalidFundingWallet)

		err = f.spoke.FillOrder(fillerAddr, nil, &order, 1, hubAddr, 0, router.BridgeHyperlane, nil)
		assert.ErrorIs(t, err, ErrInvalidFundingWallet)
	})

	t.Run("attached value below call value", func(t *testing.T) {
		f := newFixture(t, 0)
		order := f.order()
		order.CallValue = big.NewInt(100)
		f.markPending(t, &order, 1)
		assert.ErrorIs(t, f.fill(&order, 1, big.NewInt(99)), assets.ErrInsufficientGasValue)
	})
}

func TestPrimaryFillerExclusivity(t *testing.T) {
	f := newFixture(t, 0)
	order := f.order()
	order.Filler = addr(0x77)
	f.markPending(t, &order, 1)

	t.Run("others excluded during the window", func(t *testing.T) {
		assert.ErrorIs(t, f.fill(&order, 1, nil), ErrRestrictedToPrimaryFiller)
	})

	t.Run("anyone may fill after the window", func(t *testing.T) {
		f.clock.Set(order.PrimaryFillerDeadline + 1)
		assert.NoError(t, f.fill(&order, 1, nil))
	})
}

func TestPrimaryFillerCanFillEarly(t *testing.T) {
	f := newFixture(t, 0)
	order := f.order()
	order.Filler = fillerAddr
	f.markPending(t, &order, 1)

	assert.NoError(t, f.fill(&order, 1, nil))
}

// echoTarget records the hook invocation.
type echoTarget struct {
	calls int
	data  []byte
	value *big.Int
	gas   uint64
	err   error
}

func (e *echoTarget) HandleCall(_ types.Address, data []byte, value *big.Int, gas uint64) ([]byte, error) {
	e.calls++
	e.data = data
	e.value = value
	e.gas = gas
	return []byte("ok"), e.err
}

func TestPostFillHook(t *testing.T) {
	hookAddr := addr(0xdd)

	t.Run("hook runs with call value attached", func(t *testing.T) {
		f := newFixture(t, 0)
		target := &echoTarget{}
		f.spoke.HookExecutor().Register(hookAddr, target)

		order := f.order()
		order.CallRecipient = hookAddr
		order.CallData = []byte{0xbe, 0xef}
		order.CallValue = big.NewInt(1234)
		f.markPending(t, &order, 1)

		require.NoError(t, f.fill(&order, 1, big.NewInt(1234)))

		assert.Equal(t, 1, target.calls)
		assert.Equal(t, []byte{0xbe, 0xef}, target.data)
		assert.Zero(t, target.value.Cmp(big.NewInt(1234)))
		assert.Equal(t, big.NewInt(1234), f.ledger.NativeBalance(hookAddr))
	})

	t.Run("hook failure reverts the whole fill", func(t *testing.T) {
		f := newFixture(t, 500)
		target := &echoTarget{err: fmt.Errorf("hook exploded")}
		f.spoke.HookExecutor().Register(hookAddr, target)

		order := f.order()
		order.CallRecipient = hookAddr
		order.CallData = []byte{0x01}
		f.markPending(t, &order, 1)

		err := f.fill(&order, 1, nil)
		assert.ErrorIs(t, err, ErrExternalCallFailed)

		id := orderhash.OrderID(1, &order)
		assert.Equal(t, types.StatusPending, f.spoke.Status(id), "status restored so the order stays fillable")
		assert.Equal(t, e18(10), f.ledger.FungibleBalance(tokenY, fillerAddr))
		assert.Zero(t, f.ledger.FungibleBalance(tokenY, recipAddr).Sign())
		assert.Zero(t, f.ledger.FungibleBalance(tokenY, spokeAddr).Sign())
		assert.Zero(t, f.mailbox.Pending())
	})

	t.Run("gas budget is bounded", func(t *testing.T) {
		f := newFixture(t, 0)
		target := &echoTarget{}
		f.spoke.HookExecutor().Register(hookAddr, target)

		order := f.order()
		order.CallRecipient = hookAddr
		order.CallData = []byte{0x01}
		f.markPending(t, &order, 1)

		require.NoError(t, f.spoke.FillOrder(fillerAddr, nil, &order, 1, walletAddr, 5_000_000, router.BridgeHyperlane, nil))
		assert.Equal(t, uint64(1_000_000), target.gas)
	})

	t.Run("unregistered hook target behaves like empty code", func(t *testing.T) {
		f := newFixture(t, 0)
		order := f.order()
		order.CallRecipient = addr(0xee)
		order.CallData = []byte{0x01}
		f.markPending(t, &order, 1)

		assert.NoError(t, f.fill(&order, 1, nil))
	})
}

func TestOwnerOperations(t *testing.T) {
	f := newFixture(t, 500)
	stranger := addr(0x99)

	t.Run("fee rate", func(t *testing.T) {
		assert.ErrorIs(t, f.spoke.SetFeeRate(stranger, 100), ErrNotOwner)
		assert.ErrorIs(t, f.spoke.SetFeeRate(ownerAddr, FeeResolution+1), ErrInvalidFeeValue)
		assert.NoError(t, f.spoke.SetFeeRate(ownerAddr, 100))
	})

	t.Run("hub registry", func(t *testing.T) {
		assert.ErrorIs(t, f.spoke.SetHub(stranger, 3, addr(0x33)), ErrNotOwner)
		assert.NoError(t, f.spoke.SetHub(ownerAddr, 3, addr(0x33)))
	})

	t.Run("sweep collected fees", func(t *testing.T) {
		order := f.order()
		f.markPending(t, &order, 1)
		require.NoError(t, f.fill(&order, 1, nil))
		fee := f.ledger.FungibleBalance(tokenY, spokeAddr)
		require.Positive(t, fee.Sign())

		assert.ErrorIs(t, f.spoke.Sweep(stranger, types.KindFungible, tokenY, nil, fee, ownerAddr), ErrNotOwner)
		require.NoError(t, f.spoke.Sweep(ownerAddr, types.KindFungible, tokenY, nil, fee, ownerAddr))
		assert.Equal(t, fee, f.ledger.FungibleBalance(tokenY, ownerAddr))
		assert.Zero(t, f.ledger.FungibleBalance(tokenY, spokeAddr).Sign())
	})
}
