package orderhash

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

func testAddress(b byte) types.Address {
	var a types.Address
	a[31] = b
	return a
}

func testOrder() types.Order {
	return types.Order{
		User:                  testAddress(0x01),
		Recipient:             testAddress(0x02),
		Filler:                testAddress(0x03),
		Inputs:                []types.Token{types.NewFungibleToken(testAddress(0x0a), big.NewInt(1_000_000))},
		Outputs:               []types.Token{types.NewFungibleToken(testAddress(0x0b), big.NewInt(2_000_000))},
		SourceChainID:         1,
		DestinationChainID:    2,
		PrimaryFillerDeadline: 1_700_000_060,
		Deadline:              1_700_000_300,
	}
}

func testDomain() Domain {
	return Domain{
		Name:              "iLayer",
		Version:           "1",
		ChainID:           1,
		VerifyingContract: testAddress(0xaa),
	}
}

func TestHashOrderDeterministic(t *testing.T) {
	a := testOrder()
	b := testOrder()

	assert.Equal(t, HashOrder(&a), HashOrder(&b), "identical orders must hash identically")
	assert.NotEqual(t, common.Hash{}, HashOrder(&a))
}

func TestHashOrderFieldSensitivity(t *testing.T) {
	base := testOrder()
	baseHash := HashOrder(&base)

	mutations := map[string]func(*types.Order){
		"user":             func(o *types.Order) { o.User = testAddress(0x99) },
		"recipient":        func(o *types.Order) { o.Recipient = testAddress(0x99) },
		"filler":           func(o *types.Order) { o.Filler = types.ZeroAddress },
		"input amount":     func(o *types.Order) { o.Inputs[0].Amount = big.NewInt(999) },
		"output token":     func(o *types.Order) { o.Outputs[0].Address = testAddress(0x99) },
		"token kind":       func(o *types.Order) { o.Inputs[0].Kind = types.KindNative },
		"source chain":     func(o *types.Order) { o.SourceChainID = 99 },
		"dest chain":       func(o *types.Order) { o.DestinationChainID = 99 },
		"sponsored":        func(o *types.Order) { o.Sponsored = true },
		"filler deadline":  func(o *types.Order) { o.PrimaryFillerDeadline++ },
		"deadline":         func(o *types.Order) { o.Deadline++ },
		"call recipient":   func(o *types.Order) { o.CallRecipient = testAddress(0x99) },
		"call data":        func(o *types.Order) { o.CallData = []byte{0x01} },
		"call value":       func(o *types.Order) { o.CallValue = big.NewInt(1) },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			o := testOrder()
			// deep-copy the token slices so mutations don't leak between cases
			o.Inputs = append([]types.Token(nil), o.Inputs...)
			o.Outputs = append([]types.Token(nil), o.Outputs...)
			mutate(&o)
			assert.NotEqual(t, baseHash, HashOrder(&o), "changing %s must change the hash", name)
		})
	}
}

func TestHashTokensEmptyAndOrder(t *testing.T) {
	t.Run("empty array", func(t *testing.T) {
		// keccak256 of the empty string, per the array encoding
		assert.Equal(t,
			common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
			HashTokens(nil))
	})

	t.Run("order matters", func(t *testing.T) {
		x := types.NewFungibleToken(testAddress(0x0a), big.NewInt(1))
		y := types.NewFungibleToken(testAddress(0x0b), big.NewInt(2))
		assert.NotEqual(t, HashTokens([]types.Token{x, y}), HashTokens([]types.Token{y, x}))
	})
}

func TestHashOrderNilBigInts(t *testing.T) {
	a := testOrder()
	b := testOrder()
	a.CallValue = nil
	b.CallValue = big.NewInt(0)

	assert.Equal(t, HashOrder(&a), HashOrder(&b), "nil and zero callValue encode identically")
}

func TestOrderID(t *testing.T) {
	o := testOrder()

	t.Run("nonce disambiguates identical orders", func(t *testing.T) {
		assert.NotEqual(t, OrderID(1, &o), OrderID(2, &o))
	})

	t.Run("stable for same inputs", func(t *testing.T) {
		assert.Equal(t, OrderID(7, &o), OrderID(7, &o))
	})
}

func TestDigestDomainBinding(t *testing.T) {
	req := types.OrderRequest{Order: testOrder(), Nonce: big.NewInt(1), Deadline: 1_700_000_120}

	base := Digest(testDomain(), &req)

	otherChain := testDomain()
	otherChain.ChainID = 5
	assert.NotEqual(t, base, Digest(otherChain, &req), "digest must bind the chain id")

	otherContract := testDomain()
	otherContract.VerifyingContract = testAddress(0xbb)
	assert.NotEqual(t, base, Digest(otherContract, &req), "digest must bind the verifying contract")

	bumped := req
	bumped.Nonce = big.NewInt(2)
	assert.NotEqual(t, base, Digest(testDomain(), &bumped), "digest must bind the request nonce")
}

func TestTypeHashesDistinct(t *testing.T) {
	hashes := []common.Hash{domainTypeHash, tokenTypeHash, orderTypeHash, requestTypeHash}
	seen := make(map[common.Hash]bool)
	for _, h := range hashes {
		require.False(t, seen[h])
		seen[h] = true
	}
}
