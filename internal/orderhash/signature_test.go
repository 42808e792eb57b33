package orderhash

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

func signedRequest(t *testing.T) (*types.OrderRequest, []byte, types.Address) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	user := types.AddressFromEVM(crypto.PubkeyToAddress(key.PublicKey))

	order := testOrder()
	order.User = user
	req := &types.OrderRequest{Order: order, Nonce: big.NewInt(1), Deadline: 1_700_000_120}

	sig, err := SignOrderRequest(testDomain(), req, key)
	require.NoError(t, err)
	return req, sig, user
}

func TestValidateOrderRequest(t *testing.T) {
	v := NewValidator(testDomain())

	t.Run("valid signature", func(t *testing.T) {
		req, sig, _ := signedRequest(t)
		assert.True(t, v.ValidateOrderRequest(req, sig))
	})

	t.Run("legacy recovery id", func(t *testing.T) {
		req, sig, _ := signedRequest(t)
		legacy := make([]byte, len(sig))
		copy(legacy, sig)
		legacy[64] += 27
		assert.True(t, v.ValidateOrderRequest(req, legacy))
	})

	t.Run("wrong signer", func(t *testing.T) {
		req, sig, _ := signedRequest(t)
		req.Order.User = testAddress(0x99)
		assert.False(t, v.ValidateOrderRequest(req, sig))
	})

	t.Run("tampered order", func(t *testing.T) {
		req, sig, _ := signedRequest(t)
		req.Order.Outputs[0].Amount = big.NewInt(1)
		assert.False(t, v.ValidateOrderRequest(req, sig))
	})

	t.Run("tampered request deadline", func(t *testing.T) {
		req, sig, _ := signedRequest(t)
		req.Deadline++
		assert.False(t, v.ValidateOrderRequest(req, sig))
	})

	t.Run("malformed signature", func(t *testing.T) {
		req, sig, _ := signedRequest(t)
		assert.False(t, v.ValidateOrderRequest(req, sig[:64]))
		assert.False(t, v.ValidateOrderRequest(req, nil))

		garbage := make([]byte, crypto.SignatureLength)
		assert.False(t, v.ValidateOrderRequest(req, garbage))
	})

	t.Run("different domain rejects", func(t *testing.T) {
		req, sig, _ := signedRequest(t)
		other := testDomain()
		other.ChainID = 1337
		assert.False(t, NewValidator(other).ValidateOrderRequest(req, sig))
	})
}

// approvalVerifier accepts exactly one pre-approved digest/signature pair.
type approvalVerifier struct {
	digest common.Hash
	sig    []byte
}

func (a *approvalVerifier) IsValidSignature(digest common.Hash, signature []byte) bool {
	return digest == a.digest && bytes.Equal(signature, a.sig)
}

func TestContractSignerDispatch(t *testing.T) {
	v := NewValidator(testDomain())

	wallet := testAddress(0x42)
	order := testOrder()
	order.User = wallet
	req := &types.OrderRequest{Order: order, Nonce: big.NewInt(1), Deadline: 1_700_000_120}

	approval := []byte("wallet-approval")
	v.RegisterContract(wallet, &approvalVerifier{digest: Digest(testDomain(), req), sig: approval})

	t.Run("contract approves", func(t *testing.T) {
		assert.True(t, v.ValidateOrderRequest(req, approval))
	})

	t.Run("contract rejects other payloads", func(t *testing.T) {
		assert.False(t, v.ValidateOrderRequest(req, []byte("something else")))
	})

	t.Run("contract path skips ECDSA length rules", func(t *testing.T) {
		// a 15-byte blob would never pass ECDSA validation
		assert.Len(t, approval, 15)
		assert.True(t, v.ValidateOrderRequest(req, approval))
	})
}
