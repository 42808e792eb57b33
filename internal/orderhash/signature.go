package orderhash

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

// ContractVerifier is the isValidSignature-style capability exposed by smart
// contract signers (multisigs, account abstraction wallets).
type ContractVerifier interface {
	IsValidSignature(digest common.Hash, signature []byte) bool
}

// Validator checks order request signatures under one domain. Signers are
// either externally-owned keys, verified by ECDSA recovery, or registered
// contract signers, verified through their ContractVerifier capability. The
// dispatch is transparent to callers.
type Validator struct {
	domain    Domain
	contracts map[types.Address]ContractVerifier
}

func NewValidator(domain Domain) *Validator {
	return &Validator{
		domain:    domain,
		contracts: make(map[types.Address]ContractVerifier),
	}
}

func (v *Validator) Domain() Domain { return v.domain }

// RegisterContract attaches a contract-signature capability to an address.
func (v *Validator) RegisterContract(addr types.Address, verifier ContractVerifier) {
	v.contracts[addr] = verifier
}

// ValidateOrderRequest reports whether the signature is valid for the request
// under this domain, signed by request.Order.User. Returns false on any
// mismatch; the caller decides whether that is fatal.
func (v *Validator) ValidateOrderRequest(r *types.OrderRequest, signature []byte) bool {
	digest := Digest(v.domain, r)

	if verifier, ok := v.contracts[r.Order.User]; ok {
		return verifier.IsValidSignature(digest, signature)
	}

	if len(signature) != crypto.SignatureLength {
		return false
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		// legacy 27/28 recovery id
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return false
	}
	return types.AddressFromEVM(crypto.PubkeyToAddress(*pub)) == r.Order.User
}

// SignOrderRequest signs a request with a raw secp256k1 key. Tooling and test
// helper; the signature round-trips through ValidateOrderRequest.
func SignOrderRequest(d Domain, r *types.OrderRequest, key *ecdsa.PrivateKey) ([]byte, error) {
	digest := Digest(d, r)
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order request: %w", err)
	}
	return sig, nil
}
