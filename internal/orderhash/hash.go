package orderhash

// Deterministic, structural hashing for orders and order requests. Hub and
// Spoke compute order ids independently; the two sides only correlate state if
// this hashing is byte-for-byte identical, so everything here is pure and
// allocation-order independent.

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

const (
	domainType = "EIP712Domain(string name,string version,uint256 chainId,bytes32 verifyingContract)"
	tokenType  = "Token(uint8 tokenType,bytes32 tokenAddress,uint256 tokenId,uint256 amount)"
	orderType  = "Order(bytes32 user,bytes32 recipient,bytes32 filler,Token[] inputs,Token[] outputs," +
		"uint256 sourceChainId,uint256 destinationChainId,bool sponsored,uint256 primaryFillerDeadline," +
		"uint256 deadline,bytes32 callRecipient,bytes callData,uint256 callValue)"
	requestType = "OrderRequest(uint256 deadline,uint256 nonce,Order order)"
)

// Type hashes follow EIP-712: the referenced struct definitions are appended
// to the referencing type string.
var (
	domainTypeHash  = crypto.Keccak256Hash([]byte(domainType))
	tokenTypeHash   = crypto.Keccak256Hash([]byte(tokenType))
	orderTypeHash   = crypto.Keccak256Hash([]byte(orderType + tokenType))
	requestTypeHash = crypto.Keccak256Hash([]byte(requestType + orderType + tokenType))
)

// Domain is the EIP-712 domain binding signatures to one protocol deployment
// on one chain.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract types.Address
}

// Separator returns the domain separator hash.
func (d Domain) Separator() common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		uintWord(d.ChainID),
		d.VerifyingContract.Bytes(),
	)
}

func uintWord(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}

func bigWord(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return math.U256Bytes(new(big.Int).Set(v))
}

func boolWord(v bool) []byte {
	w := make([]byte, 32)
	if v {
		w[31] = 1
	}
	return w
}

// HashToken returns the typed struct hash of one token leg.
func HashToken(t types.Token) common.Hash {
	return crypto.Keccak256Hash(
		tokenTypeHash.Bytes(),
		uintWord(uint64(t.Kind)),
		t.Address.Bytes(),
		bigWord(t.ID),
		bigWord(t.Amount),
	)
}

// HashTokens hashes an ordered token array: the concatenation of the element
// struct hashes. An empty array hashes to keccak256("").
func HashTokens(tokens []types.Token) common.Hash {
	encoded := make([]byte, 0, len(tokens)*common.HashLength)
	for _, t := range tokens {
		encoded = append(encoded, HashToken(t).Bytes()...)
	}
	return crypto.Keccak256Hash(encoded)
}

// HashOrder returns the typed struct hash of an order, inputs and outputs
// hashed independently as ordered sequences.
func HashOrder(o *types.Order) common.Hash {
	return crypto.Keccak256Hash(
		orderTypeHash.Bytes(),
		o.User.Bytes(),
		o.Recipient.Bytes(),
		o.Filler.Bytes(),
		HashTokens(o.Inputs).Bytes(),
		HashTokens(o.Outputs).Bytes(),
		uintWord(o.SourceChainID),
		uintWord(o.DestinationChainID),
		boolWord(o.Sponsored),
		uintWord(o.PrimaryFillerDeadline),
		uintWord(o.Deadline),
		o.CallRecipient.Bytes(),
		crypto.Keccak256(o.CallData),
		bigWord(o.CallValue),
	)
}

// HashOrderRequest returns the typed struct hash of a signed creation request.
func HashOrderRequest(r *types.OrderRequest) common.Hash {
	return crypto.Keccak256Hash(
		requestTypeHash.Bytes(),
		uintWord(r.Deadline),
		bigWord(r.Nonce),
		HashOrder(&r.Order).Bytes(),
	)
}

// Digest returns the final signing digest for a request under the domain.
func Digest(d Domain, r *types.OrderRequest) common.Hash {
	return crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		d.Separator().Bytes(),
		HashOrderRequest(r).Bytes(),
	)
}

// OrderID derives an order's identity from the hub-assigned creation nonce and
// the order content. Identity needs the nonce: an identical order submitted
// twice must map to two distinct ids.
func OrderID(nonce uint64, o *types.Order) common.Hash {
	return crypto.Keccak256Hash(uintWord(nonce), HashOrder(o).Bytes())
}
