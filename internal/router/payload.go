package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

// Wire encodings for the two Hub<->Spoke payloads. ABI tuple encoding keeps
// the format portable across reimplementations of either side.

var tokenComponents = []abi.ArgumentMarshaling{
	{Name: "tokenType", Type: "uint8"},
	{Name: "tokenAddress", Type: "bytes32"},
	{Name: "tokenId", Type: "uint256"},
	{Name: "amount", Type: "uint256"},
}

var orderComponents = []abi.ArgumentMarshaling{
	{Name: "user", Type: "bytes32"},
	{Name: "recipient", Type: "bytes32"},
	{Name: "filler", Type: "bytes32"},
	{Name: "inputs", Type: "tuple[]", Components: tokenComponents},
	{Name: "outputs", Type: "tuple[]", Components: tokenComponents},
	{Name: "sourceChainId", Type: "uint64"},
	{Name: "destinationChainId", Type: "uint64"},
	{Name: "sponsored", Type: "bool"},
	{Name: "primaryFillerDeadline", Type: "uint64"},
	{Name: "deadline", Type: "uint64"},
	{Name: "callRecipient", Type: "bytes32"},
	{Name: "callData", Type: "bytes"},
	{Name: "callValue", Type: "uint256"},
}

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	bytes32Type = mustNewType("bytes32", nil)
	uint64Type  = mustNewType("uint64", nil)
	orderType   = mustNewType("tuple", orderComponents)

	pendingArgs = abi.Arguments{
		{Name: "orderId", Type: bytes32Type},
	}
	settlementArgs = abi.Arguments{
		{Name: "order", Type: orderType},
		{Name: "orderNonce", Type: uint64Type},
		{Name: "fundingWallet", Type: bytes32Type},
	}
)

type wireToken struct {
	TokenType    uint8    `abi:"tokenType"`
	TokenAddress [32]byte `abi:"tokenAddress"`
	TokenId      *big.Int `abi:"tokenId"`
	Amount       *big.Int `abi:"amount"`
}

type wireOrder struct {
	User                  [32]byte    `abi:"user"`
	Recipient             [32]byte    `abi:"recipient"`
	Filler                [32]byte    `abi:"filler"`
	Inputs                []wireToken `abi:"inputs"`
	Outputs               []wireToken `abi:"outputs"`
	SourceChainId         uint64      `abi:"sourceChainId"`
	DestinationChainId    uint64      `abi:"destinationChainId"`
	Sponsored             bool        `abi:"sponsored"`
	PrimaryFillerDeadline uint64      `abi:"primaryFillerDeadline"`
	Deadline              uint64      `abi:"deadline"`
	CallRecipient         [32]byte    `abi:"callRecipient"`
	CallData              []byte      `abi:"callData"`
	CallValue             *big.Int    `abi:"callValue"`
}

func toWireTokens(tokens []types.Token) []wireToken {
	out := make([]wireToken, len(tokens))
	for i, t := range tokens {
		out[i] = wireToken{
			TokenType:    uint8(t.Kind),
			TokenAddress: t.Address,
			TokenId:      t.NormalizedID(),
			Amount:       t.NormalizedAmount(),
		}
	}
	return out
}

func fromWireTokens(tokens []wireToken) []types.Token {
	out := make([]types.Token, len(tokens))
	for i, t := range tokens {
		out[i] = types.Token{
			Kind:    types.TokenKind(t.TokenType),
			Address: types.Address(t.TokenAddress),
			ID:      t.TokenId,
			Amount:  t.Amount,
		}
	}
	return out
}

func toWireOrder(o *types.Order) wireOrder {
	return wireOrder{
		User:                  o.User,
		Recipient:             o.Recipient,
		Filler:                o.Filler,
		Inputs:                toWireTokens(o.Inputs),
		Outputs:               toWireTokens(o.Outputs),
		SourceChainId:         o.SourceChainID,
		DestinationChainId:    o.DestinationChainID,
		Sponsored:             o.Sponsored,
		PrimaryFillerDeadline: o.PrimaryFillerDeadline,
		Deadline:              o.Deadline,
		CallRecipient:         o.CallRecipient,
		CallData:              o.CallData,
		CallValue:             o.CallValueOrZero(),
	}
}

func fromWireOrder(w *wireOrder) types.Order {
	return types.Order{
		User:                  types.Address(w.User),
		Recipient:             types.Address(w.Recipient),
		Filler:                types.Address(w.Filler),
		Inputs:                fromWireTokens(w.Inputs),
		Outputs:               fromWireTokens(w.Outputs),
		SourceChainID:         w.SourceChainId,
		DestinationChainID:    w.DestinationChainId,
		Sponsored:             w.Sponsored,
		PrimaryFillerDeadline: w.PrimaryFillerDeadline,
		Deadline:              w.Deadline,
		CallRecipient:         types.Address(w.CallRecipient),
		CallData:              w.CallData,
		CallValue:             w.CallValue,
	}
}

// EncodePending encodes the pending notification: the order id alone. The
// spoke only needs to mark the order awaited.
func EncodePending(orderID common.Hash) []byte {
	data, err := pendingArgs.Pack(orderID)
	if err != nil {
		// static layout, cannot fail
		panic(err)
	}
	return data
}

// DecodePending decodes a pending notification payload.
func DecodePending(payload []byte) (common.Hash, error) {
	vals, err := pendingArgs.Unpack(payload)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to decode pending payload: %w", err)
	}
	raw, ok := vals[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("failed to decode pending payload: unexpected type %T", vals[0])
	}
	return common.Hash(raw), nil
}

// EncodeSettlement encodes the settlement message: the full order, the
// hub-assigned creation nonce and the filler's funding wallet.
func EncodeSettlement(o *types.Order, orderNonce uint64, fundingWallet types.Address) ([]byte, error) {
	data, err := settlementArgs.Pack(toWireOrder(o), orderNonce, [32]byte(fundingWallet))
	if err != nil {
		return nil, fmt.Errorf("failed to encode settlement payload: %w", err)
	}
	return data, nil
}

// DecodeSettlement decodes a settlement payload.
func DecodeSettlement(payload []byte) (types.Order, uint64, types.Address, error) {
	vals, err := settlementArgs.Unpack(payload)
	if err != nil {
		return types.Order{}, 0, types.Address{}, fmt.Errorf("failed to decode settlement payload: %w", err)
	}
	order, ok := abi.ConvertType(vals[0], new(wireOrder)).(*wireOrder)
	if !ok {
		return types.Order{}, 0, types.Address{}, fmt.Errorf("failed to decode settlement payload: bad order tuple")
	}
	nonce, ok := vals[1].(uint64)
	if !ok {
		return types.Order{}, 0, types.Address{}, fmt.Errorf("failed to decode settlement payload: bad nonce")
	}
	wallet, ok := vals[2].([32]byte)
	if !ok {
		return types.Order{}, 0, types.Address{}, fmt.Errorf("failed to decode settlement payload: bad funding wallet")
	}
	return fromWireOrder(order), nonce, types.Address(wallet), nil
}
