package types

import (
	"fmt"
	"math/big"
)

// TokenKind selects the transfer semantics for a Token.
type TokenKind uint8

const (
	KindNull TokenKind = iota
	KindNative
	KindFungible
	KindNonFungible
	KindSemiFungible
)

func (k TokenKind) String() string {
	switch k {
	case KindNative:
		return "NATIVE"
	case KindFungible:
		return "FUNGIBLE"
	case KindNonFungible:
		return "NON_FUNGIBLE"
	case KindSemiFungible:
		return "SEMI_FUNGIBLE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// Token is one asset leg of an order. ID is only meaningful for non-fungible
// and semi-fungible kinds; Address is ignored for the native kind.
type Token struct {
	Kind    TokenKind
	Address Address
	ID      *big.Int
	Amount  *big.Int
}

// NewFungibleToken builds a fungible Token leg.
func NewFungibleToken(asset Address, amount *big.Int) Token {
	return Token{Kind: KindFungible, Address: asset, ID: new(big.Int), Amount: amount}
}

// NewNativeToken builds a native-currency Token leg.
func NewNativeToken(amount *big.Int) Token {
	return Token{Kind: KindNative, ID: new(big.Int), Amount: amount}
}

// amountOrZero guards against nil big.Int fields coming from decoded payloads.
func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// NormalizedID returns the token ID, treating nil as zero.
func (t Token) NormalizedID() *big.Int { return amountOrZero(t.ID) }

// NormalizedAmount returns the token amount, treating nil as zero.
func (t Token) NormalizedAmount() *big.Int { return amountOrZero(t.Amount) }
