package types

import (
	"math/big"
)

// Order is a user's intent to trade escrowed source-chain inputs for
// destination-chain outputs under the given deadlines. Deadlines are unix
// seconds of the relevant chain's clock.
//
// Filler pins the order to a single solver until PrimaryFillerDeadline; the
// zero address leaves the order open to any solver from the start.
type Order struct {
	User      Address
	Recipient Address
	Filler    Address
	Inputs    []Token
	Outputs   []Token

	SourceChainID      uint64
	DestinationChainID uint64

	// Sponsored is reserved for gas-sponsored order creation.
	Sponsored bool

	PrimaryFillerDeadline uint64
	Deadline              uint64

	// Optional post-fill hook, executed on the destination chain after the
	// outputs have been delivered.
	CallRecipient Address
	CallData      []byte
	CallValue     *big.Int
}

// OrderRequest is the signed object: it binds an Order to a single creation
// attempt through the user-chosen anti-replay Nonce and a submission Deadline.
type OrderRequest struct {
	Order    Order
	Nonce    *big.Int
	Deadline uint64
}

// OrderStatus tracks one side's view of an order's lifecycle. Hub and Spoke
// each own an independent status map correlated only by order ID.
type OrderStatus uint8

const (
	StatusNull OrderStatus = iota
	// StatusActive: inputs escrowed on the hub, awaiting fill or withdrawal.
	StatusActive
	// StatusPending: the spoke has been notified and awaits a filler.
	StatusPending
	StatusFilled
	StatusWithdrawn
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNull:
		return "NULL"
	case StatusActive:
		return "ACTIVE"
	case StatusPending:
		return "PENDING"
	case StatusFilled:
		return "FILLED"
	case StatusWithdrawn:
		return "WITHDRAWN"
	default:
		return "INVALID"
	}
}

// CallValueOrZero returns the hook value, treating nil as zero.
func (o *Order) CallValueOrZero() *big.Int { return amountOrZero(o.CallValue) }
