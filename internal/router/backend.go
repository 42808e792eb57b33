package router

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

// BridgeKind tags the bridge network a message should travel over.
type BridgeKind uint8

const (
	// BridgeNull is the no-bridge route: an immediate same-transaction local
	// call to the destination. Same-chain deployments and testing only.
	BridgeNull BridgeKind = iota
	BridgeHyperlane
	BridgeLayerZero
	BridgeAxelar
)

func (k BridgeKind) String() string {
	switch k {
	case BridgeNull:
		return "NULL"
	case BridgeHyperlane:
		return "HYPERLANE"
	case BridgeLayerZero:
		return "LAYERZERO"
	case BridgeAxelar:
		return "AXELAR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

var (
	ErrNotWhitelisted           = errors.New("sender not whitelisted")
	ErrUnsupportedBridgingRoute = errors.New("unsupported bridging route")
	ErrInsufficientBridgeFee    = errors.New("insufficient bridge fee")
	ErrUnknownPeer              = errors.New("message source does not match configured peer")
	ErrUnknownReceiver          = errors.New("no receiver at destination address")
	ErrNotOwner                 = errors.New("restricted to owner")
)

// Message is an outbound cross-chain message as submitted by a whitelisted
// sender.
type Message struct {
	Bridge             BridgeKind
	DestinationChainID uint64
	Destination        types.Address
	Payload            []byte
	ExtraOptions       []byte
	// RefundAddress receives any overpaid bridge fee.
	RefundAddress types.Address
	// Fee is the native amount attached for bridging.
	Fee *big.Int
}

// Envelope is a message in flight: the outbound Message stamped with its
// provenance by the sending router.
type Envelope struct {
	SourceChainID      uint64
	SourceRouter       types.Address
	DestinationChainID uint64
	Destination        types.Address
	Payload            []byte
}

// Backend is one bridge network behind the router. The NULL backend delivers
// synchronously; every other kind is asynchronous.
type Backend interface {
	Kind() BridgeKind
	// EstimateFee quotes the native fee for carrying payload to the
	// destination chain.
	EstimateFee(destinationChainID uint64, payload, options []byte) *big.Int
	// Dispatch accepts an envelope for delivery. fee is the native amount the
	// sender attached.
	Dispatch(env Envelope, fee *big.Int, options []byte) error
}

// Receiver is the single fixed inbound entry point contracts expose to the
// router. caller is always the delivering router's own address; receivers must
// reject any other caller.
type Receiver interface {
	OnMessageReceived(caller types.Address, sourceChainID uint64, payload []byte) error
}
