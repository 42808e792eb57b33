package router

import (
	"fmt"
	"math/big"
)

// NullBackend performs an immediate same-transaction local call to the
// destination contract. It only serves the router's own chain; routing to any
// other chain id is an unsupported route.
type NullBackend struct {
	local *Router
}

func NewNullBackend(local *Router) *NullBackend {
	return &NullBackend{local: local}
}

func (b *NullBackend) Kind() BridgeKind { return BridgeNull }

func (b *NullBackend) EstimateFee(uint64, []byte, []byte) *big.Int {
	return new(big.Int)
}

func (b *NullBackend) Dispatch(env Envelope, fee *big.Int, _ []byte) error {
	if env.DestinationChainID != b.local.ChainID() {
		return fmt.Errorf("%w: NULL bridge cannot reach chain %d", ErrUnsupportedBridgingRoute, env.DestinationChainID)
	}
	return b.local.Deliver(env)
}
