package router

// Module: single chokepoint for outbound and inbound cross-chain messages.
// - Outbound: whitelist-gated Send dispatching to the backend for the bridge kind
// - Inbound: provenance check against the configured peer router, then a call
//   into the registered receiver's fixed entry point

import (
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

// Router is one chain's message-routing contract.
type Router struct {
	chainID uint64
	addr    types.Address
	owner   types.Address
	log     *logrus.Logger
	events  types.Sink

	backends  map[BridgeKind]Backend
	whitelist map[types.Address]bool
	receivers map[types.Address]Receiver
	// peers maps a remote chain id to the router address expected there.
	peers map[uint64]types.Address
}

func New(chainID uint64, addr, owner types.Address, log *logrus.Logger, events types.Sink) *Router {
	if events == nil {
		events = types.NopSink{}
	}
	return &Router{
		chainID:   chainID,
		addr:      addr,
		owner:     owner,
		log:       log,
		events:    events,
		backends:  make(map[BridgeKind]Backend),
		whitelist: make(map[types.Address]bool),
		receivers: make(map[types.Address]Receiver),
		peers:     make(map[uint64]types.Address),
	}
}

func (r *Router) ChainID() uint64        { return r.chainID }
func (r *Router) Address() types.Address { return r.addr }

// RegisterBackend wires a bridge backend for its kind. Deployment wiring.
func (r *Router) RegisterBackend(b Backend) {
	r.backends[b.Kind()] = b
}

// RegisterReceiver exposes a local contract at addr to inbound deliveries.
// Deployment wiring.
func (r *Router) RegisterReceiver(addr types.Address, recv Receiver) {
	r.receivers[addr] = recv
}

// SetWhitelisted owner-gates which local contracts may send through the
// router.
func (r *Router) SetWhitelisted(caller, sender types.Address, allowed bool) error {
	if caller != r.owner {
		return ErrNotOwner
	}
	old := r.whitelist[sender]
	r.whitelist[sender] = allowed
	r.events.Emit(types.ConfigChanged{
		Name: fmt.Sprintf("router.whitelist[%s]", sender),
		Old:  fmt.Sprintf("%t", old),
		New:  fmt.Sprintf("%t", allowed),
	})
	return nil
}

// SetPeer owner-gates the expected router address on a remote chain, used to
// validate inbound provenance.
func (r *Router) SetPeer(caller types.Address, chainID uint64, peer types.Address) error {
	if caller != r.owner {
		return ErrNotOwner
	}
	old := r.peers[chainID]
	r.peers[chainID] = peer
	r.events.Emit(types.ConfigChanged{
		Name: fmt.Sprintf("router.peer[%d]", chainID),
		Old:  old.Hex(),
		New:  peer.Hex(),
	})
	return nil
}

// EstimateFee quotes the native fee the chosen bridge would charge for the
// payload. Read-only.
func (r *Router) EstimateFee(bridge BridgeKind, destinationChainID uint64, payload, options []byte) (*big.Int, error) {
	b, ok := r.backends[bridge]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBridgingRoute, bridge)
	}
	return b.EstimateFee(destinationChainID, payload, options), nil
}

// Send dispatches an outbound message through the backend matching its bridge
// kind. Only whitelisted senders may call.
func (r *Router) Send(sender types.Address, msg Message) error {
	if !r.whitelist[sender] {
		return ErrNotWhitelisted
	}
	b, ok := r.backends[msg.Bridge]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedBridgingRoute, msg.Bridge)
	}

	env := Envelope{
		SourceChainID:      r.chainID,
		SourceRouter:       r.addr,
		DestinationChainID: msg.DestinationChainID,
		Destination:        msg.Destination,
		Payload:            msg.Payload,
	}
	fee := msg.Fee
	if fee == nil {
		fee = new(big.Int)
	}
	if err := b.Dispatch(env, fee, msg.ExtraOptions); err != nil {
		return fmt.Errorf("bridge dispatch failed: %w", err)
	}

	if r.log != nil {
		r.log.Infof("📤 Message dispatched via %s: chain %d -> %d, %d payload bytes",
			msg.Bridge, r.chainID, msg.DestinationChainID, len(msg.Payload))
	}
	r.events.Emit(types.MessageSent{
		Bridge:             uint8(msg.Bridge),
		DestinationChainID: msg.DestinationChainID,
		Destination:        msg.Destination,
		Fee:                new(big.Int).Set(fee),
	})
	return nil
}

// Deliver is the inbound path, invoked by bridge backends. It verifies the
// envelope targets this chain and that the reported source matches the
// configured peer router, then calls the destination receiver.
func (r *Router) Deliver(env Envelope) error {
	if env.DestinationChainID != r.chainID {
		return fmt.Errorf("envelope for chain %d delivered to chain %d", env.DestinationChainID, r.chainID)
	}
	if env.SourceChainID != r.chainID {
		peer, ok := r.peers[env.SourceChainID]
		if !ok || peer != env.SourceRouter {
			return fmt.Errorf("%w: chain %d router %s", ErrUnknownPeer, env.SourceChainID, env.SourceRouter)
		}
	}
	recv, ok := r.receivers[env.Destination]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReceiver, env.Destination)
	}
	return recv.OnMessageReceived(r.addr, env.SourceChainID, env.Payload)
}
