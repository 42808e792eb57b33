package assets

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

var (
	ErrNativeTransferFailed = errors.New("native transfer failed")
	ErrInsufficientGasValue = errors.New("insufficient gas value")
	ErrUnsupportedTransfer  = errors.New("unsupported transfer")
)

// Transfer applies one asset movement with the four-kind taxonomy. The call
// carries the executing contract identity and its attached native value; the
// caller is responsible for any escrow bookkeeping around the transfer.
//
// Native semantics: when from is the contract itself the value is pushed out
// of its balance; otherwise the amount is taken from the call's attached
// value and, unless the contract itself is the recipient, forwarded onward.
func Transfer(call *Call, kind types.TokenKind, from, to, asset types.Address, id, amount *big.Int) error {
	switch kind {
	case types.KindNative:
		return transferNative(call, from, to, amount)

	case types.KindFungible:
		w, err := toWord(amount)
		if err != nil {
			return err
		}
		spender := call.Self()
		if from == call.Self() {
			// push-based, no allowance needed
			spender = from
		}
		return call.ledger.moveFungible(asset, from, to, w, spender)

	case types.KindNonFungible:
		// single unit identified by id, amount ignored
		return call.ledger.moveNFT(asset, id, from, to)

	case types.KindSemiFungible:
		w, err := toWord(amount)
		if err != nil {
			return err
		}
		return call.ledger.moveSemiFungible(asset, id, from, to, w)

	default:
		return fmt.Errorf("%w: kind %s", ErrUnsupportedTransfer, kind)
	}
}

func transferNative(call *Call, from, to types.Address, amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	if from == call.Self() {
		if err := call.ledger.moveNative(from, to, w); err != nil {
			return fmt.Errorf("%w: %v", ErrNativeTransferFailed, err)
		}
		return nil
	}
	// External caller funds the transfer through the attached value.
	if err := call.Consume(w); err != nil {
		return err
	}
	if to == call.Self() {
		// value is already held by the contract
		return nil
	}
	if err := call.ledger.moveNative(call.Self(), to, w); err != nil {
		return fmt.Errorf("%w: %v", ErrNativeTransferFailed, err)
	}
	return nil
}
