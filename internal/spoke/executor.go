package spoke

import (
	"math/big"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

const (
	// maxReturnBytes caps how much return data the executor copies back, so a
	// malicious hook target cannot grief the fill with an oversized return.
	maxReturnBytes = 256
	// defaultGasCap bounds the hook budget when the filler passes maxGas 0 or
	// something larger than the executor is willing to forward.
	defaultGasCap = 1_000_000
)

// CallTarget is a contract reachable by the post-fill hook. gas is the budget
// granted to the call; implementations are trusted to respect it in this
// in-process model.
type CallTarget interface {
	HandleCall(caller types.Address, data []byte, value *big.Int, gas uint64) ([]byte, error)
}

// Executor runs the optional post-fill hook with a bounded gas budget and a
// bounded return-data copy. A target address with no registered contract
// behaves like a call to empty code: success with no return data.
type Executor struct {
	targets map[types.Address]CallTarget
}

func NewExecutor() *Executor {
	return &Executor{targets: make(map[types.Address]CallTarget)}
}

// Register exposes a contract to hook calls. Deployment wiring.
func (e *Executor) Register(addr types.Address, target CallTarget) {
	e.targets[addr] = target
}

// Call invokes the target with gas capped at min(maxGas, defaultGasCap).
func (e *Executor) Call(caller, target types.Address, data []byte, value *big.Int, maxGas uint64) ([]byte, error) {
	t, ok := e.targets[target]
	if !ok {
		return nil, nil
	}
	gas := maxGas
	if gas == 0 || gas > defaultGasCap {
		gas = defaultGasCap
	}
	ret, err := t.HandleCall(caller, data, value, gas)
	if err != nil {
		return nil, err
	}
	if len(ret) > maxReturnBytes {
		ret = ret[:maxReturnBytes]
	}
	return ret, nil
}
