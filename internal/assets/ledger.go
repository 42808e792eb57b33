package assets

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/NethermindEth/intent-settlement/internal/types"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrBalanceOverflow       = errors.New("balance overflow")
	ErrNativeRejected        = errors.New("native transfer rejected by recipient")
	ErrNotTokenOwner         = errors.New("sender does not own token")
	ErrInvalidAmount         = errors.New("invalid amount")
)

type balanceKey struct {
	asset  types.Address
	holder types.Address
}

type allowanceKey struct {
	asset   types.Address
	owner   types.Address
	spender types.Address
}

type unitKey struct {
	asset types.Address
	id    common.Hash
}

type unitBalanceKey struct {
	asset  types.Address
	id     common.Hash
	holder types.Address
}

// Ledger holds one chain's asset state: native balances, fungible balances and
// allowances, non-fungible ownership and semi-fungible balances. Every
// mutation is journaled so an entry point can revert to a snapshot, giving the
// all-or-nothing call semantics the protocol assumes of its host environment.
type Ledger struct {
	native       map[types.Address]uint256.Int
	rejectNative map[types.Address]bool
	fungible     map[balanceKey]uint256.Int
	allowances   map[allowanceKey]uint256.Int
	owners       map[unitKey]types.Address
	units        map[unitBalanceKey]uint256.Int

	journal []func()
}

func NewLedger() *Ledger {
	return &Ledger{
		native:       make(map[types.Address]uint256.Int),
		rejectNative: make(map[types.Address]bool),
		fungible:     make(map[balanceKey]uint256.Int),
		allowances:   make(map[allowanceKey]uint256.Int),
		owners:       make(map[unitKey]types.Address),
		units:        make(map[unitBalanceKey]uint256.Int),
	}
}

// Snapshot returns a revision id for the current state.
func (l *Ledger) Snapshot() int { return len(l.journal) }

// RevertTo undoes every mutation applied after the given revision.
func (l *Ledger) RevertTo(rev int) {
	for i := len(l.journal) - 1; i >= rev; i-- {
		l.journal[i]()
	}
	l.journal = l.journal[:rev]
}

func idKey(id *big.Int) common.Hash {
	if id == nil {
		return common.Hash{}
	}
	return common.BigToHash(id)
}

func toWord(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	w, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrInvalidAmount
	}
	return w, nil
}

func (l *Ledger) setNative(addr types.Address, v uint256.Int) {
	prev, had := l.native[addr]
	l.journal = append(l.journal, func() {
		if had {
			l.native[addr] = prev
		} else {
			delete(l.native, addr)
		}
	})
	l.native[addr] = v
}

func (l *Ledger) setFungible(k balanceKey, v uint256.Int) {
	prev, had := l.fungible[k]
	l.journal = append(l.journal, func() {
		if had {
			l.fungible[k] = prev
		} else {
			delete(l.fungible, k)
		}
	})
	l.fungible[k] = v
}

func (l *Ledger) setAllowance(k allowanceKey, v uint256.Int) {
	prev, had := l.allowances[k]
	l.journal = append(l.journal, func() {
		if had {
			l.allowances[k] = prev
		} else {
			delete(l.allowances, k)
		}
	})
	l.allowances[k] = v
}

func (l *Ledger) setOwner(k unitKey, owner types.Address) {
	prev, had := l.owners[k]
	l.journal = append(l.journal, func() {
		if had {
			l.owners[k] = prev
		} else {
			delete(l.owners, k)
		}
	})
	l.owners[k] = owner
}

func (l *Ledger) setUnits(k unitBalanceKey, v uint256.Int) {
	prev, had := l.units[k]
	l.journal = append(l.journal, func() {
		if had {
			l.units[k] = prev
		} else {
			delete(l.units, k)
		}
	})
	l.units[k] = v
}

// SetRejectNative marks an address as rejecting incoming native transfers,
// mirroring a contract whose receive path reverts. Test hook.
func (l *Ledger) SetRejectNative(addr types.Address, reject bool) {
	l.rejectNative[addr] = reject
}

// MintNative credits native currency out of thin air. Setup only.
func (l *Ledger) MintNative(addr types.Address, amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	bal := l.native[addr]
	if _, overflow := bal.AddOverflow(&bal, w); overflow {
		return ErrBalanceOverflow
	}
	l.setNative(addr, bal)
	return nil
}

// NativeBalance returns the native balance of addr.
func (l *Ledger) NativeBalance(addr types.Address) *big.Int {
	bal := l.native[addr]
	return bal.ToBig()
}

func (l *Ledger) moveNative(from, to types.Address, amount *uint256.Int) error {
	if l.rejectNative[to] {
		return ErrNativeRejected
	}
	fromBal := l.native[from]
	if fromBal.Lt(amount) {
		return ErrInsufficientBalance
	}
	toBal := l.native[to]
	if _, overflow := toBal.AddOverflow(&toBal, amount); overflow {
		return ErrBalanceOverflow
	}
	fromBal.Sub(&fromBal, amount)
	l.setNative(from, fromBal)
	l.setNative(to, toBal)
	return nil
}

// MintFungible credits fungible units of asset to holder. Setup only.
func (l *Ledger) MintFungible(asset, holder types.Address, amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	k := balanceKey{asset: asset, holder: holder}
	bal := l.fungible[k]
	if _, overflow := bal.AddOverflow(&bal, w); overflow {
		return ErrBalanceOverflow
	}
	l.setFungible(k, bal)
	return nil
}

// FungibleBalance returns holder's balance of asset.
func (l *Ledger) FungibleBalance(asset, holder types.Address) *big.Int {
	bal := l.fungible[balanceKey{asset: asset, holder: holder}]
	return bal.ToBig()
}

// Approve grants spender a standing allowance over owner's balance of asset.
func (l *Ledger) Approve(asset, owner, spender types.Address, amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	l.setAllowance(allowanceKey{asset: asset, owner: owner, spender: spender}, *w)
	return nil
}

// Allowance returns spender's remaining allowance over owner's asset balance.
func (l *Ledger) Allowance(asset, owner, spender types.Address) *big.Int {
	a := l.allowances[allowanceKey{asset: asset, owner: owner, spender: spender}]
	return a.ToBig()
}

// moveFungible moves amount of asset from->to on behalf of spender. When the
// spender is not the owner the allowance is checked and consumed.
func (l *Ledger) moveFungible(asset, from, to types.Address, amount *uint256.Int, spender types.Address) error {
	if spender != from {
		ak := allowanceKey{asset: asset, owner: from, spender: spender}
		allowed := l.allowances[ak]
		if allowed.Lt(amount) {
			return ErrInsufficientAllowance
		}
		allowed.Sub(&allowed, amount)
		l.setAllowance(ak, allowed)
	}
	fk := balanceKey{asset: asset, holder: from}
	fromBal := l.fungible[fk]
	if fromBal.Lt(amount) {
		return ErrInsufficientBalance
	}
	tk := balanceKey{asset: asset, holder: to}
	toBal := l.fungible[tk]
	if _, overflow := toBal.AddOverflow(&toBal, amount); overflow {
		return ErrBalanceOverflow
	}
	fromBal.Sub(&fromBal, amount)
	l.setFungible(fk, fromBal)
	l.setFungible(tk, toBal)
	return nil
}

// MintNFT assigns ownership of (asset, id) to owner. Setup only.
func (l *Ledger) MintNFT(asset types.Address, id *big.Int, owner types.Address) {
	l.setOwner(unitKey{asset: asset, id: idKey(id)}, owner)
}

// OwnerOf returns the owner of (asset, id), or the zero address.
func (l *Ledger) OwnerOf(asset types.Address, id *big.Int) types.Address {
	return l.owners[unitKey{asset: asset, id: idKey(id)}]
}

func (l *Ledger) moveNFT(asset types.Address, id *big.Int, from, to types.Address) error {
	k := unitKey{asset: asset, id: idKey(id)}
	if l.owners[k] != from || from.IsZero() {
		return ErrNotTokenOwner
	}
	l.setOwner(k, to)
	return nil
}

// MintSemiFungible credits amount units of (asset, id) to holder. Setup only.
func (l *Ledger) MintSemiFungible(asset types.Address, id *big.Int, holder types.Address, amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	k := unitBalanceKey{asset: asset, id: idKey(id), holder: holder}
	bal := l.units[k]
	if _, overflow := bal.AddOverflow(&bal, w); overflow {
		return ErrBalanceOverflow
	}
	l.setUnits(k, bal)
	return nil
}

// SemiFungibleBalance returns holder's balance of (asset, id).
func (l *Ledger) SemiFungibleBalance(asset types.Address, id *big.Int, holder types.Address) *big.Int {
	bal := l.units[unitBalanceKey{asset: asset, id: idKey(id), holder: holder}]
	return bal.ToBig()
}

func (l *Ledger) moveSemiFungible(asset types.Address, id *big.Int, from, to types.Address, amount *uint256.Int) error {
	fk := unitBalanceKey{asset: asset, id: idKey(id), holder: from}
	fromBal := l.units[fk]
	if fromBal.Lt(amount) {
		return ErrInsufficientBalance
	}
	tk := unitBalanceKey{asset: asset, id: idKey(id), holder: to}
	toBal := l.units[tk]
	if _, overflow := toBal.AddOverflow(&toBal, amount); overflow {
		return ErrBalanceOverflow
	}
	fromBal.Sub(&fromBal, amount)
	l.setUnits(fk, fromBal)
	l.setUnits(tk, toBal)
	return nil
}
