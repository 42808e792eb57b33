package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/utils"
	"github.com/ethereum/go-ethereum/common"
)

// Address is the 32-byte chain-agnostic address used throughout the protocol.
// EVM addresses are right-aligned (left-padded with 12 zero bytes), Starknet
// felts occupy the full word.
type Address [32]byte

// ZeroAddress is the unrestricted/unset placeholder.
var ZeroAddress = Address{}

// ParseAddress converts a string address in any supported format to an Address.
// Accepts EVM 20-byte hex, Starknet felt hex, and raw bytes32 hex.
func ParseAddress(address string) (Address, error) {
	cleanAddr := strings.TrimPrefix(address, "0x")

	switch len(cleanAddr) {
	case 64:
		// Already a full bytes32 word
		raw, err := hex.DecodeString(cleanAddr)
		if err != nil {
			return Address{}, fmt.Errorf("failed to decode bytes32 address: %w", err)
		}
		var a Address
		copy(a[:], raw)
		return a, nil

	case 40:
		// EVM address, left-pad to 32 bytes
		if !common.IsHexAddress(address) {
			return Address{}, fmt.Errorf("invalid EVM address: %s", address)
		}
		return AddressFromEVM(common.HexToAddress(address)), nil

	default:
		// Anything else is treated as a Starknet felt (felts have no fixed
		// hex width, leading zeroes are commonly dropped)
		f, err := utils.HexToFelt(address)
		if err != nil {
			return Address{}, fmt.Errorf("unsupported address format %q: %w", address, err)
		}
		return AddressFromFelt(f), nil
	}
}

// AddressFromEVM wraps a 20-byte EVM address into the 32-byte form.
func AddressFromEVM(addr common.Address) Address {
	var a Address
	copy(a[12:], addr.Bytes())
	return a
}

// AddressFromFelt wraps a Starknet felt into the 32-byte form.
func AddressFromFelt(f *felt.Felt) Address {
	return Address(f.Bytes())
}

// AddressFromHash reuses a 32-byte hash value as an address. Used by tests and
// tooling to derive synthetic asset/contract addresses.
func AddressFromHash(h common.Hash) Address {
	return Address(h)
}

// EVM returns the right-aligned 20-byte EVM view of the address.
func (a Address) EVM() common.Address {
	return common.BytesToAddress(a[12:])
}

// Felt returns the Starknet felt view of the address. Values above the field
// modulus are reduced, so callers working with Starknet addresses should only
// construct them through ParseAddress or AddressFromFelt.
func (a Address) Felt() *felt.Felt {
	return new(felt.Felt).SetBytes(a[:])
}

// IsEVM reports whether the address fits the EVM 20-byte form, i.e. the top
// 12 bytes are zero.
func (a Address) IsEVM() bool {
	for _, b := range a[:12] {
		if b != 0 {
			return false
		}
	}
	return true
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}
