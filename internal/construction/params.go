// Package construction implements the Rosetta construction core: turning
// operations into a canonical essence, assembling signatures into unlock
// blocks, the wire envelope codec, and projecting transactions back into
// operations. Every function here is pure.
package construction

import (
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// Native currency of the ledger.
const (
	CurrencySymbol   = "KGX"
	CurrencyDecimals = 12
)

// Currency returns the native currency descriptor.
func Currency() rosetta.Currency {
	return rosetta.Currency{Symbol: CurrencySymbol, Decimals: CurrencyDecimals}
}

// Params binds the construction core to one network.
type Params struct {
	HRP        string           // bech32 prefix of ledger-native addresses
	Currency   rosetta.Currency // native currency
	NetworkTag []byte           // indexation index attached to every essence; empty for none
}

// MainnetParams returns the parameters of the main network.
func MainnetParams() Params {
	return Params{HRP: types.MainnetHRP, Currency: Currency(), NetworkTag: []byte("KLINGNET")}
}

// TestnetParams returns the parameters of the test network.
func TestnetParams() Params {
	return Params{HRP: types.TestnetHRP, Currency: Currency(), NetworkTag: []byte("KLINGNET-TEST")}
}
