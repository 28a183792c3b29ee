package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoCoins           = errors.New("no coins available")
	ErrZeroTarget        = errors.New("target must be positive")
	ErrTooManyCoins      = errors.New("target needs more coins than one transaction can spend")
)

// Coin is an unspent output owned by the wallet.
type Coin struct {
	ID     types.OutputID
	Owner  string // bech32 address
	Amount uint64
}

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []Coin
	Total  uint64 // Sum of selected amounts
	Change uint64 // Total - target
}

// SelectCoins chooses coins covering target. It compares the smallest
// single coin that covers target against largest-first accumulation and
// returns whichever leaves less change. A selection never holds more than
// tx.MaxInputs coins.
func SelectCoins(coins []Coin, target uint64) (*CoinSelection, error) {
	if target == 0 {
		return nil, ErrZeroTarget
	}
	candidates := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if c.Amount > 0 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCoins
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Amount != candidates[j].Amount {
			return candidates[i].Amount < candidates[j].Amount
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	var single *CoinSelection
	for _, c := range candidates {
		if c.Amount >= target {
			single = &CoinSelection{Inputs: []Coin{c}, Total: c.Amount, Change: c.Amount - target}
			break
		}
	}

	var accum *CoinSelection
	var (
		picked []Coin
		total  uint64
	)
	for i := len(candidates) - 1; i >= 0 && len(picked) < tx.MaxInputs; i-- {
		picked = append(picked, candidates[i])
		total += candidates[i].Amount
		if total >= target {
			accum = &CoinSelection{Inputs: picked, Total: total, Change: total - target}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	case len(picked) < len(candidates):
		return nil, fmt.Errorf("%w: %d largest coins hold %d, need %d", ErrTooManyCoins, len(picked), total, target)
	default:
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, target)
	}
}
