package wallet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
)

// unit is one whole coin in base units.
var unit = uint64(math.Pow10(construction.CurrencyDecimals))

var errAmount = errors.New("invalid amount")

// ParseAmount converts a decimal coin amount such as "1.5" to base units.
func ParseAmount(s string) (uint64, error) {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", errAmount, s)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: whole part: %v", errAmount, err)
	}
	var f uint64
	if hasFrac {
		if frac == "" || len(frac) > construction.CurrencyDecimals {
			return 0, fmt.Errorf("%w: at most %d decimal places", errAmount, construction.CurrencyDecimals)
		}
		f, err = strconv.ParseUint(frac+strings.Repeat("0", construction.CurrencyDecimals-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: fractional part: %v", errAmount, err)
		}
	}
	if w > (math.MaxUint64-f)/unit {
		return 0, fmt.Errorf("%w: too large", errAmount)
	}
	return w*unit + f, nil
}

// FormatAmount renders base units as a decimal coin amount.
func FormatAmount(units uint64) string {
	return fmt.Sprintf("%d.%0*d", units/unit, construction.CurrencyDecimals, units%unit)
}
