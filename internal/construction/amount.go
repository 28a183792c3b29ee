package construction

import (
	"fmt"
	"strconv"
	"strings"
)

// parseAmount parses a Rosetta amount value: an optional sign followed by
// decimal digits that fit in a uint64.
func parseAmount(s string) (neg bool, v uint64, err error) {
	digits := s
	switch {
	case strings.HasPrefix(s, "-"):
		neg, digits = true, s[1:]
	case strings.HasPrefix(s, "+"):
		digits = s[1:]
	}
	v, err = strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return false, 0, fmt.Errorf("%w: %q", ErrAmount, s)
	}
	return neg && v != 0, v, nil
}

// formatAmount renders v, negated when neg is set. Zero is never signed.
func formatAmount(neg bool, v uint64) string {
	s := strconv.FormatUint(v, 10)
	if neg && v != 0 {
		return "-" + s
	}
	return s
}
