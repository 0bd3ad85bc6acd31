package types

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// plainInteger matches integral numerics as spreadsheets render them: an
// optional sign, digits and an all-zero fraction. Exponent forms such as "12E3"
// are codes, not numbers.
var plainInteger = regexp.MustCompile(`^[+-]?\d+(\.0+)?$`)

// NormalizeKey canonicalises an identifier read from a loosely typed table cell.
// Integral numerics lose their decimal tail, so 1001, "1001" and "1001.0" all
// produce "1001". Everything else is trimmed and kept verbatim.
func NormalizeKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !plainInteger.MatchString(trimmed) {
		return trimmed
	}
	// keep zero-padded codes such as "007" intact
	if len(trimmed) > 1 && trimmed[0] == '0' && !strings.Contains(trimmed, ".") {
		return trimmed
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return trimmed
	}
	return d.Truncate(0).String()
}

// KeysEqual compares two identifiers after normalisation. Blank keys never match.
func KeysEqual(a, b string) bool {
	na, nb := NormalizeKey(a), NormalizeKey(b)
	return na != "" && na == nb
}
