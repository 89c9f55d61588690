package estimator

import (
	"fmt"
	"math"
	"strings"
)

// round2 rounds a price to paise, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatPrice renders v with two decimals and comma thousands separators,
// e.g. "₹12,345.68".
func FormatPrice(symbol string, v float64) string {
	s := fmt.Sprintf("%.2f", v)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + symbol + b.String() + "." + frac
}
