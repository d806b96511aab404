package ars

import (
	"strconv"
	"strings"
)

// ParseRate parses a locale-formatted rate such as "1.292,5000" or "1292.50".
// It reports false for unparsable or non-positive values
func ParseRate(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}

	// Argentine format: "." groups thousands, "," separates decimals
	if strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	// Drop currency symbols, spaces and stray separators
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}

		return -1
	}, s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) {
		return 0, false
	}

	return v, true
}
