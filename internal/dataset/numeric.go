package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Options controls how raw cells are interpreted while loading.
type Options struct {
	// DecimalSeparator fixes the decimal mark. If 0, auto-detect per value.
	DecimalSeparator rune
	// ThousandsSeparator is optional; if 0, common separators are stripped.
	ThousandsSeparator rune
}

// DefaultOptions auto-detects number formatting.
func DefaultOptions() Options { return Options{} }

// ParseNumeric parses a locale-tolerant number ("1.234,5", "12.5%", "1e3").
// Non-finite results are rejected so "inf" stays categorical.
func ParseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	if !looksNumeric(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// looksNumeric rejects forms ParseFloat accepts but survey cells never mean as
// numbers (hex floats, "infinity", underscores).
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
