// Package parse turns the formatted figures found in pitch documents and
// analysis results ("$1.2B", "7:1", "41.5%", "2019-20") into numbers.
// Every function reports failure through its boolean result.
package parse

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var suffixes = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
}

// Money parses amounts such as "$50B", "1,200,000", "$3.5M" or "40k".
func Money(s string) (float64, bool) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "USD")
	clean = strings.ReplaceAll(clean, "$", "")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return 0, false
	}

	multiplier := 1.0
	last := clean[len(clean)-1]
	if last >= 'a' && last <= 'z' {
		last -= 'a' - 'A'
	}
	if m, ok := suffixes[last]; ok {
		multiplier = m
		clean = strings.TrimSpace(clean[:len(clean)-1])
	}
	return finite(clean, multiplier)
}

// Ratio parses "N:D" or a bare number. A zero denominator fails.
func Ratio(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if num, den, found := strings.Cut(s, ":"); found {
		n, ok := finite(strings.TrimSpace(num), 1)
		if !ok {
			return 0, false
		}
		d, ok := finite(strings.TrimSpace(den), 1)
		if !ok || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	return finite(s, 1)
}

// Percent parses "41.5%" or "41.5" into 41.5.
func Percent(s string) (float64, bool) {
	return finite(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 1)
}

// Year extracts the leading four-digit year of "YYYY" or "YYYY-YY".
func Year(period string) (int, bool) {
	period = strings.TrimSpace(period)
	head := period
	if before, _, found := strings.Cut(period, "-"); found {
		head = before
	}
	if len(head) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(head)
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

// Number accepts JSON numbers, Go numeric types and money-formatted strings.
func Number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return Money(n)
	default:
		return 0, false
	}
}

// PercentValue accepts numbers or "15%"-style strings.
func PercentValue(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		return Percent(s)
	}
	return Number(v)
}

func finite(s string, multiplier float64) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f * multiplier, true
}
