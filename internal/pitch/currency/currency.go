// Package currency converts monetary amounts through a USD pivot.
package currency

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pitch-analyzer/internal/common/logger"
)

// Pivot is the currency every conversion passes through.
const Pivot = "USD"

// SentinelRate is returned for currencies nobody knows about. Amounts
// converted with it are low confidence.
const SentinelRate = 50.0

// Quality describes where the rates used for a conversion came from.
type Quality int

const (
	// Exact means every rate came from the caller's table, or no lookup was needed.
	Exact Quality = iota
	// Fallback means at least one rate came from the built-in fallback table.
	Fallback
	// Sentinel means at least one currency was unknown.
	Sentinel
)

func (q Quality) String() string {
	switch q {
	case Fallback:
		return "fallback"
	case Sentinel:
		return "sentinel"
	default:
		return "exact"
	}
}

// Units of each currency per 1 USD.
var defaultRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.85,
	"GBP": 0.73,
	"JPY": 110.0,
	"CNY": 6.45,
	"INR": 75.0,
	"AUD": 1.35,
	"CAD": 1.25,
	"SGD": 1.35,
	"CHF": 0.92,
}

// Consulted only when the caller's table lacks a currency.
var fallbackRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.85,
	"GBP": 0.73,
	"JPY": 110.0,
	"CNY": 6.45,
	"INR": 75.0,
	"AUD": 1.35,
	"CAD": 1.25,
	"SGD": 1.35,
	"CHF": 0.92,
	"HKD": 7.8,
	"NZD": 1.4,
	"SEK": 8.6,
	"KRW": 1150.0,
	"NOK": 8.5,
	"MXN": 20.0,
	"BRL": 5.3,
	"RUB": 75.0,
	"ZAR": 15.0,
	"TRY": 8.6,
}

// DefaultRates returns a copy of the built-in rate table.
func DefaultRates() map[string]float64 {
	out := make(map[string]float64, len(defaultRates))
	for k, v := range defaultRates {
		out[k] = v
	}
	return out
}

// MergeRates overlays overrides on the defaults key by key. Codes are
// upper-cased; non-positive rates are ignored.
func MergeRates(overrides map[string]float64) map[string]float64 {
	out := DefaultRates()
	for code, rate := range overrides {
		if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return out
}

// rate resolves a currency's rate: caller table, then fallback, then sentinel.
func rate(code string, rates map[string]float64) (float64, Quality) {
	if r, ok := rates[code]; ok && r > 0 {
		return r, Exact
	}
	if r, ok := fallbackRates[code]; ok {
		return r, Fallback
	}
	return SentinelRate, Sentinel
}

// ConvertDetailed converts amount from one currency to another and reports
// the quality of the rates used. A nil amount yields nil.
func ConvertDetailed(amount *float64, from, to string, rates map[string]float64) (*float64, Quality) {
	if amount == nil {
		return nil, Exact
	}
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		v := *amount
		return &v, Exact
	}

	quality := Exact
	usd := *amount
	if from != Pivot {
		r, q := rate(from, rates)
		usd = usd / r
		quality = worst(quality, q)
	}

	out := usd
	if to != Pivot {
		r, q := rate(to, rates)
		out = usd * r
		quality = worst(quality, q)
	}
	return &out, quality
}

// Convert is ConvertDetailed without the quality report.
func Convert(amount *float64, from, to string, rates map[string]float64) *float64 {
	v, _ := ConvertDetailed(amount, from, to, rates)
	return v
}

func worst(a, b Quality) Quality {
	if b > a {
		return b
	}
	return a
}

// Converter binds a merged rate table to a logger.
type Converter struct {
	rates map[string]float64
	log   logger.Logger
}

// NewConverter merges overrides over the defaults.
func NewConverter(overrides map[string]float64, log logger.Logger) *Converter {
	return &Converter{
		rates: MergeRates(overrides),
		log:   logger.Component(log, "currency"),
	}
}

// Convert converts amount and logs when the fallback table or the sentinel
// rate had to be used. Amounts converted at anything but Exact quality are
// low confidence.
func (c *Converter) Convert(amount *float64, from, to string) (*float64, Quality) {
	v, q := ConvertDetailed(amount, from, to, c.rates)
	switch q {
	case Fallback:
		c.log.Warn("Exchange rate not configured, using fallback table", map[string]interface{}{
			"from": from,
			"to":   to,
		})
	case Sentinel:
		c.log.Error("Unknown currency, using sentinel rate", map[string]interface{}{
			"from":         from,
			"to":           to,
			"sentinelRate": SentinelRate,
		})
	}
	return v, q
}

// ToBase converts amount into the pivot currency.
func (c *Converter) ToBase(amount *float64, from string) (*float64, Quality) {
	return c.Convert(amount, from, Pivot)
}

// FormatAmount renders a USD amount as "$1,234,568".
func FormatAmount(v float64) string {
	neg := v < 0
	n := int64(math.Round(math.Abs(v)))
	digits := fmt.Sprintf("%d", n)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

type ratesFile struct {
	Rates map[string]float64 `yaml:"rates"`
}

// LoadRatesFile reads a YAML file with a top-level "rates" map.
func LoadRatesFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	var f ratesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rates file %s: %w", path, err)
	}
	if len(f.Rates) == 0 {
		return nil, fmt.Errorf("rates file %s has no rates", path)
	}
	return f.Rates, nil
}
