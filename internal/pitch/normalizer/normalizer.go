// Package normalizer maps raw pitch documents onto the canonical pitch
// schema. It never fails: malformed input falls back to template defaults
// and the offending source value is kept in extras.
package normalizer

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/currency"
	"pitch-analyzer/internal/pitch/parse"
)

// Converter is the currency capability the normalizer needs.
type Converter interface {
	ToBase(amount *float64, from string) (*float64, currency.Quality)
}

type Normalizer struct {
	conv Converter
	log  logger.Logger
}

// New creates a Normalizer. A nil converter uses the default rate table.
func New(conv Converter, log logger.Logger) *Normalizer {
	log = logger.Component(log, "normalizer")
	if conv == nil {
		conv = currency.NewConverter(nil, log)
	}
	return &Normalizer{conv: conv, log: log}
}

// Top-level keys of the raw document that map into metadata.
const (
	rawKeyExtraction       = "extraction"
	rawKeySource           = "source"
	rawKeyClientID         = "clientId"
	rawKeyOriginalFileName = "originalFileName"
)

type stringField struct {
	key string
	set func(p *models.NormalizedPitch, v *string)
}

// Extraction keys holding plain strings.
var stringFields = []stringField{
	{"company_name", func(p *models.NormalizedPitch, v *string) { p.Metadata.CompanyName = v }},
	{"tagline", func(p *models.NormalizedPitch, v *string) { p.Metadata.Tagline = v }},
	{"website", func(p *models.NormalizedPitch, v *string) { p.Metadata.Website = v }},
	{"email", func(p *models.NormalizedPitch, v *string) { p.Contact.Email = v }},
	{"phone", func(p *models.NormalizedPitch, v *string) { p.Contact.Phone = v }},
	{"address", func(p *models.NormalizedPitch, v *string) { p.Contact.Address = v }},
	{"domain", func(p *models.NormalizedPitch, v *string) { p.Market.Domain = v }},
	{"sub_domain", func(p *models.NormalizedPitch, v *string) { p.Market.SubDomain = v }},
	{"problem_statement", func(p *models.NormalizedPitch, v *string) { p.Positioning.ProblemStatement = v }},
	{"solution", func(p *models.NormalizedPitch, v *string) { p.Positioning.Solution = v }},
	{"USP", func(p *models.NormalizedPitch, v *string) { p.Positioning.USP = v }},
	{"business_model", func(p *models.NormalizedPitch, v *string) { p.GTM.BusinessModel = v }},
}

type passField struct {
	key string
	set func(p *models.NormalizedPitch, v interface{})
}

// Extraction keys copied as-is; their shape varies too much between decks
// to type them.
var passFields = []passField{
	{"date", func(p *models.NormalizedPitch, v interface{}) { p.Metadata.Date = v }},
	{"experience", func(p *models.NormalizedPitch, v interface{}) { p.Team.Experience = v }},
	{"year_on_year_growth", func(p *models.NormalizedPitch, v interface{}) { p.Finance.YearOnYearGrowth = v }},
	{"runway", func(p *models.NormalizedPitch, v interface{}) { p.Finance.Runway = v }},
}

type amountField struct {
	key string
	set func(p *models.NormalizedPitch, v models.CurrencyAmount)
}

// Extraction keys holding {value, currency} objects.
var amountFields = []amountField{
	{"tam", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Market.TAM = v }},
	{"sam", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Market.SAM = v }},
	{"som", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Market.SOM = v }},
	{"arr", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Finance.ARR = v }},
	{"mrr", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Finance.MRR = v }},
	{"total_revenue", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Finance.TotalRevenue = v }},
	{"gross_profit", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Finance.GrossProfit = v }},
	{"ebita", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Finance.EBITA = v }},
	{"ask", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Fundraise.Ask = v }},
	{"valuation", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Fundraise.Valuation = v }},
	{"funds_raised", func(p *models.NormalizedPitch, v models.CurrencyAmount) { p.Fundraise.FundsRaised = v }},
}

// Remaining extraction keys with dedicated handling.
const (
	keyCAGR           = "cagr"
	keyFounders       = "founders"
	keyRevenues       = "revenues"
	keyCompetitors    = "competitors"
	keyRevenueStreams = "revenue_streams"
	keyChannels       = "channels"
)

var founderKeys = []string{"name", "title", "linkedin", "bio"}

// Revenue period keys in priority order.
var periodKeys = []string{"year", "quarter", "period"}

// consumedKeys is the set of extraction keys that map to a canonical path.
var consumedKeys = func() map[string]bool {
	m := map[string]bool{
		keyCAGR: true, keyFounders: true, keyRevenues: true,
		keyCompetitors: true, keyRevenueStreams: true, keyChannels: true,
	}
	for _, f := range stringFields {
		m[f.key] = true
	}
	for _, f := range passFields {
		m[f.key] = true
	}
	for _, f := range amountFields {
		m[f.key] = true
	}
	return m
}()

// run holds per-call state so a Normalizer can be shared between goroutines.
type run struct {
	n      *Normalizer
	extras map[string]interface{}
	lossy  int
}

// keep records a source value under its dotted path.
func (r *run) keep(path string, v interface{}, reason string) {
	r.extras[path] = deepCopy(v)
	if reason != "" {
		r.lossy++
		r.n.log.Warn("Source value kept in extras", map[string]interface{}{
			"path":   path,
			"reason": reason,
		})
	}
}

// note records derived information in extras without replacing a source value.
func (r *run) note(path, v string) {
	if _, taken := r.extras[path]; !taken {
		r.extras[path] = v
	}
}

// Normalize builds a NormalizedPitch from raw. The result is always fully
// shaped and deterministic for a given input.
func (n *Normalizer) Normalize(raw models.RawDocument) *models.NormalizedPitch {
	p := models.NewTemplatePitch()
	r := &run{n: n, extras: p.Extras}

	r.metadataFromTopLevel(p, raw)

	ext := raw.Extraction()
	if ext == nil {
		if v, present := raw[rawKeyExtraction]; present && v != nil {
			r.keep(rawKeyExtraction, v, "extraction is not an object")
		} else {
			n.log.Warn("No extraction data found in raw pitch document", nil)
		}
		return p
	}

	for _, f := range stringFields {
		f.set(p, r.stringValue(f.key, ext))
	}
	for _, f := range passFields {
		if v, ok := ext[f.key]; ok {
			f.set(p, deepCopy(v))
		}
	}
	for _, f := range amountFields {
		f.set(p, r.amount(f.key, ext[f.key]))
	}

	p.Market.CAGR = r.cagr(ext)
	p.Team.Founders = r.founders(ext)
	p.Finance.Revenues = r.revenues(ext)
	p.Positioning.Competitors = r.competitors(ext)
	p.GTM.RevenueStreams = r.stringList(keyRevenueStreams, ext)
	p.GTM.Channels = r.stringList(keyChannels, ext)

	for _, key := range sortedKeys(ext) {
		if !consumedKeys[key] {
			r.keep(key, ext[key], "")
		}
	}

	p.Units.BaseCurrency = models.BaseCurrency
	n.log.Debug("Schema normalization completed", map[string]interface{}{
		"extras":     len(p.Extras),
		"lossyPaths": r.lossy,
	})
	return p
}

func (r *run) metadataFromTopLevel(p *models.NormalizedPitch, raw models.RawDocument) {
	top := map[string]func(*string){
		rawKeySource:           func(v *string) { p.Metadata.Source = v },
		rawKeyClientID:         func(v *string) { p.Metadata.ClientID = v },
		rawKeyOriginalFileName: func(v *string) { p.Metadata.OriginalFileName = v },
	}
	for key, set := range top {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := scalarString(v); ok {
			set(&s)
			continue
		}
		r.n.log.Warn("Top-level metadata field has unexpected type", map[string]interface{}{
			"key":  key,
			"type": fmt.Sprintf("%T", v),
		})
	}
}

func (r *run) stringValue(key string, ext map[string]interface{}) *string {
	return r.str(key, ext[key])
}

// str converts a scalar at path to a string; anything else goes to extras.
func (r *run) str(path string, v interface{}) *string {
	if v == nil {
		return nil
	}
	if s, ok := scalarString(v); ok {
		return &s
	}
	r.keep(path, v, fmt.Sprintf("expected string, got %T", v))
	return nil
}

// amount normalizes a {value, currency} object into the base currency.
func (r *run) amount(key string, v interface{}) models.CurrencyAmount {
	out := models.EmptyAmount()
	if v == nil {
		return out
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		r.keep(key, v, fmt.Sprintf("expected {value, currency}, got %T", v))
		return out
	}

	for _, sub := range sortedKeys(obj) {
		if sub != "value" && sub != "currency" {
			r.keep(key+"."+sub, obj[sub], "")
		}
	}

	// A missing currency means the base currency. A currency that is not a
	// code leaves the amount unconverted.
	code := models.BaseCurrency
	stated, present := obj["currency"]
	if present && stated != nil {
		if s, ok := stated.(string); ok && s != "" {
			code = s
		} else {
			code = ""
			r.keep(key+".currency", stated, "currency is not a code")
		}
	}

	value := obj["value"]
	if value == nil {
		if code != "" && present && stated != nil {
			r.keep(key+".currency", stated, "amount has no value")
		}
		return out
	}
	num, ok := parse.Number(value)
	if !ok {
		if _, isString := value.(string); !isString {
			r.keep(key+".value", value, fmt.Sprintf("amount has type %T", value))
			return out
		}
		// unparseable text: provenance only
		out.Raw = &models.RawAmount{Value: value, Currency: code}
		r.n.log.Warn("Monetary value could not be parsed", map[string]interface{}{
			"path":  key,
			"value": value,
		})
		return out
	}

	out.Raw = &models.RawAmount{Value: deepCopy(value), Currency: code}
	if code == "" {
		return out
	}
	converted, quality := r.n.conv.ToBase(&num, code)
	out.Value = converted
	if quality != currency.Exact {
		r.note(key+".conversion_quality", quality.String())
	}
	return out
}

func (r *run) cagr(ext map[string]interface{}) *float64 {
	v, ok := ext[keyCAGR]
	if !ok || v == nil {
		return nil
	}
	if f, ok := parse.PercentValue(v); ok {
		return &f
	}
	r.keep(keyCAGR, v, fmt.Sprintf("cagr has type %T", v))
	return nil
}

func (r *run) founders(ext map[string]interface{}) []models.Founder {
	out := []models.Founder{}
	v, ok := ext[keyFounders]
	if !ok || v == nil {
		return out
	}
	list, ok := v.([]interface{})
	if !ok {
		r.keep(keyFounders, v, "founders is not a list")
		return out
	}

	for i, item := range list {
		path := keyFounders + "." + strconv.Itoa(i)
		obj, ok := item.(map[string]interface{})
		if !ok {
			r.keep(path, item, "founder is not an object")
			continue
		}
		f := models.Founder{}
		setters := map[string]**string{"name": &f.Name, "title": &f.Title, "linkedin": &f.LinkedIn, "bio": &f.Bio}
		for _, k := range founderKeys {
			*setters[k] = r.str(path+"."+k, obj[k])
		}
		for _, sub := range sortedKeys(obj) {
			if _, known := setters[sub]; !known {
				r.keep(path+"."+sub, obj[sub], "")
			}
		}
		out = append(out, f)
	}
	return out
}

func (r *run) revenues(ext map[string]interface{}) []models.Revenue {
	out := []models.Revenue{}
	v, ok := ext[keyRevenues]
	if !ok || v == nil {
		return out
	}
	list, ok := v.([]interface{})
	if !ok {
		r.keep(keyRevenues, v, "revenues is not a list")
		return out
	}

	for i, item := range list {
		path := keyRevenues + "." + strconv.Itoa(i)
		obj, ok := item.(map[string]interface{})
		if !ok {
			r.keep(path, item, "revenue entry is not an object")
			continue
		}

		rev := models.Revenue{Currency: models.BaseCurrency}
		periodKey := ""
		for _, k := range periodKeys {
			if pv, present := obj[k]; present && pv != nil {
				periodKey = k
				if s, ok := periodString(pv); ok {
					rev.Period = &s
				} else {
					r.keep(path+"."+k, pv, fmt.Sprintf("period has type %T", pv))
				}
				break
			}
		}

		amt := r.amount(path, map[string]interface{}{"value": obj["value"], "currency": obj["currency"]})
		rev.Value = amt.Value
		rev.Raw = amt.Raw

		for _, sub := range sortedKeys(obj) {
			if sub == "value" || sub == "currency" || sub == periodKey {
				continue
			}
			r.keep(path+"."+sub, obj[sub], "")
		}
		out = append(out, rev)
	}

	if !sortable(out) {
		r.n.log.Warn("Could not sort revenues by period", map[string]interface{}{"entries": len(out)})
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Period < *out[j].Period })
	return out
}

func (r *run) competitors(ext map[string]interface{}) []interface{} {
	v, ok := ext[keyCompetitors]
	if !ok || v == nil {
		return []interface{}{}
	}
	list, ok := v.([]interface{})
	if !ok {
		r.keep(keyCompetitors, v, "competitors is not a list")
		return []interface{}{}
	}
	return deepCopy(list).([]interface{})
}

func (r *run) stringList(key string, ext map[string]interface{}) []string {
	out := []string{}
	v, ok := ext[key]
	if !ok || v == nil {
		return out
	}
	list, ok := v.([]interface{})
	if !ok {
		r.keep(key, v, fmt.Sprintf("%s is not a list", key))
		return out
	}
	for i, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		r.keep(key+"."+strconv.Itoa(i), item, "list element is not a string")
	}
	return out
}

func sortable(revs []models.Revenue) bool {
	for _, r := range revs {
		if r.Period == nil {
			return false
		}
	}
	return true
}

// scalarString accepts strings and renders numbers and booleans.
func scalarString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case float64:
		return formatNumber(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}

func periodString(v interface{}) (string, bool) {
	if _, isBool := v.(bool); isBool {
		return "", false
	}
	return scalarString(v)
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// deepCopy clones JSON-shaped values so extras never alias the source.
func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
