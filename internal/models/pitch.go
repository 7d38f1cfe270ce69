package models

import "encoding/json"

// BaseCurrency is the only currency a NormalizedPitch carries after
// normalization.
const BaseCurrency = "USD"

// RawDocument is a pitch document as stored by the document store. Its shape
// is owned by the extraction process that produced it.
type RawDocument map[string]interface{}

// Extraction returns the "extraction" sub-document, or nil when it is absent
// or not an object.
func (r RawDocument) Extraction() map[string]interface{} {
	if r == nil {
		return nil
	}
	ext, _ := r["extraction"].(map[string]interface{})
	return ext
}

// String returns a top-level string field.
func (r RawDocument) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// RawAmount is a monetary value exactly as it appeared in the source.
type RawAmount struct {
	Value    interface{} `json:"value"`
	Currency string      `json:"currency"`
}

// CurrencyAmount is a monetary leaf of the canonical schema.
type CurrencyAmount struct {
	Value    *float64   `json:"value"`
	Currency string     `json:"currency"`
	Raw      *RawAmount `json:"raw"`
}

// EmptyAmount is the template value for every monetary field.
func EmptyAmount() CurrencyAmount {
	return CurrencyAmount{Currency: BaseCurrency}
}

// Float returns the converted value and whether it is present.
func (c CurrencyAmount) Float() (float64, bool) {
	if c.Value == nil {
		return 0, false
	}
	return *c.Value, true
}

type Founder struct {
	Name     *string `json:"name"`
	Title    *string `json:"title"`
	LinkedIn *string `json:"linkedin"`
	Bio      *string `json:"bio"`
}

type Revenue struct {
	Period   *string    `json:"period"`
	Value    *float64   `json:"value"`
	Currency string     `json:"currency"`
	Raw      *RawAmount `json:"raw"`
}

type Metadata struct {
	CompanyName      *string     `json:"company_name"`
	Tagline          *string     `json:"tagline"`
	Website          *string     `json:"website"`
	Date             interface{} `json:"date"`
	Source           *string     `json:"source"`
	ClientID         *string     `json:"client_id"`
	OriginalFileName *string     `json:"original_file_name"`
}

type Contact struct {
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type Team struct {
	Founders   []Founder   `json:"founders"`
	Experience interface{} `json:"experience"`
}

type Market struct {
	TAM       CurrencyAmount `json:"tam"`
	SAM       CurrencyAmount `json:"sam"`
	SOM       CurrencyAmount `json:"som"`
	CAGR      *float64       `json:"cagr"`
	Domain    *string        `json:"domain"`
	SubDomain *string        `json:"sub_domain"`
}

type Positioning struct {
	ProblemStatement *string       `json:"problem_statement"`
	Solution         *string       `json:"solution"`
	USP              *string       `json:"usp"`
	Competitors      []interface{} `json:"competitors"`
}

type Finance struct {
	ARR              CurrencyAmount `json:"arr"`
	MRR              CurrencyAmount `json:"mrr"`
	TotalRevenue     CurrencyAmount `json:"total_revenue"`
	GrossProfit      CurrencyAmount `json:"gross_profit"`
	EBITA            CurrencyAmount `json:"ebita"`
	YearOnYearGrowth interface{}    `json:"year_on_year_growth"`
	Revenues         []Revenue      `json:"revenues"`
	Runway           interface{}    `json:"runway"`
}

type Fundraise struct {
	Ask         CurrencyAmount `json:"ask"`
	Valuation   CurrencyAmount `json:"valuation"`
	FundsRaised CurrencyAmount `json:"funds_raised"`
}

type GTM struct {
	RevenueStreams []string `json:"revenue_streams"`
	BusinessModel  *string  `json:"business_model"`
	Channels       []string `json:"channels"`
}

type Units struct {
	BaseCurrency string `json:"base_currency"`
}

// NormalizedPitch is the canonical pitch schema. It is built once per run
// and treated as read-only afterwards.
type NormalizedPitch struct {
	Metadata    Metadata               `json:"metadata"`
	Contact     Contact                `json:"contact"`
	Team        Team                   `json:"team"`
	Market      Market                 `json:"market"`
	Positioning Positioning            `json:"positioning"`
	Finance     Finance                `json:"finance"`
	Fundraise   Fundraise              `json:"fundraise"`
	GTM         GTM                    `json:"gtm"`
	Units       Units                  `json:"units"`
	Extras      map[string]interface{} `json:"extras"`

	// Degraded marks a pass-through pitch built after normalization failed.
	// Only Extras carries data in that case.
	Degraded bool `json:"degraded,omitempty"`
}

// NewTemplatePitch returns a fresh canonical template. Every call allocates
// new slices and maps so callers never share state.
func NewTemplatePitch() *NormalizedPitch {
	return &NormalizedPitch{
		Team:        Team{Founders: []Founder{}},
		Market:      Market{TAM: EmptyAmount(), SAM: EmptyAmount(), SOM: EmptyAmount()},
		Positioning: Positioning{Competitors: []interface{}{}},
		Finance: Finance{
			ARR:          EmptyAmount(),
			MRR:          EmptyAmount(),
			TotalRevenue: EmptyAmount(),
			GrossProfit:  EmptyAmount(),
			EBITA:        EmptyAmount(),
			Revenues:     []Revenue{},
		},
		Fundraise: Fundraise{Ask: EmptyAmount(), Valuation: EmptyAmount(), FundsRaised: EmptyAmount()},
		GTM:       GTM{RevenueStreams: []string{}, Channels: []string{}},
		Units:     Units{BaseCurrency: BaseCurrency},
		Extras:    map[string]interface{}{},
	}
}

// DegradedPitch wraps a raw document that could not be normalized. The
// top-level keys of the document are carried verbatim in Extras.
func DegradedPitch(raw RawDocument) *NormalizedPitch {
	p := NewTemplatePitch()
	p.Degraded = true
	for k, v := range raw {
		p.Extras[k] = v
	}
	return p
}

// Clone returns a deep copy via a JSON round trip.
func (p *NormalizedPitch) Clone() (*NormalizedPitch, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := &NormalizedPitch{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompanyName returns the company name or "".
func (p *NormalizedPitch) CompanyName() string {
	return Deref(p.Metadata.CompanyName)
}

// Domain returns the market domain or "".
func (p *NormalizedPitch) Domain() string {
	return Deref(p.Market.Domain)
}

// MonetaryFields lists every CurrencyAmount by canonical path.
func (p *NormalizedPitch) MonetaryFields() map[string]CurrencyAmount {
	return map[string]CurrencyAmount{
		"market.tam":             p.Market.TAM,
		"market.sam":             p.Market.SAM,
		"market.som":             p.Market.SOM,
		"finance.arr":            p.Finance.ARR,
		"finance.mrr":            p.Finance.MRR,
		"finance.total_revenue":  p.Finance.TotalRevenue,
		"finance.gross_profit":   p.Finance.GrossProfit,
		"finance.ebita":          p.Finance.EBITA,
		"fundraise.ask":          p.Fundraise.Ask,
		"fundraise.valuation":    p.Fundraise.Valuation,
		"fundraise.funds_raised": p.Fundraise.FundsRaised,
	}
}

// Deref returns *s or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}
