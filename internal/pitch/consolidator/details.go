package consolidator

import (
	"fmt"
	"strings"
	"time"

	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/parse"
)

const (
	unknownCompany  = "Unknown Company"
	defaultDomain   = "Technology"
	defaultCEO      = "Management Team"
	defaultLocation = "United States"
	defaultModel    = "B2B"
)

func companyDetails(p *models.NormalizedPitch, now time.Time) models.CompanyDetails {
	name := companyName(p)
	domain := orDefault(p.Domain(), defaultDomain)

	return models.CompanyDetails{
		Name:          name,
		About:         fmt.Sprintf("%s is a company operating in the %s sector with innovative solutions and strong market potential.", name, domain),
		Status:        "Active",
		FoundedYear:   foundedYear(p.Finance.Revenues, now),
		CEO:           orDefault(ceoName(p.Team.Founders), defaultCEO),
		Headquarters:  orDefault(models.Deref(p.Contact.Address), defaultLocation),
		BusinessModel: orDefault(models.Deref(p.GTM.BusinessModel), defaultModel),
		Revenue:       "Undisclosed",
		Domain:        domain,
		SubDomain:     p.Market.SubDomain,
		Problem:       orDefault(models.Deref(p.Positioning.ProblemStatement), "Addressing key challenges in the market segment."),
		Solution:      orDefault(models.Deref(p.Positioning.Solution), fmt.Sprintf("%s provides innovative solutions to critical market challenges.", name)),
		USP:           orDefault(models.Deref(p.Positioning.USP), "Differentiated approach with sustainable competitive advantages."),
	}
}

// companyName falls back to the file-name prefix, then the tagline.
func companyName(p *models.NormalizedPitch) string {
	if name := strings.TrimSpace(p.CompanyName()); name != "" {
		return name
	}
	if file := models.Deref(p.Metadata.OriginalFileName); strings.Contains(file, "_") {
		if prefix := strings.TrimSpace(strings.SplitN(file, "_", 2)[0]); prefix != "" {
			return prefix
		}
	}
	if words := strings.Fields(models.Deref(p.Metadata.Tagline)); len(words) > 0 {
		if len(words) > 3 {
			words = words[:3]
		}
		return strings.Join(words, " ")
	}
	return unknownCompany
}

// foundedYear estimates one year before the earliest revenue period.
func foundedYear(revenues []models.Revenue, now time.Time) int {
	earliest := 0
	for _, r := range revenues {
		if r.Period == nil {
			continue
		}
		if y, ok := parse.Year(*r.Period); ok && (earliest == 0 || y < earliest) {
			earliest = y
		}
	}
	if earliest == 0 {
		return now.Year() - 3
	}
	return earliest - 1
}

func ceoName(founders []models.Founder) string {
	for _, f := range founders {
		title := strings.ToLower(models.Deref(f.Title))
		if strings.Contains(title, "ceo") || strings.Contains(title, "chief executive") {
			if name := models.Deref(f.Name); name != "" {
				return name
			}
		}
	}
	if len(founders) > 0 {
		return models.Deref(founders[0].Name)
	}
	return ""
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
