package profile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/prospectiq/internal/prospect"
)

const (
	stubNotes   = "Profil compilé (mode stub - configurez LLM_PROVIDER_URL pour une meilleure extraction)"
	stubSummary = "Profil compilé en mode stub"
	stubName    = "Profil généré"
)

var (
	sizeRangeRe = regexp.MustCompile(`(\d+)\s*[-–]\s*(\d+)`)
	sizeMinRe   = regexp.MustCompile(`(?i)min[^\d]*(\d+)|(\d+)\s*\+`)
	ratingRe    = regexp.MustCompile(`(?i)note[^\d]*(\d+[.,]\d+)|rating[^\d]*(\d+[.,]\d+)|(\d+[.,]\d+)\s*★`)
)

type keywordRule struct {
	value  string
	tokens []string
}

// Later country rules win.
var countryRules = []keywordRule{
	{value: "FR", tokens: []string{"france", " fr ", ".fr"}},
	{value: "DE", tokens: []string{"allemagne", "germany", " de ", ".de"}},
	{value: "ES", tokens: []string{"espagne", "spain", " es ", ".es"}},
}

var sectorRules = []keywordRule{
	{value: "ecommerce", tokens: []string{"ecommerce", "e-commerce", "e commerce"}},
	{value: "retail", tokens: []string{"retail"}},
	{value: "saas", tokens: []string{"saas"}},
	{value: "tech", tokens: []string{"tech"}},
}

var technologyRules = []keywordRule{
	{value: "Shopify", tokens: []string{"shopify"}},
	{value: "WooCommerce", tokens: []string{"woocommerce", "woo commerce"}},
	{value: "Magento", tokens: []string{"magento"}},
}

var exclusionRules = []keywordRule{
	{value: "agence", tokens: []string{"agence", "agency"}},
	{value: "freelance", tokens: []string{"freelance"}},
	{value: "consultant", tokens: []string{"consultant"}},
}

// ParseStub builds a profile from the description with keyword heuristics only.
// It never fails and never calls out.
func ParseStub(nl string) prospect.CompiledResult {
	lower := strings.ToLower(nl)

	compiled := prospect.NewCompiledProfile()
	compiled.Notes = stubNotes

	for _, rule := range countryRules {
		if rule.matches(lower) {
			country := rule.value
			compiled.Country = &country
		}
	}

	compiled.Sectors = collect(lower, sectorRules)
	compiled.Technologies = collect(lower, technologyRules)
	compiled.Exclusions = collect(lower, exclusionRules)

	if m := sizeRangeRe.FindStringSubmatch(nl); m != nil {
		compiled.SizeMin = parseNumber(m[1])
		compiled.SizeMax = parseNumber(m[2])
	} else if m := sizeMinRe.FindStringSubmatch(nl); m != nil {
		compiled.SizeMin = parseNumber(firstGroup(m))
	}

	if m := ratingRe.FindStringSubmatch(nl); m != nil {
		compiled.RatingMax = parseNumber(strings.Replace(firstGroup(m), ",", ".", 1))
	}

	return prospect.CompiledResult{
		Name:     stubProfileName(compiled),
		Compiled: compiled,
		Summary:  stubSummary,
	}
}

func (r keywordRule) matches(lower string) bool {
	for _, token := range r.tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func collect(lower string, rules []keywordRule) []string {
	out := []string{}
	for _, rule := range rules {
		if rule.matches(lower) {
			out = append(out, rule.value)
		}
	}
	return out
}

func firstGroup(match []string) string {
	for _, group := range match[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}

func parseNumber(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// stubProfileName renders "Profil [CC] [sector] [min-max]".
func stubProfileName(p prospect.CompiledProfile) string {
	parts := []string{"Profil"}
	if p.Country != nil && *p.Country != "" {
		parts = append(parts, *p.Country)
	}
	if len(p.Sectors) > 0 {
		parts = append(parts, p.Sectors[0])
	}
	if p.SizeMin != nil && p.SizeMax != nil && *p.SizeMin != 0 && *p.SizeMax != 0 {
		parts = append(parts, formatNumber(*p.SizeMin)+"-"+formatNumber(*p.SizeMax))
	}

	name := strings.TrimSpace(strings.Join(parts, " "))
	if name == "" {
		return stubName
	}
	return name
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
