package scoring

import (
	"math"
	"regexp"
	"strings"

	"github.com/spigell/prospectiq/internal/prospect"
)

const (
	// Documented bounds of the raw rule total, used for normalization only.
	ruleMin = -50
	ruleMax = 100

	ruleWeight = 0.7
	stubWeight = 0.3

	stubScore  = 50
	stubReason = "LLM stub (neutral influence)"
)

var shopifyRe = regexp.MustCompile(`(?i)shopify`)

// RuleScore evaluates the fixed-weight rules and returns the raw signed total with the reasons in rule order.
// It exposes the rule layer alone so callers can blend it the way they need.
func RuleScore(icp *prospect.ICP, f *prospect.Features) (int, []string) {
	if icp == nil {
		icp = &prospect.ICP{}
	}
	if f == nil {
		f = &prospect.Features{}
	}

	points := 0
	reasons := make([]string, 0, 8)

	if icp.Country != "" {
		if f.Country != "" && strings.EqualFold(f.Country, icp.Country) {
			points += 20
			reasons = append(reasons, "Country match (+20)")
		} else {
			points -= 20
			reasons = append(reasons, "Out of ICP country (-20)")
		}
	}

	if len(icp.Sectors) > 0 {
		if containsAny(f.SectorText, icp.Sectors) {
			points += 20
			reasons = append(reasons, "Sector keyword match (+20)")
		} else {
			points -= 5
			reasons = append(reasons, "Sector not in ICP (-5)")
		}
	}

	if f.EmployeeCount != nil && (icp.SizeMin != nil || icp.SizeMax != nil) {
		if inRange(*f.EmployeeCount, icp.SizeMin, icp.SizeMax) {
			points += 15
			reasons = append(reasons, "Size within range (+15)")
		} else {
			points -= 5
			reasons = append(reasons, "Size outside range (-5)")
		}
	}

	if f.WebsiteURL != "" {
		points += 5
		reasons = append(reasons, "Website present (+5)")
	}

	if anyMatch(shopifyRe, icp.Signals) && anyMatch(shopifyRe, f.Technologies) {
		points += 5
		reasons = append(reasons, "Shopify detected as requested (+5)")
	}

	if icp.GoogleRatingMax != nil && f.GoogleRating != nil {
		if *f.GoogleRating <= *icp.GoogleRatingMax {
			points += 5
			reasons = append(reasons, "Google rating under ICP max (+5)")
		} else {
			points -= 5
			reasons = append(reasons, "Google rating above ICP max (-5)")
		}
	}

	if len(icp.Excludes) > 0 {
		blob := f.TextBlob + " " + f.SectorText + " " + f.WebsiteURL
		if containsAny(blob, icp.Excludes) {
			points -= 15
			reasons = append(reasons, "Excluded keyword matched (-15)")
		}
	}

	return points, reasons
}

// Score runs the rule layer and blends it 70/30 with the neutral LLM stub.
// The stub reason is always the last one.
func Score(icp *prospect.ICP, f *prospect.Features) prospect.ScoreResult {
	points, reasons := RuleScore(icp, f)

	normalized := normalize(float64(points), ruleMin, ruleMax)
	final := roundHalfUp(normalized*ruleWeight + stubScore*stubWeight)

	return prospect.ScoreResult{
		Score:   clamp(int(final), 0, 100),
		Reasons: append(reasons, stubReason),
	}
}

// normalize maps value from [min,max] onto [0,100], clamping first.
func normalize(value, min, max float64) float64 {
	if max == min {
		return 50
	}
	clamped := math.Max(min, math.Min(max, value))
	return roundHalfUp((clamped - min) / (max - min) * 100)
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func inRange(v float64, min, max *float64) bool {
	lo, hi := math.Inf(-1), math.Inf(1)
	if min != nil {
		lo = *min
	}
	if max != nil {
		hi = *max
	}
	return v >= lo && v <= hi
}

// containsAny reports whether any keyword is a case-insensitive substring of text.
func containsAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func anyMatch(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}
