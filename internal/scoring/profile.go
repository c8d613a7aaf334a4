package scoring

import (
	"fmt"
	"strings"

	"github.com/spigell/prospectiq/internal/prospect"
)

// ScoreProfile evaluates features against a compiled profile using the profile weights.
// Only matching rules contribute; the total is clamped to [0,100].
func ScoreProfile(p prospect.CompiledProfile, f *prospect.Features) prospect.ScoreResult {
	if f == nil {
		f = &prospect.Features{}
	}

	w := p.Weights
	total := 0.0
	reasons := make([]string, 0, 7)

	add := func(weight float64, label string) {
		total += weight
		reasons = append(reasons, fmt.Sprintf("%s (%s)", label, formatPoints(weight)))
	}

	if p.Country != nil && *p.Country != "" && f.Country != "" && strings.EqualFold(*p.Country, f.Country) {
		add(w.Country, "Country match")
	}

	if len(p.Sectors) > 0 && (containsAny(f.SectorText, p.Sectors) || containsAny(f.TextBlob, p.Sectors)) {
		add(w.Sector, "Sector keyword match")
	}

	if f.EmployeeCount != nil && (p.SizeMin != nil || p.SizeMax != nil) && inRange(*f.EmployeeCount, p.SizeMin, p.SizeMax) {
		add(w.Size, "Size within range")
	}

	if len(p.Roles) > 0 && containsAny(f.RoleText, p.Roles) {
		add(w.Role, "Target role present")
	}

	if intersects(f.Technologies, p.Technologies) {
		add(w.Tech, "Requested technology detected")
	}

	if p.RatingMax != nil && f.GoogleRating != nil && *f.GoogleRating <= *p.RatingMax {
		add(w.Rating, "Google rating under profile max")
	}

	if len(p.Exclusions) > 0 && containsAny(f.TextBlob, p.Exclusions) {
		add(w.Exclusion, "Excluded keyword matched")
	}

	return prospect.ScoreResult{
		Score:   clamp(int(roundHalfUp(total)), 0, 100),
		Reasons: reasons,
	}
}

func intersects(detected, wanted []string) bool {
	for _, d := range detected {
		for _, w := range wanted {
			if strings.EqualFold(d, w) {
				return true
			}
		}
	}
	return false
}

func formatPoints(v float64) string {
	return fmt.Sprintf("%+g", v)
}
