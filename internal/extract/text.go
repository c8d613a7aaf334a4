package extract

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sizePlusRe   = regexp.MustCompile(`(?i)(\d+)\s*\+\s*(?:employees|employ[eé]s?)`)
	sizeRangeRe  = regexp.MustCompile(`(\d+)\s*[-–]\s*(\d+)`)
	sizeSingleRe = regexp.MustCompile(`(?i)(\d+)\s*(?:employees|employ[eé]s?)`)
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips every tag, drops script and style bodies, and collapses whitespace.
func PlainText(rawHTML string) string {
	// Block boundaries become spaces so adjacent words do not fuse.
	spaced := strings.ReplaceAll(rawHTML, "<", " <")
	sanitized := strictPolicy.Sanitize(spaced)
	return collapseSpaces(html.UnescapeString(sanitized))
}

// CompanySize reads an employee count from texts like "1000+ employees", "11–50 employés" or "25 employees".
// Ranges resolve to their rounded midpoint.
func CompanySize(text string) *float64 {
	text = strings.ToLower(collapseSpaces(text))
	if text == "" {
		return nil
	}

	if m := sizePlusRe.FindStringSubmatch(text); m != nil {
		return number(m[1])
	}
	if m := sizeRangeRe.FindStringSubmatch(text); m != nil {
		lo, hi := number(m[1]), number(m[2])
		if lo == nil || hi == nil {
			return nil
		}
		mid := math.Floor((*lo+*hi)/2 + 0.5)
		return &mid
	}
	if m := sizeSingleRe.FindStringSubmatch(text); m != nil {
		return number(m[1])
	}
	return nil
}

func number(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
