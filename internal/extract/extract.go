// Package extract derives scoring features from prospect pages.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/utils"
)

const maxTextBlob = 2000

var (
	shopifyRe     = regexp.MustCompile(`(?i)shopify`)
	wooCommerceRe = regexp.MustCompile(`(?i)woocommerce`)
	socialRe      = regexp.MustCompile(`(?i)(facebook|instagram|twitter|x\.com|linkedin|tiktok)\.com`)
	tldRe         = regexp.MustCompile(`\.([a-z]{2})$`)
	mapsURLRe     = regexp.MustCompile(`(^|\.)(google\.)[^/]+/maps`)
	decimalRe     = regexp.MustCompile(`(\d+[.,]\d+)`)
	starRatingRe  = regexp.MustCompile(`(\d+,[0-9])\s*★`)
)

var tldCountries = map[string]string{
	"fr": "FR",
	"de": "DE",
	"es": "ES",
	"it": "IT",
	"nl": "NL",
	"be": "BE",
	"ch": "CH",
	"uk": "UK",
}

// Site is the kind of page features are extracted from.
type Site string

const (
	SiteWebsite    Site = "website"
	SiteLinkedIn   Site = "linkedin"
	SiteGoogleMaps Site = "google_maps"
)

// Detect classifies a page by its URL.
func Detect(pageURL string) Site {
	u, err := url.Parse(pageURL)
	if err != nil {
		return SiteWebsite
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case mapsURLRe.MatchString(host+u.Path) || strings.Contains(host, "maps.google."):
		return SiteGoogleMaps
	case strings.Contains(host, "linkedin.com"):
		return SiteLinkedIn
	default:
		return SiteWebsite
	}
}

// Page parses the markup and dispatches to the extractor matching the page URL.
func Page(rawHTML, pageURL string) (prospect.Features, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return prospect.Features{}, fmt.Errorf("parse html: %w", err)
	}

	p := &page{raw: rawHTML, url: pageURL, doc: doc}
	switch Detect(pageURL) {
	case SiteGoogleMaps:
		return p.googleMaps(), nil
	case SiteLinkedIn:
		return p.linkedIn(), nil
	default:
		return p.website(), nil
	}
}

// Website extracts features from a company website.
func Website(rawHTML, pageURL string) (prospect.Features, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return prospect.Features{}, fmt.Errorf("parse html: %w", err)
	}
	return (&page{raw: rawHTML, url: pageURL, doc: doc}).website(), nil
}

type page struct {
	raw string
	url string
	doc *html.Node
}

func (p *page) website() prospect.Features {
	scripts := p.attrValues(atom.Script, "src")

	technologies := []string{}
	if shopifyRe.MatchString(p.raw) || anyMatch(shopifyRe, scripts) {
		technologies = append(technologies, "Shopify")
	}
	if wooCommerceRe.MatchString(p.raw) || anyMatch(wooCommerceRe, scripts) {
		technologies = append(technologies, "WooCommerce")
	}

	var socials []string
	for _, href := range p.attrValues(atom.A, "href") {
		if socialRe.MatchString(href) {
			socials = append(socials, href)
		}
	}

	sector := p.metaContent("name", "description")
	if sector == "" {
		sector = p.title()
	}

	blob := strings.TrimSpace(strings.Join(socials, " ") + " " + utils.TruncateRunes(PlainText(p.raw), maxTextBlob))

	return prospect.Features{
		Country:      CountryFromURL(p.url),
		SectorText:   sector,
		WebsiteURL:   p.url,
		Technologies: technologies,
		TextBlob:     blob,
	}
}

func (p *page) linkedIn() prospect.Features {
	text := PlainText(p.raw)

	role := p.firstText(atom.H1)
	if role == "" {
		role = p.firstText(atom.H2)
	}

	sector := ""
	if n := findNode(p.doc, func(n *html.Node) bool { return hasClass(n, "inline-show-more-text") }); n != nil {
		sector = nodeText(n)
	}
	if sector == "" {
		sector = p.metaContent("name", "industry")
	}
	if sector == "" {
		sector = p.metaContent("property", "og:description")
	}

	return prospect.Features{
		Country:       CountryFromURL(p.url),
		SectorText:    sector,
		EmployeeCount: CompanySize(text),
		WebsiteURL:    p.url,
		TextBlob:      utils.TruncateRunes(text, maxTextBlob),
		RoleText:      role,
	}
}

func (p *page) googleMaps() prospect.Features {
	var rating *float64

	labelled := findNode(p.doc, func(n *html.Node) bool {
		label := attr(n, "aria-label")
		return strings.Contains(label, "Étoiles") || strings.Contains(label, "stars") || strings.Contains(label, "rating")
	})
	if labelled != nil {
		if m := decimalRe.FindStringSubmatch(attr(labelled, "aria-label")); m != nil {
			rating = parseDecimal(m[1])
		}
	}
	if rating == nil {
		if m := starRatingRe.FindStringSubmatch(p.raw); m != nil {
			rating = parseDecimal(m[1])
		}
	}

	return prospect.Features{
		Country:      CountryFromURL(p.url),
		WebsiteURL:   p.url,
		GoogleRating: rating,
		TextBlob:     p.firstText(atom.H1),
	}
}

// CountryFromURL guesses the country from a two-letter top-level domain.
func CountryFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	m := tldRe.FindStringSubmatch(strings.ToLower(u.Hostname()))
	if m == nil {
		return ""
	}
	if country, ok := tldCountries[m[1]]; ok {
		return country
	}
	return strings.ToUpper(m[1])
}

func (p *page) title() string {
	return p.firstText(atom.Title)
}

func (p *page) firstText(a atom.Atom) string {
	n := findNode(p.doc, func(n *html.Node) bool { return n.DataAtom == a })
	if n == nil {
		return ""
	}
	return nodeText(n)
}

func (p *page) metaContent(key, value string) string {
	n := findNode(p.doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Meta && strings.EqualFold(attr(n, key), value)
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

func (p *page) attrValues(a atom.Atom, key string) []string {
	var out []string
	walk(p.doc, func(n *html.Node) {
		if n.DataAtom == a {
			if v := attr(n, key); v != "" {
				out = append(out, v)
			}
		}
	})
	return out
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func anyMatch(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

func parseDecimal(s string) *float64 {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	return &v
}
