// Package summary writes the three-bullet "why this lead matches" note.
package summary

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/utils"
)

const (
	bulletCount   = 3
	maxContextLen = 300
	notAvailable  = "n/a"

	summarySystem = "You are a helpful assistant that outputs STRICT JSON only."
)

var padding = []string{"- Pertinence sectorielle", "- Taille adéquate", "- Signaux compatibles"}

// Stub answers with fixed bullets. It is the collaborator used when no provider is configured.
var Stub ai.Completer = ai.CompleterFunc(func(context.Context, string, string) (string, error) {
	return strings.Join([]string{
		"- Secteur et critères cohérents avec l’ICP",
		"- Taille et signaux conformes",
		"- Localisation et tech pertinentes",
	}, "\n"), nil
})

type Summarizer struct {
	completer ai.Completer
	logger    *zap.Logger
}

// New returns a Summarizer. A nil completer falls back to Stub.
func New(completer ai.Completer, logger *zap.Logger) *Summarizer {
	if completer == nil {
		completer = Stub
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{completer: completer, logger: logger}
}

// Summarize always returns exactly three "-" lines joined by newlines.
func (s *Summarizer) Summarize(ctx context.Context, f *prospect.Features, icp *prospect.ICP) string {
	out, err := s.completer.Complete(ctx, summarySystem, BuildPrompt(f, icp))
	if err != nil {
		s.logger.Warn("summary generation failed, using default bullets", zap.Error(err))
		out = ""
	}

	lines := make([]string, 0, bulletCount)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-") {
			lines = append(lines, line)
		}
	}

	if len(lines) < bulletCount {
		lines = append(lines, padding...)
	}
	return strings.Join(lines[:bulletCount], "\n")
}

// BuildPrompt renders the ICP criteria and the observed features.
func BuildPrompt(f *prospect.Features, icp *prospect.ICP) string {
	if f == nil {
		f = &prospect.Features{}
	}
	if icp == nil {
		icp = &prospect.ICP{}
	}

	parts := []string{
		"Tu es un assistant sales français. Génère exactement 3 puces courtes et concrètes:",
		`Titre: "Pourquoi ce lead matche". N’ajoute aucune intro ni conclusion.`,
		"",
		"Contraintes:",
		"- 1 phrase par puce, factuelle, sans jargon.",
		"- Pas de répétitions, pas de variables entre crochets.",
		"- Mentionne des éléments observables (secteur, techno, taille, rating, localisation).",
		"",
		"ICP (critères):",
		"- Pays: " + orNA(icp.Country),
		"- Secteurs: " + joinOrNA(icp.Sectors),
		"- Taille: " + numberOrNA(icp.SizeMin) + "–" + numberOrNA(icp.SizeMax),
		"- Roles: " + joinOrNA(icp.Roles),
		"- Exclusions: " + joinOrNA(icp.Excludes),
		"- Signaux: " + joinOrNA(icp.Signals),
	}
	if icp.GoogleRatingMax != nil {
		parts = append(parts, "- Note Google max: "+formatNumber(*icp.GoogleRatingMax))
	}

	parts = append(parts,
		"",
		"Features (observées):",
		"- Pays détecté: "+orNA(f.Country),
		"- Secteur texte: "+orNA(f.SectorText),
		"- Employés: "+numberOrNA(f.EmployeeCount),
		"- Site: "+orNA(f.WebsiteURL),
		"- Tech: "+joinOrNA(f.Technologies),
	)
	if f.GoogleRating != nil {
		parts = append(parts, "- Note Google: "+formatNumber(*f.GoogleRating))
	}

	parts = append(parts,
		"- Contexte: "+utils.TruncateRunes(f.TextBlob, maxContextLen),
		"",
		"Format de sortie strict:",
		"- Puce 1",
		"- Puce 2",
		"- Puce 3",
	)

	return strings.Join(parts, "\n")
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func joinOrNA(values []string) string {
	return orNA(strings.Join(values, ", "))
}

func numberOrNA(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return formatNumber(*v)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
