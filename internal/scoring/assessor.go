package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/utils"
)

const (
	maxPageText = 30000

	assessSystem = "You output STRICT JSON only."

	aiReasonCount  = 3
	missingReason  = "Raison manquante"
	stubAssessment = 60
)

var stubReasons = []string{"Pertinent secteur", "Taille adéquate", "Signal positif"}

// Assessor asks the completion provider for a score_ai assessment of a prospect page.
type Assessor struct {
	completer ai.Completer
	logger    *zap.Logger
}

// NewAssessor returns an Assessor. A nil completer answers with the stub assessment.
func NewAssessor(completer ai.Completer, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{completer: completer, logger: logger}
}

// Assess returns the normalized assessment. Provider failures are returned as is.
func (a *Assessor) Assess(ctx context.Context, icp *prospect.ICP, f *prospect.Features, pageText string) (*prospect.AIAssessment, error) {
	if a.completer == nil {
		return &prospect.AIAssessment{
			Score:   stubAssessment,
			Reasons: append([]string(nil), stubReasons...),
			Labels:  []string{"stub"},
		}, nil
	}

	prompt, err := buildAssessPrompt(icp, f, pageText)
	if err != nil {
		return nil, err
	}

	raw, err := a.completer.Complete(ctx, assessSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai assessment: %w", err)
	}

	assessment, err := normalizeAssessment(raw)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("ai assessment normalized",
		zap.Float64("score_ai", assessment.Score),
		zap.Strings("labels", assessment.Labels),
	)
	return assessment, nil
}

func buildAssessPrompt(icp *prospect.ICP, f *prospect.Features, pageText string) (string, error) {
	if icp == nil {
		icp = &prospect.ICP{}
	}
	if f == nil {
		f = &prospect.Features{}
	}

	icpJSON, err := json.MarshalIndent(icp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal icp: %w", err)
	}
	featuresJSON, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal features: %w", err)
	}

	return strings.Join([]string{
		"Tu es un assistant sales.",
		"Réponds STRICTEMENT en JSON au format:",
		"{",
		`  "score_ai": number (0..100),`,
		`  "reasons_ai": string[3],`,
		`  "labels": string[]`,
		"}",
		"Contrainte: pas de prose hors JSON. 3 raisons concrètes et courtes.",
		"",
		"ICP:",
		string(icpJSON),
		"",
		"Features:",
		string(featuresJSON),
		"",
		"Texte:",
		utils.TruncateRunes(pageText, maxPageText),
	}, "\n"), nil
}

func normalizeAssessment(raw string) (*prospect.AIAssessment, error) {
	obj, err := ai.DecodeObject(raw)
	if err != nil {
		return nil, err
	}

	score, ok := ai.CoerceNumber(obj["score_ai"])
	if !ok || math.IsInf(score, 0) {
		score = 0
	}
	score = math.Max(0, math.Min(100, roundHalfUp(score)))

	reasons, _ := ai.CoerceStrings(obj["reasons_ai"])
	if len(reasons) > aiReasonCount {
		reasons = reasons[:aiReasonCount]
	}
	for len(reasons) < aiReasonCount {
		reasons = append(reasons, missingReason)
	}

	labels, ok := ai.CoerceStrings(obj["labels"])
	if !ok {
		labels = []string{}
	}

	return &prospect.AIAssessment{Score: score, Reasons: reasons, Labels: labels}, nil
}
