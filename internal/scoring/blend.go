package scoring

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/prospect"
)

const (
	blendRuleWeight = 0.6
	blendAIWeight   = 0.4

	blendRuleReasons = 2

	// OfflineReason replaces the AI reason when no assessment is available.
	OfflineReason = "IA offline — score règles affiché"
)

// Blend combines a rule score with an optional AI assessment.
// Without an assessment the rule score is kept and the offline reason is appended.
func Blend(rule prospect.ScoreResult, assessment *prospect.AIAssessment) prospect.ScoreResult {
	reasons := make([]string, 0, blendRuleReasons+1)
	reasons = append(reasons, firstN(rule.Reasons, blendRuleReasons)...)

	if assessment == nil {
		return prospect.ScoreResult{
			Score:   rule.Score,
			Reasons: append(reasons, OfflineReason),
		}
	}

	aiScore := assessment.Score
	if math.IsNaN(aiScore) || math.IsInf(aiScore, 0) {
		aiScore = 0
	}
	final := roundHalfUp(blendRuleWeight*float64(rule.Score) + blendAIWeight*aiScore)

	if len(assessment.Reasons) > 0 && assessment.Reasons[0] != "" {
		reasons = append(reasons, assessment.Reasons[0])
	}

	return prospect.ScoreResult{
		Score:   clamp(int(final), 0, 100),
		Reasons: reasons,
	}
}

func firstN(values []string, n int) []string {
	if len(values) < n {
		n = len(values)
	}
	out := make([]string, n)
	copy(out, values[:n])
	return out
}

// AIScorer is the external AI scoring collaborator.
type AIScorer interface {
	Assess(ctx context.Context, icp *prospect.ICP, f *prospect.Features, pageText string) (*prospect.AIAssessment, error)
}

// Blender asks the AI collaborator and blends its answer into a rule score.
// Any collaborator failure degrades to the rule-only result.
type Blender struct {
	scorer AIScorer
	logger *zap.Logger
}

func NewBlender(scorer AIScorer, logger *zap.Logger) *Blender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Blender{scorer: scorer, logger: logger}
}

func (b *Blender) Blend(ctx context.Context, rule prospect.ScoreResult, icp *prospect.ICP, f *prospect.Features, pageText string) prospect.ScoreResult {
	if b == nil || b.scorer == nil {
		return Blend(rule, nil)
	}

	assessment, err := b.scorer.Assess(ctx, icp, f, pageText)
	if err != nil {
		b.logger.Warn("ai assessment failed, keeping rule score",
			zap.Int("rule_score", rule.Score),
			zap.Error(err),
		)
		return Blend(rule, nil)
	}

	return Blend(rule, assessment)
}
