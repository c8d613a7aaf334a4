package scoring

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/prospect"
)

func TestBlend(t *testing.T) {
	t.Parallel()

	rule := prospect.ScoreResult{Score: 71, Reasons: []string{"Country match (+20)", "Sector keyword match (+20)", "Size within range (+15)"}}

	blended := Blend(rule, &prospect.AIAssessment{Score: 90, Reasons: []string{"Boutique Shopify active", "b", "c"}})
	// 0.6*71 + 0.4*90 = 78.6
	assert.Equal(t, 79, blended.Score)
	assert.Equal(t, []string{"Country match (+20)", "Sector keyword match (+20)", "Boutique Shopify active"}, blended.Reasons)

	noReason := Blend(rule, &prospect.AIAssessment{Score: math.NaN(), Reasons: []string{""}})
	assert.Equal(t, 43, noReason.Score)
	assert.Len(t, noReason.Reasons, 2)

	offline := Blend(rule, nil)
	assert.Equal(t, 71, offline.Score)
	assert.Equal(t, []string{"Country match (+20)", "Sector keyword match (+20)", OfflineReason}, offline.Reasons)

	short := Blend(prospect.ScoreResult{Score: 10, Reasons: []string{"only"}}, nil)
	assert.Equal(t, []string{"only", OfflineReason}, short.Reasons)
}

type fakeScorer struct {
	assessment *prospect.AIAssessment
	err        error
}

func (f fakeScorer) Assess(context.Context, *prospect.ICP, *prospect.Features, string) (*prospect.AIAssessment, error) {
	return f.assessment, f.err
}

func TestBlenderFallsBackOnError(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.WarnLevel)
	b := NewBlender(fakeScorer{err: context.DeadlineExceeded}, zap.New(core))

	rule := prospect.ScoreResult{Score: 64, Reasons: []string{"a", "b", "c"}}
	result := b.Blend(context.Background(), rule, nil, nil, "")

	assert.Equal(t, 64, result.Score)
	assert.Equal(t, []string{"a", "b", OfflineReason}, result.Reasons)
	assert.Equal(t, 1, observed.FilterMessage("ai assessment failed, keeping rule score").Len())
}

func TestBlenderUsesAssessment(t *testing.T) {
	t.Parallel()

	b := NewBlender(fakeScorer{assessment: &prospect.AIAssessment{Score: 40, Reasons: []string{"IA ok"}}}, nil)
	result := b.Blend(context.Background(), prospect.ScoreResult{Score: 40}, nil, nil, "")
	assert.Equal(t, prospect.ScoreResult{Score: 40, Reasons: []string{"IA ok"}}, result)

	var nilBlender *Blender
	assert.Equal(t, 40, nilBlender.Blend(context.Background(), prospect.ScoreResult{Score: 40}, nil, nil, "").Score)
}

func TestAssessorStub(t *testing.T) {
	t.Parallel()

	assessment, err := NewAssessor(nil, nil).Assess(context.Background(), nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, &prospect.AIAssessment{
		Score:   60,
		Reasons: []string{"Pertinent secteur", "Taille adéquate", "Signal positif"},
		Labels:  []string{"stub"},
	}, assessment)
}

func TestAssessorNormalizesOutput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want prospect.AIAssessment
	}{
		{
			name: "pads reasons",
			raw:  "```json\n{\"score_ai\": 72.5, \"reasons_ai\": [\"Shopify\"], \"labels\": [\"ecommerce\", 3]}\n```",
			want: prospect.AIAssessment{Score: 73, Reasons: []string{"Shopify", missingReason, missingReason}, Labels: []string{"ecommerce", "3"}},
		},
		{
			name: "cuts reasons and clamps",
			raw:  `{"score_ai": "140", "reasons_ai": ["a","b","c","d"]}`,
			want: prospect.AIAssessment{Score: 100, Reasons: []string{"a", "b", "c"}, Labels: []string{}},
		},
		{
			name: "non numeric score",
			raw:  `{"score_ai": "élevé", "reasons_ai": "pas une liste", "labels": "x"}`,
			want: prospect.AIAssessment{Score: 0, Reasons: []string{missingReason, missingReason, missingReason}, Labels: []string{}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			completer := ai.CompleterFunc(func(_ context.Context, system, prompt string) (string, error) {
				return tc.raw, nil
			})
			got, err := NewAssessor(completer, nil).Assess(context.Background(), nil, nil, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestAssessorPrompt(t *testing.T) {
	t.Parallel()

	var gotSystem, gotPrompt string
	completer := ai.CompleterFunc(func(_ context.Context, system, prompt string) (string, error) {
		gotSystem, gotPrompt = system, prompt
		return `{"score_ai": 50}`, nil
	})

	page := strings.Repeat("é", maxPageText+100)
	_, err := NewAssessor(completer, nil).Assess(context.Background(), acmeICP(), acmeFeatures(), page)
	require.NoError(t, err)

	assert.Equal(t, "You output STRICT JSON only.", gotSystem)
	assert.True(t, strings.HasPrefix(gotPrompt, "Tu es un assistant sales.\n"))
	assert.Contains(t, gotPrompt, `"country": "FR"`)
	assert.Contains(t, gotPrompt, `"websiteUrl": "https://acme.shop"`)
	assert.True(t, strings.HasSuffix(gotPrompt, "Texte:\n"+strings.Repeat("é", maxPageText)))
}

func TestAssessorPropagatesProviderErrors(t *testing.T) {
	t.Parallel()

	providerErr := &ai.ProviderError{Provider: "openai", StatusCode: 502}
	completer := ai.CompleterFunc(func(context.Context, string, string) (string, error) {
		return "", providerErr
	})

	_, err := NewAssessor(completer, nil).Assess(context.Background(), nil, nil, "")
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*ai.ProviderError)))

	garbage := ai.CompleterFunc(func(context.Context, string, string) (string, error) {
		return "pas de json", nil
	})
	_, err = NewAssessor(garbage, nil).Assess(context.Background(), nil, nil, "")
	assert.ErrorIs(t, err, ai.ErrNoJSONObject)
}
