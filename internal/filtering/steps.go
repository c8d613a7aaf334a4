package filtering

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/prospectiq/internal/logger"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/scoring"
)

const defaultConcurrency = 4

type quotaFilter struct {
	disabled bool
	reason   string
}

// NewQuota creates the step that drops prospects once the scoring quota is exhausted.
func NewQuota() Filter {
	return &quotaFilter{}
}

func (f *quotaFilter) Name() string { return "quota" }

func (f *quotaFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *quotaFilter) IsEnabled() bool { return !f.disabled }

func (f *quotaFilter) Validate(*Config) error { return nil }

func (f *quotaFilter) Apply(_ context.Context, deps Deps, p *prospect.Prospects) (*prospect.Prospects, Step, error) {
	initial := p.Len()
	if deps.Quota == nil {
		return p, Step{Initial: initial, Left: initial}, nil
	}

	excluded := p.Keep(func(*prospect.Prospect) bool {
		return deps.Quota.Allow(deps.now())
	})
	if len(excluded) > 0 {
		deps.Logger.Warn(scoring.RateLimitReason,
			zap.Strings("excluded_prospects", excluded),
			zap.Int("limit", deps.Quota.Limit),
			zap.Int("prospects_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *quotaFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type rulesFilter struct {
	icp     prospect.ICP
	profile *prospect.CompiledProfile
}

// NewRules creates the step that scores every prospect with the rule scorer,
// or with the profile-weighted scorer when a compiled profile is configured.
func NewRules() Filter {
	return &rulesFilter{}
}

func (f *rulesFilter) Name() string { return "rules" }

func (f *rulesFilter) Disable(string) {}

func (f *rulesFilter) IsEnabled() bool { return true }

func (f *rulesFilter) Validate(cfg *Config) error {
	f.icp, f.profile = prospect.ICP{}, nil
	if cfg == nil {
		return nil
	}
	if cfg.ICP != nil {
		f.icp = *cfg.ICP
	}
	f.profile = cfg.Profile
	return nil
}

func (f *rulesFilter) Apply(_ context.Context, deps Deps, p *prospect.Prospects) (*prospect.Prospects, Step, error) {
	for _, item := range p.Items {
		var result prospect.ScoreResult
		if f.profile != nil {
			result = scoring.ScoreProfile(*f.profile, &item.Features)
		} else {
			result = scoring.Score(&f.icp, &item.Features)
		}
		item.Rule = &result
		final := result
		item.Result = &final

		deps.Logger.Debug("rule score",
			append(logger.ProspectFields(item.ID, item.Name), zap.Int("score", result.Score))...,
		)
	}
	return p, Step{Initial: p.Len(), Left: p.Len()}, nil
}

func (f *rulesFilter) Status() Status {
	details := map[string]string{"mode": "icp"}
	if f.profile != nil {
		details["mode"] = "profile"
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type aiBlendFilter struct {
	disabled    bool
	reason      string
	icp         prospect.ICP
	concurrency int
}

// NewAIBlend creates the step that blends an AI assessment into each rule score.
// Failed assessments keep the rule score and record the error on the prospect.
func NewAIBlend() Filter {
	return &aiBlendFilter{}
}

func (f *aiBlendFilter) Name() string { return "ai_blend" }

func (f *aiBlendFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *aiBlendFilter) IsEnabled() bool { return !f.disabled }

func (f *aiBlendFilter) Validate(cfg *Config) error {
	f.icp = prospect.ICP{}
	f.concurrency = defaultConcurrency
	if cfg == nil {
		return nil
	}
	if cfg.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	if cfg.Concurrency > 0 {
		f.concurrency = cfg.Concurrency
	}
	switch {
	case cfg.Profile != nil:
		f.icp = cfg.Profile.ICP()
	case cfg.ICP != nil:
		f.icp = *cfg.ICP
	}
	return nil
}

func (f *aiBlendFilter) Apply(ctx context.Context, deps Deps, p *prospect.Prospects) (*prospect.Prospects, Step, error) {
	initial := p.Len()
	if deps.Scorer == nil {
		deps.Logger.Info("ai scorer is not configured; skipping ai_blend step")
		return p, Step{Initial: initial, Left: initial}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, item := range p.Items {
		g.Go(func() error {
			f.blend(gctx, deps, item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p, Step{}, err
	}

	return p, Step{Initial: initial, Left: p.Len()}, nil
}

func (f *aiBlendFilter) blend(ctx context.Context, deps Deps, item *prospect.Prospect) {
	rule := prospect.ScoreResult{}
	if item.Rule != nil {
		rule = *item.Rule
	}
	log := deps.Logger.With(logger.ProspectFields(item.ID, item.Name)...)

	assessment, err := deps.Scorer.Assess(ctx, &f.icp, &item.Features, item.PageText)
	if err != nil {
		log.Warn("AI assessment failed, keeping rule score", zap.Error(err))
		item.Error = err.Error()
		result := scoring.Blend(rule, nil)
		item.Result = &result
		return
	}

	result := scoring.Blend(rule, assessment)
	item.AI = assessment
	item.Result = &result
	log.Info("prospect scored",
		zap.Int("rule_score", rule.Score),
		zap.Float64("ai_score", assessment.Score),
		zap.Int("score", result.Score),
	)
}

func (f *aiBlendFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"concurrency": strconv.Itoa(f.concurrency)},
	}
}

type minScoreFilter struct {
	min int
}

// NewMinScore creates the step that drops prospects scoring under the configured minimum.
func NewMinScore() Filter {
	return &minScoreFilter{}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Disable(string) {}

func (f *minScoreFilter) IsEnabled() bool { return true }

func (f *minScoreFilter) Validate(cfg *Config) error {
	f.min = 0
	if cfg == nil {
		return nil
	}
	if cfg.MinScore < 0 || cfg.MinScore > 100 {
		return errors.New("minimum score must be within [0,100]")
	}
	f.min = cfg.MinScore
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, deps Deps, p *prospect.Prospects) (*prospect.Prospects, Step, error) {
	initial := p.Len()
	if f.min == 0 {
		return p, Step{Initial: initial, Left: initial}, nil
	}

	excluded := p.Keep(func(item *prospect.Prospect) bool {
		return item.Result != nil && item.Result.Score >= f.min
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding prospects under the minimum score",
			zap.Int("min_score", f.min),
			zap.Strings("excluded_prospects", excluded),
			zap.Int("prospects_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true, Details: map[string]string{"min_score": strconv.Itoa(f.min)}}
}
