package scoring

import (
	"time"

	"github.com/spigell/prospectiq/internal/prospect"
)

const (
	DefaultQuotaLimit  = 60
	DefaultQuotaWindow = time.Minute

	RateLimitReason = "Rate limit exceeded. Try again later."
)

// Quota is a fixed-window call budget. It is plain state owned by the caller
// and is not safe for concurrent use.
type Quota struct {
	WindowStart time.Time
	Used        int
	Limit       int
	Window      time.Duration
}

func NewQuota() *Quota {
	return &Quota{Limit: DefaultQuotaLimit, Window: DefaultQuotaWindow}
}

// Allow consumes one call if the budget permits, starting a new window once the current one has elapsed.
func (q *Quota) Allow(now time.Time) bool {
	limit, window := q.Limit, q.Window
	if limit <= 0 {
		limit = DefaultQuotaLimit
	}
	if window <= 0 {
		window = DefaultQuotaWindow
	}

	if q.WindowStart.IsZero() || now.Sub(q.WindowStart) >= window {
		q.WindowStart = now
		q.Used = 0
	}

	if q.Used >= limit {
		return false
	}
	q.Used++
	return true
}

// ScoreGuarded runs the rule scorer when the quota allows it.
func ScoreGuarded(q *Quota, now time.Time, icp *prospect.ICP, f *prospect.Features) prospect.ScoreResult {
	if q != nil && !q.Allow(now) {
		return prospect.ScoreResult{Score: 0, Reasons: []string{RateLimitReason}}
	}
	return Score(icp, f)
}
