// Package usage holds embedding API consumption reports: how many calls
// and tokens a period consumed and how much budget remains.
package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// IsValid checks if the period is one of the supported values.
func (p Period) IsValid() bool {
	return p == PeriodDay || p == PeriodMonth || p == PeriodTotal
}

// Metrics holds embedding API consumption for a time period.
type Metrics struct {
	embeddingRequests int
	tokens            int
}

// NewMetrics creates a Metrics snapshot.
func NewMetrics(requests, tokens int) Metrics {
	return Metrics{embeddingRequests: requests, tokens: tokens}
}

// EmbeddingRequests returns the number of embedding API calls.
func (m Metrics) EmbeddingRequests() int { return m.embeddingRequests }

// Tokens returns the total tokens consumed.
func (m Metrics) Tokens() int { return m.tokens }

// Budget tracks embedding token budget state.
type Budget struct {
	tokensLimit     int
	tokensRemaining int
	isExhausted     bool
	resetsAt        int64 // unix millis
}

// NewBudget creates a Budget snapshot.
func NewBudget(limit, remaining int, isExhausted bool, resetsAt int64) Budget {
	return Budget{
		tokensLimit:     limit,
		tokensRemaining: remaining,
		isExhausted:     isExhausted,
		resetsAt:        resetsAt,
	}
}

// TokensLimit returns the token cap (0 = unlimited).
func (b Budget) TokensLimit() int { return b.tokensLimit }

// TokensRemaining returns tokens left.
func (b Budget) TokensRemaining() int { return b.tokensRemaining }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return b.isExhausted }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }

// Report is an embedding usage report for a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	corpus      string
	metrics     Metrics
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, corpus string, m Metrics, b Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		corpus:      corpus,
		metrics:     m,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Corpus returns the corpus the report covers.
func (r *Report) Corpus() string { return r.corpus }

// Metrics returns the usage metrics.
func (r *Report) Metrics() Metrics { return r.metrics }

// Budget returns the budget status.
func (r *Report) Budget() Budget { return r.budget }
