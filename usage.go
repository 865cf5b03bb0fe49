package fusedex

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/fusedex/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains embedding token consumption for a time period.
// Request counts and latencies are exported via Prometheus, not here.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Corpus      string
	TokensUsed  int
	Budget      BudgetStatus
}

// BudgetStatus tracks token quota state. A zero TokensLimit means no
// budget is configured and the remaining fields are zero values.
type BudgetStatus struct {
	TokensLimit     int
	TokensRemaining int
	IsExhausted     bool
	ResetsAt        time.Time
}

// Usage returns an embedding usage report for the given period. An
// unknown period falls back to total.
func (r *Retriever) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	report := r.usage.GetReport(ctx, domusage.Period(period))
	m := report.Metrics()
	b := report.Budget()

	return UsageReport{
		Period:      UsagePeriod(report.Period()),
		PeriodStart: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEnd:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Corpus:      report.Corpus(),
		TokensUsed:  m.Tokens(),
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
			ResetsAt:        time.UnixMilli(b.ResetsAt()).UTC(),
		},
	}
}
