package usage

import "testing"

func TestNewReport(t *testing.T) {
	m := NewMetrics(1542, 384200)
	b := NewBudget(1000000, 615800, false, 1700000000000)

	r := NewReport(PeriodMonth, 1700000000, 1702600000, "code-chunks", m, b)

	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000 {
		t.Errorf("PeriodStart() = %d", r.PeriodStart())
	}
	if r.PeriodEnd() != 1702600000 {
		t.Errorf("PeriodEnd() = %d", r.PeriodEnd())
	}
	if r.Corpus() != "code-chunks" {
		t.Errorf("Corpus() = %q", r.Corpus())
	}
	if r.Metrics().EmbeddingRequests() != 1542 {
		t.Errorf("Metrics().EmbeddingRequests() = %d", r.Metrics().EmbeddingRequests())
	}
	if r.Metrics().Tokens() != 384200 {
		t.Errorf("Metrics().Tokens() = %d", r.Metrics().Tokens())
	}
	if r.Budget().TokensLimit() != 1000000 {
		t.Errorf("Budget().TokensLimit() = %d", r.Budget().TokensLimit())
	}
}

func TestBudget_Exhausted(t *testing.T) {
	b := NewBudget(1000, 0, true, 0)
	if !b.IsExhausted() {
		t.Error("IsExhausted() = false, want true")
	}
	if b.TokensRemaining() != 0 {
		t.Errorf("TokensRemaining() = %d", b.TokensRemaining())
	}
}

func TestPeriod_IsValid(t *testing.T) {
	for _, p := range []Period{PeriodDay, PeriodMonth, PeriodTotal} {
		if !p.IsValid() {
			t.Errorf("%q.IsValid() = false", p)
		}
	}
	for _, p := range []Period{"", "week", "DAY"} {
		if p.IsValid() {
			t.Errorf("%q.IsValid() = true", p)
		}
	}
}

func TestPeriodConstants(t *testing.T) {
	if PeriodDay != "day" {
		t.Errorf("PeriodDay = %q", PeriodDay)
	}
	if PeriodMonth != "month" {
		t.Errorf("PeriodMonth = %q", PeriodMonth)
	}
	if PeriodTotal != "total" {
		t.Errorf("PeriodTotal = %q", PeriodTotal)
	}
}
