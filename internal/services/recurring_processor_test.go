package services

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func TestRecurringSeries(t *testing.T) {
	txs := []core.Transaction{
		tx("Rent", 120000, core.NewDate(2025, 1, 5), "1", "1", core.Monthly),
		tx("rent ", 120000, core.NewDate(2025, 2, 5), "1", "1", core.Monthly),
		tx("Rent", 120000, core.NewDate(2025, 2, 5), "1", "2", core.Monthly),
		tx("Coffee", 300, core.NewDate(2025, 3, 1), "1", "1", ""),
	}
	series := RecurringSeries(txs)
	if len(series) != 2 {
		t.Fatalf("RecurringSeries() = %d series, want 2", len(series))
	}
	first := series[0]
	if first.Key != "rent|1|monthly" || first.First != core.NewDate(2025, 1, 5) || first.Latest.Date != core.NewDate(2025, 2, 5) {
		t.Errorf("series[0] = %+v", first)
	}
}

func TestRecurringProcessor_Process(t *testing.T) {
	s := newTestStore()
	alerts := NewAlertService(s, nil, nil)
	p := NewRecurringProcessor(s, alerts, nil)

	s.AddTransactions([]core.Transaction{
		tx("Rent", 120000, core.NewDate(2025, 1, 5), "1", "1", core.Monthly),
		tx("Rent", 120000, core.NewDate(2025, 2, 5), "1", "1", core.Monthly),
		tx("Gym", 2500, core.NewDate(2025, 3, 12), "1", "1", core.Weekly),
		tx("Streaming", 1299, core.NewDate(2025, 3, 1), "1", "1", core.Monthly),
		tx("Coffee", 300, core.NewDate(2025, 1, 1), "1", "1", ""),
	})
	ctx := context.Background()

	n, err := p.Process(ctx, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("Process() raised %d, want 1", n)
	}
	a := s.Alerts()[0]
	if a.Type != core.AlertRecurringTransaction || a.Data["dueDate"] != "2025-03-05" {
		t.Errorf("alert = %+v", a)
	}
	if !containsAll(a.Message, "Rent", "monthly", "2025-03-05") {
		t.Errorf("Message = %q", a.Message)
	}

	if n, _ := p.Process(ctx, fixedNow); n != 0 {
		t.Errorf("second Process() raised %d, want 0", n)
	}

	// A week later the gym is due as well.
	if n, _ := p.Process(ctx, fixedNow.AddDate(0, 0, 7)); n != 1 {
		t.Errorf("Process() a week later raised %d, want 1", n)
	}

	if len(s.Transactions()) != 5 {
		t.Error("Process must never post transactions")
	}
}

func TestRecurringProcessor_NotInitialized(t *testing.T) {
	p := &RecurringProcessor{}
	if _, err := p.Process(context.Background(), fixedNow); err == nil {
		t.Error("Process() on an empty processor should fail")
	}
}
