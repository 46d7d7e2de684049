// Package report computes derived aggregates over store collections.
//
// Every function is a pure pass over its inputs; nothing is cached, so callers
// recompute on each read.
package report

import (
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Period scopes an aggregate to the current calendar month or year.
type Period string

const (
	PeriodAll   Period = ""
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps free-form input to a Period; anything unknown means no restriction.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodMonth:
		return PeriodMonth
	case PeriodYear:
		return PeriodYear
	}
	return PeriodAll
}

// PeriodStart returns the first day included by p, or the zero Date for PeriodAll.
func PeriodStart(p Period, now time.Time) core.Date {
	switch p {
	case PeriodMonth:
		return core.NewDate(now.Year(), int(now.Month()), 1)
	case PeriodYear:
		return core.NewDate(now.Year(), 1, 1)
	}
	return core.Date{}
}

// inPeriod reports whether d is on or after since. A zero since admits everything.
func inPeriod(d, since core.Date) bool {
	return since.IsZero() || !d.Before(since)
}

// TotalByType sums amounts of transactions of type typ dated on or after since.
func TotalByType(txs []core.Transaction, typ core.TransactionType, since core.Date) core.Money {
	var total core.Money
	for _, t := range txs {
		if t.Type == typ && inPeriod(t.Date, since) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// CategorySpending sums expense amounts for categoryID dated on or after since.
func CategorySpending(txs []core.Transaction, categoryID string, since core.Date) core.Money {
	var total core.Money
	for _, t := range txs {
		if t.Category == categoryID && t.Type == core.Expense && inPeriod(t.Date, since) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// TotalBalance sums the balances of active accounts only.
func TotalBalance(accounts []core.Account) core.Money {
	var total core.Money
	for _, a := range accounts {
		if a.IsActive {
			total = total.Add(a.Balance)
		}
	}
	return total
}

// Filter applies opts in the documented order and preserves input order.
func Filter(txs []core.Transaction, opts core.FilterOptions) []core.Transaction {
	search := strings.ToLower(opts.Search)
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if opts.DateFrom != nil && !opts.DateFrom.IsZero() && t.Date.Before(*opts.DateFrom) {
			continue
		}
		if opts.DateTo != nil && !opts.DateTo.IsZero() && t.Date.After(*opts.DateTo) {
			continue
		}
		if opts.Type != "" && opts.Type != core.FilterAllTypes && t.Type != opts.Type {
			continue
		}
		if len(opts.Categories) > 0 && !contains(opts.Categories, t.Category) {
			continue
		}
		if len(opts.Accounts) > 0 && !contains(opts.Accounts, t.Account) {
			continue
		}
		if opts.AmountMin != nil && t.Amount.Cents < opts.AmountMin.Cents {
			continue
		}
		if opts.AmountMax != nil && t.Amount.Cents > opts.AmountMax.Cents {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Percentage returns value/total*100 rounded half-up; zero when total is zero.
func Percentage(value, total core.Money) int {
	if total.Cents == 0 {
		return 0
	}
	num := value.Cents * 100
	den := total.Cents
	if den < 0 {
		num, den = -num, -den
	}
	if num >= 0 {
		return int((2*num + den) / (2 * den))
	}
	return -int((-2*num + den) / (2 * den))
}

// RecentTransactions returns up to n transactions, newest date first.
func RecentTransactions(txs []core.Transaction, n int) []core.Transaction {
	sorted := append([]core.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// CategorySpendingChart totals expenses per category, dropping empty categories.
func CategorySpendingChart(txs []core.Transaction, categories []core.Category) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(categories))
	for _, c := range categories {
		spent := CategorySpending(txs, c.ID, core.Date{})
		if spent.Cents > 0 {
			out = append(out, core.CategoryAmount{CategoryID: c.ID, Name: c.Name, Color: c.Color, Amount: spent})
		}
	}
	return out
}

// CategoryBreakdown reports per-category income, expenses and count,
// omitting categories without transactions.
func CategoryBreakdown(txs []core.Transaction, categories []core.Category) []core.CategoryTotals {
	out := make([]core.CategoryTotals, 0, len(categories))
	for _, c := range categories {
		row := core.CategoryTotals{CategoryID: c.ID, Name: c.Name}
		for _, t := range txs {
			if t.Category != c.ID {
				continue
			}
			row.Count++
			if t.Type == core.Income {
				row.Income = row.Income.Add(t.Amount)
			} else {
				row.Expenses = row.Expenses.Add(t.Amount)
			}
		}
		if row.Count == 0 {
			continue
		}
		row.Net = row.Income.Sub(row.Expenses)
		out = append(out, row)
	}
	return out
}

// MonthlyTrend returns the last months calendar months ending with now's month,
// oldest first, including months without activity.
func MonthlyTrend(txs []core.Transaction, now time.Time, months int) []core.MonthTotals {
	if months <= 0 {
		return nil
	}
	out := make([]core.MonthTotals, 0, months)
	for i := months - 1; i >= 0; i-- {
		first := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		key := first.Format("2006-01")
		row := core.MonthTotals{Month: key}
		for _, t := range txs {
			if t.Date.MonthKey() != key {
				continue
			}
			if t.Type == core.Income {
				row.Income = row.Income.Add(t.Amount)
			} else {
				row.Expenses = row.Expenses.Add(t.Amount)
			}
		}
		row.Net = row.Income.Sub(row.Expenses)
		out = append(out, row)
	}
	return out
}

// MonthlySummary buckets transactions by YYYY-MM, sorted ascending.
func MonthlySummary(txs []core.Transaction) []core.MonthTotals {
	buckets := map[string]*core.MonthTotals{}
	for _, t := range txs {
		key := t.Date.MonthKey()
		row, ok := buckets[key]
		if !ok {
			row = &core.MonthTotals{Month: key}
			buckets[key] = row
		}
		if t.Type == core.Income {
			row.Income = row.Income.Add(t.Amount)
		} else {
			row.Expenses = row.Expenses.Add(t.Amount)
		}
	}
	out := make([]core.MonthTotals, 0, len(buckets))
	for _, row := range buckets {
		row.Net = row.Income.Sub(row.Expenses)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
