package report

import (
	"time"

	"fintrack/internal/core"
)

// TrendMonths is the number of months shown by the dashboard trend.
const TrendMonths = 6

// BudgetProgress derives spend state for a budget. The percentage is not
// clamped; display layers clamp it if they need to.
func BudgetProgress(b core.Budget, spent core.Money) core.BudgetStatus {
	pct := Percentage(spent, b.Limit)
	return core.BudgetStatus{
		Budget:       b,
		Spent:        spent,
		Remaining:    b.Limit.Sub(spent),
		Percentage:   pct,
		IsNearLimit:  pct >= b.AlertThreshold,
		IsOverBudget: spent.Cents > b.Limit.Cents,
	}
}

// BudgetPeriodStart maps a budget period onto the aggregate period it is measured over.
func BudgetPeriodStart(p core.BudgetPeriod, now time.Time) core.Date {
	if p == core.BudgetYearly {
		return PeriodStart(PeriodYear, now)
	}
	return PeriodStart(PeriodMonth, now)
}

// BudgetsOverview summarizes a set of budgets against current spend.
type BudgetsOverview struct {
	Budgets         []core.BudgetStatus `json:"budgets"`
	TotalBudgeted   core.Money          `json:"totalBudgeted"`
	TotalSpent      core.Money          `json:"totalSpent"`
	OverBudgetCount int                 `json:"overBudgetCount"`
}

// BudgetOverview evaluates every budget against its category spend in the current
// month, matching the budget page. Yearly budgets use the year to date when
// byPeriod is set.
func BudgetOverview(budgets []core.Budget, categories []core.Category, txs []core.Transaction, now time.Time, byPeriod bool) BudgetsOverview {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	out := BudgetsOverview{Budgets: make([]core.BudgetStatus, 0, len(budgets))}
	for _, b := range budgets {
		since := PeriodStart(PeriodMonth, now)
		if byPeriod {
			since = BudgetPeriodStart(b.Period, now)
		}
		st := BudgetProgress(b, CategorySpending(txs, b.CategoryID, since))
		st.CategoryName = names[b.CategoryID]
		out.Budgets = append(out.Budgets, st)
		out.TotalBudgeted = out.TotalBudgeted.Add(b.Limit)
		out.TotalSpent = out.TotalSpent.Add(st.Spent)
		if st.IsOverBudget {
			out.OverBudgetCount++
		}
	}
	return out
}

// GoalProgress reports how far a goal is from its target.
func GoalProgress(g core.Goal) core.GoalStatus {
	return core.GoalStatus{
		Goal:       g,
		Percentage: Percentage(g.CurrentAmount, g.TargetAmount),
		Remaining:  g.TargetAmount.Sub(g.CurrentAmount),
	}
}

// GoalsOverview aggregates active goals.
type GoalsOverview struct {
	Active         []core.GoalStatus `json:"active"`
	Completed      int               `json:"completed"`
	TotalTarget    core.Money        `json:"totalTarget"`
	TotalCurrent   core.Money        `json:"totalCurrent"`
	OverallPercent int               `json:"overallPercent"`
}

// GoalsSummary splits goals into active progress and a completed count.
func GoalsSummary(goals []core.Goal) GoalsOverview {
	out := GoalsOverview{Active: []core.GoalStatus{}}
	for _, g := range goals {
		if g.IsCompleted {
			out.Completed++
			continue
		}
		out.Active = append(out.Active, GoalProgress(g))
		out.TotalTarget = out.TotalTarget.Add(g.TargetAmount)
		out.TotalCurrent = out.TotalCurrent.Add(g.CurrentAmount)
	}
	out.OverallPercent = Percentage(out.TotalCurrent, out.TotalTarget)
	return out
}

// Summary is the reports page payload.
type Summary struct {
	TotalIncome       core.Money            `json:"totalIncome"`
	TotalExpenses     core.Money            `json:"totalExpenses"`
	NetIncome         core.Money            `json:"netIncome"`
	CategoryBreakdown []core.CategoryTotals `json:"categoryBreakdown"`
	Monthly           []core.MonthTotals    `json:"monthly"`
	TransactionCount  int                   `json:"transactionCount"`
}

// Report summarizes an already-filtered transaction set.
func Report(txs []core.Transaction, categories []core.Category) Summary {
	income := TotalByType(txs, core.Income, core.Date{})
	expenses := TotalByType(txs, core.Expense, core.Date{})
	return Summary{
		TotalIncome:       income,
		TotalExpenses:     expenses,
		NetIncome:         income.Sub(expenses),
		CategoryBreakdown: CategoryBreakdown(txs, categories),
		Monthly:           MonthlySummary(txs),
		TransactionCount:  len(txs),
	}
}

// Dashboard is the landing page payload.
type Dashboard struct {
	TotalBalance    core.Money            `json:"totalBalance"`
	MonthlyIncome   core.Money            `json:"monthlyIncome"`
	MonthlyExpenses core.Money            `json:"monthlyExpenses"`
	MonthlyNet      core.Money            `json:"monthlyNet"`
	Recent          []core.Transaction    `json:"recentTransactions"`
	CategorySpend   []core.CategoryAmount `json:"categorySpending"`
	Trend           []core.MonthTotals    `json:"monthlyTrend"`
	Goals           []core.GoalStatus     `json:"activeGoals"`
}

// BuildDashboard assembles the dashboard from raw collections.
func BuildDashboard(txs []core.Transaction, categories []core.Category, accounts []core.Account, goals []core.Goal, now time.Time) Dashboard {
	since := PeriodStart(PeriodMonth, now)
	income := TotalByType(txs, core.Income, since)
	expenses := TotalByType(txs, core.Expense, since)

	active := GoalsSummary(goals).Active
	if len(active) > 3 {
		active = active[:3]
	}

	return Dashboard{
		TotalBalance:    TotalBalance(accounts),
		MonthlyIncome:   income,
		MonthlyExpenses: expenses,
		MonthlyNet:      income.Sub(expenses),
		Recent:          RecentTransactions(txs, 5),
		CategorySpend:   CategorySpendingChart(txs, categories),
		Trend:           MonthlyTrend(txs, now, TrendMonths),
		Goals:           active,
	}
}
