package store

import (
	"fintrack/internal/core"
	"fintrack/internal/report"
)

func (s *Store) GetTransactionsByAccount(accountID string) []core.Transaction {
	return s.GetFilteredTransactions(core.FilterOptions{Accounts: []string{accountID}})
}

func (s *Store) GetTransactionsByCategory(categoryID string) []core.Transaction {
	return s.GetFilteredTransactions(core.FilterOptions{Categories: []string{categoryID}})
}

// GetFilteredTransactions returns the transactions matching every constraint
// in opts, in storage order.
func (s *Store) GetFilteredTransactions(opts core.FilterOptions) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTransactions(report.Filter(s.state.data.Transactions, opts))
}

// GetTotalBalance sums the balances of active accounts.
func (s *Store) GetTotalBalance() core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.TotalBalance(s.state.data.Accounts)
}

func (s *Store) GetTotalIncome(p report.Period) core.Money {
	return s.totalByType(core.Income, p)
}

func (s *Store) GetTotalExpenses(p report.Period) core.Money {
	return s.totalByType(core.Expense, p)
}

func (s *Store) totalByType(typ core.TransactionType, p report.Period) core.Money {
	since := report.PeriodStart(p, s.now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.TotalByType(s.state.data.Transactions, typ, since)
}

// GetCategorySpending sums expenses in the category. Only the month period
// restricts the range; anything else covers all time.
func (s *Store) GetCategorySpending(categoryID string, p report.Period) core.Money {
	var since core.Date
	if p == report.PeriodMonth {
		since = report.PeriodStart(p, s.now())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.CategorySpending(s.state.data.Transactions, categoryID, since)
}

// GetAccountBalance returns the stored balance, or zero for an unknown account.
func (s *Store) GetAccountBalance(accountID string) core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.data.Accounts, accountID, accID); i >= 0 {
		return s.state.data.Accounts[i].Balance
	}
	return core.Money{}
}

// Dashboard builds the landing page view at the store's current time.
func (s *Store) Dashboard() report.Dashboard {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.state.data
	out := report.BuildDashboard(d.Transactions, d.Categories, d.Accounts, d.Goals, now)
	out.Recent = cloneTransactions(out.Recent)
	return out
}

// BudgetOverview evaluates all budgets against this month's spending.
func (s *Store) BudgetOverview(byPeriod bool) report.BudgetsOverview {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.state.data
	return report.BudgetOverview(d.Budgets, d.Categories, d.Transactions, now, byPeriod)
}

// Report summarizes the transactions matching opts.
func (s *Store) Report(opts core.FilterOptions) report.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.Report(report.Filter(s.state.data.Transactions, opts), s.state.data.Categories)
}
