package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Amount     Money  `json:"value"`
}

// CategoryTotals is one row of the reports category breakdown.
type CategoryTotals struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Income     Money  `json:"income"`
	Expenses   Money  `json:"expenses"`
	Net        Money  `json:"net"`
	Count      int    `json:"count"`
}

// MonthTotals holds income and expense totals for a YYYY-MM bucket.
type MonthTotals struct {
	Month    string `json:"month"`
	Income   Money  `json:"income"`
	Expenses Money  `json:"expenses"`
	Net      Money  `json:"net"`
}

// BudgetStatus is a budget joined with its spend for the current period.
type BudgetStatus struct {
	Budget       Budget `json:"budget"`
	CategoryName string `json:"categoryName,omitempty"`
	Spent        Money  `json:"spent"`
	Remaining    Money  `json:"remaining"`
	Percentage   int    `json:"percentage"`
	IsNearLimit  bool   `json:"isNearLimit"`
	IsOverBudget bool   `json:"isOverBudget"`
}

// GoalStatus is a goal with its completion percentage.
type GoalStatus struct {
	Goal       Goal  `json:"goal"`
	Percentage int   `json:"percentage"`
	Remaining  Money `json:"remaining"`
}
