package core

import (
	"errors"
	"time"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
	CategoryBoth    CategoryType = "both"
)

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
)

const (
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

const (
	AlertBudgetExceeded       AlertType = "budget_exceeded"
	AlertGoalReminder         AlertType = "goal_reminder"
	AlertBillDue              AlertType = "bill_due"
	AlertRecurringTransaction AlertType = "recurring_transaction"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type (
	RepetitionTypes string
	TransactionType string
	CategoryType    string
	AccountType     string
	BudgetPeriod    string
	AlertType       string
	Theme           string

	Transaction struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
		Category    string          `json:"category"`
		Subcategory string          `json:"subcategory,omitempty"`
		Type        TransactionType `json:"type"`
		Account     string          `json:"account"`
		Recurrence  RepetitionTypes `json:"recurringFrequency,omitempty"`
		Tags        []string        `json:"tags,omitempty"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	Subcategory struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		BudgetLimit *Money `json:"budgetLimit,omitempty"`
	}

	Category struct {
		ID            string        `json:"id"`
		Name          string        `json:"name"`
		Color         string        `json:"color"`
		Icon          string        `json:"icon"`
		Type          CategoryType  `json:"type"`
		Subcategories []Subcategory `json:"subcategories"`
		BudgetLimit   *Money        `json:"budgetLimit,omitempty"`
		CreatedAt     time.Time     `json:"createdAt"`
		UpdatedAt     time.Time     `json:"updatedAt"`
	}

	Account struct {
		ID        string      `json:"id"`
		Name      string      `json:"name"`
		Type      AccountType `json:"type"`
		Balance   Money       `json:"balance"`
		Currency  string      `json:"currency"`
		Color     string      `json:"color"`
		IsActive  bool        `json:"isActive"`
		CreatedAt time.Time   `json:"createdAt"`
		UpdatedAt time.Time   `json:"updatedAt"`
	}

	Budget struct {
		ID             string       `json:"id"`
		CategoryID     string       `json:"categoryId"`
		SubcategoryID  string       `json:"subcategoryId,omitempty"`
		Limit          Money        `json:"limit"`
		Period         BudgetPeriod `json:"period"`
		AlertThreshold int          `json:"alertThreshold"` // percentage, 0-100
		CreatedAt      time.Time    `json:"createdAt"`
		UpdatedAt      time.Time    `json:"updatedAt"`
	}

	Goal struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		Description   string    `json:"description,omitempty"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		TargetDate    Date      `json:"targetDate"`
		Category      string    `json:"category"` // free text label
		IsCompleted   bool      `json:"isCompleted"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}

	Alert struct {
		ID        string         `json:"id"`
		Type      AlertType      `json:"type"`
		Title     string         `json:"title"`
		Message   string         `json:"message"`
		IsRead    bool           `json:"isRead"`
		Data      map[string]any `json:"data,omitempty"`
		CreatedAt time.Time      `json:"createdAt"`
	}

	User struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		Avatar    string    `json:"avatar,omitempty"`
		Currency  string    `json:"currency"`
		Theme     Theme     `json:"theme"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// FilterOptions parameterizes a transaction query. It is never stored.
	// Zero values and nil pointers impose no constraint.
	FilterOptions struct {
		DateFrom   *Date           `json:"dateFrom,omitempty"`
		DateTo     *Date           `json:"dateTo,omitempty"`
		Type       TransactionType `json:"type,omitempty"` // income, expense or "all"
		Categories []string        `json:"categories,omitempty"`
		Accounts   []string        `json:"accounts,omitempty"`
		AmountMin  *Money          `json:"amountMin,omitempty"`
		AmountMax  *Money          `json:"amountMax,omitempty"`
		Search     string          `json:"search,omitempty"`
	}
)

// FilterAllTypes is the FilterOptions.Type value that matches both income and expense.
const FilterAllTypes TransactionType = "all"

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
)

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

// Sign returns +1 for income and -1 for expense.
func (t TransactionType) Sign() int64 {
	if t == Income {
		return 1
	}
	return -1
}

func (r RepetitionTypes) IsValid() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (c CategoryType) IsValid() bool {
	switch c {
	case CategoryIncome, CategoryExpense, CategoryBoth:
		return true
	}
	return false
}

func (a AccountType) IsValid() bool {
	switch a {
	case AccountCash, AccountBank, AccountCredit, AccountInvestment:
		return true
	}
	return false
}

func (p BudgetPeriod) IsValid() bool {
	return p == BudgetMonthly || p == BudgetYearly
}

func (a AlertType) IsValid() bool {
	switch a {
	case AlertBudgetExceeded, AlertGoalReminder, AlertBillDue, AlertRecurringTransaction:
		return true
	}
	return false
}

// Posting returns the signed balance change this transaction applies to its account.
func (t Transaction) Posting() Money {
	return Money{Cents: t.Type.Sign() * t.Amount.Cents}
}

// IsRecurring reports whether the transaction carries a recurrence descriptor.
func (t Transaction) IsRecurring() bool {
	return t.Recurrence != ""
}

// Clone returns a deep copy so callers cannot alias store-owned slices.
func (t Transaction) Clone() Transaction {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	return t
}

func (c Category) Clone() Category {
	if c.Subcategories != nil {
		subs := make([]Subcategory, len(c.Subcategories))
		for i, s := range c.Subcategories {
			if s.BudgetLimit != nil {
				limit := *s.BudgetLimit
				s.BudgetLimit = &limit
			}
			subs[i] = s
		}
		c.Subcategories = subs
	}
	if c.BudgetLimit != nil {
		limit := *c.BudgetLimit
		c.BudgetLimit = &limit
	}
	return c
}

func (a Alert) Clone() Alert {
	if a.Data != nil {
		data := make(map[string]any, len(a.Data))
		for k, v := range a.Data {
			data[k] = v
		}
		a.Data = data
	}
	return a
}
