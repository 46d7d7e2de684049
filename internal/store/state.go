package store

import (
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// SnapshotVersion is the current persisted format version.
const SnapshotVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Data holds the five entity collections that make up the user's finances.
type Data struct {
	Transactions []core.Transaction `json:"transactions"`
	Categories   []core.Category    `json:"categories"`
	Accounts     []core.Account     `json:"accounts"`
	Budgets      []core.Budget      `json:"budgets"`
	Goals        []core.Goal        `json:"goals"`
}

// Snapshot is the persisted subset of the state. Alerts, filters and the
// sidebar flag are session-only and never written.
type Snapshot struct {
	Version         int        `json:"version"`
	SavedAt         time.Time  `json:"savedAt"`
	User            *core.User `json:"user"`
	IsAuthenticated bool       `json:"isAuthenticated"`
	Theme           core.Theme `json:"theme,omitempty"`
	Data
}

// Check rejects snapshots written by a newer format. Version 0 predates
// versioning and is read as version 1.
func (s Snapshot) Check() error {
	if s.Version < 0 || s.Version > SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}
	return nil
}

// Session is the non-financial part of the state.
type Session struct {
	User            *core.User         `json:"user"`
	IsAuthenticated bool               `json:"isAuthenticated"`
	Theme           core.Theme         `json:"theme"`
	SidebarOpen     bool               `json:"sidebarOpen"`
	Filters         core.FilterOptions `json:"currentFilters"`
}

type state struct {
	session Session
	data    Data
	alerts  []core.Alert
}

func (d Data) clone() Data {
	return Data{
		Transactions: cloneTransactions(d.Transactions),
		Categories:   cloneCategories(d.Categories),
		Accounts:     append([]core.Account{}, d.Accounts...),
		Budgets:      append([]core.Budget{}, d.Budgets...),
		Goals:        append([]core.Goal{}, d.Goals...),
	}
}

func cloneTransactions(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func cloneCategories(in []core.Category) []core.Category {
	out := make([]core.Category, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	s.Filters = cloneFilters(s.Filters)
	return s
}

func cloneFilters(f core.FilterOptions) core.FilterOptions {
	if f.DateFrom != nil {
		d := *f.DateFrom
		f.DateFrom = &d
	}
	if f.DateTo != nil {
		d := *f.DateTo
		f.DateTo = &d
	}
	if f.AmountMin != nil {
		m := *f.AmountMin
		f.AmountMin = &m
	}
	if f.AmountMax != nil {
		m := *f.AmountMax
		f.AmountMax = &m
	}
	if f.Categories != nil {
		f.Categories = append([]string(nil), f.Categories...)
	}
	if f.Accounts != nil {
		f.Accounts = append([]string(nil), f.Accounts...)
	}
	return f
}

func indexByID[T any](items []T, id string, idOf func(T) string) int {
	for i, it := range items {
		if idOf(it) == id {
			return i
		}
	}
	return -1
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func txID(t core.Transaction) string { return t.ID }
func catID(c core.Category) string   { return c.ID }
func accID(a core.Account) string    { return a.ID }
func budgetID(b core.Budget) string  { return b.ID }
func goalID(g core.Goal) string      { return g.ID }
func alertID(a core.Alert) string    { return a.ID }
