package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

// Seed is the initial set of categories and accounts a fresh store starts with.
type Seed struct {
	Categories []SeedCategory `yaml:"categories"`
	Accounts   []SeedAccount  `yaml:"accounts"`
}

type SeedCategory struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Color         string            `yaml:"color"`
	Icon          string            `yaml:"icon"`
	Type          core.CategoryType `yaml:"type"`
	Subcategories []SeedSubcategory `yaml:"subcategories"`
}

type SeedSubcategory struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type SeedAccount struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name"`
	Type     core.AccountType `yaml:"type"`
	Balance  string           `yaml:"balance"`
	Currency string           `yaml:"currency"`
	Color    string           `yaml:"color"`
	Inactive bool             `yaml:"inactive"`
}

// DefaultSeed returns the built-in categories and accounts.
func DefaultSeed() Seed {
	return Seed{
		Categories: []SeedCategory{
			{ID: "1", Name: "Food & Dining", Color: "#FF6B6B", Icon: "utensils", Type: core.CategoryExpense,
				Subcategories: []SeedSubcategory{{"1-1", "Restaurants"}, {"1-2", "Groceries"}, {"1-3", "Fast Food"}}},
			{ID: "2", Name: "Transportation", Color: "#4ECDC4", Icon: "car", Type: core.CategoryExpense,
				Subcategories: []SeedSubcategory{{"2-1", "Gas"}, {"2-2", "Public Transport"}, {"2-3", "Maintenance"}}},
			{ID: "3", Name: "Salary", Color: "#45B7D1", Icon: "dollar-sign", Type: core.CategoryIncome,
				Subcategories: []SeedSubcategory{{"3-1", "Monthly Salary"}, {"3-2", "Bonus"}, {"3-3", "Overtime"}}},
		},
		Accounts: []SeedAccount{
			{ID: "1", Name: "Main Checking", Type: core.AccountBank, Balance: "5000", Currency: "USD", Color: "#45B7D1"},
			{ID: "2", Name: "Cash Wallet", Type: core.AccountCash, Balance: "250", Currency: "USD", Color: "#96CEB4"},
		},
	}
}

// LoadSeedFile reads a YAML seed. Sections left empty fall back to the defaults.
func LoadSeedFile(path string) (Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	def := DefaultSeed()
	if len(seed.Categories) == 0 {
		seed.Categories = def.Categories
	}
	if len(seed.Accounts) == 0 {
		seed.Accounts = def.Accounts
	}
	if err := seed.Validate(); err != nil {
		return Seed{}, fmt.Errorf("seed file %s: %w", path, err)
	}
	return seed, nil
}

// Validate checks every seeded entity with the same rules used for user input.
func (s Seed) Validate() error {
	stamp := time.Time{}
	for _, c := range s.categories(stamp) {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
	}
	for _, a := range s.Accounts {
		if _, err := core.ParseSignedAmount(a.Balance); a.Balance != "" && err != nil {
			return fmt.Errorf("account %q balance: %w", a.Name, err)
		}
	}
	for _, a := range s.accounts(stamp) {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %q: %w", a.Name, err)
		}
	}
	return nil
}

func (s Seed) categories(stamp time.Time) []core.Category {
	out := make([]core.Category, 0, len(s.Categories))
	for i, c := range s.Categories {
		id := c.ID
		if id == "" {
			id = fmt.Sprint(i + 1)
		}
		subs := make([]core.Subcategory, 0, len(c.Subcategories))
		for j, sc := range c.Subcategories {
			sid := sc.ID
			if sid == "" {
				sid = fmt.Sprintf("%s-%d", id, j+1)
			}
			subs = append(subs, core.Subcategory{ID: sid, Name: sc.Name})
		}
		out = append(out, core.Category{
			ID:            id,
			Name:          c.Name,
			Color:         c.Color,
			Icon:          c.Icon,
			Type:          c.Type,
			Subcategories: subs,
			CreatedAt:     stamp,
			UpdatedAt:     stamp,
		})
	}
	return out
}

func (s Seed) accounts(stamp time.Time) []core.Account {
	out := make([]core.Account, 0, len(s.Accounts))
	for i, a := range s.Accounts {
		id := a.ID
		if id == "" {
			id = fmt.Sprint(i + 1)
		}
		balance, _ := core.ParseSignedAmount(a.Balance)
		out = append(out, core.Account{
			ID:        id,
			Name:      a.Name,
			Type:      a.Type,
			Balance:   balance,
			Currency:  a.Currency,
			Color:     a.Color,
			IsActive:  !a.Inactive,
			CreatedAt: stamp,
			UpdatedAt: stamp,
		})
	}
	return out
}
