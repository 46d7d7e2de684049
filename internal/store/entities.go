package store

import (
	"fintrack/internal/core"
)

type CategoryPatch struct {
	Name          *string             `json:"name,omitempty"`
	Color         *string             `json:"color,omitempty"`
	Icon          *string             `json:"icon,omitempty"`
	Type          *core.CategoryType  `json:"type,omitempty"`
	Subcategories *[]core.Subcategory `json:"subcategories,omitempty"`
	BudgetLimit   *core.Money         `json:"budgetLimit,omitempty"`
}

func (p CategoryPatch) Apply(c core.Category) core.Category {
	c = c.Clone()
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Subcategories != nil {
		c.Subcategories = core.Category{Subcategories: *p.Subcategories}.Clone().Subcategories
	}
	if p.BudgetLimit != nil {
		limit := *p.BudgetLimit
		c.BudgetLimit = &limit
	}
	return c
}

type AccountPatch struct {
	Name     *string           `json:"name,omitempty"`
	Type     *core.AccountType `json:"type,omitempty"`
	Balance  *core.Money       `json:"balance,omitempty"`
	Currency *string           `json:"currency,omitempty"`
	Color    *string           `json:"color,omitempty"`
	IsActive *bool             `json:"isActive,omitempty"`
}

func (p AccountPatch) Apply(a core.Account) core.Account {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.Currency != nil {
		a.Currency = *p.Currency
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	return a
}

type BudgetPatch struct {
	CategoryID     *string            `json:"categoryId,omitempty"`
	SubcategoryID  *string            `json:"subcategoryId,omitempty"`
	Limit          *core.Money        `json:"limit,omitempty"`
	Period         *core.BudgetPeriod `json:"period,omitempty"`
	AlertThreshold *int               `json:"alertThreshold,omitempty"`
}

func (p BudgetPatch) Apply(b core.Budget) core.Budget {
	if p.CategoryID != nil {
		b.CategoryID = *p.CategoryID
	}
	if p.SubcategoryID != nil {
		b.SubcategoryID = *p.SubcategoryID
	}
	if p.Limit != nil {
		b.Limit = *p.Limit
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	if p.AlertThreshold != nil {
		b.AlertThreshold = *p.AlertThreshold
	}
	return b
}

type GoalPatch struct {
	Name          *string     `json:"name,omitempty"`
	Description   *string     `json:"description,omitempty"`
	TargetAmount  *core.Money `json:"targetAmount,omitempty"`
	CurrentAmount *core.Money `json:"currentAmount,omitempty"`
	TargetDate    *core.Date  `json:"targetDate,omitempty"`
	Category      *string     `json:"category,omitempty"`
	IsCompleted   *bool       `json:"isCompleted,omitempty"`
}

func (p GoalPatch) Apply(g core.Goal) core.Goal {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.TargetDate != nil {
		g.TargetDate = *p.TargetDate
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.IsCompleted != nil {
		g.IsCompleted = *p.IsCompleted
	}
	return g
}

// AddCategory stores c under a fresh id. Subcategories without an id get one.
func (s *Store) AddCategory(c core.Category) core.Category {
	s.mu.Lock()
	now := s.now()
	c = c.Clone()
	c.ID = s.newID(takenIn(s.state.data.Categories, catID))
	s.fillSubcategoryIDs(&c)
	c.CreatedAt, c.UpdatedAt = now, now
	s.state.data.Categories = append(append([]core.Category{}, s.state.data.Categories...), c)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityCategory, Op: OpAdd, ID: c.ID, Persistent: true})
	return c.Clone()
}

func (s *Store) UpdateCategory(id string, p CategoryPatch) (core.Category, error) {
	s.mu.Lock()
	i := indexByID(s.state.data.Categories, id, catID)
	if i < 0 {
		s.mu.Unlock()
		return core.Category{}, s.notFound(EntityCategory, id)
	}
	old := s.state.data.Categories[i]
	c := p.Apply(old)
	c.ID, c.CreatedAt, c.UpdatedAt = old.ID, old.CreatedAt, s.now()
	s.fillSubcategoryIDs(&c)
	cats := append([]core.Category{}, s.state.data.Categories...)
	cats[i] = c
	s.state.data.Categories = cats
	s.mu.Unlock()

	s.notify(Change{Entity: EntityCategory, Op: OpUpdate, ID: id, Persistent: true})
	return c.Clone(), nil
}

// DeleteCategory removes the category. Transactions and budgets that
// reference it are left alone.
func (s *Store) DeleteCategory(id string) error {
	s.mu.Lock()
	i := indexByID(s.state.data.Categories, id, catID)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(EntityCategory, id)
	}
	s.state.data.Categories = removeAt(s.state.data.Categories, i)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityCategory, Op: OpDelete, ID: id, Persistent: true})
	return nil
}

func (s *Store) Category(id string) (core.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.data.Categories, id, catID); i >= 0 {
		return s.state.data.Categories[i].Clone(), true
	}
	return core.Category{}, false
}

func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCategories(s.state.data.Categories)
}

func (s *Store) fillSubcategoryIDs(c *core.Category) {
	subs := c.Subcategories
	for i := range subs {
		if subs[i].ID == "" {
			subs[i].ID = s.newID(takenIn(subs, func(sc core.Subcategory) string { return sc.ID }))
		}
	}
}

func (s *Store) AddAccount(a core.Account) core.Account {
	s.mu.Lock()
	now := s.now()
	a.ID = s.newID(takenIn(s.state.data.Accounts, accID))
	a.CreatedAt, a.UpdatedAt = now, now
	s.state.data.Accounts = append(append([]core.Account{}, s.state.data.Accounts...), a)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityAccount, Op: OpAdd, ID: a.ID, Persistent: true})
	return a
}

// UpdateAccount merges p into the account. Setting the balance directly is
// allowed and does not create a transaction.
func (s *Store) UpdateAccount(id string, p AccountPatch) (core.Account, error) {
	s.mu.Lock()
	i := indexByID(s.state.data.Accounts, id, accID)
	if i < 0 {
		s.mu.Unlock()
		return core.Account{}, s.notFound(EntityAccount, id)
	}
	old := s.state.data.Accounts[i]
	a := p.Apply(old)
	a.ID, a.CreatedAt, a.UpdatedAt = old.ID, old.CreatedAt, s.now()
	accounts := append([]core.Account{}, s.state.data.Accounts...)
	accounts[i] = a
	s.state.data.Accounts = accounts
	s.mu.Unlock()

	s.notify(Change{Entity: EntityAccount, Op: OpUpdate, ID: id, Persistent: true})
	return a, nil
}

// DeleteAccount removes the account; its transactions stay in place.
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	i := indexByID(s.state.data.Accounts, id, accID)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(EntityAccount, id)
	}
	s.state.data.Accounts = removeAt(s.state.data.Accounts, i)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityAccount, Op: OpDelete, ID: id, Persistent: true})
	return nil
}

func (s *Store) Account(id string) (core.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.data.Accounts, id, accID); i >= 0 {
		return s.state.data.Accounts[i], true
	}
	return core.Account{}, false
}

func (s *Store) Accounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Account{}, s.state.data.Accounts...)
}

func (s *Store) AddBudget(b core.Budget) core.Budget {
	s.mu.Lock()
	now := s.now()
	b.ID = s.newID(takenIn(s.state.data.Budgets, budgetID))
	b.CreatedAt, b.UpdatedAt = now, now
	s.state.data.Budgets = append(append([]core.Budget{}, s.state.data.Budgets...), b)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityBudget, Op: OpAdd, ID: b.ID, Persistent: true})
	return b
}

func (s *Store) UpdateBudget(id string, p BudgetPatch) (core.Budget, error) {
	s.mu.Lock()
	i := indexByID(s.state.data.Budgets, id, budgetID)
	if i < 0 {
		s.mu.Unlock()
		return core.Budget{}, s.notFound(EntityBudget, id)
	}
	old := s.state.data.Budgets[i]
	b := p.Apply(old)
	b.ID, b.CreatedAt, b.UpdatedAt = old.ID, old.CreatedAt, s.now()
	budgets := append([]core.Budget{}, s.state.data.Budgets...)
	budgets[i] = b
	s.state.data.Budgets = budgets
	s.mu.Unlock()

	s.notify(Change{Entity: EntityBudget, Op: OpUpdate, ID: id, Persistent: true})
	return b, nil
}

func (s *Store) DeleteBudget(id string) error {
	s.mu.Lock()
	i := indexByID(s.state.data.Budgets, id, budgetID)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(EntityBudget, id)
	}
	s.state.data.Budgets = removeAt(s.state.data.Budgets, i)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityBudget, Op: OpDelete, ID: id, Persistent: true})
	return nil
}

func (s *Store) Budget(id string) (core.Budget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.data.Budgets, id, budgetID); i >= 0 {
		return s.state.data.Budgets[i], true
	}
	return core.Budget{}, false
}

func (s *Store) Budgets() []core.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Budget{}, s.state.data.Budgets...)
}

func (s *Store) AddGoal(g core.Goal) core.Goal {
	s.mu.Lock()
	now := s.now()
	g.ID = s.newID(takenIn(s.state.data.Goals, goalID))
	g.CreatedAt, g.UpdatedAt = now, now
	s.state.data.Goals = append(append([]core.Goal{}, s.state.data.Goals...), g)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityGoal, Op: OpAdd, ID: g.ID, Persistent: true})
	return g
}

func (s *Store) UpdateGoal(id string, p GoalPatch) (core.Goal, error) {
	s.mu.Lock()
	i := indexByID(s.state.data.Goals, id, goalID)
	if i < 0 {
		s.mu.Unlock()
		return core.Goal{}, s.notFound(EntityGoal, id)
	}
	old := s.state.data.Goals[i]
	g := p.Apply(old)
	g.ID, g.CreatedAt, g.UpdatedAt = old.ID, old.CreatedAt, s.now()
	goals := append([]core.Goal{}, s.state.data.Goals...)
	goals[i] = g
	s.state.data.Goals = goals
	s.mu.Unlock()

	s.notify(Change{Entity: EntityGoal, Op: OpUpdate, ID: id, Persistent: true})
	return g, nil
}

func (s *Store) DeleteGoal(id string) error {
	s.mu.Lock()
	i := indexByID(s.state.data.Goals, id, goalID)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(EntityGoal, id)
	}
	s.state.data.Goals = removeAt(s.state.data.Goals, i)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityGoal, Op: OpDelete, ID: id, Persistent: true})
	return nil
}

func (s *Store) Goal(id string) (core.Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.data.Goals, id, goalID); i >= 0 {
		return s.state.data.Goals[i], true
	}
	return core.Goal{}, false
}

func (s *Store) Goals() []core.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Goal{}, s.state.data.Goals...)
}
