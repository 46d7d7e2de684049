package store

import (
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// TransactionPatch carries the fields to change; nil fields are left untouched.
type TransactionPatch struct {
	Description *string               `json:"description,omitempty"`
	Amount      *core.Money           `json:"amount,omitempty"`
	Date        *core.Date            `json:"date,omitempty"`
	Category    *string               `json:"category,omitempty"`
	Subcategory *string               `json:"subcategory,omitempty"`
	Type        *core.TransactionType `json:"type,omitempty"`
	Account     *string               `json:"account,omitempty"`
	Recurrence  *core.RepetitionTypes `json:"recurringFrequency,omitempty"`
	Tags        *[]string             `json:"tags,omitempty"`
}

// Apply returns t with the patch merged in.
func (p TransactionPatch) Apply(t core.Transaction) core.Transaction {
	t = t.Clone()
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Subcategory != nil {
		t.Subcategory = *p.Subcategory
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Account != nil {
		t.Account = *p.Account
	}
	if p.Recurrence != nil {
		t.Recurrence = *p.Recurrence
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	return t
}

// AddTransaction appends t under a fresh id and posts it to its account:
// income raises the balance, expense lowers it. A missing account is not an
// error; the transaction is stored and no balance moves.
func (s *Store) AddTransaction(t core.Transaction) core.Transaction {
	created := s.AddTransactions([]core.Transaction{t})
	return created[0]
}

// AddTransactions appends and posts every transaction as one state change.
func (s *Store) AddTransactions(in []core.Transaction) []core.Transaction {
	if len(in) == 0 {
		return nil
	}
	s.mu.Lock()
	now := s.now()
	txs := append([]core.Transaction{}, s.state.data.Transactions...)
	accounts := append([]core.Account{}, s.state.data.Accounts...)
	created := make([]core.Transaction, 0, len(in))
	for _, t := range in {
		t = t.Clone()
		t.ID = s.newID(takenIn(txs, txID))
		t.CreatedAt = now
		t.UpdatedAt = now
		txs = append(txs, t)
		post(accounts, t.Account, t.Posting(), now)
		created = append(created, t.Clone())
	}
	s.state.data.Transactions = txs
	s.state.data.Accounts = accounts
	s.mu.Unlock()

	for _, t := range created {
		s.logger.Debug("Transaction posted", log.NewFields().
			WithTransaction(t.ID, t.Account, t.Amount.Cents, string(t.Type)).
			WithOperation(log.OpCreate).ToSlice()...)
	}
	id := ""
	if len(created) == 1 {
		id = created[0].ID
	}
	s.notify(Change{Entity: EntityTransaction, Op: OpAdd, ID: id, Persistent: true})
	return created
}

// UpdateTransaction merges p into the transaction with id. When the amount,
// type or account changes, the old posting is reversed and the new one applied.
func (s *Store) UpdateTransaction(id string, p TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	i := indexByID(s.state.data.Transactions, id, txID)
	if i < 0 {
		s.mu.Unlock()
		return core.Transaction{}, s.notFound(EntityTransaction, id)
	}
	now := s.now()
	old := s.state.data.Transactions[i]
	updated := p.Apply(old)
	updated.ID = old.ID
	updated.CreatedAt = old.CreatedAt
	updated.UpdatedAt = now

	txs := append([]core.Transaction{}, s.state.data.Transactions...)
	txs[i] = updated
	s.state.data.Transactions = txs
	if old.Posting() != updated.Posting() || old.Account != updated.Account {
		accounts := append([]core.Account{}, s.state.data.Accounts...)
		post(accounts, old.Account, old.Posting().Neg(), now)
		post(accounts, updated.Account, updated.Posting(), now)
		s.state.data.Accounts = accounts
	}
	s.mu.Unlock()

	s.notify(Change{Entity: EntityTransaction, Op: OpUpdate, ID: id, Persistent: true})
	return updated.Clone(), nil
}

// DeleteTransaction removes the transaction and reverses its posting.
func (s *Store) DeleteTransaction(id string) error {
	s.mu.Lock()
	i := indexByID(s.state.data.Transactions, id, txID)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(EntityTransaction, id)
	}
	old := s.state.data.Transactions[i]
	s.state.data.Transactions = removeAt(s.state.data.Transactions, i)
	accounts := append([]core.Account{}, s.state.data.Accounts...)
	post(accounts, old.Account, old.Posting().Neg(), s.now())
	s.state.data.Accounts = accounts
	s.mu.Unlock()

	s.notify(Change{Entity: EntityTransaction, Op: OpDelete, ID: id, Persistent: true})
	return nil
}

// Transaction looks up a single transaction.
func (s *Store) Transaction(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.data.Transactions, id, txID); i >= 0 {
		return s.state.data.Transactions[i].Clone(), true
	}
	return core.Transaction{}, false
}

// Transactions returns a copy of all transactions in storage order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTransactions(s.state.data.Transactions)
}

// post applies delta to the account with id, if present.
func post(accounts []core.Account, id string, delta core.Money, now time.Time) {
	if i := indexByID(accounts, id, accID); i >= 0 {
		accounts[i].Balance = accounts[i].Balance.Add(delta)
		accounts[i].UpdatedAt = now
	}
}

func (s *Store) notFound(entity, id string) error {
	s.logger.Debug("Entity not found", log.NewFields().
		WithEntity(entity, id).
		WithError(core.ErrNotFound).ToSlice()...)
	return fmt.Errorf("%s %q: %w", entity, id, core.ErrNotFound)
}
