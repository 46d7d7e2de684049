// Package store holds the application state: the five finance collections,
// the alert queue and the session. Every mutation is applied under one lock
// and announced to subscribers as a single Change once the lock is released.
package store

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Entity names used in Change events.
const (
	EntityTransaction = "transaction"
	EntityCategory    = "category"
	EntityAccount     = "account"
	EntityBudget      = "budget"
	EntityGoal        = "goal"
	EntityAlert       = "alert"
	EntitySession     = "session"
	EntityAll         = "all"
)

// Change operations.
const (
	OpAdd     = "add"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpClear   = "clear"
	OpReplace = "replace"
	OpMerge   = "merge"
)

// Change describes one committed mutation.
type Change struct {
	Entity string
	Op     string
	ID     string
	// Persistent is set when the mutation touched the persisted subset.
	Persistent bool
}

// Subscriber is called synchronously, in subscription order, after each commit.
type Subscriber func(Change)

type (
	Clock       func() time.Time
	IDGenerator func() string
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and period scoping.
func WithClock(c Clock) Option {
	return func(s *Store) { s.now = c }
}

// WithIDGenerator overrides the random identifier source.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.genID = g }
}

// WithSeed replaces the built-in default categories and accounts.
func WithSeed(seed Seed) Option {
	return func(s *Store) { s.seed = seed }
}

// WithLogger sets the logger for restore and transaction events.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentStore) }
}

// Store holds the finance data in memory and serializes every mutation.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state state

	now    Clock
	genID  IDGenerator
	seed   Seed
	logger *log.Logger
	seq    uint64

	subMu   sync.Mutex
	subs    []subscription
	nextSub int
}

type subscription struct {
	id int
	fn Subscriber
}

// New returns a store initialised from the seed: default categories and
// accounts, no transactions, budgets, goals or alerts, light theme.
func New(opts ...Option) *Store {
	s := &Store{
		now:   func() time.Time { return time.Now().UTC() },
		genID: uuid.NewString,
		seed:  DefaultSeed(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.state = s.initialState()
	return s
}

func (s *Store) initialState() state {
	stamp := s.now()
	return state{
		session: Session{Theme: core.ThemeLight},
		data: Data{
			Transactions: []core.Transaction{},
			Categories:   s.seed.categories(stamp),
			Accounts:     s.seed.accounts(stamp),
			Budgets:      []core.Budget{},
			Goals:        []core.Goal{},
		},
		alerts: []core.Alert{},
	}
}

// Now exposes the store clock so derived views agree with it.
func (s *Store) Now() time.Time {
	return s.now()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = removeAt(s.subs, i)
				return
			}
		}
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(c)
	}
}

// newID draws identifiers until one is unused in the target collection.
// Callers hold the write lock.
func (s *Store) newID(taken func(string) bool) string {
	for attempt := 0; attempt < 8; attempt++ {
		id := s.genID()
		if id != "" && !taken(id) {
			return id
		}
	}
	for {
		s.seq++
		id := s.genID() + "-" + strconv.FormatUint(s.seq, 10)
		if !taken(id) {
			return id
		}
	}
}

func takenIn[T any](items []T, idOf func(T) string) func(string) bool {
	return func(id string) bool { return indexByID(items, id, idOf) >= 0 }
}

// Snapshot returns a deep copy of the persisted subset.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.state.session.clone()
	return Snapshot{
		Version:         SnapshotVersion,
		SavedAt:         s.now(),
		User:            sess.User,
		IsAuthenticated: sess.IsAuthenticated,
		Theme:           sess.Theme,
		Data:            s.state.data.clone(),
	}
}

// Restore replaces the persisted subset with snap. Collections absent from the
// snapshot fall back to their initial values; session-only state is kept.
func (s *Store) Restore(snap Snapshot) error {
	if err := snap.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	base := s.initialState()
	data := snap.Data.clone()
	if snap.Transactions == nil {
		data.Transactions = base.data.Transactions
	}
	if snap.Categories == nil {
		data.Categories = base.data.Categories
	}
	if snap.Accounts == nil {
		data.Accounts = base.data.Accounts
	}
	if snap.Budgets == nil {
		data.Budgets = base.data.Budgets
	}
	if snap.Goals == nil {
		data.Goals = base.data.Goals
	}
	s.state.data = data
	s.state.session.User = nil
	if snap.User != nil {
		u := *snap.User
		s.state.session.User = &u
	}
	s.state.session.IsAuthenticated = snap.IsAuthenticated
	s.state.session.Theme = snap.Theme
	if snap.Theme != core.ThemeDark {
		s.state.session.Theme = core.ThemeLight
	}
	s.mu.Unlock()

	s.logger.Info("State restored",
		log.FieldVersion, snap.Version,
		"transactions", len(data.Transactions),
		"accounts", len(data.Accounts))
	s.notify(Change{Entity: EntityAll, Op: OpReplace, Persistent: true})
	return nil
}

// Data returns a deep copy of the five collections.
func (s *Store) Data() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.data.clone()
}

// ReplaceData swaps in every non-nil collection of d wholesale. Nil
// collections are left as they are.
func (s *Store) ReplaceData(d Data) {
	in := d.clone()
	s.mu.Lock()
	if d.Transactions != nil {
		s.state.data.Transactions = in.Transactions
	}
	if d.Categories != nil {
		s.state.data.Categories = in.Categories
	}
	if d.Accounts != nil {
		s.state.data.Accounts = in.Accounts
	}
	if d.Budgets != nil {
		s.state.data.Budgets = in.Budgets
	}
	if d.Goals != nil {
		s.state.data.Goals = in.Goals
	}
	s.mu.Unlock()
	s.notify(Change{Entity: EntityAll, Op: OpReplace, Persistent: true})
}

// MergeData unions d into the current collections by id. Incoming records
// replace existing ones in place; new records are appended in input order.
// Records without an id are assigned one.
func (s *Store) MergeData(d Data) {
	in := d.clone()
	s.mu.Lock()
	s.state.data.Transactions = mergeByID(s, s.state.data.Transactions, in.Transactions, txID, func(t *core.Transaction, id string) { t.ID = id })
	s.state.data.Categories = mergeByID(s, s.state.data.Categories, in.Categories, catID, func(c *core.Category, id string) { c.ID = id })
	s.state.data.Accounts = mergeByID(s, s.state.data.Accounts, in.Accounts, accID, func(a *core.Account, id string) { a.ID = id })
	s.state.data.Budgets = mergeByID(s, s.state.data.Budgets, in.Budgets, budgetID, func(b *core.Budget, id string) { b.ID = id })
	s.state.data.Goals = mergeByID(s, s.state.data.Goals, in.Goals, goalID, func(g *core.Goal, id string) { g.ID = id })
	s.mu.Unlock()
	s.notify(Change{Entity: EntityAll, Op: OpMerge, Persistent: true})
}

func mergeByID[T any](s *Store, cur, in []T, idOf func(T) string, setID func(*T, string)) []T {
	out := append([]T{}, cur...)
	for _, item := range in {
		id := idOf(item)
		if id == "" {
			id = s.newID(takenIn(out, idOf))
			setID(&item, id)
		}
		if i := indexByID(out, id, idOf); i >= 0 {
			out[i] = item
			continue
		}
		out = append(out, item)
	}
	return out
}
