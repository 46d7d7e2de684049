package store

import (
	"fintrack/internal/core"
)

// AddAlert queues a new unread alert.
func (s *Store) AddAlert(a core.Alert) core.Alert {
	s.mu.Lock()
	a = a.Clone()
	a.ID = s.newID(takenIn(s.state.alerts, alertID))
	a.IsRead = false
	a.CreatedAt = s.now()
	s.state.alerts = append(append([]core.Alert{}, s.state.alerts...), a)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityAlert, Op: OpAdd, ID: a.ID})
	return a.Clone()
}

func (s *Store) MarkAlertAsRead(id string) error {
	s.mu.Lock()
	i := indexByID(s.state.alerts, id, alertID)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(EntityAlert, id)
	}
	alerts := append([]core.Alert{}, s.state.alerts...)
	alerts[i].IsRead = true
	s.state.alerts = alerts
	s.mu.Unlock()

	s.notify(Change{Entity: EntityAlert, Op: OpUpdate, ID: id})
	return nil
}

func (s *Store) DeleteAlert(id string) error {
	s.mu.Lock()
	i := indexByID(s.state.alerts, id, alertID)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(EntityAlert, id)
	}
	s.state.alerts = removeAt(s.state.alerts, i)
	s.mu.Unlock()

	s.notify(Change{Entity: EntityAlert, Op: OpDelete, ID: id})
	return nil
}

func (s *Store) ClearAlerts() {
	s.mu.Lock()
	s.state.alerts = []core.Alert{}
	s.mu.Unlock()

	s.notify(Change{Entity: EntityAlert, Op: OpClear})
}

// Alerts returns the queue, oldest first.
func (s *Store) Alerts() []core.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Alert, len(s.state.alerts))
	for i, a := range s.state.alerts {
		out[i] = a.Clone()
	}
	return out
}

// UnreadAlerts counts alerts not yet marked as read.
func (s *Store) UnreadAlerts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.state.alerts {
		if !a.IsRead {
			n++
		}
	}
	return n
}

func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.session.clone()
}

// SetUser replaces the current user; nil signs the user out of the profile.
func (s *Store) SetUser(u *core.User) {
	s.mu.Lock()
	s.state.session.User = nil
	if u != nil {
		cp := *u
		s.state.session.User = &cp
	}
	s.mu.Unlock()

	s.notify(Change{Entity: EntitySession, Op: OpUpdate, ID: "user", Persistent: true})
}

func (s *Store) SetAuthenticated(v bool) {
	s.mu.Lock()
	s.state.session.IsAuthenticated = v
	s.mu.Unlock()

	s.notify(Change{Entity: EntitySession, Op: OpUpdate, ID: "isAuthenticated", Persistent: true})
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Store) ToggleTheme() core.Theme {
	s.mu.Lock()
	next := core.ThemeDark
	if s.state.session.Theme == core.ThemeDark {
		next = core.ThemeLight
	}
	s.state.session.Theme = next
	s.mu.Unlock()

	s.notify(Change{Entity: EntitySession, Op: OpUpdate, ID: "theme", Persistent: true})
	return next
}

func (s *Store) SetSidebarOpen(open bool) {
	s.mu.Lock()
	s.state.session.SidebarOpen = open
	s.mu.Unlock()

	s.notify(Change{Entity: EntitySession, Op: OpUpdate, ID: "sidebarOpen"})
}

// SetFilters merges f over the current filters: zero-valued fields of f keep
// their existing value.
func (s *Store) SetFilters(f core.FilterOptions) core.FilterOptions {
	f = cloneFilters(f)
	s.mu.Lock()
	cur := s.state.session.Filters
	if f.DateFrom != nil {
		cur.DateFrom = f.DateFrom
	}
	if f.DateTo != nil {
		cur.DateTo = f.DateTo
	}
	if f.Type != "" {
		cur.Type = f.Type
	}
	if f.Categories != nil {
		cur.Categories = f.Categories
	}
	if f.Accounts != nil {
		cur.Accounts = f.Accounts
	}
	if f.AmountMin != nil {
		cur.AmountMin = f.AmountMin
	}
	if f.AmountMax != nil {
		cur.AmountMax = f.AmountMax
	}
	if f.Search != "" {
		cur.Search = f.Search
	}
	s.state.session.Filters = cur
	out := cloneFilters(cur)
	s.mu.Unlock()

	s.notify(Change{Entity: EntitySession, Op: OpUpdate, ID: "currentFilters"})
	return out
}

func (s *Store) ClearFilters() {
	s.mu.Lock()
	s.state.session.Filters = core.FilterOptions{}
	s.mu.Unlock()

	s.notify(Change{Entity: EntitySession, Op: OpClear, ID: "currentFilters"})
}
