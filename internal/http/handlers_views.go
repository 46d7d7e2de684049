package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

// AlertsResponse is the body of GET /api/alerts.
type AlertsResponse struct {
	Alerts []core.Alert `json:"alerts"`
	Unread int          `json:"unread"`
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.store.Alerts()
	if r.URL.Query().Get("unread") == "true" {
		unread := alerts[:0]
		for _, a := range alerts {
			if !a.IsRead {
				unread = append(unread, a)
			}
		}
		alerts = unread
	}
	writeJSON(w, http.StatusOK, AlertsResponse{Alerts: alerts, Unread: s.store.UnreadAlerts()})
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.MarkAlertAsRead(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAlert(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	s.store.ClearAlerts()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Dashboard())
}

// handleReports summarizes the transactions matching the query filters.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	opts, err := s.filtersFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Report(opts))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Session())
}

// SessionPatch updates session fields. Filters merge over the current
// selection; ClearFilters resets it first.
type SessionPatch struct {
	User            *core.User          `json:"user,omitempty"`
	IsAuthenticated *bool               `json:"isAuthenticated,omitempty"`
	SidebarOpen     *bool               `json:"sidebarOpen,omitempty"`
	Filters         *core.FilterOptions `json:"currentFilters,omitempty"`
	ClearFilters    bool                `json:"clearFilters,omitempty"`
}

func (s *Server) handlePatchSession(w http.ResponseWriter, r *http.Request) {
	var p SessionPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}

	var ve core.ValidationErrors
	if p.User != nil {
		nestInto(&ve, "user.", p.User.Validate())
	}
	if p.Filters != nil {
		nestInto(&ve, "currentFilters.", p.Filters.Validate())
	}
	if err := ve.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	if p.User != nil {
		u := *p.User
		if u.CreatedAt.IsZero() {
			u.CreatedAt = s.store.Now()
		}
		s.store.SetUser(&u)
	}
	if p.IsAuthenticated != nil {
		s.store.SetAuthenticated(*p.IsAuthenticated)
	}
	if p.SidebarOpen != nil {
		s.store.SetSidebarOpen(*p.SidebarOpen)
	}
	if p.ClearFilters {
		s.store.ClearFilters()
	}
	if p.Filters != nil {
		s.store.SetFilters(*p.Filters)
	}
	s.persist(r.Context())
	writeJSON(w, http.StatusOK, s.store.Session())
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme := s.store.ToggleTheme()
	s.persist(r.Context())
	writeJSON(w, http.StatusOK, map[string]core.Theme{"theme": theme})
}

// handleLogin accepts any well-formed credentials. There are no accounts to
// check against; signing in only sets the profile and the flag.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var l core.Login
	if err := decodeJSON(w, r, &l); err != nil {
		writeError(w, r, err)
		return
	}
	if err := l.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	email := strings.TrimSpace(l.Email)
	cur := s.store.Session()
	if cur.User == nil || !strings.EqualFold(cur.User.Email, email) {
		s.store.SetUser(&core.User{
			ID:        "1",
			Name:      displayName(email),
			Email:     email,
			Currency:  "USD",
			Theme:     cur.Theme,
			CreatedAt: s.store.Now().UTC().Truncate(time.Second),
		})
	}
	s.store.SetAuthenticated(true)
	s.persist(r.Context())
	writeJSON(w, http.StatusOK, s.store.Session())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.SetAuthenticated(false)
	s.store.SetUser(nil)
	s.persist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func displayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

func nestInto(ve *core.ValidationErrors, prefix string, err error) {
	inner, ok := err.(*core.ValidationErrors)
	if !ok {
		return
	}
	for _, e := range inner.Errors {
		ve.Add(prefix+e.Field, e.Message)
	}
}
