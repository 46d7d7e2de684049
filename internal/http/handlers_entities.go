package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

type validator interface {
	Validate() error
}

type patcher[T any] interface {
	Apply(T) T
}

// createEntity decodes, validates and stores a new entity.
func createEntity[T validator](s *Server, w http.ResponseWriter, r *http.Request, add func(T) T) {
	var in T
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	created := add(in)
	s.persist(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

// updateEntity merges a patch, validates the result and stores it.
func updateEntity[T validator, P patcher[T]](s *Server, w http.ResponseWriter, r *http.Request,
	name string, get func(string) (T, bool), update func(string, P) (T, error)) {
	id := chi.URLParam(r, "id")
	var patch P
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	cur, ok := get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", name+" not found")
		return
	}
	if err := patch.Apply(cur).Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := update(id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.persist(r.Context())
	writeJSON(w, http.StatusOK, updated)
}

func getEntity[T any](w http.ResponseWriter, r *http.Request, name string, get func(string) (T, bool)) {
	v, ok := get(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", name+" not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) deleteEntity(w http.ResponseWriter, r *http.Request, del func(string) error) {
	if err := del(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.persist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// CategoryView adds the current month's spending to a category.
type CategoryView struct {
	core.Category
	MonthlySpending core.Money `json:"monthlySpending"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.store.Categories()
	out := make([]CategoryView, len(cats))
	for i, c := range cats {
		out[i] = CategoryView{Category: c, MonthlySpending: s.store.GetCategorySpending(c.ID, report.PeriodMonth)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	getEntity(w, r, "Category", s.store.Category)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, s.store.AddCategory)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	updateEntity[core.Category, store.CategoryPatch](s, w, r, "Category", s.store.Category, s.store.UpdateCategory)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, s.store.DeleteCategory)
}

// AccountsResponse is the body of GET /api/accounts.
type AccountsResponse struct {
	Accounts     []core.Account `json:"accounts"`
	TotalBalance core.Money     `json:"totalBalance"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AccountsResponse{
		Accounts:     s.store.Accounts(),
		TotalBalance: s.store.GetTotalBalance(),
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	getEntity(w, r, "Account", s.store.Account)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, s.store.AddAccount)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	updateEntity[core.Account, store.AccountPatch](s, w, r, "Account", s.store.Account, s.store.UpdateAccount)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, s.store.DeleteAccount)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"budgets": s.store.Budgets()})
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	getEntity(w, r, "Budget", s.store.Budget)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, s.store.AddBudget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	updateEntity[core.Budget, store.BudgetPatch](s, w, r, "Budget", s.store.Budget, s.store.UpdateBudget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, s.store.DeleteBudget)
}

// handleBudgetProgress evaluates every budget. ?byPeriod=true measures
// yearly budgets against the year to date instead of the current month.
func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.BudgetOverview(r.URL.Query().Get("byPeriod") == "true"))
}

// GoalsResponse is the body of GET /api/goals.
type GoalsResponse struct {
	Goals   []core.GoalStatus    `json:"goals"`
	Summary report.GoalsOverview `json:"summary"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals := s.store.Goals()
	out := make([]core.GoalStatus, len(goals))
	for i, g := range goals {
		out[i] = report.GoalProgress(g)
	}
	writeJSON(w, http.StatusOK, GoalsResponse{Goals: out, Summary: report.GoalsSummary(goals)})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	getEntity(w, r, "Goal", s.store.Goal)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, s.store.AddGoal)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	updateEntity[core.Goal, store.GoalPatch](s, w, r, "Goal", s.store.Goal, s.store.UpdateGoal)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, s.store.DeleteGoal)
}
