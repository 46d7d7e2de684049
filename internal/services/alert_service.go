package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

// Publisher forwards raised alerts to an external broker.
type Publisher interface {
	PublishAlert(ctx context.Context, a core.Alert) error
}

// alertKey is the Data entry used to avoid raising the same alert twice.
const alertKey = "key"

// AlertConfig holds the alert loop settings.
type AlertConfig struct {
	// CheckInterval is how often budgets, goals and recurring series are
	// checked (default: 1h). Zero disables the loop.
	CheckInterval time.Duration

	// GoalReminderWindow is how far ahead a goal's target date triggers a
	// reminder (default: 7 days).
	GoalReminderWindow time.Duration
}

func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		CheckInterval:      time.Hour,
		GoalReminderWindow: 7 * 24 * time.Hour,
	}
}

// AlertService raises budget and goal alerts into the store and optionally
// publishes them. Publishing is best effort and never fails a check.
type AlertService struct {
	store     *store.Store
	publisher Publisher
	logger    *log.Logger

	mu sync.Mutex // serializes the dedupe check with AddAlert
}

// NewAlertService wires the service. publisher may be nil.
func NewAlertService(s *store.Store, publisher Publisher, logger *log.Logger) *AlertService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AlertService{
		store:     s,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAlerts),
	}
}

// CheckBudgets raises a budget_exceeded alert for every budget that is over
// its limit or past its alert threshold in the current period. An alert is
// raised once per budget, period and state.
func (a *AlertService) CheckBudgets(ctx context.Context) ([]core.Alert, error) {
	now := a.store.Now()
	var raised []core.Alert
	for _, st := range a.store.BudgetOverview(true).Budgets {
		if err := ctx.Err(); err != nil {
			return raised, err
		}
		if !st.IsOverBudget && !st.IsNearLimit {
			continue
		}
		b := st.Budget
		period := core.DateOf(now).MonthKey()
		if b.Period == core.BudgetYearly {
			period = fmt.Sprintf("%d", now.Year())
		}

		state, title, msg := "near", "Budget Alert",
			fmt.Sprintf("You have used %d%% of your %s budget (%s of %s)", st.Percentage, st.CategoryName, st.Spent, b.Limit)
		if st.IsOverBudget {
			state, title = "over", "Budget Exceeded"
			msg = fmt.Sprintf("You have exceeded your %s budget by %s (%s of %s)", st.CategoryName, st.Spent.Sub(b.Limit), st.Spent, b.Limit)
		}

		alert := core.Alert{
			Type:    core.AlertBudgetExceeded,
			Title:   title,
			Message: msg,
			Data: map[string]any{
				alertKey:     fmt.Sprintf("budget:%s:%s:%s", b.ID, period, state),
				"budgetId":   b.ID,
				"categoryId": b.CategoryID,
				"spent":      st.Spent.String(),
				"limit":      b.Limit.String(),
				"percentage": st.Percentage,
			},
		}
		if created, ok := a.raise(ctx, alert); ok {
			raised = append(raised, created)
		}
	}
	return raised, nil
}

// CheckGoals raises a goal_reminder for every incomplete goal whose target
// date falls between today and today plus within.
func (a *AlertService) CheckGoals(ctx context.Context, within time.Duration) ([]core.Alert, error) {
	today := core.DateOf(a.store.Now())
	horizon := core.DateOf(today.Add(within))
	var raised []core.Alert
	for _, g := range a.store.Goals() {
		if err := ctx.Err(); err != nil {
			return raised, err
		}
		if g.IsCompleted || g.TargetDate.IsZero() || g.TargetDate.Before(today) || g.TargetDate.After(horizon) {
			continue
		}
		st := report.GoalProgress(g)
		days := int(g.TargetDate.Sub(today.Time).Hours() / 24)

		alert := core.Alert{
			Type:  core.AlertGoalReminder,
			Title: "Goal Reminder",
			Message: fmt.Sprintf("%s is due in %d day(s) on %s and is %d%% complete",
				g.Name, days, g.TargetDate, st.Percentage),
			Data: map[string]any{
				alertKey:     fmt.Sprintf("goal:%s:%s", g.ID, g.TargetDate),
				"goalId":     g.ID,
				"targetDate": g.TargetDate.String(),
				"percentage": st.Percentage,
			},
		}
		if created, ok := a.raise(ctx, alert); ok {
			raised = append(raised, created)
		}
	}
	return raised, nil
}

// raise adds alert unless one with the same key is already queued, then
// publishes it.
func (a *AlertService) raise(ctx context.Context, alert core.Alert) (core.Alert, bool) {
	key, _ := alert.Data[alertKey].(string)

	a.mu.Lock()
	if key != "" {
		for _, existing := range a.store.Alerts() {
			if k, _ := existing.Data[alertKey].(string); k == key {
				a.mu.Unlock()
				return core.Alert{}, false
			}
		}
	}
	created := a.store.AddAlert(alert)
	a.mu.Unlock()

	a.logger.Info("Alert raised",
		log.FieldID, created.ID,
		log.FieldAlertType, string(created.Type),
		"key", key)

	if a.publisher != nil {
		if err := a.publisher.PublishAlert(ctx, created); err != nil {
			a.logger.Warn("Failed to publish alert",
				log.FieldID, created.ID,
				log.FieldOperation, log.OpPublish,
				log.FieldError, err)
		}
	}
	return created, true
}

// Run performs every check each interval until ctx is done.
func (a *AlertService) Run(ctx context.Context, cfg AlertConfig, recurring *RecurringProcessor) error {
	if cfg.CheckInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	a.logger.Info("Alert checks started", "interval", cfg.CheckInterval, "goal_window", cfg.GoalReminderWindow)
	for {
		a.checkAll(ctx, cfg, recurring)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *AlertService) checkAll(ctx context.Context, cfg AlertConfig, recurring *RecurringProcessor) {
	if _, err := a.CheckBudgets(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("Budget check failed", log.FieldError, err)
	}
	if _, err := a.CheckGoals(ctx, cfg.GoalReminderWindow); err != nil && ctx.Err() == nil {
		a.logger.Error("Goal check failed", log.FieldError, err)
	}
	if recurring != nil {
		if _, err := recurring.Process(ctx, a.store.Now()); err != nil && ctx.Err() == nil {
			a.logger.Error("Recurring check failed", log.FieldError, err)
		}
	}
}
