package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Series is a recurring transaction stream: every transaction sharing a
// description, account and frequency.
type Series struct {
	Key       string
	Frequency core.RepetitionTypes
	First     core.Date
	Latest    core.Transaction
}

// RecurringProcessor reminds about recurring transactions whose next
// occurrence is due. It never posts transactions itself.
type RecurringProcessor struct {
	store  *store.Store
	alerts *AlertService
	logger *log.Logger
}

func NewRecurringProcessor(s *store.Store, alerts *AlertService, logger *log.Logger) *RecurringProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecurringProcessor{
		store:  s,
		alerts: alerts,
		logger: logger.WithComponent(log.ComponentRecurring),
	}
}

// RecurringSeries groups the recurring transactions in txs, ordered by key.
func RecurringSeries(txs []core.Transaction) []Series {
	byKey := make(map[string]*Series)
	for _, t := range txs {
		if !t.IsRecurring() {
			continue
		}
		key := seriesKey(t)
		s, ok := byKey[key]
		if !ok {
			byKey[key] = &Series{Key: key, Frequency: t.Recurrence, First: t.Date, Latest: t}
			continue
		}
		if t.Date.Before(s.First) {
			s.First = t.Date
		}
		if !t.Date.Before(s.Latest.Date) {
			s.Latest = t
		}
	}
	out := make([]Series, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func seriesKey(t core.Transaction) string {
	return strings.ToLower(strings.TrimSpace(t.Description)) + "|" + t.Account + "|" + string(t.Recurrence)
}

// Process raises a recurring_transaction alert for each series whose next
// occurrence falls on or before now. It returns the number of alerts raised.
func (p *RecurringProcessor) Process(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.alerts == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	today := core.DateOf(now)
	series := RecurringSeries(p.store.Transactions())

	raised := 0
	for _, s := range series {
		if err := ctx.Err(); err != nil {
			return raised, err
		}
		checker, err := GetDuenessChecker(s.Frequency)
		if err != nil {
			p.logger.Warn("Skipping recurring series",
				log.FieldTransactionID, s.Latest.ID,
				log.FieldError, err)
			continue
		}
		if !IsDue(checker, s.Latest.Date, today, s.First) {
			continue
		}
		due := checker.NextDue(s.Latest.Date, s.First)

		t := s.Latest
		alert := core.Alert{
			Type:  core.AlertRecurringTransaction,
			Title: "Recurring Transaction",
			Message: fmt.Sprintf("%s (%s %s, %s) is due on %s",
				t.Description, t.Type, t.Amount, s.Frequency, due),
			Data: map[string]any{
				alertKey:        fmt.Sprintf("recurring:%s:%s", s.Key, due),
				"transactionId": t.ID,
				"accountId":     t.Account,
				"frequency":     string(s.Frequency),
				"dueDate":       due.String(),
			},
		}
		if _, ok := p.alerts.raise(ctx, alert); ok {
			raised++
		}
	}

	p.logger.DebugContext(ctx, "Recurring check complete",
		"series", len(series),
		"raised", raised,
		"date", today.String())
	return raised, nil
}
