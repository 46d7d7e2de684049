package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestStore() *store.Store {
	n := 0
	return store.New(
		store.WithClock(func() time.Time { return fixedNow }),
		store.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
}

func tx(desc string, cents int64, date core.Date, category, account string, freq core.RepetitionTypes) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Category:    category,
		Type:        core.Expense,
		Account:     account,
		Recurrence:  freq,
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []core.Alert
	err    error
}

func (p *recordingPublisher) PublishAlert(_ context.Context, a core.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, a)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

var errBroker = errors.New("broker down")
