package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// ErrMalformedBackup is returned when a backup cannot be decoded.
var ErrMalformedBackup = errors.New("malformed backup")

// Policy decides how a backup is applied to the store.
type Policy string

const (
	// PolicyReplace swaps in every collection present in the backup.
	PolicyReplace Policy = "replace"
	// PolicyMerge unions collections by id; backup records win.
	PolicyMerge Policy = "merge"
)

// ParsePolicy maps the empty string to PolicyReplace.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyReplace:
		return PolicyReplace, nil
	case PolicyMerge:
		return PolicyMerge, nil
	}
	return "", fmt.Errorf("unknown import policy %q", s)
}

// Backup is the JSON export shape.
type Backup struct {
	store.Data
	ExportDate time.Time `json:"exportDate"`
}

// ImportResult counts what an import applied.
type ImportResult struct {
	Policy       Policy `json:"policy"`
	Transactions int    `json:"transactions"`
	Categories   int    `json:"categories"`
	Accounts     int    `json:"accounts"`
	Budgets      int    `json:"budgets"`
	Goals        int    `json:"goals"`
}

// WriteBackup writes the five collections of d as indented JSON.
func WriteBackup(w io.Writer, d store.Data, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Backup{Data: d, ExportDate: now.UTC()})
}

// DecodeBackup reads and validates a backup. Every record must pass its
// entity validation and ids must be unique within a collection.
func DecodeBackup(r io.Reader) (Backup, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Backup{}, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	known := 0
	for _, k := range []string{"transactions", "categories", "accounts", "budgets", "goals"} {
		if _, ok := raw[k]; ok {
			known++
		}
	}
	if known == 0 {
		return Backup{}, fmt.Errorf("%w: no collections found", ErrMalformedBackup)
	}

	var b Backup
	if err := json.Unmarshal(body, &b); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}

	var ve core.ValidationErrors
	checkAll(&ve, "transactions", b.Transactions, func(t core.Transaction) (string, error) { return t.ID, t.Validate() })
	checkAll(&ve, "categories", b.Categories, func(c core.Category) (string, error) { return c.ID, c.Validate() })
	checkAll(&ve, "accounts", b.Accounts, func(a core.Account) (string, error) { return a.ID, a.Validate() })
	checkAll(&ve, "budgets", b.Budgets, func(x core.Budget) (string, error) { return x.ID, x.Validate() })
	checkAll(&ve, "goals", b.Goals, func(g core.Goal) (string, error) { return g.ID, g.Validate() })
	if err := ve.Err(); err != nil {
		return Backup{}, err
	}
	return b, nil
}

func checkAll[T any](ve *core.ValidationErrors, name string, items []T, check func(T) (string, error)) {
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		id, err := check(item)
		prefix := fmt.Sprintf("%s[%d]", name, i)
		nest(ve, prefix+".", err)
		if id == "" {
			continue
		}
		if seen[id] {
			ve.Add(prefix+".id", core.ErrDuplicateID.Error())
		}
		seen[id] = true
	}
}

// ImportBackup decodes a backup and applies it to s under policy. A backup
// that fails to decode or validate leaves s untouched.
func ImportBackup(s *store.Store, r io.Reader, policy Policy) (ImportResult, error) {
	b, err := DecodeBackup(r)
	if err != nil {
		return ImportResult{}, err
	}
	switch policy {
	case PolicyReplace:
		s.ReplaceData(b.Data)
	case PolicyMerge:
		s.MergeData(b.Data)
	default:
		return ImportResult{}, fmt.Errorf("unknown import policy %q", policy)
	}
	return ImportResult{
		Policy:       policy,
		Transactions: len(b.Transactions),
		Categories:   len(b.Categories),
		Accounts:     len(b.Accounts),
		Budgets:      len(b.Budgets),
		Goals:        len(b.Goals),
	}, nil
}
