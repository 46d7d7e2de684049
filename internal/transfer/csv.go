// Package transfer moves data in and out of the store: CSV transaction
// import with a review step, CSV export, and full JSON backups.
package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// ErrMalformedCSV is returned when the input cannot be read as a
// transaction CSV at all. The store is never touched in that case.
var ErrMalformedCSV = errors.New("malformed csv")

// ErrNothingSelected is returned by Commit when no row is selected.
var ErrNothingSelected = errors.New("no rows selected")

// ExportHeader is the header row written by WriteCSV.
var ExportHeader = []string{"Date", "Description", "Amount", "Type", "Category", "Account"}

// Template is the sample file offered for download.
const Template = "date,description,amount,type,category,account\n" +
	"2024-01-01,Sample Transaction,100.00,expense,Food,Main Account\n" +
	"2024-01-02,Salary,2500.00,income,Salary,Main Account\n"

// ImportRow is one parsed CSV line awaiting review. Rows that cannot become
// a valid transaction carry an Error and start unselected.
type ImportRow struct {
	Line              int                  `json:"line"`
	Description       string               `json:"description"`
	Amount            core.Money           `json:"amount"`
	Date              core.Date            `json:"date"`
	Type              core.TransactionType `json:"type"`
	Category          string               `json:"category"`
	Account           string               `json:"account"`
	SuggestedType     core.TransactionType `json:"suggestedType"`
	SuggestedCategory string               `json:"suggestedCategory,omitempty"`
	Selected          bool                 `json:"isSelected"`
	Error             string               `json:"error,omitempty"`
}

// ParseCSV reads a transaction CSV. The header row names the columns;
// description and amount are required, everything else is optional.
// Lines without a description or amount are dropped.
func ParseCSV(r io.Reader, categories []core.Category, accounts []core.Account, today core.Date) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, required := range []string{"description", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", ErrMalformedCSV, required)
		}
	}

	var rows []ImportRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		line, _ := cr.FieldPos(0)
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		desc, rawAmount := get("description"), get("amount")
		if desc == "" || rawAmount == "" {
			continue
		}
		rows = append(rows, buildRow(line, desc, rawAmount, get("date"), get("category"), get("account"),
			categories, accounts, today))
	}
	return rows, nil
}

func buildRow(line int, desc, rawAmount, rawDate, rawCategory, rawAccount string,
	categories []core.Category, accounts []core.Account, today core.Date) ImportRow {
	row := ImportRow{Line: line, Description: desc, Date: today}

	amount, err := core.ParseSignedAmount(rawAmount)
	if err != nil {
		row.Error = fmt.Sprintf("invalid amount %q", rawAmount)
	}
	row.SuggestedType = core.Expense
	if amount.Cents > 0 {
		row.SuggestedType = core.Income
	}
	row.Amount = amount.Abs()
	row.Type = row.SuggestedType

	if rawDate != "" {
		d, err := core.ParseDate(rawDate)
		if err != nil && row.Error == "" {
			row.Error = fmt.Sprintf("invalid date %q", rawDate)
		} else if err == nil {
			row.Date = d
		}
	}

	row.SuggestedCategory = SuggestCategory(desc, categories)
	row.Category = row.SuggestedCategory
	if id := lookupCategory(rawCategory, categories); id != "" {
		row.Category = id
	}

	row.Account = lookupAccount(rawAccount, accounts)
	if row.Account == "" && len(accounts) > 0 {
		row.Account = accounts[0].ID
	}

	if row.Error == "" && row.Amount.IsZero() {
		row.Error = "Amount must be greater than 0"
	}
	row.Selected = row.Error == ""
	return row
}

// SuggestCategory returns the id of the first category whose name appears in
// the description, ignoring case.
func SuggestCategory(description string, categories []core.Category) string {
	d := strings.ToLower(description)
	for _, c := range categories {
		if c.Name != "" && strings.Contains(d, strings.ToLower(c.Name)) {
			return c.ID
		}
	}
	return ""
}

func lookupCategory(v string, categories []core.Category) string {
	if v == "" {
		return ""
	}
	for _, c := range categories {
		if c.ID == v || strings.EqualFold(c.Name, v) {
			return c.ID
		}
	}
	return ""
}

func lookupAccount(v string, accounts []core.Account) string {
	if v == "" {
		return ""
	}
	for _, a := range accounts {
		if a.ID == v || strings.EqualFold(a.Name, v) {
			return a.ID
		}
	}
	return ""
}

// Transactions converts the selected rows. Rows without a category fall
// back to the first category. Every selected row must validate.
func Transactions(rows []ImportRow, categories []core.Category) ([]core.Transaction, error) {
	var (
		out []core.Transaction
		ve  core.ValidationErrors
	)
	for i, r := range rows {
		if !r.Selected {
			continue
		}
		t := core.Transaction{
			Description: r.Description,
			Amount:      r.Amount,
			Date:        r.Date,
			Category:    r.Category,
			Type:        r.Type,
			Account:     r.Account,
		}
		if t.Category == "" && len(categories) > 0 {
			t.Category = categories[0].ID
		}
		if t.Type == "" {
			t.Type = core.Expense
		}
		if r.Error != "" {
			ve.Add(fmt.Sprintf("rows[%d]", i), r.Error)
			continue
		}
		nest(&ve, fmt.Sprintf("rows[%d].", i), t.Validate())
		out = append(out, t)
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNothingSelected
	}
	return out, nil
}

// Commit posts the selected rows to s in a single change.
func Commit(s *store.Store, rows []ImportRow) ([]core.Transaction, error) {
	txs, err := Transactions(rows, s.Categories())
	if err != nil {
		return nil, err
	}
	return s.AddTransactions(txs), nil
}

// WriteCSV writes one row per transaction with category and account names
// resolved from their ids. Unknown ids are written as empty names.
func WriteCSV(w io.Writer, txs []core.Transaction, categories []core.Category, accounts []core.Account) error {
	catNames := make(map[string]string, len(categories))
	for _, c := range categories {
		catNames[c.ID] = c.Name
	}
	accNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accNames[a.ID] = a.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, t := range txs {
		rec := []string{
			t.Date.String(),
			t.Description,
			t.Amount.String(),
			string(t.Type),
			catNames[t.Category],
			accNames[t.Account],
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// nest copies the field errors in err under prefix.
func nest(ve *core.ValidationErrors, prefix string, err error) {
	var inner *core.ValidationErrors
	if !errors.As(err, &inner) {
		return
	}
	for _, fe := range inner.Errors {
		ve.Add(prefix+fe.Field, fe.Message)
	}
}
