package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/badoux/checkmail"
)

// FieldError is a validation failure bound to a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every field failure of one input.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

func (ve *ValidationErrors) Add(field, msg string) {
	ve.Errors = append(ve.Errors, FieldError{Field: field, Message: msg})
}

// Field returns the first message recorded for field, if any.
func (ve *ValidationErrors) Field(field string) (string, bool) {
	for _, e := range ve.Errors {
		if e.Field == field {
			return e.Message, true
		}
	}
	return "", false
}

// Err returns nil when nothing was recorded.
func (ve *ValidationErrors) Err() error {
	if len(ve.Errors) == 0 {
		return nil
	}
	return ve
}

// IsValidationError reports whether err carries field-level validation failures.
func IsValidationError(err error) bool {
	var ve *ValidationErrors
	return errors.As(err, &ve)
}

func (ve *ValidationErrors) required(field, value, msg string) bool {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, msg)
		return false
	}
	return true
}

func (ve *ValidationErrors) maxLen(field, value string, max int, msg string) {
	if utf8.RuneCountInString(value) > max {
		ve.Add(field, msg)
	}
}

func (ve *ValidationErrors) positive(field string, m Money, msg string) {
	if m.Cents < 1 {
		ve.Add(field, msg)
	}
}

func (ve *ValidationErrors) nonNegative(field string, m *Money) {
	if m != nil && m.Cents < 0 {
		ve.Add(field, "Must be zero or greater")
	}
}

func (t Transaction) Validate() error {
	var ve ValidationErrors
	if ve.required("description", t.Description, "Description is required") {
		ve.maxLen("description", t.Description, 200, "Description too long")
	}
	ve.positive("amount", t.Amount, "Amount must be greater than 0")
	if t.Date.IsZero() {
		ve.Add("date", "Date is required")
	}
	ve.required("category", t.Category, "Category is required")
	if !t.Type.IsValid() {
		ve.Add("type", "Type must be income or expense")
	}
	ve.required("account", t.Account, "Account is required")
	if t.Recurrence != "" && !t.Recurrence.IsValid() {
		ve.Add("recurringFrequency", "Frequency must be daily, weekly, monthly or yearly")
	}
	return ve.Err()
}

func (s Subcategory) Validate() error {
	var ve ValidationErrors
	s.validateInto(&ve, "")
	return ve.Err()
}

func (s Subcategory) validateInto(ve *ValidationErrors, prefix string) {
	if ve.required(prefix+"name", s.Name, "Name is required") {
		ve.maxLen(prefix+"name", s.Name, 50, "Name too long")
	}
	ve.nonNegative(prefix+"budgetLimit", s.BudgetLimit)
}

func (c Category) Validate() error {
	var ve ValidationErrors
	if ve.required("name", c.Name, "Name is required") {
		ve.maxLen("name", c.Name, 50, "Name too long")
	}
	ve.required("color", c.Color, "Color is required")
	ve.required("icon", c.Icon, "Icon is required")
	if !c.Type.IsValid() {
		ve.Add("type", "Type must be income, expense or both")
	}
	ve.nonNegative("budgetLimit", c.BudgetLimit)
	for i, s := range c.Subcategories {
		s.validateInto(&ve, fmt.Sprintf("subcategories[%d].", i))
	}
	return ve.Err()
}

func (a Account) Validate() error {
	var ve ValidationErrors
	if ve.required("name", a.Name, "Name is required") {
		ve.maxLen("name", a.Name, 50, "Name too long")
	}
	if !a.Type.IsValid() {
		ve.Add("type", "Type must be cash, bank, credit or investment")
	}
	ve.required("currency", a.Currency, "Currency is required")
	ve.required("color", a.Color, "Color is required")
	return ve.Err()
}

func (b Budget) Validate() error {
	var ve ValidationErrors
	ve.required("categoryId", b.CategoryID, "Category is required")
	ve.positive("limit", b.Limit, "Limit must be greater than 0")
	if !b.Period.IsValid() {
		ve.Add("period", "Period must be monthly or yearly")
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		ve.Add("alertThreshold", "Alert threshold must be between 0 and 100")
	}
	return ve.Err()
}

func (g Goal) Validate() error {
	var ve ValidationErrors
	if ve.required("name", g.Name, "Name is required") {
		ve.maxLen("name", g.Name, 100, "Name too long")
	}
	ve.maxLen("description", g.Description, 500, "Description too long")
	ve.positive("targetAmount", g.TargetAmount, "Target amount must be greater than 0")
	if g.CurrentAmount.Cents < 0 {
		ve.Add("currentAmount", "Must be zero or greater")
	}
	if g.TargetDate.IsZero() {
		ve.Add("targetDate", "Target date is required")
	}
	ve.required("category", g.Category, "Category is required")
	return ve.Err()
}

func (a Alert) Validate() error {
	var ve ValidationErrors
	if !a.Type.IsValid() {
		ve.Add("type", "Unknown alert type")
	}
	ve.required("title", a.Title, "Title is required")
	ve.required("message", a.Message, "Message is required")
	return ve.Err()
}

func (u User) Validate() error {
	var ve ValidationErrors
	ve.required("name", u.Name, "Name is required")
	if err := ValidateEmail(u.Email); err != nil {
		ve.Add("email", "Invalid email address")
	}
	ve.required("currency", u.Currency, "Currency is required")
	if u.Theme != "" && u.Theme != ThemeLight && u.Theme != ThemeDark {
		ve.Add("theme", "Theme must be light or dark")
	}
	return ve.Err()
}

// Login is the credential pair collected by the sign-in form.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l Login) Validate() error {
	var ve ValidationErrors
	if err := ValidateEmail(l.Email); err != nil {
		ve.Add("email", "Invalid email address")
	}
	if utf8.RuneCountInString(l.Password) < 6 {
		ve.Add("password", "Password must be at least 6 characters")
	}
	return ve.Err()
}

func (f FilterOptions) Validate() error {
	var ve ValidationErrors
	if f.Type != "" && f.Type != FilterAllTypes && !f.Type.IsValid() {
		ve.Add("type", "Type must be income, expense or all")
	}
	ve.nonNegative("amountMin", f.AmountMin)
	ve.nonNegative("amountMax", f.AmountMax)
	return ve.Err()
}

// ValidateEmail checks the address format only; no DNS or SMTP lookups.
func ValidateEmail(email string) error {
	return checkmail.ValidateFormat(strings.TrimSpace(email))
}
