package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fintrack/internal/core"
)

// maxBodyBytes bounds JSON bodies and uploaded import files.
const maxBodyBytes = 5 << 20

var (
	errBadRequest = errors.New("bad request")
	errEmptyBody  = fmt.Errorf("%w: empty body", errBadRequest)
)

// decodeJSON reads a single JSON value from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// uploadReader returns the import payload: the "file" part of a multipart
// form, or the raw body otherwise.
func uploadReader(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return f, nil
	}
	return r.Body, nil
}

// parseFilters builds FilterOptions from query parameters. List values may be
// repeated or comma separated.
func parseFilters(q url.Values) (core.FilterOptions, error) {
	var (
		f  core.FilterOptions
		ve core.ValidationErrors
	)
	date := func(key string) *core.Date {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return nil
		}
		d, err := core.ParseDate(v)
		if err != nil {
			ve.Add(key, "Date must be YYYY-MM-DD")
			return nil
		}
		return &d
	}
	amount := func(key string) *core.Money {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return nil
		}
		m, err := core.ParseSignedAmount(v)
		if err != nil {
			ve.Add(key, "Amount must be a number")
			return nil
		}
		return &m
	}

	f.DateFrom = date("dateFrom")
	f.DateTo = date("dateTo")
	f.AmountMin = amount("amountMin")
	f.AmountMax = amount("amountMax")
	f.Type = core.TransactionType(strings.ToLower(strings.TrimSpace(q.Get("type"))))
	f.Categories = listParam(q, "category", "categories")
	f.Accounts = listParam(q, "account", "accounts")
	f.Search = strings.TrimSpace(q.Get("search"))

	if err := ve.Err(); err != nil {
		return core.FilterOptions{}, err
	}
	if err := f.Validate(); err != nil {
		return core.FilterOptions{}, err
	}
	return f, nil
}

func listParam(q url.Values, keys ...string) []string {
	var out []string
	for _, k := range keys {
		for _, v := range q[k] {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}
