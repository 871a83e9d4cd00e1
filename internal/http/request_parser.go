// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data. The same field names are accepted from HTMX form posts, query
// strings and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensemanager/internal/core"
)

// maxBodyBytes bounds request bodies; an expense form is a few hundred bytes.
const maxBodyBytes = 64 << 10

// ErrNoSelection means the delete request did not name a valid row.
var ErrNoSelection = errors.New("no expense selected")

// ExpenseInput is the raw text the user typed, echoed back when validation
// fails so nothing is lost.
type ExpenseInput struct {
	Date        string
	Category    string
	Amount      string
	Description string
}

// Selection identifies a table row by position. Revision is the ledger
// revision the row was rendered at, valid only when HasRevision is set.
type Selection struct {
	Index       int
	Revision    uint64
	HasRevision bool
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	query       url.Values
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
		query:       r.URL.Query(),
	}

	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if p.err == nil && len(p.body) > maxBodyBytes {
			p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
		}
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized value from the body, falling back to the query
// string. HTMX sends DELETE parameters in the URL.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		if _, ok := p.formData[key]; ok {
			return sanitizeInput(p.formData.Get(key))
		}
	}
	return sanitizeInput(p.query.Get(key))
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseExpenseInput reads the add form fields.
func ParseExpenseInput(p *RequestBodyParser) ExpenseInput {
	return ExpenseInput{
		Date:        strings.TrimSpace(p.Get("date")),
		Category:    p.Get("category"),
		Amount:      strings.TrimSpace(p.Get("amount")),
		Description: p.Get("description"),
	}
}

// Expense converts the input into a record. An empty date means today.
// The returned error wraps core.ErrInvalidDate or core.ErrInvalidAmount.
func (in ExpenseInput) Expense(today core.Date) (core.Expense, error) {
	date := today
	if in.Date != "" {
		d, err := core.ParseDate(in.Date)
		if err != nil {
			return core.Expense{}, err
		}
		date = d
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Expense{}, err
	}

	return core.Expense{
		Date:        date,
		Category:    in.Category,
		Amount:      amount,
		Description: in.Description,
	}, nil
}

// ParseSelection reads the selected row index and, when present, the
// revision it was rendered at.
func ParseSelection(p *RequestBodyParser) (Selection, error) {
	raw := strings.TrimSpace(p.Get("index"))
	if raw == "" {
		return Selection{}, ErrNoSelection
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return Selection{}, fmt.Errorf("%w: %q", ErrNoSelection, raw)
	}

	sel := Selection{Index: index}
	if rev := strings.TrimSpace(p.Get("revision")); rev != "" {
		parsed, err := strconv.ParseUint(rev, 10, 64)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: bad revision %q", ErrNoSelection, rev)
		}
		sel.Revision = parsed
		sel.HasRevision = true
	}
	return sel, nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}
