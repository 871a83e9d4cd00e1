package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and display format of an expense date.
const DateLayout = "2006-01-02"

// DefaultCategory is preselected in the entry form.
const DefaultCategory = "Food"

// DefaultCategories are offered as suggestions; any other label is accepted.
var DefaultCategories = []string{
	"Food",
	"Transportation",
	"Entertainment",
	"Bills",
	"Shopping",
	"Other",
}

type (
	// Date is a calendar day. The time-of-day part is always midnight UTC.
	Date struct {
		time.Time
	}

	Expense struct {
		Date        Date   `json:"date"`
		Category    string `json:"category"`
		Amount      Money  `json:"amount"`
		Description string `json:"description"`
	}
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate enforces the single creation-time invariant: a positive amount.
// Category and description are free text and may be empty.
func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Equal reports whether both records carry identical field values.
func (e Expense) Equal(other Expense) bool {
	return e.Date.String() == other.Date.String() &&
		e.Category == other.Category &&
		e.Amount.Equal(other.Amount) &&
		e.Description == other.Description
}
