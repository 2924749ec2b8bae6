package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date representation used in storage
// and on the wire.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date without a time component, always in UTC.
	Date struct {
		time.Time
	}

	Account struct {
		ID     string `json:"id"`
		UserID string `json:"-"`
		Name   string `json:"name"`
	}

	Category struct {
		ID     string `json:"id"`
		UserID string `json:"-"`
		Name   string `json:"name"`
	}

	// Transaction is owned by an Account. Negative amounts are expenses.
	Transaction struct {
		ID         string  `json:"id"`
		AccountID  string  `json:"accountId"`
		CategoryID *string `json:"categoryId"`
		Payee      string  `json:"payee"`
		Amount     Money   `json:"amount"`
		Date       Date    `json:"date"`
		Notes      *string `json:"notes"`
	}

	// TransactionView is a list row joined with its account and category names.
	TransactionView struct {
		Transaction
		Account  string  `json:"account"`
		Category *string `json:"category"`
	}

	// NewTransaction is the input for creating or replacing a transaction.
	NewTransaction struct {
		AccountID  string  `json:"accountId"`
		CategoryID *string `json:"categoryId,omitempty"`
		Payee      string  `json:"payee"`
		Amount     Money   `json:"amount"`
		Date       Date    `json:"date"`
		Notes      *string `json:"notes,omitempty"`
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyName      = errors.New("empty name")
	ErrNameTooLong    = errors.New("name too long (max 100 characters)")
	ErrEmptyPayee     = errors.New("empty payee")
	ErrPayeeTooLong   = errors.New("payee too long (max 200 characters)")
	ErrMissingAccount = errors.New("missing account id")
)

const maxNameLength = 100

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
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
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.Sub(a.Time).Hours() / 24)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidateName checks an account or category name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (t NewTransaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrMissingAccount
	}
	if strings.TrimSpace(t.Payee) == "" {
		return ErrEmptyPayee
	}
	if len(t.Payee) > 200 {
		return ErrPayeeTooLong
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}
