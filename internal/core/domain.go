package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryHousing       Category = "housing"
	CategoryEntertainment Category = "entertainment"
	CategoryBills         Category = "bills"
	CategoryOther         Category = "other"
)

type (
	// Category is one of the six fixed classification tags.
	Category string

	// Date is a calendar day pinned to 12:00 UTC so that date-only strings
	// round-trip without shifting a day across timezones.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Record is a single expense entry owned by exactly one user.
	Record struct {
		ID       string
		Owner    string
		Text     string
		Amount   Money
		Category Category
		Date     Date
	}
)

var (
	ErrUnauthenticated = errors.New("no authenticated user")
	ErrValidation      = errors.New("invalid record data")
	ErrDateFormat      = errors.New("invalid date format")
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("record belongs to another user")
	ErrPersistence     = errors.New("storage failure")

	ErrEmptyText       = fmt.Errorf("%w: empty text", ErrValidation)
	ErrTextTooLong     = fmt.Errorf("%w: text too long (max 200 characters)", ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidCategory = fmt.Errorf("%w: unknown category", ErrValidation)
)

// Categories lists the fixed category set in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryHousing,
		CategoryEntertainment,
		CategoryBills,
		CategoryOther,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryHousing,
		CategoryEntertainment, CategoryBills, CategoryOther:
		return true
	}
	return false
}

// Label returns the human-readable name used for chart buckets.
func (c Category) Label() string {
	switch c {
	case CategoryFood:
		return "Food & Drink"
	case CategoryTransport:
		return "Transport"
	case CategoryHousing:
		return "Housing"
	case CategoryEntertainment:
		return "Entertainment"
	case CategoryBills:
		return "Bills & Fees"
	default:
		return "Other"
	}
}

// ParseCategory validates a raw category string against the fixed set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// NewDate builds a Date at midday UTC of the given calendar day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)}
}

// ParseDate parses a strict YYYY-MM-DD string into a midday-UTC Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrDateFormat, s)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// MonthKey returns the zero-padded "YYYY-MM" grouping key.
func (d Date) MonthKey() string {
	return d.UTC().Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrDateFormat)
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Abs returns the magnitude in cents. Creation paths only ever produce
// positive amounts; aggregation sums magnitudes regardless.
func (m Money) Abs() int64 {
	if m.Cents < 0 {
		return -m.Cents
	}
	return m.Cents
}

func (r Record) Validate() error {
	if len(strings.TrimSpace(r.Text)) == 0 {
		return ErrEmptyText
	}
	if len(r.Text) > 200 {
		return ErrTextTooLong
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if !r.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, r.Category)
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	return nil
}
