package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"food", CategoryFood, true},
		{" Transport ", CategoryTransport, true},
		{"BILLS", CategoryBills, true},
		{"other", CategoryOther, true},
		{"groceries", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got (%q, %v), want %q", i, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("case %d: expected ErrInvalidCategory, got %v", i, err)
		}
	}
}

func TestParseDateNormalizesToMiddayUTC(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Fatalf("got %v, want %v", d.Time, want)
	}
	if d.MonthKey() != "2024-01" {
		t.Fatalf("month key = %q", d.MonthKey())
	}
}

func TestParseDateRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "2024-1-15", "15/01/2024", "2024-13-01", "yesterday"} {
		if _, err := ParseDate(s); !errors.Is(err, ErrDateFormat) {
			t.Fatalf("%q: expected ErrDateFormat, got %v", s, err)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{
		Text:     "coffee",
		Amount:   Money{Cents: 350},
		Category: CategoryFood,
		Date:     NewDate(2024, 1, 15),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}

	cases := []struct {
		mutate func(*Record)
		want   error
	}{
		{func(r *Record) { r.Text = "  " }, ErrEmptyText},
		{func(r *Record) { r.Text = string(long) }, ErrTextTooLong},
		{func(r *Record) { r.Amount.Cents = 0 }, ErrInvalidAmount},
		{func(r *Record) { r.Amount.Cents = -100 }, ErrInvalidAmount},
		{func(r *Record) { r.Category = "groceries" }, ErrInvalidCategory},
		{func(r *Record) { r.Date = Date{} }, ErrDateFormat},
	}
	for i, tc := range cases {
		r := good
		tc.mutate(&r)
		if err := r.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestValidationErrorsMatchTaxonomy(t *testing.T) {
	for _, err := range []error{ErrEmptyText, ErrTextTooLong, ErrInvalidAmount, ErrInvalidCategory} {
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%v should wrap ErrValidation", err)
		}
	}
}
