package etl

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tim-schilling/publicworks/internal/normalize"
)

// Policy is how a field treats a blank value.
type Policy int

const (
	// Optional maps blank to null.
	Optional Policy = iota
	// Zero maps blank to the zero value.
	Zero
	// Required rejects the row on blank.
	Required
)

func (p Policy) String() string {
	switch p {
	case Zero:
		return "zero"
	case Required:
		return "required"
	}
	return "optional"
}

var (
	dateLayouts          = []string{"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006"}
	timestampDateLayouts = []string{"1/2/2006 15:04:05", "1/2/2006"}
	clockLayouts         = []string{"15:04:05", "15:04"}
)

func parseFirst(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses s with the date fallback chain and drops the clock.
func ParseDate(s string) (time.Time, bool) {
	t, ok := parseFirst(s, dateLayouts)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// ParseTimestamp combines the calendar day of date with the clock of clock
// in loc. A blank clock means midnight.
func ParseTimestamp(date, clock string, loc *time.Location) (time.Time, bool) {
	d, ok := parseFirst(date, timestampDateLayouts)
	if !ok {
		return time.Time{}, false
	}
	var c time.Time
	if clock != "" {
		if c, ok = parseFirst(clock, clockLayouts); !ok {
			return time.Time{}, false
		}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc), true
}

// fields reads typed values from a row and keeps the first conversion error,
// so a parser can read every field and check once.
type fields struct {
	row Row
	loc *time.Location
	err error
}

func (f *fields) fail(column, value, typ string, err error) {
	if f.err == nil {
		f.err = &ValueError{Column: column, Value: value, Type: typ, Err: err}
	}
}

func (f *fields) text(column string) string {
	return normalize.Text(f.row.Get(column))
}

func (f *fields) date(column string, p Policy) *time.Time {
	s := f.row.Get(column)
	if s == "" {
		if p == Required {
			f.fail(column, s, "date", ErrBlank)
		}
		return nil
	}
	t, ok := ParseDate(s)
	if !ok {
		f.fail(column, s, "date", nil)
		return nil
	}
	return &t
}

func (f *fields) requiredDate(column string) time.Time {
	if t := f.date(column, Required); t != nil {
		return *t
	}
	return time.Time{}
}

func (f *fields) timestamp(dateColumn, clockColumn string) time.Time {
	date, clock := f.row.Get(dateColumn), f.row.Get(clockColumn)
	if date == "" {
		f.fail(dateColumn, date, "timestamp", ErrBlank)
		return time.Time{}
	}
	t, ok := ParseTimestamp(date, clock, f.loc)
	if !ok {
		f.fail(dateColumn, date+" "+clock, "timestamp", nil)
	}
	return t
}

func (f *fields) flag(column string) bool {
	v, _ := f.row.Lookup(column)
	return v == normalize.Sentinel
}

// optionalFlag is null when the file has no such column.
func (f *fields) optionalFlag(column string) *bool {
	v, ok := f.row.Lookup(column)
	if !ok {
		return nil
	}
	b := v == normalize.Sentinel
	return &b
}

func (f *fields) decimal(column string, p Policy) decimal.NullDecimal {
	s := f.row.Get(column)
	if s == "" {
		switch p {
		case Zero:
			return decimal.NewNullDecimal(decimal.Zero)
		case Required:
			f.fail(column, s, "decimal", ErrBlank)
		}
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.fail(column, s, "decimal", err)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// amount is a decimal that is never null; blank reads as zero.
func (f *fields) amount(column string) decimal.Decimal {
	return f.decimal(column, Zero).Decimal
}

func (f *fields) integer(column string, p Policy) *int {
	d := f.decimal(column, p)
	if !d.Valid {
		return nil
	}
	if !d.Decimal.IsInteger() {
		f.fail(column, f.row.Get(column), "integer", nil)
		return nil
	}
	n := int(d.Decimal.IntPart())
	return &n
}

// count is an integer that is never null; blank reads as zero.
func (f *fields) count(column string) int {
	if n := f.integer(column, Zero); n != nil {
		return *n
	}
	return 0
}
