package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"1/5/2023 08:30:15", time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"12/31/2022 23:59", time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"3/4/2023", time.Date(2023, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"2023-03-04", time.Time{}, false},
		{"13/40/2023", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	tests := []struct {
		name   string
		date   string
		clock  string
		want   time.Time
		wantOK bool
	}{
		{"date and clock", "3/4/2023", "14:05:30", time.Date(2023, 3, 4, 14, 5, 30, 0, chicago), true},
		{"short clock", "3/4/2023", "9:15", time.Date(2023, 3, 4, 9, 15, 0, 0, chicago), true},
		{"clock in date column is ignored", "3/4/2023 11:11:11", "08:00", time.Date(2023, 3, 4, 8, 0, 0, 0, chicago), true},
		{"blank clock is midnight", "3/4/2023", "", time.Date(2023, 3, 4, 0, 0, 0, 0, chicago), true},
		{"bad clock", "3/4/2023", "noon", time.Time{}, false},
		{"bad date", "yesterday", "08:00", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.date, tt.clock, chicago)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "ParseTimestamp() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFieldsPolicies(t *testing.T) {
	row := NewRow(2, map[string]string{
		"Cost":  " 12.3400 ",
		"Blank": "  ",
		"Bad":   "12,00",
		"Count": "3.0",
		"Frac":  "2.5",
		"Flag":  "TRUE",
		"Lower": "True",
	})

	f := &fields{row: row}
	assert.Equal(t, "12.34", f.amount("Cost").String())
	assert.True(t, f.amount("Blank").IsZero())
	assert.False(t, f.decimal("Blank", Optional).Valid)
	assert.False(t, f.decimal("Absent", Optional).Valid)
	assert.Equal(t, 3, f.count("Count"))
	assert.Nil(t, f.integer("Blank", Optional))
	assert.True(t, f.flag("Flag"))
	assert.False(t, f.flag("Lower"))
	assert.Nil(t, f.optionalFlag("Absent"))
	require.NotNil(t, f.optionalFlag("Lower"))
	assert.False(t, *f.optionalFlag("Lower"))
	require.NoError(t, f.err)

	f = &fields{row: row}
	f.decimal("Bad", Optional)
	var verr *ValueError
	require.ErrorAs(t, f.err, &verr)
	assert.Equal(t, "Bad", verr.Column)

	f = &fields{row: row}
	f.integer("Frac", Optional)
	require.ErrorAs(t, f.err, &verr)
	assert.Equal(t, "integer", verr.Type)

	f = &fields{row: row}
	f.decimal("Blank", Required)
	assert.ErrorIs(t, f.err, ErrBlank)

	f = &fields{row: row}
	assert.Nil(t, f.date("Blank", Optional))
	assert.NoError(t, f.err)
	f.requiredDate("Blank")
	assert.ErrorIs(t, f.err, ErrBlank)
}

func TestRowLookup(t *testing.T) {
	rd, err := NewReader(stringsReader("\ufeffWork Order, Status \n1001,OPEN\n1002\n"))
	require.NoError(t, err)
	assert.True(t, rd.HasColumn("work order"))
	assert.True(t, rd.HasColumn("Status"))

	row, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, "OPEN", row.Get("status"))

	row, err = rd.Next()
	require.NoError(t, err)
	v, ok := row.Lookup("Status")
	assert.True(t, ok, "short record still has the column")
	assert.Equal(t, "", v)
	_, ok = row.Lookup("Missing")
	assert.False(t, ok)
}
