package etl

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/go-faster/errors"
)

// Row is one data record of a source file. Columns are matched
// case-insensitively against the header.
type Row struct {
	// Line is the 1-based line in the file where the record starts.
	Line int

	columns map[string]int
	values  []string
}

// NewRow builds a row from explicit column/value pairs.
func NewRow(line int, values map[string]string) Row {
	r := Row{Line: line, columns: make(map[string]int, len(values))}
	for col, v := range values {
		r.columns[key(col)] = len(r.values)
		r.values = append(r.values, v)
	}
	return r
}

func key(column string) string {
	return strings.ToLower(strings.TrimSpace(column))
}

// Lookup returns the raw value of column and whether the file has that column.
// A short record yields "" for trailing columns.
func (r Row) Lookup(column string) (string, bool) {
	i, ok := r.columns[key(column)]
	if !ok {
		return "", false
	}
	if i >= len(r.values) {
		return "", true
	}
	return r.values[i], true
}

// Get returns the trimmed value of column, or "" when absent.
func (r Row) Get(column string) string {
	v, _ := r.Lookup(column)
	return strings.TrimSpace(v)
}

// Reader streams rows from CSV with a header line.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
}

// NewReader reads the header from src.
func NewReader(src io.Reader) (*Reader, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file: no header")
		}
		return nil, errors.Wrap(err, "read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columns := make(map[string]int, len(header))
	for i, col := range header {
		k := key(col)
		if _, dup := columns[k]; !dup {
			columns[k] = i
		}
	}
	return &Reader{csv: cr, columns: columns}, nil
}

// HasColumn reports whether the header contains column.
func (r *Reader) HasColumn(column string) bool {
	_, ok := r.columns[key(column)]
	return ok
}

// Next returns the next row, or io.EOF after the last one. A malformed
// record yields a *RowError and reading may continue.
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Row{}, &RowError{Line: perr.StartLine, Err: err}
		}
		return Row{}, errors.Wrap(err, "read record")
	}
	line, _ := r.csv.FieldPos(0)
	return Row{Line: line, columns: r.columns, values: record}, nil
}
