package etl

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/tim-schilling/publicworks/internal/model"
)

// ErrBlank is wrapped by a ValueError for a blank required field.
var ErrBlank = errors.New("required value is blank")

// ValueError reports a field whose text could not be converted.
type ValueError struct {
	Column string
	Value  string
	Type   string
	Err    error
}

func (e *ValueError) Error() string {
	if errors.Is(e.Err, ErrBlank) {
		return fmt.Sprintf("column %q: %s is blank", e.Column, e.Type)
	}
	return fmt.Sprintf("column %q: invalid %s %q", e.Column, e.Type, e.Value)
}

func (e *ValueError) Unwrap() error { return e.Err }

// MissingReferenceError reports a required code absent from the catalog.
type MissingReferenceError struct {
	Domain model.Domain
	Column string
	Code   string
}

func (e *MissingReferenceError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("column %q: required %s code is blank", e.Column, e.Domain)
	}
	return fmt.Sprintf("column %q: %s code %q not in catalog", e.Column, e.Domain, e.Code)
}

// MissingColumnError fails a whole file before any write.
type MissingColumnError struct {
	Kind    model.Kind
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s file is missing required columns: %s", e.Kind, strings.Join(e.Columns, ", "))
}

// DuplicateLineError rejects a detail whose line is already taken by an
// earlier row of the same project in the file.
type DuplicateLineError struct {
	Project string
	Line    int
}

func (e *DuplicateLineError) Error() string {
	return fmt.Sprintf("detail line %d of project %s appears twice in file", e.Line, e.Project)
}

// RowError ties a rejected row to its line in the source.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
