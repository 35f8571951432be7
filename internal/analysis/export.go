package analysis

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

const sheet = "Aggregate"

func header(group Group, measures []Measure) []string {
	h := []string{string(group)}
	for _, m := range measures {
		for _, st := range Stats {
			h = append(h, fmt.Sprintf("%s_%s", m, st))
		}
	}
	return h
}

func cells(r GroupResult, measures []Measure) []string {
	row := []string{r.Label}
	for _, m := range measures {
		s := r.Measures[m]
		for _, st := range Stats {
			v := s.Stat(st)
			if !v.Valid {
				row = append(row, "")
				continue
			}
			row = append(row, v.Decimal.String())
		}
	}
	return row
}

// WriteCSV writes results as CSV with one column per measure and statistic.
func WriteCSV(w io.Writer, group Group, measures []Measure, results []GroupResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(group, measures)); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, r := range results {
		if err := cw.Write(cells(r, measures)); err != nil {
			return errors.Wrapf(err, "write %s", r.Label)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes results as a single-sheet workbook. Statistics are
// numeric cells; nulls are left empty.
func WriteXLSX(w io.Writer, group Group, measures []Measure, results []GroupResult) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "create style")
	}
	h := header(group, measures)
	for i, title := range h {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return errors.Wrap(err, "write header")
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(h), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return errors.Wrap(err, "style header")
	}

	for i, r := range results {
		row := i + 2
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Label); err != nil {
			return errors.Wrapf(err, "write %s", r.Label)
		}
		col := 2
		for _, m := range measures {
			s := r.Measures[m]
			for _, st := range Stats {
				if v := s.Stat(st); v.Valid {
					cell, _ := excelize.CoordinatesToCellName(col, row)
					if err := f.SetCellValue(sheet, cell, v.Decimal.InexactFloat64()); err != nil {
						return errors.Wrapf(err, "write %s", r.Label)
					}
				}
				col++
			}
		}
	}
	return f.Write(w)
}
