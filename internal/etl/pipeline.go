package etl

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/tim-schilling/publicworks/internal/catalog"
	"github.com/tim-schilling/publicworks/internal/debug"
	"github.com/tim-schilling/publicworks/internal/metrics"
	"github.com/tim-schilling/publicworks/internal/model"
	"github.com/tim-schilling/publicworks/internal/store"
)

const progressEvery = 1000

// Opener opens a fresh reader over a source. Imports read a source twice.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// Source is one file to import.
type Source struct {
	Kind model.Kind
	Name string
	Open Opener
}

// Report summarizes one file import.
type Report struct {
	Kind    model.Kind
	Source  string
	Rows    int
	Created int
	Updated int
	Errors  []RowError
	// SkippedAttributes lists reference attributes the file had no columns for.
	SkippedAttributes []catalog.Attribute
	Duration          time.Duration
}

// Rejected is the number of rows that were not written.
func (r *Report) Rejected() int { return len(r.Errors) }

func (r *Report) String() string {
	return fmt.Sprintf("%s %s: %d rows, %d created, %d updated, %d rejected in %s",
		r.Kind, r.Source, r.Rows, r.Created, r.Updated, r.Rejected(), r.Duration.Round(time.Millisecond))
}

// Pipeline imports request, order and detail files: it populates the
// reference catalog from a file, then parses and upserts every row.
type Pipeline struct {
	store    store.Store
	catalog  *catalog.Catalog
	parser   *Parser
	upserter *Upserter
	debug    bool
}

// NewPipeline creates a pipeline writing to s. loc is the civil timezone of timestamps.
func NewPipeline(s store.Store, loc *time.Location, localDebug bool) *Pipeline {
	c := catalog.New(s)
	return &Pipeline{
		store:    s,
		catalog:  c,
		parser:   NewParser(s, c, loc),
		upserter: NewUpserter(s),
		debug:    localDebug,
	}
}

// Catalog returns the pipeline's reference catalog.
func (p *Pipeline) Catalog() *catalog.Catalog { return p.catalog }

func checkColumns(k model.Kind, rd *Reader) error {
	var missing []string
	for _, col := range RequiredColumns(k) {
		if !rd.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Kind: k, Columns: missing}
	}
	return nil
}

// populate is the first pass: fold every row's coded columns into the catalog.
func (p *Pipeline) populate(ctx context.Context, src Source) ([]catalog.Attribute, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", src.Name)
	}
	defer rc.Close()

	rd, err := NewReader(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", src.Name)
	}
	if err := checkColumns(src.Kind, rd); err != nil {
		return nil, err
	}

	col := catalog.NewCollector(Attributes(src.Kind))
	for {
		row, err := rd.Next()
		if err == io.EOF {
			break
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", src.Name)
		}
		col.Observe(row)
	}
	return p.catalog.Apply(ctx, col)
}

// Import runs both passes over src. Row-level problems are collected in the
// report; the returned error is reserved for file-level failures.
func (p *Pipeline) Import(ctx context.Context, src Source) (*Report, error) {
	debug.DebugHeader(p.debug)
	defer debug.DebugFooter(p.debug)
	defer debug.DebugTiming(p.debug, fmt.Sprintf("import %s", src.Name))()

	start := time.Now()
	report := &Report{Kind: src.Kind, Source: src.Name}
	log := debug.Logger().WithFields(logrus.Fields{"kind": src.Kind, "source": src.Name})
	defer func() {
		report.Duration = time.Since(start)
		metrics.ImportFinished(string(src.Kind), report.Duration)
	}()

	if err := p.catalog.Load(ctx); err != nil {
		return report, errors.Wrap(err, "load catalog")
	}

	debug.DebugOutput(p.debug, "Populating reference catalog from %s", src.Name)
	skipped, err := p.populate(ctx, src)
	if err != nil {
		return report, err
	}
	report.SkippedAttributes = skipped

	rc, err := src.Open(ctx)
	if err != nil {
		return report, errors.Wrapf(err, "reopen %s", src.Name)
	}
	defer rc.Close()
	rd, err := NewReader(rc)
	if err != nil {
		return report, errors.Wrapf(err, "read %s", src.Name)
	}

	reject := func(rowErr *RowError) {
		report.Errors = append(report.Errors, *rowErr)
		metrics.RowProcessed(string(src.Kind), "rejected")
		log.WithField("line", rowErr.Line).Warn(rowErr.Err)
	}

	lines := make(map[int64]*lineNumbers)
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		row, err := rd.Next()
		if err == io.EOF {
			break
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			report.Rows++
			reject(rowErr)
			continue
		}
		if err != nil {
			return report, errors.Wrapf(err, "read %s", src.Name)
		}
		report.Rows++

		project, rec, err := p.parser.Parse(ctx, src.Kind, row)
		if err != nil {
			reject(&RowError{Line: row.Line, Err: err})
			continue
		}
		if d, ok := rec.(*model.WorkDetail); ok {
			ln := lines[project.ID]
			if ln == nil {
				ln = &lineNumbers{used: make(map[int]bool)}
				lines[project.ID] = ln
			}
			if !ln.assign(d) {
				reject(&RowError{Line: row.Line, Err: &DuplicateLineError{Project: project.Code, Line: d.Line}})
				continue
			}
		}

		outcome, err := p.upserter.Upsert(ctx, project, rec)
		if err != nil {
			reject(&RowError{Line: row.Line, Err: err})
			continue
		}
		if outcome == Created {
			report.Created++
		} else {
			report.Updated++
		}
		metrics.RowProcessed(string(src.Kind), outcome.String())

		if report.Rows%progressEvery == 0 {
			debug.DebugOutput(p.debug, "Processed %d %s rows", report.Rows, src.Kind)
		}
	}

	log.WithFields(logrus.Fields{
		"rows":     report.Rows,
		"created":  report.Created,
		"updated":  report.Updated,
		"rejected": report.Rejected(),
	}).Info("import finished")
	return report, nil
}

// lineNumbers tracks the detail lines of one project seen in a file.
type lineNumbers struct {
	used map[int]bool
	next int
}

// assign keeps an explicit Line, or numbers a blank one with the lowest
// ordinal not yet used in the file. It reports false when the line was
// already taken.
func (l *lineNumbers) assign(d *model.WorkDetail) bool {
	if d.Line == 0 {
		l.next++
		for l.used[l.next] {
			l.next++
		}
		d.Line = l.next
	} else if l.used[d.Line] {
		return false
	}
	l.used[d.Line] = true
	return true
}

var kindOrder = map[model.Kind]int{model.KindRequest: 0, model.KindOrder: 1, model.KindDetail: 2}

// ImportAll imports requests, then orders, then details, and stops at the
// first file-level failure.
func (p *Pipeline) ImportAll(ctx context.Context, sources ...Source) ([]*Report, error) {
	ordered := append([]Source(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return kindOrder[ordered[i].Kind] < kindOrder[ordered[j].Kind]
	})
	reports := make([]*Report, 0, len(ordered))
	for _, src := range ordered {
		report, err := p.Import(ctx, src)
		reports = append(reports, report)
		if err != nil {
			return reports, errors.Wrapf(err, "import %s", src.Name)
		}
	}
	return reports, nil
}
