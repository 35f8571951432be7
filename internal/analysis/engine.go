package analysis

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tim-schilling/publicworks/internal/metrics"
	"github.com/tim-schilling/publicworks/internal/model"
	"github.com/tim-schilling/publicworks/internal/store"
)

// ErrUnknownFilter is returned when a filter code names no reference.
var ErrUnknownFilter = errors.New("unknown filter code")

// GroupResult is one group of an aggregation.
type GroupResult struct {
	Label    string              `json:"label"`
	Measures map[Measure]Summary `json:"measures"`
}

// Engine runs aggregation queries against a store.
type Engine struct {
	store store.Store
}

// NewEngine creates an engine reading from s.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

func (e *Engine) resolve(ctx context.Context, f Filters) (model.FactFilter, error) {
	var filter model.FactFilter
	for _, item := range []struct {
		domain model.Domain
		code   string
		dst    **int64
	}{
		{model.Department, f.Department, &filter.DepartmentID},
		{model.Division, f.Division, &filter.DivisionID},
		{model.Category, f.Category, &filter.CategoryID},
	} {
		code := strings.TrimSpace(item.code)
		if code == "" {
			continue
		}
		refs, err := e.store.References(ctx, item.domain)
		if err != nil {
			return filter, errors.Wrapf(err, "load %s", item.domain)
		}
		var id *int64
		for _, ref := range refs {
			if ref.Code == code && (id == nil || ref.ID < *id) {
				id = &ref.ID
			}
		}
		if id == nil {
			return filter, errors.Wrapf(ErrUnknownFilter, "%s %q", item.domain, code)
		}
		*item.dst = id
	}
	return filter, nil
}

// Aggregate runs q and returns its groups ordered and limited.
func (e *Engine) Aggregate(ctx context.Context, q Query) (results []GroupResult, err error) {
	q = q.normalized()
	start := time.Now()
	defer func() { metrics.QueryFinished(string(q.Dataset), time.Since(start), err) }()

	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter, err := e.resolve(ctx, q.Filters)
	if err != nil {
		return nil, err
	}

	switch q.Dataset {
	case Details:
		facts, err := e.store.DetailFacts(ctx, filter)
		if err != nil {
			return nil, errors.Wrap(err, "load detail facts")
		}
		accessors := make([]detailMeasure, len(q.Measures))
		for i, m := range q.Measures {
			accessors[i] = detailMeasures[m]
		}
		results = aggregate(facts, detailGroups[q.Group], q.Measures, accessors)
	default:
		facts, err := e.store.OrderFacts(ctx, filter)
		if err != nil {
			return nil, errors.Wrap(err, "load order facts")
		}
		accessors := make([]orderMeasure, len(q.Measures))
		for i, m := range q.Measures {
			accessors[i] = orderMeasures[m]
		}
		results = aggregate(facts, orderGroups[q.Group], q.Measures, accessors)
	}

	rank(results, q.OrderBy)
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// aggregate groups facts by label, dropping facts with no label, and
// summarizes each measure over its non-null values.
func aggregate[F any, G ~func(*F) *string, M ~func(*F) decimal.NullDecimal](facts []F, group G, measures []Measure, accessors []M) []GroupResult {
	values := make(map[string][][]decimal.Decimal)
	var labels []string
	for i := range facts {
		f := &facts[i]
		label := group(f)
		if label == nil {
			continue
		}
		cols, ok := values[*label]
		if !ok {
			cols = make([][]decimal.Decimal, len(measures))
			labels = append(labels, *label)
		}
		for j, get := range accessors {
			if v := get(f); v.Valid {
				cols[j] = append(cols[j], v.Decimal)
			}
		}
		values[*label] = cols
	}

	results := make([]GroupResult, 0, len(labels))
	for _, label := range labels {
		r := GroupResult{Label: label, Measures: make(map[Measure]Summary, len(measures))}
		for j, m := range measures {
			r.Measures[m] = Summarize(values[label][j])
		}
		results = append(results, r)
	}
	return results
}

// rank sorts descending by the ordering statistic with nulls last and
// ties broken by label.
func rank(results []GroupResult, by OrderBy) {
	sort.SliceStable(results, func(i, j int) bool {
		a := results[i].Measures[by.Measure].Stat(by.Stat)
		b := results[j].Measures[by.Measure].Stat(by.Stat)
		switch {
		case a.Valid && !b.Valid:
			return true
		case !a.Valid && b.Valid:
			return false
		case a.Valid && b.Valid && !a.Decimal.Equal(b.Decimal):
			return a.Decimal.GreaterThan(b.Decimal)
		}
		return results[i].Label < results[j].Label
	})
}

// Option is one entry of a filter drop-down.
type Option struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// Options lists the filter values used by at least one work order.
type Options struct {
	Departments []Option `json:"departments"`
	Divisions   []Option `json:"divisions"`
	Categories  []Option `json:"categories"`
}

// Options returns the departments, divisions and categories referenced by work orders.
func (e *Engine) Options(ctx context.Context) (*Options, error) {
	load := func(d model.Domain) ([]Option, error) {
		refs, err := e.store.UsedReferences(ctx, d)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s options", d)
		}
		opts := make([]Option, 0, len(refs))
		for _, ref := range refs {
			opts = append(opts, Option{Code: ref.Code, Text: ref.Text})
		}
		return opts, nil
	}
	var (
		out Options
		err error
	)
	if out.Departments, err = load(model.Department); err != nil {
		return nil, err
	}
	if out.Divisions, err = load(model.Division); err != nil {
		return nil, err
	}
	if out.Categories, err = load(model.Category); err != nil {
		return nil, err
	}
	return &out, nil
}
