// Package catalog maintains the reference domains (statuses, categories,
// departments and the like) that import files carry as code/text column
// pairs, and serves the code lookups the record parser needs.
package catalog

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/tim-schilling/publicworks/internal/debug"
	"github.com/tim-schilling/publicworks/internal/metrics"
	"github.com/tim-schilling/publicworks/internal/model"
	"github.com/tim-schilling/publicworks/internal/store"
)

// ErrNoData means a source lacks the code or text column for an attribute.
var ErrNoData = errors.New("source has no data for attribute")

// Row is a single source record addressed by column name.
type Row interface {
	Lookup(column string) (string, bool)
}

// Attribute binds a code column and a text column to a reference domain.
type Attribute struct {
	Domain     model.Domain
	CodeColumn string
	TextColumn string
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s (%s / %s)", a.Domain, a.CodeColumn, a.TextColumn)
}

// Catalog is the write path and lookup index for reference domains.
// It assumes a single writer per store.
type Catalog struct {
	store store.Store

	mu    sync.RWMutex
	index map[model.Domain]map[string]model.Reference
}

// New creates a catalog with an empty index. Call Load to index existing references.
func New(s store.Store) *Catalog {
	return &Catalog{store: s, index: make(map[model.Domain]map[string]model.Reference)}
}

func longer(a, b string) bool {
	return utf8.RuneCountInString(a) > utf8.RuneCountInString(b)
}

// Load rebuilds the index from the store. When a code is stored more than
// once, the entry with the longest text (then lowest ID) is indexed.
func (c *Catalog) Load(ctx context.Context) error {
	index := make(map[model.Domain]map[string]model.Reference, len(model.Domains))
	for _, d := range model.Domains {
		refs, err := c.store.References(ctx, d)
		if err != nil {
			return errors.Wrapf(err, "load %s", d)
		}
		byCode := make(map[string]model.Reference, len(refs))
		for _, r := range refs {
			code := strings.TrimSpace(r.Code)
			if cur, ok := byCode[code]; !ok || longer(r.Text, cur.Text) {
				byCode[code] = r
			}
		}
		index[d] = byCode
	}
	c.mu.Lock()
	c.index = index
	c.mu.Unlock()
	return nil
}

// Lookup returns the reference stored for code in domain d.
func (c *Catalog) Lookup(d model.Domain, code string) (*model.Reference, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.index[d][code]
	if !ok {
		return nil, false
	}
	return &r, true
}

// merge creates or widens the reference for code. Callers hold c.mu.
func (c *Catalog) merge(ctx context.Context, d model.Domain, code, text string) error {
	byCode, ok := c.index[d]
	if !ok {
		byCode = make(map[string]model.Reference)
		c.index[d] = byCode
	}
	cur, ok := byCode[code]
	switch {
	case !ok:
		ref := model.Reference{Domain: d, Code: code, Text: text}
		if err := c.store.CreateReference(ctx, &ref); err != nil {
			return errors.Wrapf(err, "create %s %q", d, code)
		}
		byCode[code] = ref
		metrics.ReferenceChanged(string(d), "created")
	case longer(text, cur.Text):
		if err := c.store.UpdateReferenceText(ctx, cur.ID, text); err != nil {
			return errors.Wrapf(err, "update %s %q", d, code)
		}
		cur.Text = text
		byCode[code] = cur
		metrics.ReferenceChanged(string(d), "updated")
	}
	return nil
}

// Place returns the reference whose code is text, creating it with
// code = text on first sight. Facilities and locations are placed this way.
// Blank text yields nil.
func (c *Catalog) Place(ctx context.Context, d model.Domain, text string) (*model.Reference, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if r, ok := c.Lookup(d, text); ok {
		return r, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.merge(ctx, d, text, text); err != nil {
		return nil, err
	}
	r := c.index[d][text]
	return &r, nil
}

// Collector accumulates the longest text per code for a set of attributes
// while rows stream past, so population needs one pass over a source.
type Collector struct {
	attrs   []Attribute
	texts   []map[string]string
	order   [][]string
	missing []bool
}

// NewCollector prepares a collector for attrs.
func NewCollector(attrs []Attribute) *Collector {
	c := &Collector{
		attrs:   attrs,
		texts:   make([]map[string]string, len(attrs)),
		order:   make([][]string, len(attrs)),
		missing: make([]bool, len(attrs)),
	}
	for i := range attrs {
		c.texts[i] = make(map[string]string)
	}
	return c
}

// Observe folds one row into the collector. A row lacking either column
// marks the attribute unusable for the whole source.
func (c *Collector) Observe(row Row) {
	for i, a := range c.attrs {
		if c.missing[i] {
			continue
		}
		code, ok := row.Lookup(a.CodeColumn)
		if !ok {
			c.missing[i] = true
			continue
		}
		text, ok := row.Lookup(a.TextColumn)
		if !ok {
			c.missing[i] = true
			continue
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		text = strings.TrimSpace(text)
		cur, seen := c.texts[i][code]
		if !seen {
			c.order[i] = append(c.order[i], code)
			c.texts[i][code] = text
			continue
		}
		if longer(text, cur) {
			c.texts[i][code] = text
		}
	}
}

// Apply writes every usable attribute of col to the store and returns the
// attributes that were skipped because their columns were missing.
func (c *Catalog) Apply(ctx context.Context, col *Collector) ([]Attribute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var skipped []Attribute
	for i, a := range col.attrs {
		if col.missing[i] {
			debug.Logger().WithFields(logrus.Fields{
				"domain": a.Domain,
				"code":   a.CodeColumn,
				"text":   a.TextColumn,
			}).Warn("source lacks reference columns, attribute skipped")
			skipped = append(skipped, a)
			continue
		}
		for _, code := range col.order[i] {
			if err := c.merge(ctx, a.Domain, code, col.texts[i][code]); err != nil {
				return skipped, err
			}
		}
	}
	return skipped, nil
}

// Populate folds every row into domain attr.Domain. It returns ErrNoData,
// writing nothing, when the rows lack either column.
func (c *Catalog) Populate(ctx context.Context, attr Attribute, rows iter.Seq[Row]) error {
	col := NewCollector([]Attribute{attr})
	for row := range rows {
		col.Observe(row)
	}
	skipped, err := c.Apply(ctx, col)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		return errors.Wrap(ErrNoData, attr.String())
	}
	return nil
}

// DedupReport summarizes a Deduplicate run.
type DedupReport struct {
	Merged  map[model.Domain]int
	Deleted map[model.Domain]int
	// Kept lists blank-code references still used by a required field.
	Kept []model.Reference
}

// Deduplicate repairs domains holding several references for one code by
// merging them into the longest-text entry (then lowest ID), and deletes
// references whose code is blank.
func (c *Catalog) Deduplicate(ctx context.Context) (*DedupReport, error) {
	report := &DedupReport{
		Merged:  make(map[model.Domain]int),
		Deleted: make(map[model.Domain]int),
	}
	for _, d := range model.Domains {
		refs, err := c.store.References(ctx, d)
		if err != nil {
			return report, errors.Wrapf(err, "list %s", d)
		}

		groups := make(map[string][]model.Reference)
		var codes []string
		for _, r := range refs {
			code := strings.TrimSpace(r.Code)
			if code == "" {
				if err := c.store.DeleteReference(ctx, r.ID); err != nil {
					if errors.Is(err, store.ErrReferenceInUse) {
						report.Kept = append(report.Kept, r)
						continue
					}
					return report, errors.Wrapf(err, "delete blank %s %d", d, r.ID)
				}
				report.Deleted[d]++
				metrics.ReferenceChanged(string(d), "deleted")
				continue
			}
			if _, ok := groups[code]; !ok {
				codes = append(codes, code)
			}
			groups[code] = append(groups[code], r)
		}

		for _, code := range codes {
			group := groups[code]
			if len(group) < 2 {
				continue
			}
			// References come back ordered by ID, so a strict comparison keeps the lowest ID on ties.
			keep := group[0]
			for _, r := range group[1:] {
				if longer(r.Text, keep.Text) {
					keep = r
				}
			}
			for _, r := range group {
				if r.ID == keep.ID {
					continue
				}
				if err := c.store.MergeReference(ctx, r.ID, keep.ID); err != nil {
					return report, errors.Wrapf(err, "merge %s %d into %d", d, r.ID, keep.ID)
				}
				report.Merged[d]++
				metrics.ReferenceChanged(string(d), "merged")
			}
			debug.Logger().WithFields(logrus.Fields{
				"domain": d,
				"code":   code,
				"kept":   keep.ID,
			}).Infof("merged %d duplicates", len(group)-1)
		}
	}
	return report, c.Load(ctx)
}
