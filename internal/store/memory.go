package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tim-schilling/publicworks/internal/model"
)

type detailKey struct {
	project int64
	line    int
}

// MemoryStore keeps everything in process memory. It backs dry-run imports and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64

	refs      map[int64]model.Reference
	projects  map[string]model.Project
	addresses []model.Address
	assets    []model.Asset
	resources []model.Resource

	requests map[int64]model.WorkRequest
	orders   map[int64]model.WorkOrder
	details  map[detailKey]model.WorkDetail
	// detailOrder preserves insertion order so facts come back deterministically.
	detailOrder []detailKey
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refs:     make(map[int64]model.Reference),
		projects: make(map[string]model.Project),
		requests: make(map[int64]model.WorkRequest),
		orders:   make(map[int64]model.WorkOrder),
		details:  make(map[detailKey]model.WorkDetail),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// References returns every reference in d ordered by ID.
func (m *MemoryStore) References(_ context.Context, d model.Domain) ([]model.Reference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Reference
	for _, r := range m.refs {
		if r.Domain == d {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateReference inserts ref and assigns its ID. Duplicate codes are not rejected.
func (m *MemoryStore) CreateReference(_ context.Context, ref *model.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref.ID = m.id()
	m.refs[ref.ID] = *ref
	return nil
}

// UpdateReferenceText replaces the text of a reference.
func (m *MemoryStore) UpdateReferenceText(_ context.Context, id int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.refs[id]
	if !ok {
		return ErrNotFound
	}
	r.Text = text
	m.refs[id] = r
	return nil
}

// MergeReference re-points every foreign key from fromID to toID and deletes fromID.
func (m *MemoryStore) MergeReference(_ context.Context, fromID, toID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refs[fromID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.refs[toID]; !ok {
		return ErrNotFound
	}
	m.mergeResources(fromID, toID)
	m.rewrite(fromID, &toID)
	delete(m.refs, fromID)
	return nil
}

// mergeResources folds each resource typed fromType into the resource with
// the same code typed toType, so re-typing keeps (code, type) unique.
func (m *MemoryStore) mergeResources(fromType, toType int64) {
	survivors := make(map[string]int64)
	for _, res := range m.resources {
		if res.TypeID == toType {
			survivors[res.Code] = res.ID
		}
	}
	moved := make(map[int64]int64)
	kept := m.resources[:0]
	for _, res := range m.resources {
		if id, ok := survivors[res.Code]; ok && res.TypeID == fromType {
			moved[res.ID] = id
			continue
		}
		kept = append(kept, res)
	}
	m.resources = kept
	if len(moved) == 0 {
		return
	}
	for k, d := range m.details {
		if d.ResourceID == nil {
			continue
		}
		if id, ok := moved[*d.ResourceID]; ok {
			d.ResourceID = &id
			m.details[k] = d
		}
	}
}

// DeleteReference clears optional foreign keys pointing at id and deletes it.
func (m *MemoryStore) DeleteReference(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refs[id]; !ok {
		return ErrNotFound
	}
	if m.requiredUse(id) {
		return ErrReferenceInUse
	}
	m.rewrite(id, nil)
	delete(m.refs, id)
	return nil
}

func (m *MemoryStore) requiredUse(id int64) bool {
	for _, r := range m.requests {
		if r.StatusID == id {
			return true
		}
	}
	for _, o := range m.orders {
		if o.StatusID == id || o.CategoryID == id {
			return true
		}
	}
	for _, res := range m.resources {
		if res.TypeID == id {
			return true
		}
	}
	return false
}

// rewrite replaces every foreign key equal to from with to (nil clears optional keys).
func (m *MemoryStore) rewrite(from int64, to *int64) {
	opt := func(p **int64) {
		if *p != nil && **p == from {
			if to == nil {
				*p = nil
			} else {
				v := *to
				*p = &v
			}
		}
	}
	req := func(p *int64) {
		if *p == from && to != nil {
			*p = *to
		}
	}
	for k, r := range m.requests {
		req(&r.StatusID)
		for _, p := range []**int64{&r.CategoryID, &r.ProblemID, &r.DepartmentID, &r.DivisionID, &r.FacilityID, &r.LocationID} {
			opt(p)
		}
		m.requests[k] = r
	}
	for k, o := range m.orders {
		req(&o.StatusID)
		req(&o.CategoryID)
		for _, p := range []**int64{&o.DepartmentID, &o.DivisionID, &o.TaskID, &o.CauseID, &o.ProblemID, &o.CrewID, &o.FacilityID, &o.RouteID} {
			opt(p)
		}
		m.orders[k] = o
	}
	for k, d := range m.details {
		for _, p := range []**int64{&d.TaskID, &d.TimeCostID, &d.UnitID} {
			opt(p)
		}
		m.details[k] = d
	}
	for i := range m.resources {
		req(&m.resources[i].TypeID)
	}
}

// UsedReferences returns references of d used by at least one work order, ordered by text.
func (m *MemoryStore) UsedReferences(_ context.Context, d model.Domain) ([]model.Reference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	used := make(map[int64]bool)
	for _, o := range m.orders {
		switch d {
		case model.Department:
			if o.DepartmentID != nil {
				used[*o.DepartmentID] = true
			}
		case model.Division:
			if o.DivisionID != nil {
				used[*o.DivisionID] = true
			}
		case model.Category:
			used[o.CategoryID] = true
		}
	}
	var out []model.Reference
	for id := range used {
		if r, ok := m.refs[id]; ok && r.Domain == d {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Text != out[j].Text {
			return out[i].Text < out[j].Text
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetOrCreateProject returns the project with code, creating it on first reference.
func (m *MemoryStore) GetOrCreateProject(_ context.Context, code string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[code]; ok {
		return &p, nil
	}
	p := model.Project{ID: m.id(), Code: code}
	m.projects[code] = p
	return &p, nil
}

// GetOrCreateAddress matches addr on every field and creates it on a miss.
func (m *MemoryStore) GetOrCreateAddress(_ context.Context, addr model.Address) (*model.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.addresses {
		if a.SameAs(addr) {
			found := a
			return &found, nil
		}
	}
	addr.ID = m.id()
	m.addresses = append(m.addresses, addr)
	return &addr, nil
}

// GetOrCreateAsset matches on (code, desc1, desc2).
func (m *MemoryStore) GetOrCreateAsset(_ context.Context, asset model.Asset) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assets {
		if a.Code == asset.Code && a.Desc1 == asset.Desc1 && a.Desc2 == asset.Desc2 {
			found := a
			return &found, nil
		}
	}
	asset.ID = m.id()
	m.assets = append(m.assets, asset)
	return &asset, nil
}

// GetOrCreateResource matches on (code, type). Text and cost are only used on creation.
func (m *MemoryStore) GetOrCreateResource(_ context.Context, res model.Resource) (*model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.resources {
		if r.Code == res.Code && r.TypeID == res.TypeID {
			found := r
			return &found, nil
		}
	}
	res.ID = m.id()
	m.resources = append(m.resources, res)
	return &res, nil
}

// FindWorkRequest returns the request linked to projectID.
func (m *MemoryStore) FindWorkRequest(_ context.Context, projectID int64) (*model.WorkRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

// CreateWorkRequest inserts r and assigns its ID.
func (m *MemoryStore) CreateWorkRequest(_ context.Context, r *model.WorkRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	m.requests[r.ProjectID] = *r
	return nil
}

// UpdateWorkRequest overwrites the request linked to r.ProjectID.
func (m *MemoryStore) UpdateWorkRequest(_ context.Context, r *model.WorkRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ProjectID]; !ok {
		return ErrNotFound
	}
	m.requests[r.ProjectID] = *r
	return nil
}

// FindWorkOrder returns the order linked to projectID.
func (m *MemoryStore) FindWorkOrder(_ context.Context, projectID int64) (*model.WorkOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

// CreateWorkOrder inserts o and assigns its ID.
func (m *MemoryStore) CreateWorkOrder(_ context.Context, o *model.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.id()
	m.orders[o.ProjectID] = *o
	return nil
}

// UpdateWorkOrder overwrites the order linked to o.ProjectID.
func (m *MemoryStore) UpdateWorkOrder(_ context.Context, o *model.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ProjectID]; !ok {
		return ErrNotFound
	}
	m.orders[o.ProjectID] = *o
	return nil
}

// FindWorkDetail returns the detail at (projectID, line).
func (m *MemoryStore) FindWorkDetail(_ context.Context, projectID int64, line int) (*model.WorkDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.details[detailKey{projectID, line}]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// CreateWorkDetail inserts d and assigns its ID.
func (m *MemoryStore) CreateWorkDetail(_ context.Context, d *model.WorkDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := detailKey{d.ProjectID, d.Line}
	d.ID = m.id()
	if _, exists := m.details[key]; !exists {
		m.detailOrder = append(m.detailOrder, key)
	}
	m.details[key] = *d
	return nil
}

// UpdateWorkDetail overwrites the detail at (d.ProjectID, d.Line).
func (m *MemoryStore) UpdateWorkDetail(_ context.Context, d *model.WorkDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := detailKey{d.ProjectID, d.Line}
	if _, ok := m.details[key]; !ok {
		return ErrNotFound
	}
	m.details[key] = *d
	return nil
}

func (m *MemoryStore) text(id *int64) *string {
	if id == nil {
		return nil
	}
	r, ok := m.refs[*id]
	if !ok {
		return nil
	}
	t := r.Text
	return &t
}

func matchesFilter(o model.WorkOrder, f model.FactFilter) bool {
	eq := func(want, got *int64) bool {
		return want == nil || (got != nil && *got == *want)
	}
	if !eq(f.DepartmentID, o.DepartmentID) || !eq(f.DivisionID, o.DivisionID) {
		return false
	}
	return f.CategoryID == nil || *f.CategoryID == o.CategoryID
}

// OrderFacts flattens work orders matching filter, ordered by order ID.
func (m *MemoryStore) OrderFacts(_ context.Context, filter model.FactFilter) ([]model.OrderFact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := make([]model.WorkOrder, 0, len(m.orders))
	for _, o := range m.orders {
		if matchesFilter(o, filter) {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	facts := make([]model.OrderFact, 0, len(orders))
	for _, o := range orders {
		category := o.CategoryID
		facts = append(facts, model.OrderFact{
			Category:       m.text(&category),
			Problem:        m.text(o.ProblemID),
			Department:     m.text(o.DepartmentID),
			Division:       m.text(o.DivisionID),
			Task:           m.text(o.TaskID),
			Cause:          m.text(o.CauseID),
			TotalCost:      o.TotalCost,
			LaborCost:      o.LaborCost,
			MaterialCost:   o.MaterialCost,
			EquipmentCost:  o.EquipmentCost,
			ContractorCost: o.ContractorCost,
			MiscCost:       o.MiscCost,
			LaborHours:     o.LaborHours,
			Quantity:       o.Quantity,
			Duration:       o.Duration,
		})
	}
	return facts, nil
}

// DetailFacts flattens work details whose project's work order matches filter.
func (m *MemoryStore) DetailFacts(_ context.Context, filter model.FactFilter) ([]model.DetailFact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	filtered := !filter.Empty()
	var facts []model.DetailFact
	for _, key := range m.detailOrder {
		d := m.details[key]
		if filtered {
			o, ok := m.orders[d.ProjectID]
			if !ok || !matchesFilter(o, filter) {
				continue
			}
		}
		fact := model.DetailFact{
			Task:                m.text(d.TaskID),
			UnitCost:            d.UnitCost,
			Units:               d.Units,
			TotalCost:           d.TotalCost,
			TotalUnits:          d.TotalUnits,
			UnitCostRegularTime: d.UnitCostRegularTime,
			UnitCostOvertime:    d.UnitCostOvertime,
			OvertimeUnitCost:    d.OvertimeUnitCost,
			GrandTotalCost:      d.GrandTotalCost,
			Duration:            d.Duration,
		}
		if d.ResourceID != nil {
			for _, res := range m.resources {
				if res.ID == *d.ResourceID {
					text := res.Text
					fact.Resource = &text
					typeID := res.TypeID
					fact.ResourceType = m.text(&typeID)
					break
				}
			}
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// Counts returns row counts per table.
func (m *MemoryStore) Counts(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		TableReference:   len(m.refs),
		TableProject:     len(m.projects),
		TableAddress:     len(m.addresses),
		TableAsset:       len(m.assets),
		TableResource:    len(m.resources),
		TableWorkRequest: len(m.requests),
		TableWorkOrder:   len(m.orders),
		TableWorkDetail:  len(m.details),
	}, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
