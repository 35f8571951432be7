package etl

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/tim-schilling/publicworks/internal/catalog"
	"github.com/tim-schilling/publicworks/internal/model"
	"github.com/tim-schilling/publicworks/internal/normalize"
	"github.com/tim-schilling/publicworks/internal/store"
)

// Parser turns rows into records. Every value is converted and every coded
// reference looked up before anything is written, so a rejected row leaves
// no projects, addresses or assets behind.
type Parser struct {
	store   store.Store
	catalog *catalog.Catalog
	address *normalize.Resolver
	loc     *time.Location
}

// NewParser creates a parser. loc is the civil timezone of request timestamps.
func NewParser(s store.Store, c *catalog.Catalog, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{store: s, catalog: c, address: normalize.NewResolver(s), loc: loc}
}

func lookupRefs[T model.Record](c *catalog.Catalog, row Row, attrs []RefAttribute[T], rec T) error {
	for _, a := range attrs {
		if a.Set == nil {
			continue
		}
		code := row.Get(a.CodeColumn)
		ref, ok := c.Lookup(a.Domain, code)
		if !ok {
			if a.Policy == Required {
				return &MissingReferenceError{Domain: a.Domain, Column: a.CodeColumn, Code: code}
			}
			a.Set(rec, nil)
			continue
		}
		id := ref.ID
		a.Set(rec, &id)
	}
	return nil
}

func (p *Parser) project(ctx context.Context, row Row, column string) (*model.Project, error) {
	code := row.Get(column)
	if code == "" {
		return nil, &ValueError{Column: column, Type: "project code", Err: ErrBlank}
	}
	project, err := p.store.GetOrCreateProject(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "project")
	}
	return project, nil
}

func (p *Parser) addressID(ctx context.Context, row Row) (*int64, error) {
	addr, err := p.address.Resolve(ctx, row)
	if err != nil || addr == nil {
		return nil, err
	}
	return &addr.ID, nil
}

func (p *Parser) place(ctx context.Context, d model.Domain, row Row, column string) (*int64, error) {
	ref, err := p.catalog.Place(ctx, d, row.Get(column))
	if err != nil || ref == nil {
		return nil, err
	}
	return &ref.ID, nil
}

// Parse converts row into a record of kind k linked to its project.
func (p *Parser) Parse(ctx context.Context, k model.Kind, row Row) (*model.Project, model.Record, error) {
	switch k {
	case model.KindRequest:
		return p.ParseRequest(ctx, row)
	case model.KindOrder:
		return p.ParseOrder(ctx, row)
	case model.KindDetail:
		return p.ParseDetail(ctx, row)
	}
	return nil, nil, errors.Errorf("unknown kind %q", k)
}

// ParseRequest converts a work request row.
func (p *Parser) ParseRequest(ctx context.Context, row Row) (*model.Project, model.Record, error) {
	f := &fields{row: row, loc: p.loc}
	r := &model.WorkRequest{
		Received:          f.timestamp("Date Received", "Time Received"),
		Priority:          f.integer("Priority", Optional),
		Updated:           f.requiredDate("Last Updated"),
		AfterHours:        f.flag("After Hours"),
		CallbackRequested: f.optionalFlag("Callback Requested"),
		ProjectedStart:    f.date("Projected Start", Optional),
		RelatedAsset:      f.text("Related Asset"),
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	if err := lookupRefs(p.catalog, row, RequestAttributes, r); err != nil {
		return nil, nil, err
	}

	project, err := p.project(ctx, row, ColWorkRequest)
	if err != nil {
		return nil, nil, err
	}
	r.ProjectID = project.ID
	if r.AddressID, err = p.addressID(ctx, row); err != nil {
		return nil, nil, err
	}
	if r.FacilityID, err = p.place(ctx, model.Facility, row, "Facility"); err != nil {
		return nil, nil, err
	}
	if r.LocationID, err = p.place(ctx, model.Location, row, "Location"); err != nil {
		return nil, nil, err
	}
	return project, r, nil
}

// ParseOrder converts a work order row.
func (p *Parser) ParseOrder(ctx context.Context, row Row) (*model.Project, model.Record, error) {
	f := &fields{row: row, loc: p.loc}
	o := &model.WorkOrder{
		Created:         f.requiredDate("Date Created"),
		Updated:         f.requiredDate("Last Updated"),
		Priority:        f.integer("Priority", Optional),
		TotalCost:       f.amount("Total Cost"),
		Quantity:        f.count("Quantity"),
		LaborHours:      f.amount("Labor Hours"),
		LaborCost:       f.amount("Labor Cost"),
		EquipmentCost:   f.amount("Equipment Cost"),
		MaterialCost:    f.amount("Material Cost"),
		ContractorCost:  f.amount("Contractor Cost"),
		MiscCost:        f.amount("Misc Cost"),
		Start:           f.date("Start Date", Optional),
		End:             f.date("End Date", Optional),
		Duration:        f.count("Duration"),
		BillingRequired: f.flag("Billing Required"),
		Supervisor:      f.integer("Supervisor", Optional),
		LeadWorker:      f.integer("Lead Worker", Optional),
		ProjectNumber:   f.text("Project Number"),
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	if err := lookupRefs(p.catalog, row, OrderAttributes, o); err != nil {
		return nil, nil, err
	}

	project, err := p.project(ctx, row, ColWorkOrder)
	if err != nil {
		return nil, nil, err
	}
	o.ProjectID = project.ID
	if o.AddressID, err = p.addressID(ctx, row); err != nil {
		return nil, nil, err
	}
	if o.FacilityID, err = p.place(ctx, model.Facility, row, "Facility"); err != nil {
		return nil, nil, err
	}
	if code := row.Get("Asset"); code != "" {
		asset, err := p.store.GetOrCreateAsset(ctx, model.Asset{
			Code:  code,
			Desc1: f.text("Asset Description 1"),
			Desc2: f.text("Asset Description 2"),
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "asset")
		}
		o.AssetID = &asset.ID
	}
	return project, o, nil
}

// ParseDetail converts a work detail row. Line is taken from the Line Number
// column when it holds an integer and is left zero otherwise; the pipeline
// then numbers the row within its project.
func (p *Parser) ParseDetail(ctx context.Context, row Row) (*model.Project, model.Record, error) {
	f := &fields{row: row, loc: p.loc}
	d := &model.WorkDetail{
		Created:             f.requiredDate("Date Created"),
		Start:               f.date("Start Date", Optional),
		End:                 f.date("End Date", Optional),
		Updated:             f.date("Last Updated", Optional),
		Duration:            f.count("Duration"),
		ResourceDesc:        f.text("Resource Description"),
		UnitCost:            f.decimal("Unit Cost", Optional),
		Units:               f.decimal("Units", Optional),
		TotalCost:           f.decimal("Total Cost", Optional),
		TotalUnits:          f.decimal("Total Units", Optional),
		UnitCostRegularTime: f.decimal("Unit Cost Regular Time", Optional),
		UnitCostOvertime:    f.decimal("Unit Cost Overtime", Optional),
		OvertimeUnitCost:    f.decimal("Overtime Unit Cost", Optional),
		GrandTotalCost:      f.decimal("Grand Total Cost", Optional),
	}
	defaultCost := f.amount("Default Unit Cost")
	if f.err != nil {
		return nil, nil, f.err
	}
	lineField := &fields{row: row}
	if n := lineField.integer(ColLineNumber, Optional); lineField.err == nil && n != nil && *n > 0 {
		d.Line = *n
	}
	if err := lookupRefs(p.catalog, row, DetailAttributes, d); err != nil {
		return nil, nil, err
	}

	project, err := p.project(ctx, row, ColWorkOrder)
	if err != nil {
		return nil, nil, err
	}
	d.ProjectID = project.ID

	code := row.Get("Resource")
	typ, ok := p.catalog.Lookup(model.ResourceType, row.Get("Resource Type"))
	if code != "" && ok {
		res, err := p.store.GetOrCreateResource(ctx, model.Resource{
			Code:            code,
			TypeID:          typ.ID,
			Text:            f.text("Resource Text"),
			DefaultUnitCost: defaultCost,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "resource")
		}
		d.ResourceID = &res.ID
	}
	return project, d, nil
}
