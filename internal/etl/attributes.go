package etl

import (
	"github.com/tim-schilling/publicworks/internal/catalog"
	"github.com/tim-schilling/publicworks/internal/model"
)

// Project code columns.
const (
	ColWorkRequest = "Work Request"
	ColWorkOrder   = "Work Order"
	ColLineNumber  = "Line Number"
)

// RefAttribute is a coded reference column pair. It feeds catalog population
// and, when Set is non-nil, the foreign key lookup while parsing.
type RefAttribute[T model.Record] struct {
	catalog.Attribute
	Policy Policy
	Set    func(rec T, id *int64)
}

func coded(d model.Domain, column string) catalog.Attribute {
	return catalog.Attribute{Domain: d, CodeColumn: column, TextColumn: column + " Text"}
}

func required(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// RequestAttributes are the reference columns of a work request file.
var RequestAttributes = []RefAttribute[*model.WorkRequest]{
	{coded(model.WorkRequestStatus, "Status"), Required, func(r *model.WorkRequest, id *int64) { r.StatusID = required(id) }},
	{coded(model.Category, "Category"), Optional, func(r *model.WorkRequest, id *int64) { r.CategoryID = id }},
	{coded(model.Problem, "Problem"), Optional, func(r *model.WorkRequest, id *int64) { r.ProblemID = id }},
	{coded(model.Department, "Department"), Optional, func(r *model.WorkRequest, id *int64) { r.DepartmentID = id }},
	{coded(model.Division, "Division"), Optional, func(r *model.WorkRequest, id *int64) { r.DivisionID = id }},
}

// OrderAttributes are the reference columns of a work order file.
var OrderAttributes = []RefAttribute[*model.WorkOrder]{
	{coded(model.WorkOrderStatus, "Status"), Required, func(o *model.WorkOrder, id *int64) { o.StatusID = required(id) }},
	{coded(model.Category, "Category"), Required, func(o *model.WorkOrder, id *int64) { o.CategoryID = required(id) }},
	{coded(model.Department, "Department"), Optional, func(o *model.WorkOrder, id *int64) { o.DepartmentID = id }},
	{coded(model.Division, "Division"), Optional, func(o *model.WorkOrder, id *int64) { o.DivisionID = id }},
	{coded(model.Task, "Main Task"), Optional, func(o *model.WorkOrder, id *int64) { o.TaskID = id }},
	{coded(model.Cause, "Cause"), Optional, func(o *model.WorkOrder, id *int64) { o.CauseID = id }},
	{coded(model.Problem, "Problem"), Optional, func(o *model.WorkOrder, id *int64) { o.ProblemID = id }},
	{coded(model.Crew, "Assigned Crew"), Optional, func(o *model.WorkOrder, id *int64) { o.CrewID = id }},
	{coded(model.Route, "Route (Geographic)"), Optional, func(o *model.WorkOrder, id *int64) { o.RouteID = id }},
}

// DetailAttributes are the reference columns of a work detail file. The
// resource type has no setter; it keys the resource lookup instead.
var DetailAttributes = []RefAttribute[*model.WorkDetail]{
	{coded(model.Task, "Task"), Optional, func(d *model.WorkDetail, id *int64) { d.TaskID = id }},
	{coded(model.ResourceType, "Resource Type"), Optional, nil},
	{coded(model.TimeCost, "Time Cost"), Optional, func(d *model.WorkDetail, id *int64) { d.TimeCostID = id }},
	{coded(model.Unit, "Unit of Measure"), Optional, func(d *model.WorkDetail, id *int64) { d.UnitID = id }},
}

func catalogAttributes[T model.Record](attrs []RefAttribute[T]) []catalog.Attribute {
	out := make([]catalog.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = a.Attribute
	}
	return out
}

// Attributes returns the catalog attributes populated from a file of kind k.
func Attributes(k model.Kind) []catalog.Attribute {
	switch k {
	case model.KindRequest:
		return catalogAttributes(RequestAttributes)
	case model.KindOrder:
		return catalogAttributes(OrderAttributes)
	case model.KindDetail:
		return catalogAttributes(DetailAttributes)
	}
	return nil
}

// RequiredColumns lists the columns without which a file of kind k is rejected.
func RequiredColumns(k model.Kind) []string {
	switch k {
	case model.KindRequest:
		return []string{ColWorkRequest, "Status"}
	case model.KindOrder:
		return []string{ColWorkOrder, "Status", "Category"}
	case model.KindDetail:
		return []string{ColWorkOrder}
	}
	return nil
}

// ProjectColumn is the column carrying the project code in a file of kind k.
func ProjectColumn(k model.Kind) string {
	if k == model.KindRequest {
		return ColWorkRequest
	}
	return ColWorkOrder
}
