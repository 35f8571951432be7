// Package analysis computes grouped cost statistics over work orders and
// work details for the dashboard.
package analysis

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tim-schilling/publicworks/internal/model"
)

// Dataset selects the fact rows a query runs over.
type Dataset string

const (
	Orders  Dataset = "orders"
	Details Dataset = "details"
)

// Group names the reference domain results are grouped by.
type Group string

const (
	ByCategory     Group = "category"
	ByProblem      Group = "problem"
	ByDepartment   Group = "department"
	ByDivision     Group = "division"
	ByTask         Group = "task"
	ByCause        Group = "cause"
	ByResource     Group = "resource"
	ByResourceType Group = "resource_type"
)

// Measure names a numeric fact column.
type Measure string

const (
	TotalCost           Measure = "total_cost"
	LaborCost           Measure = "labor_cost"
	MaterialCost        Measure = "material_cost"
	EquipmentCost       Measure = "equipment_cost"
	ContractorCost      Measure = "contractor_cost"
	MiscCost            Measure = "misc_cost"
	LaborHours          Measure = "labor_hours"
	Quantity            Measure = "quantity"
	Duration            Measure = "duration"
	UnitCost            Measure = "unit_cost"
	Units               Measure = "units"
	TotalUnits          Measure = "total_units"
	UnitCostRegularTime Measure = "unit_cost_regular_time"
	UnitCostOvertime    Measure = "unit_cost_overtime"
	OvertimeUnitCost    Measure = "overtime_unit_cost"
	GrandTotalCost      Measure = "grand_total_cost"
)

// Label is the human form of a measure name ("Total cost").
func (m Measure) Label() string {
	s := strings.ReplaceAll(string(m), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Stat is one of the statistics computed per measure.
type Stat string

const (
	Count  Stat = "count"
	Avg    Stat = "avg"
	StdDev Stat = "stddev"
	Sum    Stat = "sum"
	Median Stat = "median"
)

// Stats lists every statistic in output order.
var Stats = []Stat{Count, Avg, StdDev, Sum, Median}

type (
	orderGroup   func(*model.OrderFact) *string
	orderMeasure func(*model.OrderFact) decimal.NullDecimal

	detailGroup   func(*model.DetailFact) *string
	detailMeasure func(*model.DetailFact) decimal.NullDecimal
)

func valid(d decimal.Decimal) decimal.NullDecimal { return decimal.NewNullDecimal(d) }

func whole(n int) decimal.NullDecimal { return valid(decimal.NewFromInt(int64(n))) }

var orderGroups = map[Group]orderGroup{
	ByCategory:   func(f *model.OrderFact) *string { return f.Category },
	ByProblem:    func(f *model.OrderFact) *string { return f.Problem },
	ByDepartment: func(f *model.OrderFact) *string { return f.Department },
	ByDivision:   func(f *model.OrderFact) *string { return f.Division },
	ByTask:       func(f *model.OrderFact) *string { return f.Task },
	ByCause:      func(f *model.OrderFact) *string { return f.Cause },
}

var orderMeasures = map[Measure]orderMeasure{
	TotalCost:      func(f *model.OrderFact) decimal.NullDecimal { return valid(f.TotalCost) },
	LaborCost:      func(f *model.OrderFact) decimal.NullDecimal { return valid(f.LaborCost) },
	MaterialCost:   func(f *model.OrderFact) decimal.NullDecimal { return valid(f.MaterialCost) },
	EquipmentCost:  func(f *model.OrderFact) decimal.NullDecimal { return valid(f.EquipmentCost) },
	ContractorCost: func(f *model.OrderFact) decimal.NullDecimal { return valid(f.ContractorCost) },
	MiscCost:       func(f *model.OrderFact) decimal.NullDecimal { return valid(f.MiscCost) },
	LaborHours:     func(f *model.OrderFact) decimal.NullDecimal { return valid(f.LaborHours) },
	Quantity:       func(f *model.OrderFact) decimal.NullDecimal { return whole(f.Quantity) },
	Duration:       func(f *model.OrderFact) decimal.NullDecimal { return whole(f.Duration) },
}

var detailGroups = map[Group]detailGroup{
	ByTask:         func(f *model.DetailFact) *string { return f.Task },
	ByResource:     func(f *model.DetailFact) *string { return f.Resource },
	ByResourceType: func(f *model.DetailFact) *string { return f.ResourceType },
}

var detailMeasures = map[Measure]detailMeasure{
	UnitCost:            func(f *model.DetailFact) decimal.NullDecimal { return f.UnitCost },
	Units:               func(f *model.DetailFact) decimal.NullDecimal { return f.Units },
	TotalCost:           func(f *model.DetailFact) decimal.NullDecimal { return f.TotalCost },
	TotalUnits:          func(f *model.DetailFact) decimal.NullDecimal { return f.TotalUnits },
	UnitCostRegularTime: func(f *model.DetailFact) decimal.NullDecimal { return f.UnitCostRegularTime },
	UnitCostOvertime:    func(f *model.DetailFact) decimal.NullDecimal { return f.UnitCostOvertime },
	OvertimeUnitCost:    func(f *model.DetailFact) decimal.NullDecimal { return f.OvertimeUnitCost },
	GrandTotalCost:      func(f *model.DetailFact) decimal.NullDecimal { return f.GrandTotalCost },
	Duration:            func(f *model.DetailFact) decimal.NullDecimal { return whole(f.Duration) },
}

// Filters restrict work orders by reference code before grouping.
type Filters struct {
	Department string `json:"department,omitempty" validate:"omitempty,max=64"`
	Division   string `json:"division,omitempty" validate:"omitempty,max=64"`
	Category   string `json:"category,omitempty" validate:"omitempty,max=64"`
}

// OrderBy picks the statistic groups are ranked by, descending.
type OrderBy struct {
	Measure Measure `json:"measure,omitempty"`
	Stat    Stat    `json:"stat,omitempty" validate:"omitempty,oneof=count avg stddev sum median"`
}

// Query is one aggregation request.
type Query struct {
	Dataset  Dataset   `json:"dataset" validate:"omitempty,oneof=orders details"`
	Group    Group     `json:"group" validate:"required"`
	Measures []Measure `json:"measures" validate:"required,min=1,dive,required"`
	Filters  Filters   `json:"filters"`
	OrderBy  OrderBy   `json:"order_by"`
	// Limit keeps the first N groups after ordering. Zero keeps all.
	Limit int `json:"limit" validate:"gte=0"`
}

// ValidationError reports a query field outside its allow-list.
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (q Query) normalized() Query {
	if q.Dataset == "" {
		q.Dataset = Orders
	}
	if q.OrderBy.Measure == "" && len(q.Measures) > 0 {
		q.OrderBy.Measure = q.Measures[0]
	}
	if q.OrderBy.Stat == "" {
		q.OrderBy.Stat = Count
	}
	return q
}

func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(err, "validate query")
	}
	fe := verrs[0]
	return &ValidationError{
		Field: strings.ToLower(fe.Field()),
		Value: fmt.Sprint(fe.Value()),
		Msg:   "failed " + fe.Tag(),
	}
}

func (q Query) allows(g Group, m Measure) (bool, bool) {
	switch q.Dataset {
	case Details:
		_, gok := detailGroups[g]
		_, mok := detailMeasures[m]
		return gok, mok
	default:
		_, gok := orderGroups[g]
		_, mok := orderMeasures[m]
		return gok, mok
	}
}

// Validate checks q against the dataset's allow-lists. Defaults are applied first.
func (q Query) Validate() error {
	q = q.normalized()
	if err := validate.Struct(q); err != nil {
		return fromValidator(err)
	}
	if ok, _ := q.allows(q.Group, ""); !ok {
		return &ValidationError{Field: "group", Value: string(q.Group), Msg: fmt.Sprintf("not available for %s", q.Dataset)}
	}
	seen := make(map[Measure]bool, len(q.Measures))
	for _, m := range q.Measures {
		if _, ok := q.allows("", m); !ok {
			return &ValidationError{Field: "measure", Value: string(m), Msg: fmt.Sprintf("not available for %s", q.Dataset)}
		}
		if seen[m] {
			return &ValidationError{Field: "measure", Value: string(m), Msg: "requested twice"}
		}
		seen[m] = true
	}
	if !seen[q.OrderBy.Measure] {
		return &ValidationError{Field: "order", Value: string(q.OrderBy.Measure), Msg: "must be one of the requested measures"}
	}
	return nil
}
