package model

import "github.com/shopspring/decimal"

// OrderFact is a work order flattened with the reference texts it is grouped by.
// A nil text means the order has no reference in that domain.
type OrderFact struct {
	Category   *string
	Problem    *string
	Department *string
	Division   *string
	Task       *string
	Cause      *string

	TotalCost      decimal.Decimal
	LaborCost      decimal.Decimal
	MaterialCost   decimal.Decimal
	EquipmentCost  decimal.Decimal
	ContractorCost decimal.Decimal
	MiscCost       decimal.Decimal
	LaborHours     decimal.Decimal
	Quantity       int
	Duration       int
}

// DetailFact is a work detail flattened with its task and resource labels.
type DetailFact struct {
	Task         *string
	Resource     *string
	ResourceType *string

	UnitCost            decimal.NullDecimal
	Units               decimal.NullDecimal
	TotalCost           decimal.NullDecimal
	TotalUnits          decimal.NullDecimal
	UnitCostRegularTime decimal.NullDecimal
	UnitCostOvertime    decimal.NullDecimal
	OvertimeUnitCost    decimal.NullDecimal
	GrandTotalCost      decimal.NullDecimal
	Duration            int
}

// FactFilter narrows fact rows by work-order references. Nil fields do not filter.
// Details are filtered through the work order of their project.
type FactFilter struct {
	DepartmentID *int64
	DivisionID   *int64
	CategoryID   *int64
}

// Empty reports whether no filter field is set.
func (f FactFilter) Empty() bool {
	return f.DepartmentID == nil && f.DivisionID == nil && f.CategoryID == nil
}
