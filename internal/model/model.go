package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reference is a code/text pair within a reference domain.
type Reference struct {
	ID        int64  `json:"id"`
	Domain    Domain `json:"domain"`
	Code      string `json:"code"`
	Text      string `json:"text"`
	AddressID *int64 `json:"address_id,omitempty"`
}

// Resource is keyed by (Code, TypeID); the same code may exist under several types.
type Resource struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	TypeID          int64           `json:"type_id"`
	Text            string          `json:"text"`
	DefaultUnitCost decimal.Decimal `json:"default_unit_cost"`
}

// Asset is keyed by the (Code, Desc1, Desc2) triple.
type Asset struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Desc1 string `json:"desc1"`
	Desc2 string `json:"desc2"`
}

// Address is a postal address. Every field except ID is part of its natural key.
type Address struct {
	ID               int64  `json:"id"`
	StreetNumber     string `json:"street_number"`
	StreetDirection  string `json:"street_direction"`
	StreetName       string `json:"street_name"`
	StreetType       string `json:"street_type"`
	StreetSuffix     string `json:"street_suffix"`
	Zipcode          string `json:"zipcode"`
	Street2          string `json:"street2"`
	Other            string `json:"other"`
	PrimaryResidence bool   `json:"primary_residence"`
}

// SameAs reports whether both addresses carry identical natural-key fields.
func (a Address) SameAs(b Address) bool {
	a.ID, b.ID = 0, 0
	return a == b
}

// Format renders the non-empty address parts separated by single spaces.
func (a Address) Format() string {
	values := []string{
		a.StreetNumber,
		a.StreetDirection,
		a.StreetName,
		a.StreetType,
		a.StreetSuffix,
		a.Zipcode,
		a.Street2,
		a.Other,
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// Project unites the request, order and details sharing an external number.
type Project struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// Record is implemented by the three project-linked entities.
type Record interface {
	RecordKind() Kind
	Project() int64
}

// WorkRequest is the citizen-facing service request (one per project).
type WorkRequest struct {
	ID                int64      `json:"id"`
	ProjectID         int64      `json:"project_id"`
	Received          time.Time  `json:"received"`
	Priority          *int       `json:"priority,omitempty"`
	StatusID          int64      `json:"status_id"`
	Updated           time.Time  `json:"updated"`
	CategoryID        *int64     `json:"category_id,omitempty"`
	ProblemID         *int64     `json:"problem_id,omitempty"`
	DepartmentID      *int64     `json:"department_id,omitempty"`
	DivisionID        *int64     `json:"division_id,omitempty"`
	AfterHours        bool       `json:"after_hours"`
	CallbackRequested *bool      `json:"callback_requested,omitempty"`
	ProjectedStart    *time.Time `json:"projected_start,omitempty"`
	FacilityID        *int64     `json:"facility_id,omitempty"`
	LocationID        *int64     `json:"location_id,omitempty"`
	AddressID         *int64     `json:"address_id,omitempty"`
	RelatedAsset      string     `json:"related_asset"`
}

func (r *WorkRequest) RecordKind() Kind { return KindRequest }
func (r *WorkRequest) Project() int64   { return r.ProjectID }

// WorkOrder is the crew-facing order (one per project).
type WorkOrder struct {
	ID              int64           `json:"id"`
	ProjectID       int64           `json:"project_id"`
	StatusID        int64           `json:"status_id"`
	Created         time.Time       `json:"created"`
	Updated         time.Time       `json:"updated"`
	CategoryID      int64           `json:"category_id"`
	DepartmentID    *int64          `json:"department_id,omitempty"`
	DivisionID      *int64          `json:"division_id,omitempty"`
	Priority        *int            `json:"priority,omitempty"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	Quantity        int             `json:"quantity"`
	LaborHours      decimal.Decimal `json:"labor_hours"`
	LaborCost       decimal.Decimal `json:"labor_cost"`
	EquipmentCost   decimal.Decimal `json:"equipment_cost"`
	MaterialCost    decimal.Decimal `json:"material_cost"`
	ContractorCost  decimal.Decimal `json:"contractor_cost"`
	MiscCost        decimal.Decimal `json:"misc_cost"`
	Start           *time.Time      `json:"start,omitempty"`
	End             *time.Time      `json:"end,omitempty"`
	Duration        int             `json:"duration"`
	BillingRequired bool            `json:"billing_required"`
	TaskID          *int64          `json:"task_id,omitempty"`
	CauseID         *int64          `json:"cause_id,omitempty"`
	ProblemID       *int64          `json:"problem_id,omitempty"`
	AssetID         *int64          `json:"asset_id,omitempty"`
	CrewID          *int64          `json:"crew_id,omitempty"`
	Supervisor      *int            `json:"supervisor,omitempty"`
	LeadWorker      *int            `json:"lead_worker,omitempty"`
	AddressID       *int64          `json:"address_id,omitempty"`
	FacilityID      *int64          `json:"facility_id,omitempty"`
	ProjectNumber   string          `json:"project_number"`
	RouteID         *int64          `json:"route_id,omitempty"`
}

func (o *WorkOrder) RecordKind() Kind { return KindOrder }
func (o *WorkOrder) Project() int64   { return o.ProjectID }

// WorkDetail is one cost line of a work order. (ProjectID, Line) is its natural key.
type WorkDetail struct {
	ID                  int64               `json:"id"`
	ProjectID           int64               `json:"project_id"`
	Line                int                 `json:"line"`
	Created             time.Time           `json:"created"`
	Start               *time.Time          `json:"start,omitempty"`
	End                 *time.Time          `json:"end,omitempty"`
	Duration            int                 `json:"duration"`
	Updated             *time.Time          `json:"updated,omitempty"`
	TaskID              *int64              `json:"task_id,omitempty"`
	ResourceID          *int64              `json:"resource_id,omitempty"`
	ResourceDesc        string              `json:"resource_desc"`
	UnitCost            decimal.NullDecimal `json:"unit_cost"`
	Units               decimal.NullDecimal `json:"units"`
	TotalCost           decimal.NullDecimal `json:"total_cost"`
	TotalUnits          decimal.NullDecimal `json:"total_units"`
	UnitCostRegularTime decimal.NullDecimal `json:"unit_cost_regular_time"`
	UnitCostOvertime    decimal.NullDecimal `json:"unit_cost_overtime"`
	OvertimeUnitCost    decimal.NullDecimal `json:"overtime_unit_cost"`
	GrandTotalCost      decimal.NullDecimal `json:"grand_total_cost"`
	TimeCostID          *int64              `json:"time_cost_id,omitempty"`
	UnitID              *int64              `json:"unit_id,omitempty"`
}

func (d *WorkDetail) RecordKind() Kind { return KindDetail }
func (d *WorkDetail) Project() int64   { return d.ProjectID }
