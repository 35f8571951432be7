package model

import "github.com/go-faster/errors"

// Domain identifies a reference vocabulary (status, category, department...).
type Domain string

const (
	WorkRequestStatus Domain = "work_request_status"
	WorkOrderStatus   Domain = "work_order_status"
	Category          Domain = "category"
	Problem           Domain = "problem"
	Department        Domain = "department"
	Division          Domain = "division"
	Task              Domain = "task"
	Crew              Domain = "crew"
	Route             Domain = "route"
	Cause             Domain = "cause"
	ResourceType      Domain = "resource_type"
	Unit              Domain = "unit"
	TimeCost          Domain = "time_cost"
	Facility          Domain = "facility"
	Location          Domain = "location"
)

// Domains lists every reference domain in a stable order.
var Domains = []Domain{
	WorkRequestStatus,
	WorkOrderStatus,
	Category,
	Problem,
	Department,
	Division,
	Task,
	Crew,
	Route,
	Cause,
	ResourceType,
	Unit,
	TimeCost,
	Facility,
	Location,
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDomain converts a string into a Domain.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if !d.Valid() {
		return "", errors.Errorf("unknown reference domain %q", s)
	}
	return d, nil
}

// Kind identifies the source file / entity type being ingested.
type Kind string

const (
	KindRequest Kind = "request"
	KindOrder   Kind = "order"
	KindDetail  Kind = "detail"
)

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRequest, KindOrder, KindDetail:
		return Kind(s), nil
	}
	return "", errors.Errorf("unknown record kind %q", s)
}
