// Package store defines the persisted data access used by ingestion and
// analysis, with an in-memory implementation and a SQL implementation that
// runs on Postgres (lib/pq or pgx) and SQLite (modernc).
package store

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/tim-schilling/publicworks/internal/model"
)

var (
	// ErrNotFound is returned by Find* methods when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrReferenceInUse is returned when deleting a reference still used by a required field.
	ErrReferenceInUse = errors.New("reference in use by a required field")
)

// Store is the persisted data access contract.
type Store interface {
	// References returns every reference of a domain ordered by ID.
	References(ctx context.Context, d model.Domain) ([]model.Reference, error)
	CreateReference(ctx context.Context, ref *model.Reference) error
	UpdateReferenceText(ctx context.Context, id int64, text string) error
	// MergeReference re-points every foreign key from fromID to toID, then deletes fromID.
	MergeReference(ctx context.Context, fromID, toID int64) error
	// DeleteReference clears optional foreign keys to id and deletes it.
	DeleteReference(ctx context.Context, id int64) error
	// UsedReferences returns references of d used by at least one work order, ordered by text.
	UsedReferences(ctx context.Context, d model.Domain) ([]model.Reference, error)

	GetOrCreateProject(ctx context.Context, code string) (*model.Project, error)
	GetOrCreateAddress(ctx context.Context, addr model.Address) (*model.Address, error)
	GetOrCreateAsset(ctx context.Context, asset model.Asset) (*model.Asset, error)
	GetOrCreateResource(ctx context.Context, res model.Resource) (*model.Resource, error)

	FindWorkRequest(ctx context.Context, projectID int64) (*model.WorkRequest, error)
	CreateWorkRequest(ctx context.Context, r *model.WorkRequest) error
	UpdateWorkRequest(ctx context.Context, r *model.WorkRequest) error

	FindWorkOrder(ctx context.Context, projectID int64) (*model.WorkOrder, error)
	CreateWorkOrder(ctx context.Context, o *model.WorkOrder) error
	UpdateWorkOrder(ctx context.Context, o *model.WorkOrder) error

	FindWorkDetail(ctx context.Context, projectID int64, line int) (*model.WorkDetail, error)
	CreateWorkDetail(ctx context.Context, d *model.WorkDetail) error
	UpdateWorkDetail(ctx context.Context, d *model.WorkDetail) error

	OrderFacts(ctx context.Context, filter model.FactFilter) ([]model.OrderFact, error)
	DetailFacts(ctx context.Context, filter model.FactFilter) ([]model.DetailFact, error)

	// Counts returns row counts keyed by table name.
	Counts(ctx context.Context) (map[string]int, error)
	Close() error
}

// Table names reported by Counts.
const (
	TableReference   = "reference"
	TableProject     = "project"
	TableAddress     = "address"
	TableAsset       = "asset"
	TableResource    = "resource"
	TableWorkRequest = "work_request"
	TableWorkOrder   = "work_order"
	TableWorkDetail  = "work_detail"
)
