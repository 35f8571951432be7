package etl

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/tim-schilling/publicworks/internal/model"
	"github.com/tim-schilling/publicworks/internal/store"
)

// Outcome says what an upsert did.
type Outcome int

const (
	Created Outcome = iota + 1
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// Upserter writes records idempotently, keyed by project (and line for details).
type Upserter struct {
	store store.Store
}

// NewUpserter creates an upserter over s.
func NewUpserter(s store.Store) *Upserter {
	return &Upserter{store: s}
}

// Upsert links rec to project, then overwrites the stored record with the
// same natural key or creates it. The stored ID is preserved on update.
func (u *Upserter) Upsert(ctx context.Context, project *model.Project, rec model.Record) (Outcome, error) {
	switch r := rec.(type) {
	case *model.WorkRequest:
		r.ProjectID = project.ID
		existing, err := u.store.FindWorkRequest(ctx, project.ID)
		if errors.Is(err, store.ErrNotFound) {
			return Created, errors.Wrap(u.store.CreateWorkRequest(ctx, r), "create work request")
		}
		if err != nil {
			return 0, errors.Wrap(err, "find work request")
		}
		r.ID = existing.ID
		return Updated, errors.Wrap(u.store.UpdateWorkRequest(ctx, r), "update work request")

	case *model.WorkOrder:
		r.ProjectID = project.ID
		existing, err := u.store.FindWorkOrder(ctx, project.ID)
		if errors.Is(err, store.ErrNotFound) {
			return Created, errors.Wrap(u.store.CreateWorkOrder(ctx, r), "create work order")
		}
		if err != nil {
			return 0, errors.Wrap(err, "find work order")
		}
		r.ID = existing.ID
		return Updated, errors.Wrap(u.store.UpdateWorkOrder(ctx, r), "update work order")

	case *model.WorkDetail:
		r.ProjectID = project.ID
		if r.Line <= 0 {
			return 0, errors.Errorf("work detail for project %s has no line", project.Code)
		}
		existing, err := u.store.FindWorkDetail(ctx, project.ID, r.Line)
		if errors.Is(err, store.ErrNotFound) {
			return Created, errors.Wrap(u.store.CreateWorkDetail(ctx, r), "create work detail")
		}
		if err != nil {
			return 0, errors.Wrap(err, "find work detail")
		}
		r.ID = existing.ID
		return Updated, errors.Wrap(u.store.UpdateWorkDetail(ctx, r), "update work detail")
	}
	return 0, errors.Errorf("unsupported record %T", rec)
}
