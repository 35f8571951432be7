package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/tim-schilling/publicworks/internal/model"
)

// SQLStore persists to a relational database through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database. The schema must already exist (see Migrate).
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) q(query string) string { return s.dialect.rebind(query) }

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// References returns every reference in d ordered by ID.
func (s *SQLStore) References(ctx context.Context, d model.Domain) ([]model.Reference, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, domain, code, text, address_id FROM reference WHERE domain = ? ORDER BY id`), string(d))
	if err != nil {
		return nil, errors.Wrap(err, "query references")
	}
	defer rows.Close()
	return scanReferences(rows)
}

func scanReferences(rows *sql.Rows) ([]model.Reference, error) {
	var out []model.Reference
	for rows.Next() {
		var r model.Reference
		var domain string
		var addr sql.NullInt64
		if err := rows.Scan(&r.ID, &domain, &r.Code, &r.Text, &addr); err != nil {
			return nil, errors.Wrap(err, "scan reference")
		}
		r.Domain = model.Domain(domain)
		r.AddressID = idPtr(addr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateReference inserts ref and assigns its ID.
func (s *SQLStore) CreateReference(ctx context.Context, ref *model.Reference) error {
	err := s.db.QueryRowContext(ctx, s.q(
		`INSERT INTO reference (domain, code, text, address_id) VALUES (?, ?, ?, ?) RETURNING id`),
		string(ref.Domain), ref.Code, ref.Text, nullID(ref.AddressID)).Scan(&ref.ID)
	return errors.Wrap(err, "insert reference")
}

// UpdateReferenceText replaces the text of a reference.
func (s *SQLStore) UpdateReferenceText(ctx context.Context, id int64, text string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE reference SET text = ? WHERE id = ?`), text, id)
	if err != nil {
		return errors.Wrap(err, "update reference")
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) exists(ctx context.Context, tx *sql.Tx, id int64) error {
	var found int64
	err := tx.QueryRowContext(ctx, s.q(`SELECT id FROM reference WHERE id = ?`), id).Scan(&found)
	return notFound(err)
}

// MergeReference re-points every foreign key from fromID to toID and deletes fromID.
func (s *SQLStore) MergeReference(ctx context.Context, fromID, toID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.exists(ctx, tx, fromID); err != nil {
			return err
		}
		if err := s.exists(ctx, tx, toID); err != nil {
			return err
		}
		if err := s.mergeResources(ctx, tx, fromID, toID); err != nil {
			return err
		}
		for _, c := range referenceColumns {
			stmt := "UPDATE " + c.table + " SET " + c.column + " = ? WHERE " + c.column + " = ?"
			if _, err := tx.ExecContext(ctx, s.q(stmt), toID, fromID); err != nil {
				return errors.Wrapf(err, "repoint %s.%s", c.table, c.column)
			}
		}
		_, err := tx.ExecContext(ctx, s.q(`DELETE FROM reference WHERE id = ?`), fromID)
		return errors.Wrap(err, "delete merged reference")
	})
}

// mergeResources folds each resource typed fromType into the resource with
// the same code typed toType, so re-typing keeps (code, type_id) unique.
func (s *SQLStore) mergeResources(ctx context.Context, tx *sql.Tx, fromType, toType int64) error {
	rows, err := tx.QueryContext(ctx, s.q(`SELECT d.id, k.id FROM resource d
		JOIN resource k ON k.code = d.code AND k.type_id = ?
		WHERE d.type_id = ?`), toType, fromType)
	if err != nil {
		return errors.Wrap(err, "find colliding resources")
	}
	moved := make(map[int64]int64)
	for rows.Next() {
		var dup, keep int64
		if err := rows.Scan(&dup, &keep); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan colliding resource")
		}
		moved[dup] = keep
	}
	if err := rows.Close(); err != nil {
		return errors.Wrap(err, "close colliding resources")
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "find colliding resources")
	}
	for dup, keep := range moved {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE work_detail SET resource_id = ? WHERE resource_id = ?`), keep, dup); err != nil {
			return errors.Wrapf(err, "repoint work_detail.resource_id %d", dup)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM resource WHERE id = ?`), dup); err != nil {
			return errors.Wrapf(err, "delete merged resource %d", dup)
		}
	}
	return nil
}

// DeleteReference clears optional foreign keys pointing at id and deletes it.
func (s *SQLStore) DeleteReference(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.exists(ctx, tx, id); err != nil {
			return err
		}
		for _, c := range referenceColumns {
			if !c.required {
				continue
			}
			var n int
			stmt := "SELECT COUNT(*) FROM " + c.table + " WHERE " + c.column + " = ?"
			if err := tx.QueryRowContext(ctx, s.q(stmt), id).Scan(&n); err != nil {
				return errors.Wrapf(err, "count %s.%s", c.table, c.column)
			}
			if n > 0 {
				return ErrReferenceInUse
			}
		}
		for _, c := range referenceColumns {
			if c.required {
				continue
			}
			stmt := "UPDATE " + c.table + " SET " + c.column + " = NULL WHERE " + c.column + " = ?"
			if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
				return errors.Wrapf(err, "clear %s.%s", c.table, c.column)
			}
		}
		_, err := tx.ExecContext(ctx, s.q(`DELETE FROM reference WHERE id = ?`), id)
		return errors.Wrap(err, "delete reference")
	})
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

var usedColumn = map[model.Domain]string{
	model.Department: "department_id",
	model.Division:   "division_id",
	model.Category:   "category_id",
}

// UsedReferences returns references of d used by at least one work order, ordered by text.
func (s *SQLStore) UsedReferences(ctx context.Context, d model.Domain) ([]model.Reference, error) {
	col, ok := usedColumn[d]
	if !ok {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT DISTINCT r.id, r.domain, r.code, r.text, r.address_id
		FROM reference r JOIN work_order o ON o.`+col+` = r.id
		WHERE r.domain = ? ORDER BY r.text, r.id`), string(d))
	if err != nil {
		return nil, errors.Wrap(err, "query used references")
	}
	defer rows.Close()
	return scanReferences(rows)
}

// GetOrCreateProject returns the project with code, creating it on first reference.
func (s *SQLStore) GetOrCreateProject(ctx context.Context, code string) (*model.Project, error) {
	p := model.Project{Code: code}
	err := s.getOrCreate(ctx,
		`SELECT id FROM project WHERE code = ?`,
		`INSERT INTO project (code) VALUES (?) ON CONFLICT DO NOTHING`,
		[]any{code}, &p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "project")
	}
	return &p, nil
}

// GetOrCreateAddress matches addr on every field and creates it on a miss.
func (s *SQLStore) GetOrCreateAddress(ctx context.Context, addr model.Address) (*model.Address, error) {
	args := []any{addr.StreetNumber, addr.StreetDirection, addr.StreetName, addr.StreetType,
		addr.StreetSuffix, addr.Zipcode, addr.Street2, addr.Other, addr.PrimaryResidence}
	err := s.getOrCreate(ctx,
		`SELECT id FROM address WHERE street_number = ? AND street_direction = ? AND street_name = ?
			AND street_type = ? AND street_suffix = ? AND zipcode = ? AND street2 = ? AND other = ?
			AND primary_residence = ?`,
		`INSERT INTO address (street_number, street_direction, street_name, street_type, street_suffix,
			zipcode, street2, other, primary_residence) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		args, &addr.ID)
	if err != nil {
		return nil, errors.Wrap(err, "address")
	}
	return &addr, nil
}

// GetOrCreateAsset matches on (code, desc1, desc2).
func (s *SQLStore) GetOrCreateAsset(ctx context.Context, asset model.Asset) (*model.Asset, error) {
	err := s.getOrCreate(ctx,
		`SELECT id FROM asset WHERE code = ? AND desc1 = ? AND desc2 = ?`,
		`INSERT INTO asset (code, desc1, desc2) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		[]any{asset.Code, asset.Desc1, asset.Desc2}, &asset.ID)
	if err != nil {
		return nil, errors.Wrap(err, "asset")
	}
	return &asset, nil
}

// GetOrCreateResource matches on (code, type). Text and cost are only written on creation.
func (s *SQLStore) GetOrCreateResource(ctx context.Context, res model.Resource) (*model.Resource, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, text, default_unit_cost FROM resource WHERE code = ? AND type_id = ?`), res.Code, res.TypeID)
	err := row.Scan(&res.ID, &res.Text, &res.DefaultUnitCost)
	if err == nil {
		return &res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "select resource")
	}
	if _, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO resource (code, type_id, text, default_unit_cost) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`),
		res.Code, res.TypeID, res.Text, res.DefaultUnitCost); err != nil {
		return nil, errors.Wrap(err, "insert resource")
	}
	row = s.db.QueryRowContext(ctx, s.q(
		`SELECT id, text, default_unit_cost FROM resource WHERE code = ? AND type_id = ?`), res.Code, res.TypeID)
	if err := row.Scan(&res.ID, &res.Text, &res.DefaultUnitCost); err != nil {
		return nil, errors.Wrap(err, "reselect resource")
	}
	return &res, nil
}

// getOrCreate selects an id, inserting on a miss and selecting again so a
// concurrent insert of the same natural key resolves to the same row.
func (s *SQLStore) getOrCreate(ctx context.Context, sel, ins string, args []any, id *int64) error {
	err := s.db.QueryRowContext(ctx, s.q(sel), args...).Scan(id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "select")
	}
	if _, err := s.db.ExecContext(ctx, s.q(ins), args...); err != nil {
		return errors.Wrap(err, "insert")
	}
	return errors.Wrap(s.db.QueryRowContext(ctx, s.q(sel), args...).Scan(id), "reselect")
}

func insertSQL(table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ") RETURNING id"
}

func updateSQL(table string, cols []string, where string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE " + where
}

func selectSQL(table string, cols []string, where string) string {
	return "SELECT id, " + strings.Join(cols, ", ") + " FROM " + table + " WHERE " + where
}

var requestColumns = []string{
	"project_id", "received", "priority", "status_id", "updated", "category_id", "problem_id",
	"department_id", "division_id", "after_hours", "callback_requested", "projected_start",
	"facility_id", "location_id", "address_id", "related_asset",
}

func requestArgs(r *model.WorkRequest) []any {
	return []any{
		r.ProjectID, r.Received, nullInt(r.Priority), r.StatusID, r.Updated, nullID(r.CategoryID),
		nullID(r.ProblemID), nullID(r.DepartmentID), nullID(r.DivisionID), r.AfterHours,
		nullBool(r.CallbackRequested), nullTime(r.ProjectedStart), nullID(r.FacilityID),
		nullID(r.LocationID), nullID(r.AddressID), r.RelatedAsset,
	}
}

// FindWorkRequest returns the request linked to projectID.
func (s *SQLStore) FindWorkRequest(ctx context.Context, projectID int64) (*model.WorkRequest, error) {
	row := s.db.QueryRowContext(ctx, s.q(selectSQL("work_request", requestColumns, "project_id = ?")), projectID)
	var (
		r                                                               model.WorkRequest
		priority, category, problem, dept, div, facility, location, addr sql.NullInt64
		callback                                                        sql.NullBool
		projected                                                       sql.NullTime
	)
	err := row.Scan(&r.ID, &r.ProjectID, &r.Received, &priority, &r.StatusID, &r.Updated, &category,
		&problem, &dept, &div, &r.AfterHours, &callback, &projected, &facility, &location, &addr,
		&r.RelatedAsset)
	if err != nil {
		return nil, notFound(err)
	}
	r.Priority = intPtr(priority)
	r.CategoryID = idPtr(category)
	r.ProblemID = idPtr(problem)
	r.DepartmentID = idPtr(dept)
	r.DivisionID = idPtr(div)
	r.CallbackRequested = boolPtr(callback)
	r.ProjectedStart = timePtr(projected)
	r.FacilityID = idPtr(facility)
	r.LocationID = idPtr(location)
	r.AddressID = idPtr(addr)
	return &r, nil
}

// CreateWorkRequest inserts r and assigns its ID.
func (s *SQLStore) CreateWorkRequest(ctx context.Context, r *model.WorkRequest) error {
	err := s.db.QueryRowContext(ctx, s.q(insertSQL("work_request", requestColumns)), requestArgs(r)...).Scan(&r.ID)
	return errors.Wrap(err, "insert work request")
}

// UpdateWorkRequest overwrites the request linked to r.ProjectID.
func (s *SQLStore) UpdateWorkRequest(ctx context.Context, r *model.WorkRequest) error {
	args := append(requestArgs(r)[1:], r.ProjectID)
	res, err := s.db.ExecContext(ctx, s.q(updateSQL("work_request", requestColumns[1:], "project_id = ?")), args...)
	if err != nil {
		return errors.Wrap(err, "update work request")
	}
	return affected(res)
}

var orderColumns = []string{
	"project_id", "status_id", "created", "updated", "category_id", "department_id", "division_id",
	"priority", "total_cost", "quantity", "labor_hours", "labor_cost", "equipment_cost",
	"material_cost", "contractor_cost", "misc_cost", "start_date", "end_date", "duration",
	"billing_required", "task_id", "cause_id", "problem_id", "asset_id", "crew_id", "supervisor",
	"lead_worker", "address_id", "facility_id", "project_number", "route_id",
}

func orderArgs(o *model.WorkOrder) []any {
	return []any{
		o.ProjectID, o.StatusID, o.Created, o.Updated, o.CategoryID, nullID(o.DepartmentID),
		nullID(o.DivisionID), nullInt(o.Priority), o.TotalCost, o.Quantity, o.LaborHours, o.LaborCost,
		o.EquipmentCost, o.MaterialCost, o.ContractorCost, o.MiscCost, nullTime(o.Start),
		nullTime(o.End), o.Duration, o.BillingRequired, nullID(o.TaskID), nullID(o.CauseID),
		nullID(o.ProblemID), nullID(o.AssetID), nullID(o.CrewID), nullInt(o.Supervisor),
		nullInt(o.LeadWorker), nullID(o.AddressID), nullID(o.FacilityID), o.ProjectNumber,
		nullID(o.RouteID),
	}
}

// FindWorkOrder returns the order linked to projectID.
func (s *SQLStore) FindWorkOrder(ctx context.Context, projectID int64) (*model.WorkOrder, error) {
	row := s.db.QueryRowContext(ctx, s.q(selectSQL("work_order", orderColumns, "project_id = ?")), projectID)
	var (
		o                                           model.WorkOrder
		dept, div, task, cause, problem, asset, crew sql.NullInt64
		addr, facility, route                       sql.NullInt64
		priority, supervisor, lead                  sql.NullInt64
		start, end                                  sql.NullTime
	)
	err := row.Scan(&o.ID, &o.ProjectID, &o.StatusID, &o.Created, &o.Updated, &o.CategoryID, &dept, &div,
		&priority, &o.TotalCost, &o.Quantity, &o.LaborHours, &o.LaborCost, &o.EquipmentCost,
		&o.MaterialCost, &o.ContractorCost, &o.MiscCost, &start, &end, &o.Duration,
		&o.BillingRequired, &task, &cause, &problem, &asset, &crew, &supervisor, &lead, &addr,
		&facility, &o.ProjectNumber, &route)
	if err != nil {
		return nil, notFound(err)
	}
	o.DepartmentID = idPtr(dept)
	o.DivisionID = idPtr(div)
	o.Priority = intPtr(priority)
	o.Start = timePtr(start)
	o.End = timePtr(end)
	o.TaskID = idPtr(task)
	o.CauseID = idPtr(cause)
	o.ProblemID = idPtr(problem)
	o.AssetID = idPtr(asset)
	o.CrewID = idPtr(crew)
	o.Supervisor = intPtr(supervisor)
	o.LeadWorker = intPtr(lead)
	o.AddressID = idPtr(addr)
	o.FacilityID = idPtr(facility)
	o.RouteID = idPtr(route)
	return &o, nil
}

// CreateWorkOrder inserts o and assigns its ID.
func (s *SQLStore) CreateWorkOrder(ctx context.Context, o *model.WorkOrder) error {
	err := s.db.QueryRowContext(ctx, s.q(insertSQL("work_order", orderColumns)), orderArgs(o)...).Scan(&o.ID)
	return errors.Wrap(err, "insert work order")
}

// UpdateWorkOrder overwrites the order linked to o.ProjectID.
func (s *SQLStore) UpdateWorkOrder(ctx context.Context, o *model.WorkOrder) error {
	args := append(orderArgs(o)[1:], o.ProjectID)
	res, err := s.db.ExecContext(ctx, s.q(updateSQL("work_order", orderColumns[1:], "project_id = ?")), args...)
	if err != nil {
		return errors.Wrap(err, "update work order")
	}
	return affected(res)
}

var detailColumns = []string{
	"project_id", "line", "created", "start_date", "end_date", "duration", "updated", "task_id",
	"resource_id", "resource_desc", "unit_cost", "units", "total_cost", "total_units",
	"unit_cost_regular_time", "unit_cost_overtime", "overtime_unit_cost", "grand_total_cost",
	"time_cost_id", "unit_id",
}

func detailArgs(d *model.WorkDetail) []any {
	return []any{
		d.ProjectID, d.Line, d.Created, nullTime(d.Start), nullTime(d.End), d.Duration,
		nullTime(d.Updated), nullID(d.TaskID), nullID(d.ResourceID), d.ResourceDesc, d.UnitCost,
		d.Units, d.TotalCost, d.TotalUnits, d.UnitCostRegularTime, d.UnitCostOvertime,
		d.OvertimeUnitCost, d.GrandTotalCost, nullID(d.TimeCostID), nullID(d.UnitID),
	}
}

// FindWorkDetail returns the detail at (projectID, line).
func (s *SQLStore) FindWorkDetail(ctx context.Context, projectID int64, line int) (*model.WorkDetail, error) {
	row := s.db.QueryRowContext(ctx, s.q(selectSQL("work_detail", detailColumns, "project_id = ? AND line = ?")),
		projectID, line)
	var (
		d                            model.WorkDetail
		start, end, updated          sql.NullTime
		task, resource, timeCost, un sql.NullInt64
	)
	err := row.Scan(&d.ID, &d.ProjectID, &d.Line, &d.Created, &start, &end, &d.Duration, &updated, &task,
		&resource, &d.ResourceDesc, &d.UnitCost, &d.Units, &d.TotalCost, &d.TotalUnits,
		&d.UnitCostRegularTime, &d.UnitCostOvertime, &d.OvertimeUnitCost, &d.GrandTotalCost,
		&timeCost, &un)
	if err != nil {
		return nil, notFound(err)
	}
	d.Start = timePtr(start)
	d.End = timePtr(end)
	d.Updated = timePtr(updated)
	d.TaskID = idPtr(task)
	d.ResourceID = idPtr(resource)
	d.TimeCostID = idPtr(timeCost)
	d.UnitID = idPtr(un)
	return &d, nil
}

// CreateWorkDetail inserts d and assigns its ID.
func (s *SQLStore) CreateWorkDetail(ctx context.Context, d *model.WorkDetail) error {
	err := s.db.QueryRowContext(ctx, s.q(insertSQL("work_detail", detailColumns)), detailArgs(d)...).Scan(&d.ID)
	return errors.Wrap(err, "insert work detail")
}

// UpdateWorkDetail overwrites the detail at (d.ProjectID, d.Line).
func (s *SQLStore) UpdateWorkDetail(ctx context.Context, d *model.WorkDetail) error {
	args := append(detailArgs(d)[2:], d.ProjectID, d.Line)
	res, err := s.db.ExecContext(ctx, s.q(updateSQL("work_detail", detailColumns[2:], "project_id = ? AND line = ?")), args...)
	if err != nil {
		return errors.Wrap(err, "update work detail")
	}
	return affected(res)
}

// orderWhere renders the work-order filter as SQL conditions on alias o.
func orderWhere(f model.FactFilter) (string, []any) {
	var conds []string
	var args []any
	if f.DepartmentID != nil {
		conds = append(conds, "o.department_id = ?")
		args = append(args, *f.DepartmentID)
	}
	if f.DivisionID != nil {
		conds = append(conds, "o.division_id = ?")
		args = append(args, *f.DivisionID)
	}
	if f.CategoryID != nil {
		conds = append(conds, "o.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// OrderFacts flattens work orders matching filter, ordered by order ID.
func (s *SQLStore) OrderFacts(ctx context.Context, filter model.FactFilter) ([]model.OrderFact, error) {
	where, args := orderWhere(filter)
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT rc.text, rp.text, rdep.text, rdiv.text, rt.text, rca.text,
			o.total_cost, o.labor_cost, o.material_cost, o.equipment_cost, o.contractor_cost,
			o.misc_cost, o.labor_hours, o.quantity, o.duration
		FROM work_order o
		JOIN reference rc ON rc.id = o.category_id
		LEFT JOIN reference rp ON rp.id = o.problem_id
		LEFT JOIN reference rdep ON rdep.id = o.department_id
		LEFT JOIN reference rdiv ON rdiv.id = o.division_id
		LEFT JOIN reference rt ON rt.id = o.task_id
		LEFT JOIN reference rca ON rca.id = o.cause_id`+where+`
		ORDER BY o.id`), args...)
	if err != nil {
		return nil, errors.Wrap(err, "query order facts")
	}
	defer rows.Close()

	var facts []model.OrderFact
	for rows.Next() {
		var f model.OrderFact
		var cat, prob, dept, div, task, cause sql.NullString
		if err := rows.Scan(&cat, &prob, &dept, &div, &task, &cause, &f.TotalCost, &f.LaborCost,
			&f.MaterialCost, &f.EquipmentCost, &f.ContractorCost, &f.MiscCost, &f.LaborHours,
			&f.Quantity, &f.Duration); err != nil {
			return nil, errors.Wrap(err, "scan order fact")
		}
		f.Category, f.Problem, f.Department = strPtr(cat), strPtr(prob), strPtr(dept)
		f.Division, f.Task, f.Cause = strPtr(div), strPtr(task), strPtr(cause)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// DetailFacts flattens work details whose project's work order matches filter.
func (s *SQLStore) DetailFacts(ctx context.Context, filter model.FactFilter) ([]model.DetailFact, error) {
	where, args := orderWhere(filter)
	join := ""
	if where != "" {
		join = " JOIN work_order o ON o.project_id = d.project_id"
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT rt.text, res.text, rty.text,
			d.unit_cost, d.units, d.total_cost, d.total_units, d.unit_cost_regular_time,
			d.unit_cost_overtime, d.overtime_unit_cost, d.grand_total_cost, d.duration
		FROM work_detail d
		LEFT JOIN reference rt ON rt.id = d.task_id
		LEFT JOIN resource res ON res.id = d.resource_id
		LEFT JOIN reference rty ON rty.id = res.type_id`+join+where+`
		ORDER BY d.id`), args...)
	if err != nil {
		return nil, errors.Wrap(err, "query detail facts")
	}
	defer rows.Close()

	var facts []model.DetailFact
	for rows.Next() {
		var f model.DetailFact
		var task, resource, resourceType sql.NullString
		if err := rows.Scan(&task, &resource, &resourceType, &f.UnitCost, &f.Units, &f.TotalCost,
			&f.TotalUnits, &f.UnitCostRegularTime, &f.UnitCostOvertime, &f.OvertimeUnitCost,
			&f.GrandTotalCost, &f.Duration); err != nil {
			return nil, errors.Wrap(err, "scan detail fact")
		}
		f.Task, f.Resource, f.ResourceType = strPtr(task), strPtr(resource), strPtr(resourceType)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

var countedTables = []string{
	TableReference, TableProject, TableAddress, TableAsset, TableResource,
	TableWorkRequest, TableWorkOrder, TableWorkDetail,
}

// Counts returns row counts per table.
func (s *SQLStore) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(countedTables))
	for _, t := range countedTables {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return nil, errors.Wrapf(err, "count %s", t)
		}
		out[t] = n
	}
	return out, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

func nullID(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func boolPtr(n sql.NullBool) *bool {
	if !n.Valid {
		return nil
	}
	v := n.Bool
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
