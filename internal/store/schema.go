package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Dialect selects SQL syntax differences between Postgres and SQLite.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return 0, errors.Errorf("unsupported driver %q", driver)
}

// rebind rewrites ? placeholders into $n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) ddl() []string {
	id := "BIGSERIAL PRIMARY KEY"
	dec := "NUMERIC(12,4)"
	ts := "TIMESTAMPTZ"
	if d == SQLite {
		id = "INTEGER PRIMARY KEY AUTOINCREMENT"
		// SQLite's NUMERIC affinity would coerce values to REAL.
		dec = "TEXT"
		ts = "TIMESTAMP"
	}
	r := strings.NewReplacer("{id}", id, "{dec}", dec, "{ts}", ts)
	stmts := make([]string, 0, len(schema))
	for _, s := range schema {
		stmts = append(stmts, r.Replace(s))
	}
	return stmts
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS address (
		id {id},
		street_number TEXT NOT NULL DEFAULT '',
		street_direction TEXT NOT NULL DEFAULT '',
		street_name TEXT NOT NULL DEFAULT '',
		street_type TEXT NOT NULL DEFAULT '',
		street_suffix TEXT NOT NULL DEFAULT '',
		zipcode TEXT NOT NULL DEFAULT '',
		street2 TEXT NOT NULL DEFAULT '',
		other TEXT NOT NULL DEFAULT '',
		primary_residence BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (street_number, street_direction, street_name, street_type, street_suffix, zipcode, street2, other, primary_residence)
	)`,
	// No unique constraint on (domain, code): duplicates left by older imports
	// must stay representable so the dedupe command can repair them.
	`CREATE TABLE IF NOT EXISTS reference (
		id {id},
		domain TEXT NOT NULL,
		code TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		address_id BIGINT REFERENCES address(id)
	)`,
	`CREATE INDEX IF NOT EXISTS reference_domain_code_idx ON reference (domain, code)`,
	`CREATE TABLE IF NOT EXISTS project (
		id {id},
		code TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS asset (
		id {id},
		code TEXT NOT NULL,
		desc1 TEXT NOT NULL DEFAULT '',
		desc2 TEXT NOT NULL DEFAULT '',
		UNIQUE (code, desc1, desc2)
	)`,
	`CREATE TABLE IF NOT EXISTS resource (
		id {id},
		code TEXT NOT NULL,
		type_id BIGINT NOT NULL REFERENCES reference(id),
		text TEXT NOT NULL DEFAULT '',
		default_unit_cost {dec} NOT NULL,
		UNIQUE (code, type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS work_request (
		id {id},
		project_id BIGINT NOT NULL UNIQUE REFERENCES project(id),
		received {ts} NOT NULL,
		priority INTEGER,
		status_id BIGINT NOT NULL REFERENCES reference(id),
		updated DATE NOT NULL,
		category_id BIGINT REFERENCES reference(id),
		problem_id BIGINT REFERENCES reference(id),
		department_id BIGINT REFERENCES reference(id),
		division_id BIGINT REFERENCES reference(id),
		after_hours BOOLEAN NOT NULL,
		callback_requested BOOLEAN,
		projected_start DATE,
		facility_id BIGINT REFERENCES reference(id),
		location_id BIGINT REFERENCES reference(id),
		address_id BIGINT REFERENCES address(id),
		related_asset TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS work_order (
		id {id},
		project_id BIGINT NOT NULL UNIQUE REFERENCES project(id),
		status_id BIGINT NOT NULL REFERENCES reference(id),
		created DATE NOT NULL,
		updated DATE NOT NULL,
		category_id BIGINT NOT NULL REFERENCES reference(id),
		department_id BIGINT REFERENCES reference(id),
		division_id BIGINT REFERENCES reference(id),
		priority INTEGER,
		total_cost {dec} NOT NULL,
		quantity INTEGER NOT NULL,
		labor_hours {dec} NOT NULL,
		labor_cost {dec} NOT NULL,
		equipment_cost {dec} NOT NULL,
		material_cost {dec} NOT NULL,
		contractor_cost {dec} NOT NULL,
		misc_cost {dec} NOT NULL,
		start_date DATE,
		end_date DATE,
		duration INTEGER NOT NULL,
		billing_required BOOLEAN NOT NULL,
		task_id BIGINT REFERENCES reference(id),
		cause_id BIGINT REFERENCES reference(id),
		problem_id BIGINT REFERENCES reference(id),
		asset_id BIGINT REFERENCES asset(id),
		crew_id BIGINT REFERENCES reference(id),
		supervisor INTEGER,
		lead_worker INTEGER,
		address_id BIGINT REFERENCES address(id),
		facility_id BIGINT REFERENCES reference(id),
		project_number TEXT NOT NULL DEFAULT '',
		route_id BIGINT REFERENCES reference(id)
	)`,
	`CREATE TABLE IF NOT EXISTS work_detail (
		id {id},
		project_id BIGINT NOT NULL REFERENCES project(id),
		line INTEGER NOT NULL,
		created DATE NOT NULL,
		start_date DATE,
		end_date DATE,
		duration INTEGER NOT NULL,
		updated DATE,
		task_id BIGINT REFERENCES reference(id),
		resource_id BIGINT REFERENCES resource(id),
		resource_desc TEXT NOT NULL DEFAULT '',
		unit_cost {dec},
		units {dec},
		total_cost {dec},
		total_units {dec},
		unit_cost_regular_time {dec},
		unit_cost_overtime {dec},
		overtime_unit_cost {dec},
		grand_total_cost {dec},
		time_cost_id BIGINT REFERENCES reference(id),
		unit_id BIGINT REFERENCES reference(id),
		UNIQUE (project_id, line)
	)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.ddl() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "execute ddl")
		}
	}
	return nil
}

// referenceColumn is a foreign key column pointing at reference(id).
type referenceColumn struct {
	table    string
	column   string
	required bool
}

var referenceColumns = []referenceColumn{
	{"work_request", "status_id", true},
	{"work_request", "category_id", false},
	{"work_request", "problem_id", false},
	{"work_request", "department_id", false},
	{"work_request", "division_id", false},
	{"work_request", "facility_id", false},
	{"work_request", "location_id", false},
	{"work_order", "status_id", true},
	{"work_order", "category_id", true},
	{"work_order", "department_id", false},
	{"work_order", "division_id", false},
	{"work_order", "task_id", false},
	{"work_order", "cause_id", false},
	{"work_order", "problem_id", false},
	{"work_order", "crew_id", false},
	{"work_order", "facility_id", false},
	{"work_order", "route_id", false},
	{"work_detail", "task_id", false},
	{"work_detail", "time_cost_id", false},
	{"work_detail", "unit_id", false},
	{"resource", "type_id", true},
}
