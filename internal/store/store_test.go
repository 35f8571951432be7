package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tim-schilling/publicworks/internal/model"
)

func newSQLite(t *testing.T) Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "store.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db, SQLite))
	s := NewSQLStore(db, SQLite)
	t.Cleanup(func() { s.Close() })
	return s
}

func newMemory(t *testing.T) Store {
	return NewMemoryStore()
}

var backends = []struct {
	name string
	open func(t *testing.T) Store
}{
	{"memory", newMemory},
	{"sqlite", newSQLite},
}

func ptr[T any](v T) *T { return &v }

func ref(t *testing.T, s Store, d model.Domain, code, text string) model.Reference {
	t.Helper()
	r := model.Reference{Domain: d, Code: code, Text: text}
	require.NoError(t, s.CreateReference(context.Background(), &r))
	require.NotZero(t, r.ID)
	return r
}

func order(projectID, status, category int64) *model.WorkOrder {
	day := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	return &model.WorkOrder{
		ProjectID:      projectID,
		StatusID:       status,
		Created:        day,
		Updated:        day,
		CategoryID:     category,
		TotalCost:      decimal.RequireFromString("10.50"),
		LaborHours:     decimal.Zero,
		LaborCost:      decimal.Zero,
		EquipmentCost:  decimal.Zero,
		MaterialCost:   decimal.Zero,
		ContractorCost: decimal.Zero,
		MiscCost:       decimal.Zero,
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			p1, err := s.GetOrCreateProject(ctx, "WO-1")
			require.NoError(t, err)
			p2, err := s.GetOrCreateProject(ctx, "WO-1")
			require.NoError(t, err)
			assert.Equal(t, p1.ID, p2.ID)

			addr := model.Address{StreetNumber: "12", StreetName: "Main", StreetType: "St", Zipcode: "62701", Other: "False"}
			a1, err := s.GetOrCreateAddress(ctx, addr)
			require.NoError(t, err)
			a2, err := s.GetOrCreateAddress(ctx, addr)
			require.NoError(t, err)
			assert.Equal(t, a1.ID, a2.ID)

			addr.Zipcode = "62702"
			a3, err := s.GetOrCreateAddress(ctx, addr)
			require.NoError(t, err)
			assert.NotEqual(t, a1.ID, a3.ID)

			as1, err := s.GetOrCreateAsset(ctx, model.Asset{Code: "A1", Desc1: "Pump"})
			require.NoError(t, err)
			as2, err := s.GetOrCreateAsset(ctx, model.Asset{Code: "A1", Desc1: "Pump"})
			require.NoError(t, err)
			assert.Equal(t, as1.ID, as2.ID)

			typ := ref(t, s, model.ResourceType, "LAB", "Labor")
			r1, err := s.GetOrCreateResource(ctx, model.Resource{Code: "R1", TypeID: typ.ID, Text: "Crew", DefaultUnitCost: decimal.RequireFromString("25")})
			require.NoError(t, err)
			r2, err := s.GetOrCreateResource(ctx, model.Resource{Code: "R1", TypeID: typ.ID, Text: "Other text"})
			require.NoError(t, err)
			assert.Equal(t, r1.ID, r2.ID)
			assert.Equal(t, "Crew", r2.Text)

			counts, err := s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, counts[TableProject])
			assert.Equal(t, 2, counts[TableAddress])
			assert.Equal(t, 1, counts[TableAsset])
			assert.Equal(t, 1, counts[TableResource])
		})
	}
}

func TestWorkOrderRoundTrip(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			status := ref(t, s, model.WorkOrderStatus, "OPEN", "Open")
			cat := ref(t, s, model.Category, "ST", "Streets")
			p, err := s.GetOrCreateProject(ctx, "1001")
			require.NoError(t, err)

			_, err = s.FindWorkOrder(ctx, p.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			o := order(p.ID, status.ID, cat.ID)
			o.Priority = ptr(2)
			o.Start = ptr(time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC))
			require.NoError(t, s.CreateWorkOrder(ctx, o))
			require.NotZero(t, o.ID)

			got, err := s.FindWorkOrder(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, o.ID, got.ID)
			require.NotNil(t, got.Priority)
			assert.Equal(t, 2, *got.Priority)
			assert.Nil(t, got.End)
			require.NotNil(t, got.Start)
			assert.True(t, o.Start.Equal(*got.Start))
			assert.True(t, o.TotalCost.Equal(got.TotalCost), "total cost %s", got.TotalCost)

			got.TotalCost = decimal.RequireFromString("99.99")
			got.Priority = nil
			require.NoError(t, s.UpdateWorkOrder(ctx, got))
			again, err := s.FindWorkOrder(ctx, p.ID)
			require.NoError(t, err)
			assert.Nil(t, again.Priority)
			assert.Equal(t, "99.99", again.TotalCost.String())
		})
	}
}

func TestWorkDetailKey(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			p, err := s.GetOrCreateProject(ctx, "2002")
			require.NoError(t, err)

			created := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
			d := &model.WorkDetail{ProjectID: p.ID, Line: 1, Created: created,
				UnitCost: decimal.NewNullDecimal(decimal.RequireFromString("1.25"))}
			require.NoError(t, s.CreateWorkDetail(ctx, d))

			_, err = s.FindWorkDetail(ctx, p.ID, 2)
			assert.ErrorIs(t, err, ErrNotFound)

			got, err := s.FindWorkDetail(ctx, p.ID, 1)
			require.NoError(t, err)
			assert.True(t, got.UnitCost.Valid)
			assert.False(t, got.Units.Valid)

			got.ResourceDesc = "updated"
			require.NoError(t, s.UpdateWorkDetail(ctx, got))
			got, err = s.FindWorkDetail(ctx, p.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, "updated", got.ResourceDesc)
		})
	}
}

func TestMergeAndDeleteReference(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			status := ref(t, s, model.WorkOrderStatus, "OPEN", "Open")
			keep := ref(t, s, model.Category, "ST", "Streets and Roads")
			dup := ref(t, s, model.Category, "ST", "Streets")
			dept := ref(t, s, model.Department, "", "")

			p, err := s.GetOrCreateProject(ctx, "3003")
			require.NoError(t, err)
			o := order(p.ID, status.ID, dup.ID)
			o.DepartmentID = ptr(dept.ID)
			require.NoError(t, s.CreateWorkOrder(ctx, o))

			require.NoError(t, s.MergeReference(ctx, dup.ID, keep.ID))
			got, err := s.FindWorkOrder(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, keep.ID, got.CategoryID)

			cats, err := s.References(ctx, model.Category)
			require.NoError(t, err)
			require.Len(t, cats, 1)
			assert.Equal(t, keep.ID, cats[0].ID)

			assert.ErrorIs(t, s.DeleteReference(ctx, keep.ID), ErrReferenceInUse)

			require.NoError(t, s.DeleteReference(ctx, dept.ID))
			got, err = s.FindWorkOrder(ctx, p.ID)
			require.NoError(t, err)
			assert.Nil(t, got.DepartmentID)

			assert.ErrorIs(t, s.MergeReference(ctx, dept.ID, keep.ID), ErrNotFound)
		})
	}
}

func TestMergeResourceTypeCollapsesResources(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			short := ref(t, s, model.ResourceType, "LAB", "Lab")
			long := ref(t, s, model.ResourceType, "LAB", "Labor")

			dupCrew, err := s.GetOrCreateResource(ctx, model.Resource{Code: "R1", TypeID: short.ID, Text: "Crew A", DefaultUnitCost: decimal.Zero})
			require.NoError(t, err)
			keepCrew, err := s.GetOrCreateResource(ctx, model.Resource{Code: "R1", TypeID: long.ID, Text: "Crew A", DefaultUnitCost: decimal.Zero})
			require.NoError(t, err)
			solo, err := s.GetOrCreateResource(ctx, model.Resource{Code: "R2", TypeID: short.ID, Text: "Crew B", DefaultUnitCost: decimal.Zero})
			require.NoError(t, err)
			require.NotEqual(t, dupCrew.ID, keepCrew.ID)

			p, err := s.GetOrCreateProject(ctx, "4004")
			require.NoError(t, err)
			day := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
			require.NoError(t, s.CreateWorkDetail(ctx, &model.WorkDetail{ProjectID: p.ID, Line: 1, Created: day, ResourceID: ptr(dupCrew.ID)}))
			require.NoError(t, s.CreateWorkDetail(ctx, &model.WorkDetail{ProjectID: p.ID, Line: 2, Created: day, ResourceID: ptr(solo.ID)}))

			require.NoError(t, s.MergeReference(ctx, short.ID, long.ID))

			counts, err := s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, counts[TableResource])

			first, err := s.FindWorkDetail(ctx, p.ID, 1)
			require.NoError(t, err)
			require.NotNil(t, first.ResourceID)
			assert.Equal(t, keepCrew.ID, *first.ResourceID)

			second, err := s.FindWorkDetail(ctx, p.ID, 2)
			require.NoError(t, err)
			require.NotNil(t, second.ResourceID)
			assert.Equal(t, solo.ID, *second.ResourceID, "resources without a twin are re-typed, not removed")

			again, err := s.GetOrCreateResource(ctx, model.Resource{Code: "R2", TypeID: long.ID, Text: "Crew B", DefaultUnitCost: decimal.Zero})
			require.NoError(t, err)
			assert.Equal(t, solo.ID, again.ID)
		})
	}
}

func TestFacts(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			status := ref(t, s, model.WorkOrderStatus, "OPEN", "Open")
			streets := ref(t, s, model.Category, "ST", "Streets")
			parks := ref(t, s, model.Category, "PK", "Parks")
			dept := ref(t, s, model.Department, "PW", "Public Works")
			task := ref(t, s, model.Task, "MOW", "Mowing")
			typ := ref(t, s, model.ResourceType, "LAB", "Labor")
			res, err := s.GetOrCreateResource(ctx, model.Resource{Code: "R1", TypeID: typ.ID, Text: "Crew A", DefaultUnitCost: decimal.Zero})
			require.NoError(t, err)

			p1, err := s.GetOrCreateProject(ctx, "1")
			require.NoError(t, err)
			o1 := order(p1.ID, status.ID, streets.ID)
			o1.DepartmentID = ptr(dept.ID)
			require.NoError(t, s.CreateWorkOrder(ctx, o1))

			p2, err := s.GetOrCreateProject(ctx, "2")
			require.NoError(t, err)
			require.NoError(t, s.CreateWorkOrder(ctx, order(p2.ID, status.ID, parks.ID)))

			require.NoError(t, s.CreateWorkDetail(ctx, &model.WorkDetail{
				ProjectID: p1.ID, Line: 1, Created: o1.Created, TaskID: ptr(task.ID), ResourceID: ptr(res.ID),
				TotalCost: decimal.NewNullDecimal(decimal.RequireFromString("5")),
			}))
			require.NoError(t, s.CreateWorkDetail(ctx, &model.WorkDetail{ProjectID: p2.ID, Line: 1, Created: o1.Created}))

			facts, err := s.OrderFacts(ctx, model.FactFilter{})
			require.NoError(t, err)
			require.Len(t, facts, 2)
			assert.Equal(t, "Streets", *facts[0].Category)
			assert.Equal(t, "Public Works", *facts[0].Department)
			assert.Nil(t, facts[1].Department)

			facts, err = s.OrderFacts(ctx, model.FactFilter{DepartmentID: ptr(dept.ID)})
			require.NoError(t, err)
			require.Len(t, facts, 1)

			details, err := s.DetailFacts(ctx, model.FactFilter{})
			require.NoError(t, err)
			require.Len(t, details, 2)
			assert.Equal(t, "Mowing", *details[0].Task)
			assert.Equal(t, "Crew A", *details[0].Resource)
			assert.Equal(t, "Labor", *details[0].ResourceType)
			assert.Nil(t, details[1].Task)

			details, err = s.DetailFacts(ctx, model.FactFilter{CategoryID: ptr(parks.ID)})
			require.NoError(t, err)
			require.Len(t, details, 1)
			assert.Nil(t, details[0].Resource)

			used, err := s.UsedReferences(ctx, model.Category)
			require.NoError(t, err)
			require.Len(t, used, 2)
			assert.Equal(t, "Parks", used[0].Text)
		})
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{Postgres, "SELECT id FROM t WHERE a = ? AND b = ?", "SELECT id FROM t WHERE a = $1 AND b = $2"},
		{SQLite, "SELECT id FROM t WHERE a = ?", "SELECT id FROM t WHERE a = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.rebind(tt.in))
		})
	}
}

func TestMigrateExecutesDDL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range Postgres.ddl() {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db, Postgres))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}
