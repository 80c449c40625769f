package postgres

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datrigen/internal/database"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/schema"
)

// catalogDB answers queries by the first table name they mention.
type catalogDB struct {
	results map[string][][]any
	fail    map[string]error
}

func (db *catalogDB) Ping(context.Context) error { return nil }
func (db *catalogDB) Close()                     {}
func (db *catalogDB) Dialect() database.Dialect  { return database.DialectPostgres }

func (db *catalogDB) lookup(sql string) ([][]any, error) {
	for _, key := range []string{"pg_proc", "pg_enum", "pg_constraint", "pg_index", "pg_attribute", "information_schema.tables", "count(*)", "pg_namespace"} {
		if strings.Contains(sql, key) {
			if err := db.fail[key]; err != nil {
				return nil, err
			}
			return db.results[key], nil
		}
	}
	return nil, errors.New("unexpected query: " + sql)
}

func (db *catalogDB) Query(_ context.Context, sql string, _ ...any) (database.Rows, error) {
	data, err := db.lookup(sql)
	if err != nil {
		return nil, err
	}
	return &cannedRows{data: data}, nil
}

func (db *catalogDB) QueryRow(_ context.Context, sql string, _ ...any) (database.Row, error) {
	data, err := db.lookup(sql)
	if err != nil {
		return nil, err
	}
	return &cannedRows{data: data, pos: 1}, nil
}

type cannedRows struct {
	data [][]any
	pos  int
}

func (r *cannedRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *cannedRows) Scan(dest ...any) error {
	for i, v := range r.data[r.pos-1] {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

func (r *cannedRows) Columns() ([]string, error) { return nil, nil }
func (r *cannedRows) Close()                     {}
func (r *cannedRows) Err() error                 { return nil }

func str(s string) *string { return &s }

func shopCatalog() *catalogDB {
	return &catalogDB{results: map[string][][]any{
		"count(*)": {{int64(1)}},
		"information_schema.tables": {
			{"orders", "BASE TABLE"},
			{"users", "BASE TABLE"},
			{"active_users", "VIEW"},
		},
		"pg_attribute": {
			{"active_users", "id", "uuid", true, false},
			{"orders", "id", "bigint", false, false},
			{"orders", "user_id", "uuid", false, false},
			{"orders", "state", "order_state", false, true},
			{"users", "id", "uuid", false, false},
			{"users", "tags", "text[]", true, false},
			{"ghost", "id", "int", false, false},
		},
		"pg_index": {
			{"orders", "id"},
			{"users", "id"},
		},
		"pg_constraint": {
			{"orders", "user_id", "shop", "users", "id"},
		},
		"pg_enum": {
			{"order_state", "open"},
			{"order_state", "paid"},
			{"order_state", "shipped"},
		},
		"pg_proc": {
			{"audit", false, false, str("trigger"), []string{}, []string{}, []string{}, int16(0)},
			{"order_total", false, false, str("numeric"), []string{"order_id"}, []string{}, []string{"bigint"}, int16(0)},
			{"order_total", false, false, str("numeric"), []string{"a", "b"}, []string{}, []string{"bigint", "text"}, int16(0)},
			{"refund", true, false, nil, []string{"order_id", "ok"}, []string{"i", "o"}, []string{"bigint", "boolean"}, int16(0)},
		},
	}}
}

func TestInspectSchema(t *testing.T) {
	info, err := NewIntrospector(shopCatalog()).InspectSchema(context.Background(), "shop")
	require.NoError(t, err)

	assert.Equal(t, "shop", info.Name)
	assert.Equal(t, []string{"orders", "users"}, info.Tables.Keys())
	assert.Equal(t, []string{"active_users"}, info.Views.Keys())

	orders, ok := info.Table("orders")
	require.True(t, ok)
	assert.Equal(t, []schema.ColumnInfo{
		{Name: "id", Type: "bigint", IsPrimaryKey: true},
		{Name: "user_id", Type: "uuid", References: &schema.Reference{Schema: "shop", Table: "users", Column: "id"}},
		{Name: "state", Type: "order_state", IsEnum: true},
	}, orders.Columns)

	users, _ := info.Table("users")
	assert.Equal(t, []string{"id"}, users.PrimaryKey())
	assert.True(t, users.Columns[1].Nullable)

	view, _ := info.Views.Get("active_users")
	require.Len(t, view.Columns, 1)

	state, ok := info.Enums.Get("order_state")
	require.True(t, ok)
	assert.Equal(t, []string{"open", "paid", "shipped"}, state.Values)

	assert.Equal(t, []string{"order_total"}, info.Functions.Keys())
	total, _ := info.Functions.Get("order_total")
	require.Len(t, total.Parameters, 1, "first overload wins")
	assert.Equal(t, "numeric", *total.ReturnType)

	assert.Equal(t, []string{"refund"}, info.Procedures.Keys())
	assert.Equal(t, []string{"audit"}, info.Triggers.Keys())
}

func TestInspectSchema_Missing(t *testing.T) {
	db := shopCatalog()
	db.results["count(*)"] = [][]any{{int64(0)}}

	_, err := NewIntrospector(db).InspectSchema(context.Background(), "nope")
	assert.True(t, errs.IsNotFound(err))
}

func TestInspectSchema_StepFailureKeepsKind(t *testing.T) {
	db := shopCatalog()
	db.fail = map[string]error{"pg_enum": errs.New(errs.ErrKindPermissionDenied, "denied")}

	_, err := NewIntrospector(db).InspectSchema(context.Background(), "shop")
	require.Error(t, err)
	assert.True(t, errs.IsPermissionDenied(err))
	assert.Contains(t, err.Error(), "enums")
}

func TestListSchemas(t *testing.T) {
	db := &catalogDB{results: map[string][][]any{
		"pg_namespace": {{"analytics"}, {"public"}},
	}}
	names, err := NewIntrospector(db).ListSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"analytics", "public"}, names)
}

func TestRoutineRow_Build(t *testing.T) {
	tests := []struct {
		name string
		row  routineRow
		want *schema.FunctionInfo
	}{
		{
			name: "returns table",
			row: routineRow{
				name: "get_users", returnsSet: true, returnType: str("record"),
				argNames: []string{"min_age", "id", "email"},
				argModes: []string{"i", "t", "t"},
				argTypes: []string{"integer", "uuid", "text"},
				defaults: 1,
			},
			want: &schema.FunctionInfo{
				Name: "get_users", Kind: schema.KindTable, ObjectKind: schema.ObjectFunction,
				Parameters:    []schema.ParameterInfo{{Name: "min_age", Type: "integer", Mode: schema.ModeIn, HasDefault: true}},
				ReturnColumns: []schema.ReturnColumn{{Name: "id", Type: "uuid"}, {Name: "email", Type: "text"}},
			},
		},
		{
			name: "setof scalar with unnamed args",
			row: routineRow{
				name: "series", returnsSet: true, returnType: str("integer"),
				argTypes: []string{"integer", "integer"},
			},
			want: &schema.FunctionInfo{
				Name: "series", Kind: schema.KindSet, ObjectKind: schema.ObjectFunction,
				Parameters: []schema.ParameterInfo{
					{Name: "arg1", Type: "integer", Mode: schema.ModeIn},
					{Name: "arg2", Type: "integer", Mode: schema.ModeIn},
				},
				ReturnType: str("integer"),
			},
		},
		{
			name: "out params describe a record",
			row: routineRow{
				name: "stats", returnType: str("record"),
				argNames: []string{"total", "avg"},
				argModes: []string{"o", "o"},
				argTypes: []string{"bigint", "numeric"},
			},
			want: &schema.FunctionInfo{
				Name: "stats", Kind: schema.KindScalar, ObjectKind: schema.ObjectFunction,
				Parameters: []schema.ParameterInfo{
					{Name: "total", Type: "bigint", Mode: schema.ModeOut},
					{Name: "avg", Type: "numeric", Mode: schema.ModeOut},
				},
			},
		},
		{
			name: "setof record with out params",
			row: routineRow{
				name: "pairs", returnsSet: true, returnType: str("record"),
				argNames: []string{"k", "v"},
				argModes: []string{"o", "o"},
				argTypes: []string{"text", "text"},
			},
			want: &schema.FunctionInfo{
				Name: "pairs", Kind: schema.KindSet, ObjectKind: schema.ObjectFunction,
				Parameters: []schema.ParameterInfo{
					{Name: "k", Type: "text", Mode: schema.ModeOut},
					{Name: "v", Type: "text", Mode: schema.ModeOut},
				},
				ReturnColumns: []schema.ReturnColumn{{Name: "k", Type: "text"}, {Name: "v", Type: "text"}},
			},
		},
		{
			name: "procedure with inout and variadic defaults",
			row: routineRow{
				name: "bump", procedure: true,
				argNames: []string{"counter", "by", "tags"},
				argModes: []string{"b", "i", "v"},
				argTypes: []string{"integer", "integer", "text[]"},
				defaults: 2,
			},
			want: &schema.FunctionInfo{
				Name: "bump", Kind: schema.KindScalar, ObjectKind: schema.ObjectProcedure,
				Parameters: []schema.ParameterInfo{
					{Name: "counter", Type: "integer", Mode: schema.ModeInOut},
					{Name: "by", Type: "integer", Mode: schema.ModeIn, HasDefault: true},
					{Name: "tags", Type: "text[]", Mode: schema.ModeVariadic, HasDefault: true},
				},
			},
		},
		{
			name: "void",
			row:  routineRow{name: "noop", returnType: str("void")},
			want: &schema.FunctionInfo{
				Name: "noop", Kind: schema.KindScalar, ObjectKind: schema.ObjectFunction,
				Parameters: []schema.ParameterInfo{},
			},
		},
		{
			name: "trigger",
			row:  routineRow{name: "audit", returnType: str("trigger")},
			want: &schema.FunctionInfo{
				Name: "audit", Kind: schema.KindScalar, ObjectKind: schema.ObjectTrigger,
				Parameters: []schema.ParameterInfo{},
				ReturnType: str("trigger"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.schema = "public"
			tt.want.Schema = "public"
			assert.Equal(t, tt.want, tt.row.build())
		})
	}
}

func TestClassifyCode(t *testing.T) {
	tests := map[string]errs.ErrKind{
		"08006": errs.ErrKindConnectionFailed,
		"28P01": errs.ErrKindPermissionDenied,
		"42501": errs.ErrKindPermissionDenied,
		"42P01": errs.ErrKindNotFound,
		"3F000": errs.ErrKindNotFound,
		"42703": errs.ErrKindInvalidInput,
		"22P02": errs.ErrKindInvalidInput,
		"57014": errs.ErrKindTimeout,
		"23505": errs.ErrKindQueryFailed,
	}
	for code, want := range tests {
		assert.Equal(t, want, classifyCode(code), code)
	}
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "x"))
	assert.True(t, errs.IsTimeout(mapError(context.DeadlineExceeded, "query")))
	assert.True(t, errs.IsNotFound(mapError(pgx.ErrNoRows, "query")))
	assert.True(t, errs.IsConnectionFailed(mapError(errors.New("dial tcp: refused"), "query")))

	e := mapError(&pgconn.PgError{Code: "42P01", Message: `relation "x" does not exist`}, "query failed")
	assert.True(t, errs.IsNotFound(e))
	assert.Equal(t, `query failed: relation "x" does not exist`, e.Message)
}
