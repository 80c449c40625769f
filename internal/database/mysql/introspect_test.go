package mysql

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datrigen/internal/database"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/schema"
)

// catalogDB answers queries by the information_schema view they read.
type catalogDB struct {
	results map[string][][]any
}

func (db *catalogDB) Ping(context.Context) error { return nil }
func (db *catalogDB) Close()                     {}
func (db *catalogDB) Dialect() database.Dialect  { return database.DialectMySQL }

func (db *catalogDB) lookup(sql string) ([][]any, error) {
	for _, key := range []string{"COUNT(*) FROM information_schema.schemata", "schemata", "key_column_usage", "information_schema.columns", "information_schema.tables", "routines", "parameters"} {
		if strings.Contains(sql, key) {
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

func TestInspectSchema(t *testing.T) {
	db := &catalogDB{results: map[string][][]any{
		"COUNT(*) FROM information_schema.schemata": {{int64(1)}},
		"information_schema.tables": {
			{"posts", "BASE TABLE"},
			{"users", "BASE TABLE"},
			{"recent_posts", "VIEW"},
		},
		"information_schema.columns": {
			{"posts", "id", "bigint unsigned", false, true},
			{"posts", "author_id", "int", false, false},
			{"posts", "status", "enum('draft','live')", false, false},
			{"recent_posts", "id", "bigint unsigned", false, false},
			{"users", "id", "int", false, true},
			{"users", "role", "enum('admin','user')", true, false},
		},
		"key_column_usage": {
			{"posts", "author_id", "blog", "users", "id"},
		},
		"routines": {
			{"archive", "PROCEDURE", nil},
			{"word_count", "FUNCTION", str("int")},
		},
		"parameters": {
			{"archive", str("before"), str("IN"), "datetime"},
			{"archive", str("moved"), str("OUT"), "int"},
			{"word_count", str("body"), nil, "text"},
		},
	}}

	info, err := NewIntrospector(db).InspectSchema(context.Background(), "blog")
	require.NoError(t, err)

	assert.Equal(t, []string{"posts", "users"}, info.Tables.Keys())
	assert.Equal(t, []string{"recent_posts"}, info.Views.Keys())

	posts, _ := info.Table("posts")
	assert.Equal(t, []schema.ColumnInfo{
		{Name: "id", Type: "bigint unsigned", IsPrimaryKey: true},
		{Name: "author_id", Type: "int", References: &schema.Reference{Schema: "blog", Table: "users", Column: "id"}},
		{Name: "status", Type: "posts_status", IsEnum: true},
	}, posts.Columns)

	assert.Equal(t, []string{"posts_status", "users_role"}, info.Enums.Keys())
	role, _ := info.Enums.Get("users_role")
	assert.Equal(t, []string{"admin", "user"}, role.Values)

	wc, ok := info.Functions.Get("word_count")
	require.True(t, ok)
	assert.Equal(t, "int", *wc.ReturnType)
	assert.Equal(t, []schema.ParameterInfo{{Name: "body", Type: "text", Mode: schema.ModeIn}}, wc.Parameters)

	archive, ok := info.Procedures.Get("archive")
	require.True(t, ok)
	assert.Equal(t, schema.ObjectProcedure, archive.ObjectKind)
	assert.Nil(t, archive.ReturnType)
	require.Len(t, archive.Parameters, 2)
	assert.Equal(t, schema.ModeOut, archive.Parameters[1].Mode)
}

func TestInspectSchema_Missing(t *testing.T) {
	db := &catalogDB{results: map[string][][]any{
		"COUNT(*) FROM information_schema.schemata": {{int64(0)}},
	}}
	_, err := NewIntrospector(db).InspectSchema(context.Background(), "nope")
	assert.True(t, errs.IsNotFound(err))
}

func TestListSchemas(t *testing.T) {
	db := &catalogDB{results: map[string][][]any{"schemata": {{"app"}, {"blog"}}}}
	names, err := NewIntrospector(db).ListSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "blog"}, names)
}

func TestParseEnumValues(t *testing.T) {
	tests := []struct {
		in   string
		want []string
		ok   bool
	}{
		{"enum('a','b')", []string{"a", "b"}, true},
		{"ENUM('x')", []string{"x"}, true},
		{"enum('it''s','a,b')", []string{"it's", "a,b"}, true},
		{`enum('back\\slash')`, []string{`back\slash`}, true},
		{"enum('')", []string{""}, true},
		{"enum()", []string{}, true},
		{"set('a','b')", nil, false},
		{"varchar(10)", nil, false},
		{"enum('open", nil, false},
	}
	for _, tt := range tests {
		got, ok := parseEnumValues(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestClassifyCode(t *testing.T) {
	tests := map[uint16]errs.ErrKind{
		1045: errs.ErrKindPermissionDenied,
		1142: errs.ErrKindPermissionDenied,
		1049: errs.ErrKindNotFound,
		1146: errs.ErrKindNotFound,
		1040: errs.ErrKindConnectionFailed,
		1054: errs.ErrKindInvalidInput,
		3024: errs.ErrKindTimeout,
		1062: errs.ErrKindQueryFailed,
	}
	for code, want := range tests {
		assert.Equal(t, want, classifyCode(code), code)
	}
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "x"))
	assert.True(t, errs.IsTimeout(mapError(context.Canceled, "query")))
	assert.True(t, errs.IsConnectionFailed(mapError(gomysql.ErrInvalidConn, "query")))

	e := mapError(&gomysql.MySQLError{Number: 1146, Message: "Table 'blog.x' doesn't exist"}, "query failed")
	assert.True(t, errs.IsNotFound(e))
	assert.Equal(t, "query failed: Table 'blog.x' doesn't exist", e.Message)
}

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN(&database.Config{DSN: "app:secret@tcp(db:3306)/blog"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = normalizeDSN(&database.Config{DSN: "not a dsn"})
	assert.True(t, errs.IsInvalidInput(err))
}
