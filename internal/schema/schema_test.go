package schema

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/datrigen/internal/errs"
)

func TestMap_InsertionOrder(t *testing.T) {
	var m Map[int]
	m.Set("zebra", 1)
	m.Set("apple", 2)
	m.Set("mango", 3)
	m.Set("zebra", 10) // replace keeps position

	assert.Equal(t, []string{"zebra", "apple", "mango"}, m.Keys())
	assert.Equal(t, []int{10, 2, 3}, m.Values())
	assert.Equal(t, 3, m.Len())

	v, ok := m.Get("zebra")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	assert.False(t, m.Has("kiwi"))

	var seen []string
	for k := range m.All() {
		seen = append(seen, k)
		if k == "apple" {
			break
		}
	}
	assert.Equal(t, []string{"zebra", "apple"}, seen)
}

func TestMap_ZeroValue(t *testing.T) {
	var m Map[string]
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Keys())
	_, ok := m.Get("x")
	assert.False(t, ok)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}

func TestMap_JSONKeepsDocumentOrder(t *testing.T) {
	const doc = `{"users":{"name":"users","schema":"public","columns":[]},"accounts":{"name":"accounts","schema":"public","columns":[]}}`

	var m Map[*TableInfo]
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	assert.Equal(t, []string{"users", "accounts"}, m.Keys())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, doc, string(out))
}

func TestMap_JSONRejectsNonObject(t *testing.T) {
	var m Map[int]
	err := json.Unmarshal([]byte(`[1,2]`), &m)
	assert.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Equal(t, 0, m.Len())
}

func TestMap_YAMLKeepsDocumentOrder(t *testing.T) {
	const doc = `
b_enum:
  name: b_enum
  schema: public
  values: [x, y]
a_enum:
  name: a_enum
  schema: public
  values: [z]
`
	var m Map[*EnumInfo]
	require.NoError(t, yaml.Unmarshal([]byte(doc), &m))
	assert.Equal(t, []string{"b_enum", "a_enum"}, m.Keys())

	out, err := yaml.Marshal(m)
	require.NoError(t, err)

	var again Map[*EnumInfo]
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.Equal(t, m.Keys(), again.Keys())
	e, _ := again.Get("b_enum")
	assert.Equal(t, []string{"x", "y"}, e.Values)
}

func TestMap_DropsNullEntries(t *testing.T) {
	var s SchemaInfo
	require.NoError(t, json.Unmarshal([]byte(`{"name":"public","tables":{"users":null,"orgs":{"name":"orgs"}}}`), &s))
	assert.Equal(t, []string{"orgs"}, s.Tables.Keys())

	var m Map[*EnumInfo]
	require.NoError(t, yaml.Unmarshal([]byte("mood:\nsize: ~\ncolor:\n  name: color\n"), &m))
	assert.Equal(t, []string{"color"}, m.Keys())
}

func TestParamMode(t *testing.T) {
	tests := []struct {
		mode   ParamMode
		input  bool
		output bool
	}{
		{ModeIn, true, false},
		{ModeOut, false, true},
		{ModeInOut, true, true},
		{ModeVariadic, false, false},
		{"", true, false},
		{"inout", true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.input, tt.mode.IsInput())
			assert.Equal(t, tt.output, tt.mode.IsOutput())
		})
	}
}

func TestFunctionInfo_IsVoid(t *testing.T) {
	assert.True(t, (&FunctionInfo{}).IsVoid())
	assert.True(t, (&FunctionInfo{ReturnType: Ptr(" VOID ")}).IsVoid())
	assert.True(t, (&FunctionInfo{ReturnType: Ptr("")}).IsVoid())
	assert.False(t, (&FunctionInfo{ReturnType: Ptr("json")}).IsVoid())
}

func TestTableInfo_Helpers(t *testing.T) {
	tbl := &TableInfo{
		Name: "memberships",
		Columns: []ColumnInfo{
			{Name: "org_id", Type: "uuid", IsPrimaryKey: true},
			{Name: "user_id", Type: "uuid", IsPrimaryKey: true},
			{Name: "role", Type: "text"},
		},
	}
	assert.Equal(t, []string{"org_id", "user_id"}, tbl.PrimaryKey())

	c, ok := tbl.Column("role")
	assert.True(t, ok)
	assert.Equal(t, "text", c.Type)
	_, ok = tbl.Column("missing")
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schemas:
  - name: public
    tables:
      users:
        name: users
        schema: public
        columns:
          - {name: id, type: uuid, nullable: false, is_primary_key: true}
          - {name: org_id, type: uuid, nullable: true, references: {schema: public, table: orgs, column: id}}
    functions:
      get_user:
        name: get_user
        schema: public
        kind: scalar
        object_kind: function
        parameters:
          - {name: p_id, type: uuid, mode: IN}
        return_type: json
`), 0o644))

	schemas, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	assert.Equal(t, "public", s.Name)
	users, ok := s.Table("users")
	require.True(t, ok)
	require.Len(t, users.Columns, 2)
	assert.True(t, users.Columns[0].IsPrimaryKey)
	assert.Equal(t, &Reference{Schema: "public", Table: "orgs", Column: "id"}, users.Columns[1].References)

	fn, ok := s.Functions.Get("get_user")
	require.True(t, ok)
	require.NotNil(t, fn.ReturnType)
	assert.Equal(t, "json", *fn.ReturnType)
	assert.Equal(t, ModeIn, fn.Parameters[0].Mode)
	assert.Equal(t, 0, s.Procedures.Len())
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, errs.IsNotFound(err))

	txt := filepath.Join(dir, "meta.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	_, err = LoadFile(txt)
	assert.True(t, errs.IsInvalidInput(err))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadFile(bad)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestEncode_JSONRoundTrip(t *testing.T) {
	s := &SchemaInfo{Name: "public"}
	s.Tables.Set("users", &TableInfo{Name: "users", Schema: "public"})
	s.Tables.Set("accounts", &TableInfo{Name: "accounts", Schema: "public"})

	out, err := Encode("json", []*SchemaInfo{s})
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Schemas, 1)
	assert.Equal(t, []string{"users", "accounts"}, doc.Schemas[0].Tables.Keys())

	_, err = Encode("xml", nil)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestStaticReader(t *testing.T) {
	r := NewStaticReader(&SchemaInfo{Name: "public"}, &SchemaInfo{Name: "audit"})
	ctx := context.Background()

	names, err := r.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"public", "audit"}, names)

	s, err := r.InspectSchema(ctx, "audit")
	require.NoError(t, err)
	assert.Equal(t, "audit", s.Name)

	_, err = r.InspectSchema(ctx, "nope")
	assert.True(t, errs.IsNotFound(err))
}
