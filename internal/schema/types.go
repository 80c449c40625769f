package schema

import "strings"

// Reference points at the column a foreign key refers to.
type Reference struct {
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

// ColumnInfo describes a single column of a table or view.
type ColumnInfo struct {
	Name         string     `json:"name" yaml:"name"`
	Type         string     `json:"type" yaml:"type"` // raw SQL type: varchar(255), integer[], mood, …
	Nullable     bool       `json:"nullable" yaml:"nullable"`
	IsPrimaryKey bool       `json:"is_primary_key" yaml:"is_primary_key"`
	IsEnum       bool       `json:"is_enum" yaml:"is_enum"`
	References   *Reference `json:"references,omitempty" yaml:"references,omitempty"` // nil when not a foreign key
}

// TableInfo describes a table or a view. Column order is emission order.
type TableInfo struct {
	Name    string       `json:"name" yaml:"name"`
	Schema  string       `json:"schema" yaml:"schema"`
	Columns []ColumnInfo `json:"columns" yaml:"columns"`
}

// Column returns the column called name.
func (t *TableInfo) Column(name string) (ColumnInfo, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// PrimaryKey returns the primary key column names in column order.
func (t *TableInfo) PrimaryKey() []string {
	var pks []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pks = append(pks, c.Name)
		}
	}
	return pks
}

// EnumInfo describes a database enum type. Values keep their declared order
// and are not deduplicated.
type EnumInfo struct {
	Name   string   `json:"name" yaml:"name"`
	Schema string   `json:"schema" yaml:"schema"`
	Values []string `json:"values" yaml:"values"`
}

// ParamMode is the direction of a routine parameter.
type ParamMode string

const (
	ModeIn       ParamMode = "IN"
	ModeOut      ParamMode = "OUT"
	ModeInOut    ParamMode = "INOUT"
	ModeVariadic ParamMode = "VARIADIC"
)

// normalized treats an empty mode as IN, the database default.
func (m ParamMode) normalized() ParamMode {
	if m == "" {
		return ModeIn
	}
	return ParamMode(strings.ToUpper(string(m)))
}

// IsInput reports whether the parameter appears in a generated Params
// interface. VARIADIC parameters are not: the catalog still records them
// (and their defaults), but no binding is generated for them.
func (m ParamMode) IsInput() bool {
	n := m.normalized()
	return n == ModeIn || n == ModeInOut
}

// IsOutput reports whether the parameter is produced by the routine.
// INOUT parameters are both inputs and outputs.
func (m ParamMode) IsOutput() bool {
	n := m.normalized()
	return n == ModeOut || n == ModeInOut
}

// ParameterInfo describes one routine parameter.
type ParameterInfo struct {
	Name       string    `json:"name" yaml:"name"`
	Type       string    `json:"type" yaml:"type"`
	Mode       ParamMode `json:"mode" yaml:"mode"`
	HasDefault bool      `json:"has_default" yaml:"has_default"`
}

// ReturnColumn is one column of a table-returning routine's result row.
type ReturnColumn struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// FunctionKind is the shape of a routine's result.
type FunctionKind string

const (
	KindScalar FunctionKind = "scalar"
	KindSet    FunctionKind = "set"
	KindTable  FunctionKind = "table"
)

// ObjectKind distinguishes functions from procedures and triggers.
type ObjectKind string

const (
	ObjectFunction  ObjectKind = "function"
	ObjectProcedure ObjectKind = "procedure"
	ObjectTrigger   ObjectKind = "trigger"
)

// FunctionInfo describes a function, procedure or trigger function.
type FunctionInfo struct {
	Name          string          `json:"name" yaml:"name"`
	Schema        string          `json:"schema" yaml:"schema"`
	Kind          FunctionKind    `json:"kind" yaml:"kind"`
	ObjectKind    ObjectKind      `json:"object_kind" yaml:"object_kind"`
	Parameters    []ParameterInfo `json:"parameters" yaml:"parameters"`
	ReturnType    *string         `json:"return_type,omitempty" yaml:"return_type,omitempty"` // nil means void
	ReturnColumns []ReturnColumn  `json:"return_columns,omitempty" yaml:"return_columns,omitempty"`
}

// IsVoid reports whether the routine declares no usable return type.
func (f *FunctionInfo) IsVoid() bool {
	if f.ReturnType == nil {
		return true
	}
	rt := strings.ToLower(strings.TrimSpace(*f.ReturnType))
	return rt == "" || rt == "void"
}

// SchemaInfo is everything the generator needs to know about one schema.
// All collections are keyed by object name and iterate in insertion order.
type SchemaInfo struct {
	Name       string             `json:"name" yaml:"name"`
	Tables     Map[*TableInfo]    `json:"tables" yaml:"tables"`
	Views      Map[*TableInfo]    `json:"views" yaml:"views"`
	Enums      Map[*EnumInfo]     `json:"enums" yaml:"enums"`
	Functions  Map[*FunctionInfo] `json:"functions" yaml:"functions"`
	Procedures Map[*FunctionInfo] `json:"procedures" yaml:"procedures"`
	Triggers   Map[*FunctionInfo] `json:"triggers" yaml:"triggers"`
}

// Table looks a table up by name. A nil entry counts as absent.
func (s *SchemaInfo) Table(name string) (*TableInfo, bool) {
	t, ok := s.Tables.Get(name)
	return t, ok && t != nil
}

// Relation looks a table, then a view, up by name.
func (s *SchemaInfo) Relation(name string) (*TableInfo, bool) {
	if t, ok := s.Table(name); ok {
		return t, true
	}
	v, ok := s.Views.Get(name)
	return v, ok && v != nil
}

// Ptr returns a pointer to s. Used to build optional return types.
func Ptr(s string) *string {
	return &s
}
