package mysql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/koustreak/datrigen/internal/database"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/logger"
	"github.com/koustreak/datrigen/internal/schema"
)

var _ schema.Reader = (*Introspector)(nil)

// Introspector reads schema metadata from information_schema.
//
// MySQL has no named enum types: every enum(...) column gets a synthesized
// EnumInfo called "<table>_<column>", and the column's Type is set to that
// name so generated code refers to it.
type Introspector struct {
	db  database.DB
	log *logger.Logger
}

// NewIntrospector returns an Introspector reading through db.
func NewIntrospector(db database.DB) *Introspector {
	return &Introspector{db: db, log: logger.L().Component("mysql")}
}

// ListSchemas returns every database except the server's own.
func (in *Introspector) ListSchemas(ctx context.Context) ([]string, error) {
	const q = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
		ORDER BY schema_name`

	rows, err := in.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// InspectSchema reads tables, views, enum columns and routines of one database.
func (in *Introspector) InspectSchema(ctx context.Context, name string) (*schema.SchemaInfo, error) {
	if err := in.checkSchema(ctx, name); err != nil {
		return nil, err
	}

	info := &schema.SchemaInfo{Name: name}

	steps := []struct {
		what string
		fn   func(context.Context, *schema.SchemaInfo) error
	}{
		{"relations", in.loadRelations},
		{"columns", in.loadColumns},
		{"foreign keys", in.loadForeignKeys},
		{"routines", in.loadRoutines},
		{"routine parameters", in.loadParameters},
	}
	for _, step := range steps {
		if err := step.fn(ctx, info); err != nil {
			return nil, errs.Wrap(errs.KindOf(err), fmt.Sprintf("failed to load %s of schema %s", step.what, name), err)
		}
	}

	in.log.DebugWith("schema inspected", map[string]interface{}{
		"schema":     name,
		"tables":     info.Tables.Len(),
		"views":      info.Views.Len(),
		"enums":      info.Enums.Len(),
		"functions":  info.Functions.Len(),
		"procedures": info.Procedures.Len(),
	})
	return info, nil
}

func (in *Introspector) checkSchema(ctx context.Context, name string) error {
	const q = `SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?`

	row, err := in.db.QueryRow(ctx, q, name)
	if err != nil {
		return err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return errs.New(errs.ErrKindNotFound, "schema not found: "+name)
	}
	return nil
}

func (in *Introspector) loadRelations(ctx context.Context, info *schema.SchemaInfo) error {
	const q = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return err
		}
		t := &schema.TableInfo{Name: name, Schema: info.Name, Columns: []schema.ColumnInfo{}}
		if kind == "VIEW" {
			info.Views.Set(name, t)
		} else {
			info.Tables.Set(name, t)
		}
	}
	return rows.Err()
}

func (in *Introspector) loadColumns(ctx context.Context, info *schema.SchemaInfo) error {
	const q = `
		SELECT table_name,
		       column_name,
		       column_type,
		       is_nullable = 'YES',
		       column_key = 'PRI'
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var enums []*schema.EnumInfo
	for rows.Next() {
		var rel string
		var col schema.ColumnInfo
		if err := rows.Scan(&rel, &col.Name, &col.Type, &col.Nullable, &col.IsPrimaryKey); err != nil {
			return err
		}
		t, ok := info.Relation(rel)
		if !ok {
			continue
		}
		if values, ok := parseEnumValues(col.Type); ok {
			e := &schema.EnumInfo{Name: rel + "_" + col.Name, Schema: info.Name, Values: values}
			enums = append(enums, e)
			col.Type = e.Name
			col.IsEnum = true
		}
		t.Columns = append(t.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.SliceStable(enums, func(i, j int) bool { return enums[i].Name < enums[j].Name })
	for _, e := range enums {
		info.Enums.Set(e.Name, e)
	}
	return nil
}

func (in *Introspector) loadForeignKeys(ctx context.Context, info *schema.SchemaInfo) error {
	// Only single-column constraints reference one column.
	const q = `
		SELECT k.table_name,
		       k.column_name,
		       k.referenced_table_schema,
		       k.referenced_table_name,
		       k.referenced_column_name
		FROM information_schema.key_column_usage k
		WHERE k.table_schema = ?
		  AND k.referenced_table_name IS NOT NULL
		  AND (
		      SELECT COUNT(*)
		      FROM information_schema.key_column_usage k2
		      WHERE k2.constraint_schema = k.constraint_schema
		        AND k2.table_name = k.table_name
		        AND k2.constraint_name = k.constraint_name
		  ) = 1
		ORDER BY k.constraint_name`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rel, col string
		var ref schema.Reference
		if err := rows.Scan(&rel, &col, &ref.Schema, &ref.Table, &ref.Column); err != nil {
			return err
		}
		t, ok := info.Relation(rel)
		if !ok {
			continue
		}
		for i := range t.Columns {
			if t.Columns[i].Name == col && t.Columns[i].References == nil {
				r := ref
				t.Columns[i].References = &r
			}
		}
	}
	return rows.Err()
}

func (in *Introspector) loadRoutines(ctx context.Context, info *schema.SchemaInfo) error {
	const q = `
		SELECT routine_name, routine_type, dtd_identifier
		FROM information_schema.routines
		WHERE routine_schema = ?
		ORDER BY routine_name`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, kind string
		var returns *string
		if err := rows.Scan(&name, &kind, &returns); err != nil {
			return err
		}
		fn := &schema.FunctionInfo{
			Name:       name,
			Schema:     info.Name,
			Kind:       schema.KindScalar,
			ObjectKind: schema.ObjectFunction,
			Parameters: []schema.ParameterInfo{},
		}
		if strings.EqualFold(kind, "PROCEDURE") {
			fn.ObjectKind = schema.ObjectProcedure
			info.Procedures.Set(name, fn)
			continue
		}
		if returns != nil && *returns != "" {
			fn.ReturnType = schema.Ptr(*returns)
		}
		info.Functions.Set(name, fn)
	}
	return rows.Err()
}

func (in *Introspector) loadParameters(ctx context.Context, info *schema.SchemaInfo) error {
	// ordinal_position 0 is a function's return value.
	const q = `
		SELECT specific_name, parameter_name, parameter_mode, dtd_identifier
		FROM information_schema.parameters
		WHERE specific_schema = ?
		  AND ordinal_position > 0
		ORDER BY specific_name, ordinal_position`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var routine, typ string
		var name, mode *string
		if err := rows.Scan(&routine, &name, &mode, &typ); err != nil {
			return err
		}
		fn, ok := info.Functions.Get(routine)
		if !ok {
			if fn, ok = info.Procedures.Get(routine); !ok {
				continue
			}
		}
		p := schema.ParameterInfo{
			Name: fmt.Sprintf("arg%d", len(fn.Parameters)+1),
			Type: typ,
			Mode: schema.ModeIn,
		}
		if name != nil && *name != "" {
			p.Name = *name
		}
		if mode != nil && *mode != "" {
			p.Mode = schema.ParamMode(strings.ToUpper(*mode))
		}
		fn.Parameters = append(fn.Parameters, p)
	}
	return rows.Err()
}

// parseEnumValues extracts the labels of an enum('a','b') column type.
// Quotes inside labels are doubled by the server.
func parseEnumValues(columnType string) ([]string, bool) {
	s := strings.TrimSpace(columnType)
	if len(s) < len("enum()") || !strings.EqualFold(s[:5], "enum(") || s[len(s)-1] != ')' {
		return nil, false
	}
	body := s[5 : len(s)-1]

	values := []string{}
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case !inQuote && c == '\'':
			inQuote = true
			cur.Reset()
		case inQuote && c == '\'' && i+1 < len(body) && body[i+1] == '\'':
			cur.WriteByte('\'')
			i++
		case inQuote && c == '\\' && i+1 < len(body):
			cur.WriteByte(body[i+1])
			i++
		case inQuote && c == '\'':
			inQuote = false
			values = append(values, cur.String())
		case inQuote:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, false
	}
	return values, true
}
