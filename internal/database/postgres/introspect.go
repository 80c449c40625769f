package postgres

import (
	"context"
	"fmt"

	"github.com/koustreak/datrigen/internal/database"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/logger"
	"github.com/koustreak/datrigen/internal/schema"
)

var _ schema.Reader = (*Introspector)(nil)

// Introspector reads schema metadata from the PostgreSQL system catalogs.
// It only issues queries through database.DB, so it works over any
// Postgres-dialect connection.
type Introspector struct {
	db  database.DB
	log *logger.Logger
}

// NewIntrospector returns an Introspector reading through db.
func NewIntrospector(db database.DB) *Introspector {
	return &Introspector{db: db, log: logger.L().Component("postgres")}
}

// ListSchemas returns every user schema, system schemas excluded.
func (in *Introspector) ListSchemas(ctx context.Context) ([]string, error) {
	const q = `
		SELECT nspname
		FROM pg_catalog.pg_namespace
		WHERE nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		  AND nspname NOT LIKE 'pg\_temp\_%'
		  AND nspname NOT LIKE 'pg\_toast\_temp\_%'
		ORDER BY nspname`

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

// InspectSchema reads tables, views, enums and routines of one schema.
// Relations and enums are ordered by name, columns by position.
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
		{"primary keys", in.loadPrimaryKeys},
		{"foreign keys", in.loadForeignKeys},
		{"enums", in.loadEnums},
		{"routines", in.loadRoutines},
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
	const q = `SELECT count(*) FROM pg_catalog.pg_namespace WHERE nspname = $1`

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
		WHERE table_schema = $1
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
	// format_type renders arrays as "T[]" and keeps the schema prefix of
	// types outside the search path.
	const q = `
		SELECT c.relname,
		       a.attname,
		       format_type(a.atttypid, a.atttypmod),
		       NOT a.attnotnull,
		       COALESCE(t.typtype = 'e' OR (t.typcategory = 'A' AND et.typtype = 'e'), false)
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c     ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_type t      ON t.oid = a.atttypid
		LEFT JOIN pg_catalog.pg_type et ON et.oid = t.typelem
		WHERE n.nspname = $1
		  AND c.relkind IN ('r', 'p', 'v')
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		ORDER BY c.relname, a.attnum`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rel string
		var col schema.ColumnInfo
		if err := rows.Scan(&rel, &col.Name, &col.Type, &col.Nullable, &col.IsEnum); err != nil {
			return err
		}
		if t, ok := info.Relation(rel); ok {
			t.Columns = append(t.Columns, col)
		}
	}
	return rows.Err()
}

func (in *Introspector) loadPrimaryKeys(ctx context.Context, info *schema.SchemaInfo) error {
	const q = `
		SELECT c.relname, a.attname
		FROM pg_catalog.pg_index i
		JOIN pg_catalog.pg_class c     ON c.oid = i.indrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY (i.indkey)
		WHERE i.indisprimary
		  AND n.nspname = $1`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rel, col string
		if err := rows.Scan(&rel, &col); err != nil {
			return err
		}
		markColumn(info, rel, col, func(c *schema.ColumnInfo) { c.IsPrimaryKey = true })
	}
	return rows.Err()
}

func (in *Introspector) loadForeignKeys(ctx context.Context, info *schema.SchemaInfo) error {
	// Composite keys have no single referenced column and are skipped.
	const q = `
		SELECT c.relname, a.attname, rn.nspname, rc.relname, ra.attname
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c      ON c.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n  ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_class rc     ON rc.oid = con.confrelid
		JOIN pg_catalog.pg_namespace rn ON rn.oid = rc.relnamespace
		JOIN pg_catalog.pg_attribute a  ON a.attrelid = con.conrelid AND a.attnum = con.conkey[1]
		JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = con.confkey[1]
		WHERE con.contype = 'f'
		  AND n.nspname = $1
		  AND array_length(con.conkey, 1) = 1
		ORDER BY con.conname`

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
		markColumn(info, rel, col, func(c *schema.ColumnInfo) {
			if c.References == nil {
				r := ref
				c.References = &r
			}
		})
	}
	return rows.Err()
}

func (in *Introspector) loadEnums(ctx context.Context, info *schema.SchemaInfo) error {
	const q = `
		SELECT t.typname, e.enumlabel
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		JOIN pg_catalog.pg_enum e      ON e.enumtypid = t.oid
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return err
		}
		e, ok := info.Enums.Get(name)
		if !ok {
			e = &schema.EnumInfo{Name: name, Schema: info.Name}
			info.Enums.Set(name, e)
		}
		e.Values = append(e.Values, label)
	}
	return rows.Err()
}

func (in *Introspector) loadRoutines(ctx context.Context, info *schema.SchemaInfo) error {
	// proallargtypes is only set when the routine has non-IN arguments;
	// otherwise proargtypes lists the inputs.
	const q = `
		SELECT p.proname,
		       p.prokind = 'p',
		       p.proretset,
		       CASE WHEN p.prokind = 'p' THEN NULL ELSE format_type(p.prorettype, NULL) END,
		       COALESCE(p.proargnames, '{}'::text[]),
		       COALESCE(p.proargmodes::text[], '{}'::text[]),
		       ARRAY(
		           SELECT format_type(u.t, NULL)
		           FROM unnest(COALESCE(p.proallargtypes, p.proargtypes::oid[])) WITH ORDINALITY AS u(t, ord)
		           ORDER BY u.ord
		       ),
		       p.pronargdefaults
		FROM pg_catalog.pg_proc p
		JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1
		  AND p.prokind IN ('f', 'p')
		ORDER BY p.proname, p.oid`

	rows, err := in.db.Query(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		r := routineRow{schema: info.Name}
		if err := rows.Scan(&r.name, &r.procedure, &r.returnsSet, &r.returnType,
			&r.argNames, &r.argModes, &r.argTypes, &r.defaults); err != nil {
			return err
		}

		fn := r.build()
		target := &info.Functions
		switch fn.ObjectKind {
		case schema.ObjectProcedure:
			target = &info.Procedures
		case schema.ObjectTrigger:
			target = &info.Triggers
		}
		// overloads: the first definition wins
		if !target.Has(fn.Name) {
			target.Set(fn.Name, fn)
		}
	}
	return rows.Err()
}

// markColumn applies fn to column col of relation rel, if both exist.
func markColumn(info *schema.SchemaInfo, rel, col string, fn func(*schema.ColumnInfo)) {
	t, ok := info.Relation(rel)
	if !ok {
		return
	}
	for i := range t.Columns {
		if t.Columns[i].Name == col {
			fn(&t.Columns[i])
			return
		}
	}
}
