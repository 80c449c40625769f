// Package codegen renders schema metadata as TypeScript declarations.
//
// A Generator is stateless apart from its options, so the same value can be
// shared by concurrent callers. Every Decl method returns text terminated by
// a newline and never fails: types the mapper does not recognise degrade to
// "unknown" instead of aborting a whole schema.
//
// Usage:
//
//	gen := codegen.New(codegen.WithSamples(samples))
//	out, err := gen.Generate(ctx, schemas)
//	if err != nil { ... }
//	err = codegen.WriteDir(ctx, "./generated", out)
package codegen

import (
	"fmt"
	"strings"

	"github.com/koustreak/datrigen/internal/schema"
	"github.com/koustreak/datrigen/internal/typemap"
)

// DefaultBanner is the first line of every generated file.
const DefaultBanner = "// Code generated by datrigen. DO NOT EDIT."

const indent = "  "

// Generator renders declarations. Use New to build one.
type Generator struct {
	mapper  *typemap.Mapper
	samples Samples
	banner  string
}

// Option configures a Generator.
type Option func(*Generator)

// WithMapper replaces the default type mapper, typically one carrying
// user overrides.
func WithMapper(m *typemap.Mapper) Option {
	return func(g *Generator) {
		if m != nil {
			g.mapper = m
		}
	}
}

// WithSamples supplies JSON column samples used to refine json/jsonb
// columns into structural types.
func WithSamples(s Samples) Option {
	return func(g *Generator) { g.samples = s }
}

// WithBanner sets the header comment of generated modules. An empty banner
// omits the line.
func WithBanner(banner string) Option {
	return func(g *Generator) { g.banner = banner }
}

// New returns a Generator with the default mapper and banner.
func New(opts ...Option) *Generator {
	g := &Generator{
		mapper: typemap.Default,
		banner: DefaultBanner,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// field is one property line of an interface.
type field struct {
	name     string
	typ      string
	optional bool
	nullable bool
	notes    []string
}

func (f field) write(b *strings.Builder) {
	if len(f.notes) > 0 {
		b.WriteString(indent + "/** " + commentText(strings.Join(f.notes, ". ")) + " */\n")
	}
	b.WriteString(indent + propName(f.name))
	if f.optional {
		b.WriteString("?")
	}
	b.WriteString(": " + f.typ)
	if f.nullable {
		b.WriteString(" | null")
	}
	b.WriteString(";\n")
}

func writeInterface(b *strings.Builder, name string, fields []field) {
	b.WriteString("export interface " + name + " {\n")
	for _, f := range fields {
		f.write(b)
	}
	b.WriteString("}\n")
}

func typeAlias(name, typ string) string {
	return "export type " + name + " = " + typ + ";\n"
}

// enumScope is the set of enums a column type may resolve to: those
// declared in the module being rendered. The zero value resolves nothing.
type enumScope struct {
	owner string // module schema name
	enums *schema.Map[*schema.EnumInfo]
}

// TableDecl renders the row interface of a table. Enum columns fall back to
// the enum marker type because no enum declarations are in scope; use
// SchemaModule to get enum-typed columns.
func (g *Generator) TableDecl(t *schema.TableInfo) string {
	return g.tableDecl(t, enumScope{})
}

func (g *Generator) tableDecl(t *schema.TableInfo, enums enumScope) string {
	fields := make([]field, 0, len(t.Columns))
	for _, c := range t.Columns {
		fields = append(fields, field{
			name:     c.Name,
			typ:      g.columnType(t, c, enums),
			optional: c.Nullable,
			nullable: c.Nullable,
			notes:    columnNotes(c),
		})
	}

	var b strings.Builder
	writeInterface(&b, declName(t.Name, ""), fields)
	return b.String()
}

// ViewDecl renders the row interface of a view: same field rules as a table,
// "View" suffix, no annotations.
func (g *Generator) ViewDecl(v *schema.TableInfo) string {
	return g.viewDecl(v, enumScope{})
}

func (g *Generator) viewDecl(v *schema.TableInfo, enums enumScope) string {
	fields := make([]field, 0, len(v.Columns))
	for _, c := range v.Columns {
		fields = append(fields, field{
			name:     c.Name,
			typ:      g.columnType(v, c, enums),
			optional: c.Nullable,
			nullable: c.Nullable,
		})
	}

	var b strings.Builder
	writeInterface(&b, declName(v.Name, "View"), fields)
	return b.String()
}

// EnumDecl renders a string enum. Member values are the original strings.
func (g *Generator) EnumDecl(e *schema.EnumInfo) string {
	var b strings.Builder
	b.WriteString("export enum " + declName(e.Name, "") + " {\n")
	for _, v := range e.Values {
		b.WriteString(indent + EnumMember(v) + " = " + quote(v) + ",\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// pagingParams are the fixed fields of every QueryParams interface. The
// list endpoint reads them as paging and ordering, never as filters.
var pagingParams = []field{
	{name: "limit", typ: typemap.Number, optional: true},
	{name: "offset", typ: typemap.Number, optional: true},
	{name: "order_by", typ: typemap.String, optional: true},
	{name: "order_dir", typ: "'asc' | 'desc'", optional: true},
}

func isPagingParam(name string) bool {
	for _, f := range pagingParams {
		if f.name == name {
			return true
		}
	}
	return false
}

// QueryParamsDecl renders the list-endpoint parameter interface of a table:
// paging and ordering fields, then one optional filter per column. Columns
// named like a paging field get no filter, since the endpoint cannot tell
// the two apart.
func (g *Generator) QueryParamsDecl(t *schema.TableInfo) string {
	return g.queryParamsDecl(t, enumScope{})
}

func (g *Generator) queryParamsDecl(t *schema.TableInfo, enums enumScope) string {
	fields := append([]field(nil), pagingParams...)
	for _, c := range t.Columns {
		if isPagingParam(c.Name) {
			continue
		}
		fields = append(fields, field{
			name:     c.Name,
			typ:      g.columnType(t, c, enums),
			optional: true,
			nullable: true,
		})
	}

	var b strings.Builder
	writeInterface(&b, declName(t.Name, "QueryParams"), fields)
	return b.String()
}

func (g *Generator) columnType(t *schema.TableInfo, c schema.ColumnInfo, enums enumScope) string {
	if c.IsEnum {
		if name, ok := resolveEnum(c.Type, enums); ok {
			return name
		}
		_, dims := arrayBase(c.Type)
		return g.mapper.Map("enum") + strings.Repeat("[]", dims)
	}
	if v, ok := g.samples.Lookup(t.Schema, t.Name, c.Name); ok {
		return g.mapper.MapSample(c.Type, v)
	}
	return g.mapper.Map(c.Type)
}

// arrayBase strips trailing "[]" pairs from a raw type and counts them.
func arrayBase(raw string) (string, int) {
	t := strings.TrimSpace(raw)
	var dims int
	for {
		base, ok := strings.CutSuffix(t, "[]")
		if !ok {
			return t, dims
		}
		t = strings.TrimSpace(base)
		dims++
	}
}

// resolveEnum finds the module enum a column type names. Quoting and array
// brackets are tolerated: in module "public", `"public"."mood"[]` resolves
// to "Mood[]". A type qualified with another schema names a different enum
// and does not resolve.
func resolveEnum(raw string, scope enumScope) (string, bool) {
	enums := scope.enums
	if enums == nil || enums.Len() == 0 {
		return "", false
	}

	t, dims := arrayBase(raw)
	if i := strings.LastIndex(t, "."); i >= 0 {
		qualifier := strings.Trim(t[:i], `"`)
		if !strings.EqualFold(qualifier, scope.owner) {
			return "", false
		}
		t = t[i+1:]
	}
	t = strings.Trim(t, `"`)

	e, ok := enums.Get(t)
	if !ok {
		for _, cand := range enums.Values() {
			if cand != nil && strings.EqualFold(cand.Name, t) {
				e, ok = cand, true
				break
			}
		}
	}
	if !ok || e == nil {
		return "", false
	}
	return declName(e.Name, "") + strings.Repeat("[]", dims), true
}

func columnNotes(c schema.ColumnInfo) []string {
	var notes []string
	if c.IsPrimaryKey {
		notes = append(notes, "Primary key")
	}
	if r := c.References; r != nil {
		notes = append(notes, fmt.Sprintf("References %s.%s.%s", r.Schema, r.Table, r.Column))
	}
	if c.IsEnum {
		notes = append(notes, "Enum: "+c.Type)
	}
	return notes
}
