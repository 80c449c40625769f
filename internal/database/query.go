package database

import (
	"strconv"
	"strings"

	"github.com/koustreak/datrigen/internal/errs"
)

// Dialect selects placeholder style and identifier quoting.
type Dialect int

const (
	DialectPostgres Dialect = iota // $1, $2, … and "ident"
	DialectMySQL                   // ? and `ident`
)

// QuoteIdent quotes a SQL identifier for the dialect. Embedded quote
// characters are doubled.
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// comparisonOps lists the operators Where accepts. The operator cannot be a
// bind parameter, so anything else is refused.
var comparisonOps = map[string]struct{}{
	"=": {}, "!=": {}, "<>": {}, "<": {}, ">": {}, "<=": {}, ">=": {},
	"LIKE": {}, "ILIKE": {},
}

// SortDirection is the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

// SelectBuilder builds a parameterized SELECT over one relation. Identifiers
// are quoted and values always travel as bind arguments.
//
//	sql, args, err := Select("users", DialectPostgres).
//	    Schema("public").
//	    Columns("id", "email").
//	    Where("active", "=", true).
//	    OrderBy("email", Desc).
//	    Limit(20).
//	    Build()
type SelectBuilder struct {
	dialect Dialect
	schema  string
	table   string
	columns []string
	conds   []condition
	order   []ordering
	limit   *int
	offset  *int
}

type condition struct {
	column string
	op     string
	value  any
	isNull bool
}

type ordering struct {
	column string
	dir    SortDirection
}

// Select starts a query on table.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Schema qualifies the table (a database, for MySQL).
func (b *SelectBuilder) Schema(name string) *SelectBuilder {
	b.schema = name
	return b
}

// Columns restricts the select list. Without it every column is selected.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds `column op value`. Conditions are joined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.conds = append(b.conds, condition{column: column, op: op, value: value})
	return b
}

// WhereNull adds `column IS NULL`.
func (b *SelectBuilder) WhereNull(column string) *SelectBuilder {
	b.conds = append(b.conds, condition{column: column, isNull: true})
	return b
}

func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.order = append(b.order, ordering{column, dir})
	return b
}

func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build returns the SQL text and its bind arguments. An operator outside
// the accepted set is an InvalidInput error.
func (b *SelectBuilder) Build() (string, []any, error) {
	q := &sqlWriter{dialect: b.dialect}

	q.sb.WriteString("SELECT ")
	if len(b.columns) == 0 {
		q.sb.WriteString("*")
	}
	for i, c := range b.columns {
		if i > 0 {
			q.sb.WriteString(", ")
		}
		q.ident(c)
	}

	q.sb.WriteString(" FROM ")
	if b.schema != "" {
		q.ident(b.schema)
		q.sb.WriteString(".")
	}
	q.ident(b.table)

	for i, c := range b.conds {
		if i == 0 {
			q.sb.WriteString(" WHERE ")
		} else {
			q.sb.WriteString(" AND ")
		}
		if err := q.condition(c); err != nil {
			return "", nil, err
		}
	}

	for i, o := range b.order {
		if i == 0 {
			q.sb.WriteString(" ORDER BY ")
		} else {
			q.sb.WriteString(", ")
		}
		q.ident(o.column)
		if o.dir == Desc {
			q.sb.WriteString(" DESC")
		} else {
			q.sb.WriteString(" ASC")
		}
	}

	if b.limit != nil {
		q.sb.WriteString(" LIMIT ")
		q.bind(*b.limit)
	}
	if b.offset != nil {
		q.sb.WriteString(" OFFSET ")
		q.bind(*b.offset)
	}
	return q.sb.String(), q.args, nil
}

// sqlWriter accumulates SQL text and numbers placeholders as values are
// bound.
type sqlWriter struct {
	dialect Dialect
	sb      strings.Builder
	args    []any
}

func (w *sqlWriter) ident(name string) {
	w.sb.WriteString(w.dialect.QuoteIdent(name))
}

func (w *sqlWriter) bind(v any) {
	w.args = append(w.args, v)
	if w.dialect == DialectMySQL {
		w.sb.WriteString("?")
		return
	}
	w.sb.WriteString("$" + strconv.Itoa(len(w.args)))
}

func (w *sqlWriter) condition(c condition) error {
	w.ident(c.column)
	if c.isNull {
		w.sb.WriteString(" IS NULL")
		return nil
	}

	op := strings.ToUpper(strings.TrimSpace(c.op))
	if _, ok := comparisonOps[op]; !ok {
		return errs.New(errs.ErrKindInvalidInput, "unsupported WHERE operator: "+strconv.Quote(c.op))
	}
	if op == "ILIKE" && w.dialect == DialectMySQL {
		// default MySQL collations already compare case-insensitively
		op = "LIKE"
	}
	w.sb.WriteString(" " + op + " ")
	w.bind(c.value)
	return nil
}
