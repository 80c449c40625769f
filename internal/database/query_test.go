package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datrigen/internal/errs"
)

func TestSelect_Postgres(t *testing.T) {
	sql, args, err := Select("users", DialectPostgres).
		Schema("public").
		Columns("id", "email").
		Where("status", "=", "active").
		WhereNull("deleted_at").
		Where("email", "ilike", "%@x.io").
		OrderBy("created_at", Desc).
		Limit(20).
		Offset(40).
		Build()
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "id", "email" FROM "public"."users" WHERE "status" = $1 AND "deleted_at" IS NULL AND "email" ILIKE $2 ORDER BY "created_at" DESC LIMIT $3 OFFSET $4`,
		sql)
	assert.Equal(t, []any{"active", "%@x.io", 20, 40}, args)
}

func TestSelect_MySQL(t *testing.T) {
	sql, args, err := Select("order items", DialectMySQL).
		Schema("shop").
		Where("sku`x", "=", 1).
		Where("name", "ILIKE", "a%").
		OrderBy("id", Asc).
		Limit(1).
		Build()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM `shop`.`order items` WHERE `sku``x` = ? AND `name` LIKE ? ORDER BY `id` ASC LIMIT ?",
		sql)
	assert.Equal(t, []any{1, "a%", 1}, args)
}

func TestSelect_RejectsOperator(t *testing.T) {
	_, _, err := Select("users", DialectPostgres).Where("id", "; DROP TABLE users; --", 1).Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"we""ird"`, DialectPostgres.QuoteIdent(`we"ird`))
	assert.Equal(t, "`plain`", DialectMySQL.QuoteIdent("plain"))
	assert.Equal(t, DialectMySQL, DriverMySQL.Dialect())
	assert.Equal(t, DialectPostgres, DriverPostgres.Dialect())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig("postgres://localhost/db").Validate())

	bad := []*Config{
		{Driver: "sqlite", DSN: "x"},
		{Driver: DriverMySQL},
		{Driver: DriverPostgres, DSN: "x", MaxConns: 2, MinConns: 5},
	}
	for _, c := range bad {
		assert.True(t, errs.IsInvalidInput(c.Validate()), "%+v", c)
	}
}

type fakeRows struct {
	cols []string
	data [][]any
	pos  int
	err  error
	done bool
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	for i, v := range r.data[r.pos-1] {
		*(dest[i].(*any)) = v
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }
func (r *fakeRows) Close()                     { r.done = true }
func (r *fakeRows) Err() error                 { return r.err }

func TestScanRows_Normalizes(t *testing.T) {
	id := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	rows := &fakeRows{
		cols: []string{"id", "name", "at", "tags"},
		data: [][]any{{id, []byte("ada"), at, []any{[]byte("x")}}},
	}

	got, err := ScanRows(rows)
	require.NoError(t, err)
	assert.True(t, rows.done)
	require.Len(t, got, 1)
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", got[0]["id"])
	assert.Equal(t, "ada", got[0]["name"])
	assert.Equal(t, at.UTC(), got[0]["at"])
	assert.Equal(t, []any{"x"}, got[0]["tags"])
}

func TestScanRow(t *testing.T) {
	_, err := ScanRow(&fakeRows{cols: []string{"id"}})
	assert.True(t, errs.IsNotFound(err))

	row, err := ScanRow(&fakeRows{cols: []string{"id"}, data: [][]any{{int64(1)}, {int64(2)}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), row["id"])

	empty, err := ScanRows(&fakeRows{cols: []string{"id"}})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
