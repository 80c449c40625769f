// Package crud provides typed clients for the table endpoints of the API:
//
//	GET    /api/{schema}/{table}        list, filtered by QueryParams
//	GET    /api/{schema}/{table}/{id}   one row by primary key
//	POST   /api/{schema}/{table}        create
//	PUT    /api/{schema}/{table}/{id}   update
//	DELETE /api/{schema}/{table}/{id}   delete
//
// Row types are usually the Go twins of the generated TypeScript interfaces,
// or map[string]any when the shape is not known ahead of time.
package crud

import (
	"context"

	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/transport"
)

// Row is an untyped table row.
type Row = map[string]any

// Table is a typed client for one table.
type Table[T any] struct {
	client *transport.Client
	schema string
	table  string
}

// NewTable returns a client for schemaName.table whose rows decode into T.
func NewTable[T any](client *transport.Client, schemaName, table string) *Table[T] {
	return &Table[T]{client: client, schema: schemaName, table: table}
}

// Name returns the schema-qualified table name.
func (t *Table[T]) Name() string {
	return t.schema + "." + t.table
}

func (t *Table[T]) collection() string {
	return transport.Path("api", t.schema, t.table)
}

func (t *Table[T]) item(id any) (string, error) {
	s := formatValue(id)
	if id == nil || s == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "id is required")
	}
	return transport.Path("api", t.schema, t.table, s), nil
}

// List returns the rows matching p.
func (t *Table[T]) List(ctx context.Context, p QueryParams) ([]T, error) {
	q, err := p.Values()
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := t.client.Get(ctx, t.collection(), q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns the row whose primary key is id.
func (t *Table[T]) Get(ctx context.Context, id any) (*T, error) {
	path, err := t.item(id)
	if err != nil {
		return nil, err
	}
	var row T
	if err := t.client.Get(ctx, path, nil, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts v and returns the stored row.
func (t *Table[T]) Create(ctx context.Context, v T) (*T, error) {
	var row T
	if err := t.client.Post(ctx, t.collection(), v, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// Update replaces the row whose primary key is id and returns it.
func (t *Table[T]) Update(ctx context.Context, id any, v T) (*T, error) {
	path, err := t.item(id)
	if err != nil {
		return nil, err
	}
	var row T
	if err := t.client.Put(ctx, path, v, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes the row whose primary key is id.
func (t *Table[T]) Delete(ctx context.Context, id any) error {
	path, err := t.item(id)
	if err != nil {
		return err
	}
	return t.client.Delete(ctx, path, nil)
}
