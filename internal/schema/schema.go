// Package schema holds the metadata records datrigen generates code from
// (tables, views, enums, functions, procedures) and the Reader contract
// every metadata source implements.
//
// Records are produced by a source and only read afterwards: the remote
// metadata API client, the Postgres and MySQL introspectors, or a fixture
// file loaded with LoadFile.
package schema

import (
	"context"

	"github.com/koustreak/datrigen/internal/errs"
)

// Reader is the interface for fetching schema metadata
type Reader interface {
	// ListSchemas returns the names of all user schemas the source exposes.
	ListSchemas(ctx context.Context) ([]string, error)

	// InspectSchema returns the full metadata of one schema.
	// Returns an errs.ErrKindNotFound error when the schema does not exist.
	InspectSchema(ctx context.Context, name string) (*SchemaInfo, error)
}

// StaticReader serves schemas that are already in memory.
type StaticReader struct {
	schemas Map[*SchemaInfo]
}

// NewStaticReader returns a Reader over the given schemas.
func NewStaticReader(schemas ...*SchemaInfo) *StaticReader {
	r := &StaticReader{}
	for _, s := range schemas {
		r.schemas.Set(s.Name, s)
	}
	return r
}

// ListSchemas returns the schema names in the order they were given.
func (r *StaticReader) ListSchemas(_ context.Context) ([]string, error) {
	return r.schemas.Keys(), nil
}

// InspectSchema returns the schema called name.
func (r *StaticReader) InspectSchema(_ context.Context, name string) (*SchemaInfo, error) {
	s, ok := r.schemas.Get(name)
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "schema "+name+" not found")
	}
	return s, nil
}
