// Package metaclient reads schema metadata from a remote metadata service.
//
// The service exposes
//
//	GET /meta/schemas          -> {"schemas": ["public", "audit"]}
//	GET /meta/schemas/{schema} -> SchemaInfo
//
// and Client implements schema.Reader over it, so a remote service and a
// live database are interchangeable metadata sources.
package metaclient

import (
	"context"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/logger"
	"github.com/koustreak/datrigen/internal/schema"
	"github.com/koustreak/datrigen/internal/transport"
)

// DefaultConcurrency bounds parallel schema fetches.
const DefaultConcurrency = 4

// SchemaList is the body of GET /meta/schemas.
type SchemaList struct {
	Schemas []string `json:"schemas"`
}

var _ schema.Reader = (*Client)(nil)

// Client is a remote schema.Reader.
type Client struct {
	http        *transport.Client
	concurrency int
	log         *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithConcurrency bounds how many schemas FetchAll requests at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New returns a Client issuing requests through hc.
func New(hc *transport.Client, opts ...Option) *Client {
	c := &Client{
		http:        hc,
		concurrency: DefaultConcurrency,
		log:         logger.L().Component("metaclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSchemas returns the schema names the service knows, in its order.
func (c *Client) ListSchemas(ctx context.Context) ([]string, error) {
	var list SchemaList
	if err := c.http.Get(ctx, "meta/schemas", nil, &list); err != nil {
		return nil, err
	}
	return list.Schemas, nil
}

// InspectSchema fetches the metadata of one schema.
func (c *Client) InspectSchema(ctx context.Context, name string) (*schema.SchemaInfo, error) {
	return c.inspect(ctx, name, false)
}

// Refresh is InspectSchema bypassing any server side cache.
func (c *Client) Refresh(ctx context.Context, name string) (*schema.SchemaInfo, error) {
	return c.inspect(ctx, name, true)
}

func (c *Client) inspect(ctx context.Context, name string, refresh bool) (*schema.SchemaInfo, error) {
	if name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "schema name is required")
	}

	var q url.Values
	if refresh {
		q = url.Values{"refresh": {"true"}}
	}

	var info schema.SchemaInfo
	if err := c.http.Get(ctx, transport.Path("meta", "schemas", name), q, &info); err != nil {
		return nil, err
	}
	if info.Name == "" {
		info.Name = name
	}
	c.log.DebugWith("schema fetched", map[string]interface{}{
		"schema":    name,
		"tables":    info.Tables.Len(),
		"functions": info.Functions.Len(),
		"refresh":   refresh,
	})
	return &info, nil
}

// FetchAll fetches the named schemas in parallel, returning them in the
// order given. No names means every schema the service lists. The first
// failure cancels the remaining fetches.
func (c *Client) FetchAll(ctx context.Context, names []string) ([]*schema.SchemaInfo, error) {
	return FetchAll(ctx, c, names, c.concurrency)
}

// FetchAll reads the named schemas from any Reader with at most limit
// requests in flight.
func FetchAll(ctx context.Context, r schema.Reader, names []string, limit int) ([]*schema.SchemaInfo, error) {
	log := logger.FromContext(ctx).Component("metaclient")

	if len(names) == 0 {
		var err error
		names, err = r.ListSchemas(ctx)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*schema.SchemaInfo, len(names))
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, name := range names {
		eg.Go(func() error {
			s, err := r.InspectSchema(ctx, name)
			if err != nil {
				log.ErrorWith("failed to fetch schema", err, map[string]interface{}{"schema": name})
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.InfoWith("schemas fetched", map[string]interface{}{"count": len(out)})
	return out, nil
}
