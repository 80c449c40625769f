package crud

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/datrigen/internal/codegen"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/logger"
	"github.com/koustreak/datrigen/internal/schema"
	"github.com/koustreak/datrigen/internal/transport"
	"github.com/koustreak/datrigen/internal/typemap"
)

// sampleConcurrency bounds parallel sample requests.
const sampleConcurrency = 4

// CollectJSONSamples reads one row from every table of s that has json or
// jsonb columns and records each non-null value in into. Sampling is best
// effort: a table that cannot be read is logged and skipped. Only a
// cancelled ctx aborts the run.
func CollectJSONSamples(ctx context.Context, client *transport.Client, s *schema.SchemaInfo, into codegen.Samples) error {
	log := logger.FromContext(ctx).Component("crud")

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	eg.SetLimit(sampleConcurrency)

	for _, t := range s.Tables.Values() {
		if t == nil {
			continue
		}
		cols := jsonColumns(t)
		if len(cols) == 0 {
			continue
		}

		eg.Go(func() error {
			rows, err := NewTable[Row](client, s.Name, t.Name).List(ctx, QueryParams{Limit: Int(1)})
			if err != nil {
				if ctx.Err() != nil {
					return errs.Wrap(errs.ErrKindTimeout, "sampling cancelled", ctx.Err())
				}
				log.WarnWith("skipping json samples", err, map[string]interface{}{
					"schema": s.Name,
					"table":  t.Name,
				})
				return nil
			}
			if len(rows) == 0 {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, col := range cols {
				if v, ok := rows[0][col]; ok && v != nil {
					into.Set(s.Name, t.Name, col, v)
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func jsonColumns(t *schema.TableInfo) []string {
	var cols []string
	for _, c := range t.Columns {
		switch typemap.Normalize(c.Type) {
		case "json", "jsonb":
			cols = append(cols, c.Name)
		}
	}
	return cols
}
