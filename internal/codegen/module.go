package codegen

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/logger"
	"github.com/koustreak/datrigen/internal/schema"
)

// IndexFile is the name of the module re-exporting every schema module.
const IndexFile = "index.ts"

// Extension of generated modules.
const Extension = ".ts"

// SchemaModule renders the whole module of one schema. Declarations appear
// in this order, each group in insertion order: per table its row and query
// parameter interfaces, views, enums, functions and procedures.
// Triggers produce nothing, and neither do nil entries. Blocks are separated
// by one blank line.
func (g *Generator) SchemaModule(s *schema.SchemaInfo) string {
	scope := enumScope{owner: s.Name, enums: &s.Enums}

	var blocks []string
	for _, t := range present(s.Tables) {
		blocks = append(blocks, g.tableDecl(t, scope), g.queryParamsDecl(t, scope))
	}
	for _, v := range present(s.Views) {
		blocks = append(blocks, g.viewDecl(v, scope))
	}
	for _, e := range present(s.Enums) {
		blocks = append(blocks, g.EnumDecl(e))
	}
	for _, fn := range present(s.Functions) {
		blocks = append(blocks, g.FunctionDecls(fn, ""))
	}
	for _, p := range present(s.Procedures) {
		blocks = append(blocks, g.FunctionDecls(p, procedureSuffix))
	}

	var b strings.Builder
	g.writeHeader(&b, "Schema: "+s.Name)
	for _, blk := range blocks {
		b.WriteString("\n")
		b.WriteString(blk)
	}
	return b.String()
}

// present returns the non-nil values of m in insertion order.
func present[T any](m schema.Map[*T]) []*T {
	out := make([]*T, 0, m.Len())
	for _, v := range m.Values() {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// IndexModule renders the module re-exporting every schema module in input
// order.
func (g *Generator) IndexModule(schemas []*schema.SchemaInfo) string {
	var b strings.Builder
	if g.banner != "" {
		b.WriteString(g.banner + "\n\n")
	}
	for _, s := range schemas {
		b.WriteString("export * from './" + UnitName(s.Name) + "';\n")
	}
	return b.String()
}

func (g *Generator) writeHeader(b *strings.Builder, title string) {
	if g.banner != "" {
		b.WriteString(g.banner + "\n")
	}
	b.WriteString("// " + strings.ReplaceAll(title, "\n", " ") + "\n")
}

// File is one generated module.
type File struct {
	Name    string
	Content string
}

// Output is the result of a generation run: one file per schema in input
// order, followed by the index module.
type Output struct {
	Files []File
}

// File returns the generated file called name.
func (o *Output) File(name string) (File, bool) {
	for _, f := range o.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// Generate renders every schema concurrently and appends the index module.
// Two schemas that map to the same unit name, or a schema whose unit would
// shadow the index, are rejected with an InvalidInput error.
func (g *Generator) Generate(ctx context.Context, schemas []*schema.SchemaInfo) (*Output, error) {
	log := logger.FromContext(ctx).Component("codegen")

	seen := make(map[string]string, len(schemas))
	for _, s := range schemas {
		if s == nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "schema list contains a nil entry")
		}
		unit := UnitName(s.Name) + Extension
		if unit == IndexFile {
			return nil, errs.New(errs.ErrKindInvalidInput, "schema "+quote(s.Name)+" would overwrite "+IndexFile)
		}
		if prev, dup := seen[unit]; dup {
			return nil, errs.New(errs.ErrKindInvalidInput,
				"schemas "+quote(prev)+" and "+quote(s.Name)+" both generate "+unit)
		}
		seen[unit] = s.Name
	}

	files := make([]File, len(schemas), len(schemas)+1)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range schemas {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return errs.Wrap(errs.ErrKindTimeout, "generation cancelled", err)
			}
			files[i] = File{
				Name:    UnitName(s.Name) + Extension,
				Content: g.SchemaModule(s),
			}
			log.DebugWith("schema module rendered", map[string]interface{}{
				"schema": s.Name,
				"file":   files[i].Name,
				"bytes":  len(files[i].Content),
			})
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	files = append(files, File{Name: IndexFile, Content: g.IndexModule(schemas)})
	log.InfoWith("generation complete", map[string]interface{}{
		"schemas": len(schemas),
		"files":   len(files),
	})
	return &Output{Files: files}, nil
}
