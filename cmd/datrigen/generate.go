package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/koustreak/datrigen/internal/codegen"
	"github.com/koustreak/datrigen/internal/config"
	"github.com/koustreak/datrigen/internal/crud"
	"github.com/koustreak/datrigen/internal/filestore/minio"
	"github.com/koustreak/datrigen/internal/logger"
	"github.com/koustreak/datrigen/internal/schema"
)

type generateOptions struct {
	out        string
	bucket     string
	prefix     string
	banner     string
	refineJSON bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate TypeScript modules for the selected schemas",
		Long: `Reads schema metadata from the configured source and writes one
<schema>.ts module per schema plus index.ts.

With --bucket the modules are also uploaded to object storage and a
presigned URL for index.ts is printed.

With --refine-json and an http source, one row of every table holding json
columns is sampled to narrow those columns' types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("out") {
				a.cfg.Output.Dir = opts.out
			}
			if opts.bucket != "" {
				a.cfg.Output.Bucket = opts.bucket
			}
			if opts.prefix != "" {
				a.cfg.Output.Prefix = opts.prefix
			}
			if opts.banner != "" {
				a.cfg.Output.Banner = opts.banner
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.generate(cmd.Context(), opts.refineJSON)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", "output directory (empty skips writing to disk when --bucket is set)")
	f.StringVar(&opts.bucket, "bucket", "", "object storage bucket to publish to")
	f.StringVar(&opts.prefix, "prefix", "", "object key prefix inside the bucket")
	f.StringVar(&opts.banner, "banner", "", "comment placed at the top of every file")
	f.BoolVar(&opts.refineJSON, "refine-json", false, "sample json columns to refine their types (http source only)")
	return cmd
}

func (a *app) generate(ctx context.Context, refineJSON bool) error {
	log := logger.FromContext(ctx).Component("generate")
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)

	src, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	schemas, err := a.fetch(ctx, src)
	if err != nil {
		return err
	}
	log.InfoWith("schemas fetched", map[string]interface{}{
		"source":  sourceLabel(a.cfg),
		"schemas": len(schemas),
	})

	samples := codegen.Samples{}
	if refineJSON {
		if src.client == nil {
			log.Warn("--refine-json needs an http source, skipping samples")
		} else if err := collectSamples(ctx, src, schemas, samples); err != nil {
			return err
		}
	}

	gen := codegen.New(
		codegen.WithMapper(a.cfg.Mapper()),
		codegen.WithSamples(samples),
		codegen.WithBanner(a.cfg.Output.Banner),
	)
	out, err := gen.Generate(ctx, schemas)
	if err != nil {
		return err
	}

	if dir := a.cfg.Output.Dir; dir != "" {
		if err := codegen.WriteDir(ctx, dir, out); err != nil {
			return err
		}
		green.Fprintf(a.stdout, "✓ Generated %d file(s) in %s\n", len(out.Files), dir)
		for _, f := range out.Files {
			cyan.Fprintf(a.stdout, "  %s\n", f.Name)
		}
	}

	if a.cfg.Output.Bucket != "" {
		return a.publish(ctx, out)
	}
	return nil
}

func collectSamples(ctx context.Context, src *source, schemas []*schema.SchemaInfo, into codegen.Samples) error {
	for _, s := range schemas {
		if err := crud.CollectJSONSamples(ctx, src.client, s, into); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) publish(ctx context.Context, out *codegen.Output) error {
	green := color.New(color.FgGreen, color.Bold)
	oc := a.cfg.Output

	store, err := minio.New(ctx, &a.cfg.Filestore)
	if err != nil {
		return err
	}
	defer store.Close()

	published, err := codegen.Publish(ctx, store, oc.Bucket, oc.Prefix, out)
	if err != nil {
		return err
	}
	green.Fprintf(a.stdout, "✓ Published %d file(s) to %s/%s\n", len(published), oc.Bucket, oc.Prefix)

	url, err := codegen.IndexURL(ctx, store, oc.Bucket, oc.Prefix, oc.PresignTTL)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "  %s (valid %s)\n", url, oc.PresignTTL)
	return nil
}

// sourceLabel describes the configured source for log lines.
func sourceLabel(c *config.Config) string {
	switch c.Source.Kind {
	case config.SourceHTTP:
		return c.Source.URL
	case config.SourceFile:
		return c.Source.File
	}
	return string(c.Source.Kind)
}
