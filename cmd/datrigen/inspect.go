package main

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/datrigen/internal/schema"
)

func newInspectCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the metadata of the selected schemas",
		Long: `Reads schema metadata from the configured source and prints it as YAML
or JSON. The output can be saved and used later as a file source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			src, err := a.openSource(ctx)
			if err != nil {
				return err
			}
			defer src.Close()

			schemas, err := a.fetch(ctx, src)
			if err != nil {
				return err
			}
			data, err := schema.Encode(format, schemas)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")
	return cmd
}
