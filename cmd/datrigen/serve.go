package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/koustreak/datrigen/internal/config"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve schema metadata and table rows over HTTP",
		Long: `Starts the metadata service that the http source and the generated
clients talk to. A postgres or mysql source serves metadata and read-only
rows; a file source serves metadata only.

Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if a.cfg.Source.Kind == config.SourceHTTP {
				return errs.New(errs.ErrKindInvalidInput, "serve needs a postgres, mysql or file source")
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if err := a.cfg.Server.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			src, err := a.openSource(ctx)
			if err != nil {
				return err
			}
			defer src.Close()

			color.New(color.FgGreen, color.Bold).Fprintf(a.stdout, "✓ Serving %s source on %s\n", a.cfg.Source.Kind, a.cfg.Server.Addr)
			srv := server.New(a.cfg.Server, src.reader, src.db, server.WithLogger(a.log.Component("server")))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
