package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/koustreak/datrigen/internal/config"
	"github.com/koustreak/datrigen/internal/logger"
)

// app is the state shared by every subcommand once the config is loaded.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	stdout io.Writer
	stderr io.Writer

	configPath string
	envFiles   []string
	schemas    []string
	source     string
	logLevel   string
	noColor    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "datrigen",
		Short: "Generate TypeScript bindings from database schema metadata",
		Long: `datrigen reads schema metadata (tables, views, enums, functions and
procedures) from a metadata service, a live PostgreSQL or MySQL database, or
a fixture file, and writes one TypeScript module per schema plus an index.

Examples:

  datrigen generate --out ./src/db
  datrigen generate --source postgres --schema public --bucket bindings
  datrigen inspect --format json
  datrigen serve --config datrigen.yaml
`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	f.StringSliceVar(&a.envFiles, "env-file", nil, "env files to load (default .env when present)")
	f.StringSliceVarP(&a.schemas, "schema", "s", nil, "schemas to read (default: all)")
	f.StringVar(&a.source, "source", "", "metadata source: http, postgres, mysql or file")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newGenerateCmd(a), newInspectCmd(a), newServeCmd(a))
	return root
}

// load reads the config and applies the persistent flags over it.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(a.configPath, a.envFiles...)
	if err != nil {
		return err
	}
	if a.source != "" {
		cfg.Source.Kind = config.SourceKind(a.source)
	}
	if len(a.schemas) > 0 {
		cfg.Source.Schemas = a.schemas
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	cfg.Log.Output = a.stderr

	a.cfg = cfg
	a.log = logger.New(&cfg.Log)
	logger.SetGlobal(a.log)
	cmd.SetContext(a.log.WithContext(cmd.Context()))
	return nil
}

// printError reports a failed command. *errs.Error already carries its kind
// in the message.
func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprint(w, "✗ ")
	fmt.Fprintln(w, err)
}
