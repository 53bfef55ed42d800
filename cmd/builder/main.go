/*
Command builder fetches the Quran text from alquran.cloud, normalizes and
validates it, and writes the export files. Run from the repository root:

	go run ./cmd/builder build                  # fetch, validate and export everything
	go run ./cmd/builder build --chapters 1,112 # only some surahs
	go run ./cmd/builder build --clean --gzip   # delete output/ first, write .json.gz
	go run ./cmd/builder reference              # print the reference verse counts
	go run ./cmd/builder verify output          # check files against manifest.json
	go run ./cmd/builder normalize "قُلْ هُوَ"   # show the simplified form of some text

Outputs (in output/ by default):

	quran_complete.json      both text variants of every verse
	quran_simple.json        simplified text only
	quran_statistics.json    word and character counts
	validation_report.json   discrepancies, failures and warnings
	quran.db                 SQLite database
	fetch_audit.jsonl        one line per HTTP attempt
	manifest.json            sizes and BLAKE3 digests of the above
*/
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mushaf/internal/config"
	"mushaf/internal/logging"
)

// app holds state shared by the subcommands.
type app struct {
	out io.Writer

	configPath string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "mushaf-builder",
		Short:         "Build a validated Quran corpus from alquran.cloud",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", config.DefaultPath, "YAML config file (missing file means defaults)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	root.AddCommand(
		a.newBuildCmd(),
		a.newReferenceCmd(),
		a.newConfigCmd(),
		a.newVerifyCmd(),
		a.newNormalizeCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	logger, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
