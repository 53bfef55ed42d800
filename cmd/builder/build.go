package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"mushaf/internal/corpus"
	"mushaf/internal/pipeline"
)

// errValidationFailed is returned in strict mode when the report fails.
var errValidationFailed = errors.New("validation failed")

type buildFlags struct {
	output      string
	baseURL     string
	concurrency int
	maxAttempts int
	chapters    []int
	gzip        bool
	bundle      bool
	noJSON      bool
	noSQLite    bool
	noAudit     bool
	clean       bool
	strict      bool
	quiet       bool
}

func (a *app) newBuildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch, normalize, validate and export the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyBuildFlags(cmd, &f)
			return a.build(cmd.Context(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "Output directory")
	fl.StringVar(&f.baseURL, "base-url", "", "API base URL")
	fl.IntVar(&f.concurrency, "concurrency", 0, "Chapters fetched in parallel")
	fl.IntVar(&f.maxAttempts, "max-attempts", 0, "Attempts per resource before giving up")
	fl.IntSliceVar(&f.chapters, "chapters", nil, "Only fetch these surah numbers")
	fl.BoolVar(&f.gzip, "gzip", false, "Write .json.gz instead of .json")
	fl.BoolVar(&f.bundle, "bundle", false, "Pack all outputs into a tar.xz")
	fl.BoolVar(&f.noJSON, "no-json", false, "Skip the JSON documents")
	fl.BoolVar(&f.noSQLite, "no-sqlite", false, "Skip the SQLite database")
	fl.BoolVar(&f.noAudit, "no-audit", false, "Skip the fetch audit log")
	fl.BoolVar(&f.clean, "clean", false, "Delete the output directory before building")
	fl.BoolVar(&f.strict, "strict", false, "Exit non-zero when validation fails")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print per-chapter progress")
	return cmd
}

// applyBuildFlags lets explicitly set flags override the loaded config.
func (a *app) applyBuildFlags(cmd *cobra.Command, f *buildFlags) {
	cfg := a.cfg
	changed := cmd.Flags().Changed
	if changed("output") {
		cfg.Output.Dir = f.output
	}
	if changed("base-url") {
		cfg.API.BaseURL = f.baseURL
	}
	if changed("concurrency") {
		cfg.Collect.Concurrency = f.concurrency
	}
	if changed("max-attempts") {
		cfg.Retry.MaxAttempts = f.maxAttempts
	}
	if changed("gzip") {
		cfg.Output.Gzip = f.gzip
	}
	if changed("bundle") {
		cfg.Output.Bundle = f.bundle
	}
	if f.noJSON {
		cfg.Output.JSON = false
	}
	if f.noSQLite {
		cfg.Output.SQLite = false
	}
	if f.noAudit {
		cfg.Output.Audit = false
	}
	if changed("strict") {
		cfg.Strict = f.strict
	}
}

func (a *app) build(ctx context.Context, f buildFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if f.clean {
		if err := os.RemoveAll(a.cfg.Output.Dir); err != nil {
			return fmt.Errorf("cleaning output: %w", err)
		}
		fmt.Fprintf(a.out, "Removed %s\n", a.cfg.Output.Dir)
	}

	var opts []pipeline.Option
	total := corpus.TotalChapters
	if len(f.chapters) > 0 {
		opts = append(opts, pipeline.WithChapters(f.chapters...))
		total = len(f.chapters)
	}
	if !f.quiet {
		opts = append(opts, pipeline.WithProgress(a.progressPrinter(total)))
	}

	fmt.Fprintf(a.out, "Fetching %d surahs from %s (%d workers)...\n",
		total, a.cfg.API.BaseURL, a.cfg.Collect.Concurrency)
	res, err := pipeline.Run(ctx, a.cfg, a.logger, opts...)
	if err != nil {
		return err
	}

	// export what was collected even after an interrupt
	exported, err := pipeline.Export(context.WithoutCancel(ctx), res, a.cfg.Output, a.logger)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	r := res.Report
	fmt.Fprintf(a.out, "Collected %d/%d surahs, %d/%d verses.\n",
		r.ChaptersCollected, r.ChaptersExpected, r.VersesCollected, r.VersesExpected)
	fmt.Fprintf(a.out, "Made %d request(s), %d retried.\n", res.Requests, res.Retries)
	for _, d := range r.Discrepancies {
		fmt.Fprintf(a.out, "  discrepancy: %s\n", d)
	}
	for _, fl := range r.Failures {
		fmt.Fprintf(a.out, "  failed: surah %d (%s after %d attempts)\n", fl.ChapterID, fl.Kind, fl.Attempts)
	}
	for _, fl := range r.PartialFailures() {
		fmt.Fprintf(a.out, "  partial: surah %d, only %s unavailable\n", fl.ChapterID, strings.Join(fl.FailedEditions, ", "))
	}
	if n := len(r.Warnings); n > 0 {
		fmt.Fprintf(a.out, "  %d text-quality warning(s), see %s\n", n, exported.Dir)
	}
	fmt.Fprintf(a.out, "Wrote %d file(s) to %s.\n", len(exported.Files), exported.Dir)
	if exported.Bundle != "" {
		fmt.Fprintf(a.out, "Bundle: %s\n", exported.Bundle)
	}
	if r.Pass {
		fmt.Fprintln(a.out, "Validation passed.")
	} else {
		fmt.Fprintln(a.out, "Validation FAILED.")
	}

	if res.Canceled {
		return context.Canceled
	}
	if a.cfg.Strict && !r.Pass {
		return errValidationFailed
	}
	return nil
}

// progressPrinter prints one line per finished chapter. Outcomes arrive from
// several workers at once.
func (a *app) progressPrinter(total int) func(corpus.Outcome) {
	var mu sync.Mutex
	done := 0
	return func(out corpus.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if out.Succeeded() {
			fmt.Fprintf(a.out, "  [%3d/%d] surah %3d: %d verses\n", done, total, out.ChapterID, len(out.Chapter.Verses))
			return
		}
		fmt.Fprintf(a.out, "  [%3d/%d] surah %3d: %s\n", done, total, out.ChapterID, out.Kind)
	}
}
