package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mushaf/internal/export"
)

func (a *app) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [dir]",
		Short: "Check exported files against their manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Output.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			m, err := export.ReadManifest(dir)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no %s in %s", export.ManifestName, dir)
				}
				return err
			}
			if err := export.VerifyManifest(dir, m); err != nil {
				return err
			}
			if bundle := export.BundleName(m.RunID); fileExists(filepath.Join(dir, bundle)) {
				fmt.Fprintf(a.out, "Bundle %s present.\n", bundle)
			}
			fmt.Fprintf(a.out, "OK: %d file(s) match manifest of run %s.\n", len(m.Files), m.RunID)
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
