package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mushaf/internal/normalize"
)

func (a *app) newNormalizeCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Print text as the builder normalizes it (reads stdin without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := normalize.ParseMode(mode)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				fmt.Fprintln(a.out, normalize.Text(strings.Join(args, " "), m))
				return nil
			}
			sc := bufio.NewScanner(cmd.InOrStdin())
			sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
			for sc.Scan() {
				fmt.Fprintln(a.out, normalize.Text(sc.Text(), m))
			}
			return sc.Err()
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", normalize.ModeSimplified.String(), "simplified or preserve-marks")
	return cmd
}
