package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"bayloe/internal/preflight"
	"bayloe/internal/sandbox"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipWorker bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories and the HEIC decoder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var launcher sandbox.Launcher
			if !skipWorker {
				launcher = workerLauncher(cfg, cmd.ErrOrStderr())
			}
			results := preflight.RunAll(cmd.Context(), cfg, launcher)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, passLabel(r.Passed, colorize), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, rows, nil))

			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipWorker, "skip-worker", false, "Skip launching the decoder worker")
	return cmd
}

func passLabel(passed, colorize bool) string {
	switch {
	case passed && colorize:
		return text.FgGreen.Sprint("ok")
	case passed:
		return "ok"
	case colorize:
		return text.FgRed.Sprint("fail")
	default:
		return "fail"
	}
}
