package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"bayloe/internal/config"
	"bayloe/internal/fileutil"
	"bayloe/internal/format"
	"bayloe/internal/preflight"
	"bayloe/internal/queue"
)

const lockFileName = ".bayloe.lock"

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var outFlag string

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert images and write the results to a directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			target := format.Format(cfg.Convert.DefaultFormat)
			if strings.TrimSpace(formatFlag) != "" {
				if target, err = parseFormat(formatFlag); err != nil {
					return err
				}
			}

			outDir := cfg.Paths.OutputDir
			if strings.TrimSpace(outFlag) != "" {
				if outDir, err = config.ExpandPath(outFlag); err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory %q: %w", outDir, err)
			}
			if check := preflight.CheckDirectoryAccess("Output directory", outDir); !check.Passed {
				return errors.New(check.Detail)
			}

			lock := flock.New(filepath.Join(outDir, lockFileName))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire output lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another bayloe convert is writing to %s", outDir)
			}
			defer func() { _ = lock.Unlock() }()

			files := make([]queue.File, 0, len(args))
			for _, arg := range args {
				file, err := readInput(arg)
				if err != nil {
					return err
				}
				files = append(files, file)
			}

			rt, err := ctx.openRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			ids := rt.manager.AddFiles(files...)
			for _, id := range ids {
				if err := rt.manager.UpdateFormat(id, target); err != nil {
					return err
				}
			}
			result := rt.manager.ConvertAll(cmd.Context())

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(ids))
			var saveErrs []error
			for i, id := range ids {
				view, ok := rt.manager.Get(id)
				if !ok {
					continue
				}
				detail, shown := view.Error, view.Format
				if view.Status == queue.StatusCompleted {
					shown = view.Target
					dst := fileutil.UniquePath(filepath.Join(outDir, outputName(view.Name, view.Target)))
					if err := view.Output.SaveAs(dst); err != nil {
						saveErrs = append(saveErrs, fmt.Errorf("save %s: %w", view.Name, err))
						detail = err.Error()
					} else {
						detail = dst
					}
				}
				rows = append(rows, []string{
					itoa(i + 1),
					view.Name,
					shown.Label(),
					statusLabel(view.Status, shouldColorize(out)),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "File", "Format", "Status", "Output"},
				rows,
				[]columnAlignment{alignRight},
			))
			fmt.Fprintln(out, renderCounts(rt.manager.Counts(), shouldColorize(out)))

			if err := errors.Join(saveErrs...); err != nil {
				return err
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d conversions failed", result.Failed, result.Selected)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format (png, jpeg, webp, pdf)")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Directory for converted files (defaults to paths.output_dir)")
	return cmd
}
