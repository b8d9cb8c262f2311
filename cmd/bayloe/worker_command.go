package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"bayloe/internal/heic"
	"bayloe/internal/logging"
	"bayloe/internal/sandbox"
)

// newDecoderWorkerCommand is the child-process entry point started by the
// sandbox host. stdout carries the RPC stream, so logs go to stderr only.
func newDecoderWorkerCommand() *cobra.Command {
	var instance int64
	var memoryLimit int
	var logLevel string

	cmd := &cobra.Command{
		Use:         "decoder-worker",
		Short:       "Run the isolated HEIC decoder on stdin/stdout",
		Hidden:      true,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{
				Level:  logLevel,
				Format: "json",
				Writer: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			return sandbox.RunWorker(cmd.Context(),
				readCloser(cmd.InOrStdin()),
				writeCloser(cmd.OutOrStdout()),
				heic.Decoder{},
				sandbox.WorkerOptions{Instance: instance, MemoryLimitMiB: memoryLimit, Logger: logger},
			)
		},
	}

	cmd.Flags().Int64Var(&instance, "instance", 0, "Generation number echoed in handshake responses")
	cmd.Flags().IntVar(&memoryLimit, "memory-limit-mib", 0, "Address-space cap in MiB (0 disables)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Worker log level")
	return cmd
}

func readCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func writeCloser(w io.Writer) io.WriteCloser {
	if w == os.Stdout {
		return os.Stdout
	}
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}
	return nopWriteCloser{w}
}
