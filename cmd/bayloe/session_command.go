package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"bayloe/internal/format"
	"bayloe/internal/queue"
	"bayloe/internal/services"
)

const sessionHelp = `Commands:
  add PATH...        queue image files
  list               show the queue
  format REF FMT     set the target format (png, jpeg, webp, pdf)
  convert REF        convert one item in the background
  convert-all        convert every idle or failed item in the background
  remove REF         drop an item and its output
  clear              drop every item
  save REF PATH      write a completed output to PATH (file or directory)
  wait               block until background conversions finish
  quit               leave the session
REF is a row number from "list" or an item ID prefix.`

func newSessionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Interactive conversion queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			s := &session{
				ctx:      runCtx,
				manager:  rt.manager,
				initial:  format.Format(rt.cfg.Convert.DefaultFormat),
				out:      &syncWriter{w: cmd.OutOrStdout()},
				colorize: shouldColorize(cmd.OutOrStdout()),
			}
			events, unsubscribe := rt.manager.Subscribe(32)
			watchDone := make(chan struct{})
			go func() {
				defer close(watchDone)
				s.watch(events)
			}()

			err = s.run(cmd.InOrStdin(), interactive(cmd.InOrStdin()))
			cancel()
			s.wg.Wait()
			unsubscribe()
			<-watchDone
			return err
		},
	}
}

type session struct {
	ctx      context.Context
	manager  *queue.Manager
	initial  format.Format
	out      *syncWriter
	colorize bool
	wg       sync.WaitGroup
}

var errQuit = errors.New("quit")

func (s *session) run(in io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			s.out.printf("bayloe> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := s.dispatch(fields[0], fields[1:]); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.out.printf("error: %v\n", err)
		}
		if err := s.ctx.Err(); err != nil {
			return err
		}
	}
}

func (s *session) dispatch(name string, args []string) error {
	switch strings.ToLower(name) {
	case "help", "?":
		s.out.printf("%s\n", sessionHelp)
	case "add":
		return s.add(args)
	case "list", "ls":
		s.out.printf("%s\n%s\n", renderItems(s.manager.Items(), s.colorize), renderCounts(s.manager.Counts(), s.colorize))
	case "format":
		if len(args) != 2 {
			return errors.New("usage: format REF FMT")
		}
		id, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		f, err := parseFormat(args[1])
		if err != nil {
			return err
		}
		return s.manager.UpdateFormat(id, f)
	case "convert":
		if len(args) != 1 {
			return errors.New("usage: convert REF")
		}
		id, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		s.wg.Go(func() { s.manager.ConvertOne(s.ctx, id) })
	case "convert-all":
		s.wg.Go(func() {
			res := s.manager.ConvertAll(s.ctx)
			s.out.printf("batch finished: %d completed, %d failed, %d skipped\n", res.Completed, res.Failed, res.Skipped)
		})
	case "remove", "rm":
		if len(args) != 1 {
			return errors.New("usage: remove REF")
		}
		id, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		s.manager.RemoveFile(id)
	case "clear":
		s.out.printf("removed %d items\n", s.manager.Clear())
	case "save":
		if len(args) != 2 {
			return errors.New("usage: save REF PATH")
		}
		return s.save(args[0], args[1])
	case "wait":
		s.wg.Wait()
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	return nil
}

func (s *session) add(paths []string) error {
	if len(paths) == 0 {
		return errors.New("usage: add PATH...")
	}
	var errs []error
	files := make([]queue.File, 0, len(paths))
	for _, p := range paths {
		file, err := readInput(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, file)
	}
	for _, id := range s.manager.AddFiles(files...) {
		if s.initial != format.Default {
			if err := s.manager.UpdateFormat(id, s.initial); err != nil {
				errs = append(errs, err)
			}
		}
		if view, ok := s.manager.Get(id); ok {
			s.out.printf("added %s (%s)\n", view.Name, shortID(id))
		}
	}
	return errors.Join(errs...)
}

func (s *session) save(ref, dst string) error {
	id, err := s.resolve(ref)
	if err != nil {
		return err
	}
	view, ok := s.manager.Get(id)
	if !ok || view.Status != queue.StatusCompleted {
		return fmt.Errorf("item %s has no converted output", ref)
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, view.DownloadName())
	}
	if err := view.Output.SaveAs(dst); err != nil {
		return err
	}
	s.out.printf("saved %s\n", dst)
	return nil
}

// resolve maps a row number or ID prefix onto an item ID.
func (s *session) resolve(ref string) (string, error) {
	items := s.manager.Items()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items) {
			return "", fmt.Errorf("%w: no item at row %d", services.ErrNotFound, n)
		}
		return items[n-1].ID, nil
	}
	var match string
	for _, it := range items {
		if strings.HasPrefix(it.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("item reference %q is ambiguous", ref)
			}
			match = it.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: no item matches %q", services.ErrNotFound, ref)
	}
	return match, nil
}

func (s *session) watch(events <-chan queue.Event) {
	for ev := range events {
		if ev.Removed {
			continue
		}
		switch ev.Status {
		case queue.StatusCompleted, queue.StatusError:
			view, ok := s.manager.Get(ev.ItemID)
			if !ok {
				continue
			}
			line := fmt.Sprintf("%s %s", view.Name, statusLabel(ev.Status, s.colorize))
			if view.Error != "" {
				line += ": " + view.Error
			}
			s.out.printf("%s\n", line)
		}
	}
}

func interactive(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd())
}

// syncWriter serializes output from the shell loop and background work.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, format, args...)
}
