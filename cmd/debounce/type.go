package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/debounce/internal/errors"
	"github.com/vango-dev/debounce/pkg/debounce"
	"github.com/vango-dev/debounce/pkg/vango"
)

func typeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "type",
		Short: "Debounce lines read from stdin",
		Long: `Read lines from stdin and write each one into a debounced value.

Every line is echoed at once as "immediate: <line>". When input pauses
for the delay, the settled line is printed as "debounced: <line>".
Lines typed faster than the delay collapse into one debounced line.

Examples:
  debounce type
  debounce type --delay=300ms
  seq 1 100 | debounce type --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			s, err := newSession(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runType(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runType feeds lines from in into a debounced string and prints both
// values to out. All writes to out happen on the loop.
func runType(ctx context.Context, s *session, in io.Reader, out io.Writer) error {
	s.start(ctx)

	var v *debounce.Value[string]
	ok := s.call(func() {
		v = debounce.New(s.loop, "", s.options()...)
		settled := false
		vango.CreateEffect(func() vango.Cleanup {
			line := v.DebouncedSignal().Get()
			if settled {
				fmt.Fprintf(out, "debounced: %s\n", line)
			}
			settled = true
			return nil
		}, vango.EffectTxName("print"))
	})
	if !ok {
		return s.stop()
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	var readErr error
read:
	for {
		select {
		case line, more := <-lines:
			if !more {
				readErr = <-scanErr
				break read
			}
			if !s.call(func() {
				v.Set(line)
				fmt.Fprintf(out, "immediate: %s\n", line)
			}) {
				break read
			}
		case <-ctx.Done():
			break read
		}
	}

	if readErr == nil {
		waitSettled(ctx, s, v.Pending)
	}
	if err := s.stop(); err != nil {
		return errors.New("E001").Wrap(err)
	}
	if readErr != nil {
		return errors.Newf(errors.CategoryCLI, "cannot read input").Wrap(readErr)
	}

	if s.cfg.Metrics.Enabled {
		return s.writeMetrics(out)
	}
	return nil
}

// waitSettled returns once pending reports false on the loop, or when ctx
// is done.
func waitSettled(ctx context.Context, s *session, pending func() bool) {
	poll := time.Duration(s.cfg.Delay) / 4
	if poll < time.Millisecond {
		poll = time.Millisecond
	}
	for {
		var busy bool
		if !s.call(func() { busy = pending() }) || !busy {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(poll):
		}
	}
}
