package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/debounce/internal/errors"
	"github.com/vango-dev/debounce/internal/watch"
	"github.com/vango-dev/debounce/pkg/debounce"
	"github.com/vango-dev/debounce/pkg/vango"
)

func watchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <path>...",
		Short: "Print file changes once they settle",
		Long: `Watch files and directories and print the last change of each burst.

Saving a file often produces several events in quick succession. Each
event is written into a debounced value, so only the final change is
printed once the paths have been quiet for the delay.

Ignore patterns come from watch.ignore in the config file.

Examples:
  debounce watch .
  debounce watch src docs --delay=1s`,
		Args: cobra.MinimumNArgs(1),
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

			w := watch.New(watch.Config{
				Paths:  args,
				Ignore: cfg.Watch.Ignore,
				Logger: s.logger,
			})
			go func() {
				select {
				case <-w.Ready():
					success(cmd, "Watching %d path(s), delay %s", len(args), cfg.Delay)
				case <-ctx.Done():
				}
			}()

			return runWatch(ctx, s, w, cmd.OutOrStdout())
		},
	}
}

// runWatch writes every change reported by w into a debounced value and
// prints each settled change with the number of events it absorbed.
func runWatch(ctx context.Context, s *session, w *watch.Watcher, out io.Writer) error {
	s.start(ctx)

	var (
		v      *debounce.Value[watch.Change]
		events int
	)
	ok := s.call(func() {
		v = debounce.New(s.loop, watch.Change{}, s.options()...).
			WithEquals(func(a, b watch.Change) bool { return a.Seq == b.Seq })
		vango.CreateEffect(func() vango.Cleanup {
			c := v.DebouncedSignal().Get()
			if c.Seq == 0 {
				return nil
			}
			fmt.Fprintf(out, "%s %s (%d events)\n", c.Op, c.Path, events)
			events = 0
			return nil
		}, vango.EffectTxName("print"))
	})
	if !ok {
		return s.stop()
	}

	w.OnChange(func(c watch.Change) {
		s.loop.Dispatch(func() {
			events++
			v.Set(c)
		})
	})

	watchErr := w.Start(ctx)
	if isCanceled(watchErr) {
		watchErr = nil
	}

	if err := s.stop(); err != nil && watchErr == nil {
		watchErr = errors.New("E001").Wrap(err)
	}
	if watchErr != nil {
		return watchErr
	}

	if s.cfg.Metrics.Enabled {
		return s.writeMetrics(out)
	}
	return nil
}
