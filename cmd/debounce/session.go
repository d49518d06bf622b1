package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vango-dev/debounce/internal/config"
	derrors "github.com/vango-dev/debounce/internal/errors"
	"github.com/vango-dev/debounce/pkg/debounce"
	"github.com/vango-dev/debounce/pkg/loop"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	delay      time.Duration
	metrics    bool
	logLevel   string
}

func (f *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Config file (default: ./debounce.{json,yaml,yml} if present)")
	fs.DurationVarP(&f.delay, "delay", "d", 0, "Quiescence delay (default from config, 500ms)")
	fs.BoolVar(&f.metrics, "metrics", false, "Print Prometheus metrics on exit")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig resolves configuration: file, then environment, then flags.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	case config.Exists("."):
		cfg, err = config.Load(".")
	default:
		cfg = config.New()
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("delay") {
		cfg.Delay = config.Duration(flags.delay)
	}
	if flags.metrics {
		cfg.Metrics.Enabled = true
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is the runtime shared by the type and watch commands: one event
// loop, its logger and the metrics registry.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	loop     *loop.Loop
	registry *prometheus.Registry
	metrics  *debounce.Metrics

	runErr chan error
}

func newSession(cfg *config.Config, logOut io.Writer) (*session, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	s := &session{
		cfg:    cfg,
		logger: logger,
		loop: loop.New(
			loop.WithLogger(logger),
			loop.WithQueueSize(cfg.QueueSize),
		),
		runErr: make(chan error, 1),
	}

	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.metrics = debounce.NewMetrics(
			debounce.WithRegistry(s.registry),
			debounce.WithNamespace(cfg.Metrics.Namespace),
		)
	}

	return s, nil
}

// start runs the event loop in the background.
func (s *session) start(ctx context.Context) {
	go func() { s.runErr <- s.loop.Run(ctx) }()
}

// call runs fn on the loop and waits for it. It returns false when the
// loop has stopped or fn panicked.
func (s *session) call(fn func()) bool {
	if err := s.loop.Call(fn); err != nil {
		s.logger.Debug("loop call failed", "error", err)
		return false
	}
	return true
}

// options returns the value options derived from config.
func (s *session) options() []debounce.Option {
	return []debounce.Option{
		debounce.WithDelay(time.Duration(s.cfg.Delay)),
		debounce.WithName(s.cfg.Name),
		debounce.WithLogger(s.logger),
		debounce.WithMetrics(s.metrics),
	}
}

// stop closes the loop, which disposes every value it owns, and waits for
// it to exit.
func (s *session) stop() error {
	s.loop.Close()
	err := <-s.runErr
	if dropped := s.loop.Dropped(); dropped > 0 {
		s.logger.Warn("callbacks discarded", "count", dropped, "error", derrors.New("E002"))
	}
	if isCanceled(err) {
		return nil
	}
	return err
}

// isCanceled reports whether err, possibly wrapped, is a context
// cancellation or deadline, which commands treat as a normal exit.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// writeMetrics prints the collected metrics in the Prometheus text format.
func (s *session) writeMetrics(w io.Writer) error {
	if s.registry == nil {
		return nil
	}
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
