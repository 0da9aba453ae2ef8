package keylamp

import (
	"codeberg.org/miketth/keylamp/pkg/metrics"
	"codeberg.org/miketth/keylamp/pkg/palette"
	"context"
	"errors"
	"fmt"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"os"
	"sync/atomic"
)

var (
	ErrPrecondition = errors.New("startup precondition failed")
	ErrSourceLost   = errors.New("layout source went away")
)

type Hooks struct {
	// Ready runs once the lamp shows the idle color and layouts are flowing.
	Ready func()
	// Stopping runs when draining starts.
	Stopping func()
}

type Options struct {
	Finder       DeviceFinder
	Connector    SourceConnector
	Palette      palette.Palette
	Idle         palette.Color
	Off          palette.Color
	Precondition func() error
	Names        LayoutNamer
	Hooks        Hooks
}

// Supervisor runs the bridge from device probing to teardown. All lamp writes
// happen on the goroutine calling Run.
type Supervisor struct {
	opts  Options
	log   *zap.SugaredLogger
	state atomic.Int32
}

func NewSupervisor(opts Options, log *zap.SugaredLogger) *Supervisor {
	if opts.Precondition == nil {
		opts.Precondition = func() error { return nil }
	}

	s := &Supervisor{opts: opts, log: log}
	s.setState(Init)
	return s
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(state State) {
	prev := State(s.state.Swap(int32(state)))
	for _, st := range allStates {
		v := 0.0
		if st == state {
			v = 1
		}
		metrics.SupervisorState.WithLabelValues(st.String()).Set(v)
	}
	if prev != state {
		s.log.Debugw("state changed", "from", prev.String(), "to", state.String())
	}
}

// Run returns nil on every orderly stop: no lamp, no input source service,
// a lamp fault or ctx being cancelled. Only a failed precondition is an error.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, shutdown := context.WithCancelCause(ctx)
	defer shutdown(nil)

	if err := s.opts.Precondition(); err != nil {
		s.setState(Stopped)
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	s.setState(ProbingDevice)
	lamp, ok := s.opts.Finder.FindDevice(ctx)
	if !ok {
		s.log.Info("no lamp connected, stopping")
		s.setState(Stopped)
		return nil
	}

	s.setState(AwaitingBus)
	source, err := s.opts.Connector.Connect(ctx)
	if err != nil {
		s.log.Errorw("could not connect to session bus", "error", err)
		s.drain(ctx, lamp, nil)
		return nil
	}

	if err := source.AwaitReady(ctx); err != nil {
		if ctx.Err() == nil {
			s.log.Warnw("input source service unavailable", "error", err)
		}
		s.drain(ctx, lamp, source)
		return nil
	}

	s.setState(Subscribed)
	s.listen(ctx, shutdown, lamp, source)
	s.drain(ctx, lamp, source)

	return nil
}

// listen stops writing layout colors as soon as ctx is done, even when more
// layouts are already queued.
func (s *Supervisor) listen(ctx context.Context, shutdown context.CancelCauseFunc, lamp Indicator, source LayoutSource) {
	if ctx.Err() != nil {
		return
	}

	if err := lamp.Send(s.opts.Idle); err != nil {
		s.log.Errorw("lamp fault", "error", err)
		shutdown(err)
		return
	}

	layouts, err := source.Subscribe(ctx)
	if err != nil {
		s.log.Errorw("could not subscribe to layout changes", "error", err)
		shutdown(err)
		return
	}

	if s.opts.Hooks.Ready != nil {
		s.opts.Hooks.Ready()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case layout, ok := <-layouts:
			if ctx.Err() != nil {
				return
			}
			if !ok {
				s.log.Warn("layout subscription ended")
				shutdown(ErrSourceLost)
				return
			}

			if err := s.showLayout(lamp, layout); err != nil {
				s.log.Errorw("lamp fault", "error", err)
				shutdown(err)
				return
			}
		}
	}
}

func (s *Supervisor) showLayout(lamp Indicator, layout string) error {
	color, ok := s.opts.Palette.Lookup(layout)
	if !ok {
		metrics.LayoutEvents.WithLabelValues("false").Inc()
		s.log.Debugw("no color for layout", "layout", layout)
		return nil
	}
	metrics.LayoutEvents.WithLabelValues("true").Inc()

	if err := lamp.Send(color); err != nil {
		return err
	}

	s.log.Infow("layout changed", "layout", layout, "name", s.prettyName(layout), "color", color.String())
	return nil
}

func (s *Supervisor) prettyName(layout string) string {
	if s.opts.Names == nil {
		return ""
	}
	return s.opts.Names.PrettyName(layout)
}

// drain turns the lamp off, closes it and drops the bus, ignoring failures.
func (s *Supervisor) drain(ctx context.Context, lamp Indicator, source LayoutSource) {
	s.setState(Draining)
	if cause := context.Cause(ctx); cause != nil {
		s.log.Infow("shutting down", "reason", cause)
	}

	if s.opts.Hooks.Stopping != nil {
		s.opts.Hooks.Stopping()
	}

	err := lamp.Send(s.opts.Off)
	err = multierr.Append(err, lamp.Close())
	if source != nil {
		err = multierr.Append(err, source.Disconnect())
	}
	if err != nil {
		s.log.Debugw("teardown incomplete", "error", err)
	}

	s.setState(Stopped)
}

// RequireEnv fails when the variable is unset or empty.
func RequireEnv(name string) func() error {
	return func() error {
		if os.Getenv(name) == "" {
			return fmt.Errorf("%s is not set", name)
		}
		return nil
	}
}
