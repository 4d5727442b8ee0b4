package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/cosched/internal/bodies"
	"github.com/me/cosched/internal/program"
	"github.com/me/cosched/internal/scriptcor"
	"github.com/me/cosched/internal/tick"
	"github.com/me/cosched/pkg/sched"
)

var (
	flagRunTicks int
	flagRunTick  string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <program.yaml>",
		Short: "Run a scheduler program for a bounded number of dispatches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(args[0])
		},
	}
	cmd.Flags().IntVar(&flagRunTicks, "ticks", 100, "maximum number of dispatch ticks to run")
	cmd.Flags().StringVar(&flagRunTick, "tick", "wallclock", "tick source: wallclock or virtual")
	return cmd
}

func buildTickSource(mode string) sched.TickSource {
	if mode == "virtual" {
		return tick.Virtual(0)
	}
	return tick.Wallclock()
}

func runProgram(path string) error {
	f, err := program.Load(path)
	if err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	registry := bodies.NewDefaultRegistry(logger)
	engine := scriptcor.NewEngine(logger)
	ts := buildTickSource(flagRunTick)

	s, err := program.Build(f, ts, registry, engine, logger)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < flagRunTicks; i++ {
		if err := s.Tick(ctx); err != nil {
			return fmt.Errorf("tick %d: %w", i, err)
		}
		if allDone(s) {
			break
		}
	}

	for _, snap := range s.Snapshot() {
		logger.Info("final state", "handle", snap.Handle, "state", snap.State.String(), "timeout", snap.Timeout)
	}
	return nil
}

// allDone reports whether every non-idle slot has reached TERMINATED.
func allDone(s *sched.Scheduler) bool {
	for _, snap := range s.Snapshot() {
		if snap.Handle == 0 {
			continue
		}
		if snap.State != sched.StateTerminated {
			return false
		}
	}
	return true
}
