package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/cosched/internal/bodies"
	"github.com/me/cosched/internal/debugserver"
	"github.com/me/cosched/internal/program"
	"github.com/me/cosched/internal/scriptcor"
	"github.com/me/cosched/internal/tracestore"
	"github.com/me/cosched/pkg/sched"
)

var (
	flagServeAddr    string
	flagServeTick    string
	flagServeTraceDB string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <program.yaml>",
		Short: "Run a scheduler program and serve its state over HTTP for inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveProgram(args[0])
		},
	}
	cmd.Flags().StringVar(&flagServeAddr, "addr", cfg.Addr, "debug server listen address")
	cmd.Flags().StringVar(&flagServeTick, "tick", "wallclock", "tick source: wallclock or virtual")
	cmd.Flags().StringVar(&flagServeTraceDB, "trace-db", cfg.TraceDB, "optional SQLite path to record every tick to")
	return cmd
}

// snapshotGuard holds the most recently captured scheduler snapshot
// behind a mutex. The scheduler's own dispatch loop runs on exactly one
// goroutine and never holds this lock; that goroutine only ever writes
// here after finishing a Tick, and debugserver's HTTP handlers only
// ever read, so the single-threaded dispatch contract is never
// violated by exposing it over HTTP.
type snapshotGuard struct {
	mu   sync.RWMutex
	snap []sched.TaskSnapshot
}

func (g *snapshotGuard) set(snap []sched.TaskSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = snap
}

func (g *snapshotGuard) Snapshot() []sched.TaskSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap
}

func serveProgram(path string) error {
	f, err := program.Load(path)
	if err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	registry := bodies.NewDefaultRegistry(logger)
	engine := scriptcor.NewEngine(logger)
	ts := buildTickSource(flagServeTick)

	s, err := program.Build(f, ts, registry, engine, logger)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}
	defer s.Close()

	var store *tracestore.Store
	var sessionID string
	if flagServeTraceDB != "" {
		store, err = tracestore.Open(flagServeTraceDB, logger)
		if err != nil {
			return fmt.Errorf("open trace db: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(context.Background()); err != nil {
			return fmt.Errorf("migrate trace db: %w", err)
		}
		sessionID, err = store.NewSession(context.Background(), path)
		if err != nil {
			return fmt.Errorf("start trace session: %w", err)
		}
		logger.Info("tracing enabled", "session", sessionID, "db", flagServeTraceDB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	guard := &snapshotGuard{}
	guard.set(s.Snapshot())

	go func() {
		seq := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := s.Tick(ctx); err != nil {
				logger.Error("tick failed", "error", err)
				return
			}
			snap := s.Snapshot()
			guard.set(snap)
			if store != nil {
				if err := store.RecordTick(ctx, sessionID, seq, snap); err != nil {
					logger.Error("record tick failed", "error", err)
				}
				seq++
			}
		}
	}()

	dbg := debugserver.New(guard, logger)
	httpServer := &http.Server{Addr: flagServeAddr, Handler: dbg.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("debug server listening", "addr", flagServeAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
