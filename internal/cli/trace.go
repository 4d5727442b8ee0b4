package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/cosched/internal/tracestore"
)

func newTraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <db-path> <session-id>",
		Short: "Replay a recorded tick-by-tick trace session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replayTrace(args[0], args[1])
		},
	}
}

func replayTrace(dbPath, sessionID string) error {
	store, err := tracestore.Open(dbPath, logger)
	if err != nil {
		return fmt.Errorf("open trace db: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate trace db: %w", err)
	}

	records, err := store.Replay(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("replay session %s: %w", sessionID, err)
	}
	if len(records) == 0 {
		logger.Warn("no ticks recorded for session", "session", sessionID)
		return nil
	}

	for _, rec := range records {
		for _, snap := range rec.Snapshot {
			logger.Info("tick",
				"seq", rec.Seq,
				"recorded_at", rec.RecordedAt.Format("15:04:05.000"),
				"handle", snap.Handle,
				"state", snap.State.String(),
				"timeout", snap.Timeout,
			)
		}
	}
	return nil
}
