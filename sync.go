package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/chxlky/homework-board-sync/internal/board"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCmd() *cobra.Command {
	var opts board.Options
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one Canvas sync into the local board",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := loadApp(cmd.Context())
			defer a.close()
			if a.configErr != nil {
				return a.configErr
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Sync.Timeout)
			defer cancel()

			res, err := a.board.Sync(ctx, opts)
			if err != nil {
				return err
			}
			zap.L().Info("Sync finished",
				zap.Int("fetched", res.Summary.Fetched),
				zap.Int("added", res.Summary.Added),
				zap.Int("total", len(res.Assignments)),
				zap.Bool("dryRun", opts.DryRun),
			)
			if opts.DryRun {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "use the additive title and due date merge")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the merged board without saving it")
	return cmd
}
