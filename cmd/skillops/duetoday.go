package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/M-Boiguille/SkillOps-sub000/chaos"
	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/training"
)

func dueTodayCmd(opts *rootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "due-today",
		Short: "List incidents due for review",
		Long: `Due-today lists resolved incidents whose review date has arrived,
oldest due first, lowest score first. Re-expose yourself with
'skillops generate --system <name>' on the systems you see here.

With --watch, the banner refreshes whenever the chaos event log changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := printDueBanner(ctx, cmd, a); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			if a.reader == nil {
				return fmt.Errorf("--watch needs chaos.log_dir configured")
			}
			return watchDueBanner(ctx, cmd, a)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Refresh when the chaos event log changes")

	return cmd
}

func printDueBanner(ctx context.Context, cmd *cobra.Command, a *app) error {
	now := time.Now().UTC()

	due, err := training.NewScheduler(a.store).DueToday(ctx, now)
	if err != nil {
		return err
	}

	if len(due) == 0 {
		cmd.Println("Nothing due for review.")
	} else {
		cmd.Printf("%d incident(s) due for review:\n", len(due))
		for _, inc := range due {
			cmd.Printf("  %s  score %d/%d  %-12s  %s\n",
				inc.NextReviewDate.Format(time.DateOnly),
				inc.FinalScore, incident.MaxScore,
				inc.TargetSystem, inc.Title)
		}
	}

	if a.reader != nil {
		recent, err := a.reader.RecentSystems(now.AddDate(0, 0, -7))
		if err != nil {
			return err
		}
		if len(recent) > 0 {
			cmd.Printf("Recent chaos activity: %v\n", recent)
		}
	}

	return nil
}

func watchDueBanner(ctx context.Context, cmd *cobra.Command, a *app) error {
	w, err := chaos.NewWatcher(a.reader, chaos.WithWatcherLogger(a.logger))
	if err != nil {
		return fmt.Errorf("watch chaos log: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watch chaos log: %w", err)
	}
	defer func() { _ = w.Stop() }()

	a.logger.Info("Watching chaos log", "dir", a.reader.Dir())
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes():
			if !ok {
				return nil
			}
			cmd.Println()
			if err := printDueBanner(ctx, cmd, a); err != nil {
				return err
			}
		}
	}
}
