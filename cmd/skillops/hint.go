package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/training"
)

func hintCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hint <incident-id> <level>",
		Short: "Request the next hint level for an open incident",
		Long: `Hint serves one of three graduated hint levels. Level 1 is a free
Socratic question, level 2 points a direction for 1 point, level 3 gives
a concrete command for 2 more points. Levels unlock in order; the cost
comes off your final score when you resolve.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidentID := args[0]
			level, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("level %q is not a number: %w", args[1], training.ErrOutOfSequence)
			}

			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d := training.NewDispenser(a.svc, a.store,
				training.WithDispenserLogger(a.logger),
				training.WithDispenserMetrics(a.recorder))

			hint, err := d.RequestHint(ctx, incidentID, level)
			if err != nil {
				return err
			}

			cost, _ := incident.HintCost(hint.Level)
			cmd.Printf("Hint %d/%d", hint.Level, incident.MaxHintLevel)
			if cost > 0 {
				cmd.Printf(" (-%d point(s))", cost)
			}
			cmd.Println(":")
			cmd.Println()
			cmd.Println(hint.Content)
			return nil
		},
	}
}
