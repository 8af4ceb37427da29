package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/training"
)

func generateCmd(opts *rootOptions) *cobra.Command {
	var (
		difficulty int
		system     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new training incident",
		Long: `Generate builds your performance profile from recent resolved
incidents, biases topic selection toward your weak systems and recent
fault-injection activity, and asks the model for a fresh incident.

The incident is persisted open; work it with 'skillops hint' and close
it with 'skillops resolve'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			profile, err := a.aggregator().BuildContext(ctx)
			if err != nil {
				return err
			}

			gen := training.NewGenerator(a.svc, a.store,
				training.WithGeneratorRetry(a.retry),
				training.WithGeneratorLogger(a.logger),
				training.WithGeneratorMetrics(a.recorder))

			inc, err := gen.Generate(ctx, profile, training.GenerateOpts{
				Difficulty:   difficulty,
				TargetSystem: system,
			})
			if err != nil {
				return err
			}

			printIncident(cmd, inc)
			return nil
		},
	}

	cmd.Flags().IntVar(&difficulty, "difficulty", 0, "Force a difficulty 1-5 (0 = derive from profile)")
	cmd.Flags().StringVar(&system, "system", "", "Force a target system (spaced-repetition re-exposure)")

	return cmd
}

func printIncident(cmd *cobra.Command, inc *incident.Incident) {
	cmd.Printf("Incident %s\n", inc.ID)
	cmd.Printf("  [%s] %s\n", inc.Severity, inc.Title)
	cmd.Printf("  System:     %s\n", inc.TargetSystem)
	cmd.Printf("  Difficulty: %d/%d\n", inc.Difficulty, incident.MaxDifficulty)
	cmd.Printf("  Status:     %s\n", inc.Status)
	cmd.Println()
	cmd.Println(inc.Description)
	cmd.Println()
	cmd.Println("Symptoms:")
	cmd.Println(inc.Symptoms)
	cmd.Println()
	cmd.Printf("Hints: 'skillops hint %s 1' (free), level 2 costs 1 point, level 3 costs 2.\n", inc.ID)
}
