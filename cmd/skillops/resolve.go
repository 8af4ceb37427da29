package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/M-Boiguille/SkillOps-sub000/training"
)

func resolveCmd(opts *rootOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "resolve <incident-id>",
		Short: "Submit a resolution and get scored",
		Long: `Resolve submits your free-text resolution. The model generates a few
validation questions, you answer them inline, and your answers are graded
into a base score 0-5. Hint costs come off the base score; the final
score sets the next review date.

The resolution text comes from --message, or is read from stdin when the
flag is empty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			resolution := message
			reader := bufio.NewReader(os.Stdin)
			if resolution == "" {
				cmd.Println("Describe your resolution (end with an empty line):")
				resolution, err = readMultiline(reader)
				if err != nil {
					return fmt.Errorf("read resolution: %w", err)
				}
			}

			collect := func(question string) (string, error) {
				cmd.Println()
				cmd.Printf("Q: %s\n", question)
				cmd.Print("A: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return "", err
				}
				return strings.TrimSpace(line), nil
			}

			s := training.NewScorer(a.svc, a.store,
				training.WithScorerLogger(a.logger),
				training.WithScorerMetrics(a.recorder))

			inc, err := s.Score(ctx, args[0], resolution, collect)
			if err != nil {
				return err
			}

			cmd.Println()
			cmd.Printf("Resolved %s\n", inc.ID)
			cmd.Printf("  Base score:   %d\n", inc.BaseScore)
			cmd.Printf("  Hint penalty: -%d\n", inc.HintsPenalty)
			cmd.Printf("  Final score:  %d\n", inc.FinalScore)
			if inc.NextReviewDate != nil {
				cmd.Printf("  Next review:  %s\n", inc.NextReviewDate.Format(time.DateOnly))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Resolution text (empty = read from stdin)")

	return cmd
}

// readMultiline reads lines until the first empty line or EOF.
func readMultiline(reader *bufio.Reader) (string, error) {
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line != "" {
			lines = append(lines, line)
		}
		if err != nil || line == "" {
			return strings.Join(lines, "\n"), nil
		}
	}
}
