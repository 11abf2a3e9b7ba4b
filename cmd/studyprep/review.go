package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/studyprep/internal/bootstrap"
	"github.com/at-ishikawa/studyprep/internal/cli"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/config"
	"github.com/at-ishikawa/studyprep/internal/scheduler"
)

func newReviewCommand() *cobra.Command {
	reviewCommand := &cobra.Command{
		Use:   "review",
		Short: "Spaced-repetition review commands",
	}

	reviewCommand.AddCommand(newReviewQueueCommand())
	reviewCommand.AddCommand(newReviewStudyCommand())
	reviewCommand.AddCommand(newReviewGradeCommand())

	return reviewCommand
}

type queueFlags struct {
	date  string
	limit int
}

func (f *queueFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "reference date (YYYY-MM-DD), defaults to today")
	cmd.Flags().IntVar(&f.limit, "limit", -1, "maximum number of items to list, defaults to review.daily_limit")
}

func (f *queueFlags) referenceDate(c clock.Clock) (time.Time, error) {
	if f.date == "" {
		return clock.Today(c), nil
	}
	date, err := time.ParseInLocation(time.DateOnly, f.date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", f.date, err)
	}
	return date, nil
}

func (f *queueFlags) resolveLimit(cfg *config.Config) int {
	if f.limit >= 0 {
		return f.limit
	}
	return cfg.Review.DailyLimit
}

func newReviewQueueCommand() *cobra.Command {
	var flags queueFlags
	command := &cobra.Command{
		Use:   "queue",
		Short: "Show the review queue and the next items to study",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, cfg *config.Config, services *bootstrap.Services) error {
				referenceDate, err := flags.referenceDate(services.Clock)
				if err != nil {
					return err
				}
				queue, err := services.Queue.Build(ctx, userID, referenceDate)
				if err != nil {
					return fmt.Errorf("build review queue: %w", err)
				}
				return cli.PrintQueue(cmd.OutOrStdout(), queue, queue.Next(flags.resolveLimit(cfg)))
			})
		},
	}
	flags.register(command)
	return command
}

func newReviewStudyCommand() *cobra.Command {
	var flags queueFlags
	command := &cobra.Command{
		Use:   "study",
		Short: "Review due items interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, cfg *config.Config, services *bootstrap.Services) error {
				referenceDate, err := flags.referenceDate(services.Clock)
				if err != nil {
					return err
				}
				queue, err := services.Queue.Build(ctx, userID, referenceDate)
				if err != nil {
					return fmt.Errorf("build review queue: %w", err)
				}
				next := queue.Next(flags.resolveLimit(cfg))
				if len(next) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to review.")
					return nil
				}

				studyCLI := cli.NewReviewCLI(cmd.InOrStdin(), cmd.OutOrStdout(), services.Learning, services.Content)
				result, err := studyCLI.Study(ctx, userID, next)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nReviewed %d items: %d passed, %d skipped.\n", result.Reviewed, result.Passed, result.Skipped)
				return err
			})
		},
	}
	flags.register(command)
	return command
}

func newReviewGradeCommand() *cobra.Command {
	var (
		correct   bool
		incorrect bool
		quality   int
	)
	command := &cobra.Command{
		Use:   "grade <item-id>",
		Short: "Record a grading event for a learning item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var grade scheduler.Grade
			switch {
			case cmd.Flags().Changed("quality"):
				grade = scheduler.Graded(quality)
			case correct:
				grade = scheduler.Binary(true)
			case incorrect:
				grade = scheduler.Binary(false)
			}

			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				item, err := services.Learning.Grade(ctx, userID, args[0], grade)
				if err != nil {
					return fmt.Errorf("grade item %s: %w", args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Next review on %s (in %d days). Ease %.2f, streak %d.\n",
					item.DueDate.Format(time.DateOnly), item.IntervalDays, item.EaseFactor, item.ConsecutiveSuccesses)
				return nil
			})
		},
	}
	command.Flags().BoolVar(&correct, "correct", false, "the question was answered correctly")
	command.Flags().BoolVar(&incorrect, "incorrect", false, "the question was answered incorrectly")
	command.Flags().IntVar(&quality, "quality", 0, "flashcard recall quality from 0 to 5")
	command.MarkFlagsMutuallyExclusive("correct", "incorrect", "quality")
	command.MarkFlagsOneRequired("correct", "incorrect", "quality")
	return command
}
