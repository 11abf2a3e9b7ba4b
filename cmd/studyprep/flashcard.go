package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/studyprep/internal/bootstrap"
	"github.com/at-ishikawa/studyprep/internal/config"
)

func newFlashcardCommand() *cobra.Command {
	flashcardCommand := &cobra.Command{
		Use:   "flashcard",
		Short: "Flashcard commands",
	}

	flashcardCommand.AddCommand(newFlashcardAddCommand())

	return flashcardCommand
}

func newFlashcardAddCommand() *cobra.Command {
	var subject string
	command := &cobra.Command{
		Use:   "add <content-ref>",
		Short: "Register a flashcard that is due today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				item, err := services.Learning.CreateFlashcard(ctx, userID, args[0], subject)
				if err != nil {
					return fmt.Errorf("create flashcard: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Flashcard %s is due on %s.\n", item.ID, item.DueDate.Format(time.DateOnly))
				return nil
			})
		},
	}
	command.Flags().StringVar(&subject, "subject", "", "subject the flashcard belongs to")
	return command
}
