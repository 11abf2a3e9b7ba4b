package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/studyprep/internal/bootstrap"
	"github.com/at-ishikawa/studyprep/internal/config"
	"github.com/at-ishikawa/studyprep/internal/content"
	"github.com/at-ishikawa/studyprep/internal/datasync"
)

func newContentCommand() *cobra.Command {
	contentCommand := &cobra.Command{
		Use:   "content",
		Short: "Question pool commands",
	}

	contentCommand.AddCommand(newContentImportCommand())
	contentCommand.AddCommand(newContentExportCommand())

	return contentCommand
}

func newContentImportCommand() *cobra.Command {
	var opts datasync.ImportOptions
	command := &cobra.Command{
		Use:   "import <question-bank.yml>",
		Short: "Import a YAML question bank into the questions table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("os.Open(%s) > %w", args[0], err)
			}
			defer func() {
				_ = file.Close()
			}()
			questions, err := datasync.ReadQuestionBank(file)
			if err != nil {
				return fmt.Errorf("read question bank %s: %w", args[0], err)
			}

			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				out := cmd.OutOrStdout()
				importer := datasync.NewImporter(content.NewDBWriter(services.DB), out)
				result, err := importer.ImportQuestions(ctx, questions, opts)
				if err != nil {
					return fmt.Errorf("import questions: %w", err)
				}
				prefix := ""
				if opts.DryRun {
					prefix = "[dry run] "
				}
				_, _ = fmt.Fprintf(out, "%s%d new, %d updated, %d skipped, %d unchanged\n",
					prefix, result.New, result.Updated, result.Skipped, result.Unchanged)
				return nil
			})
		},
	}
	command.Flags().BoolVar(&opts.UpdateExisting, "update", false, "overwrite questions that already exist and differ")
	command.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report the changes without writing them")
	return command
}

func newContentExportCommand() *cobra.Command {
	var (
		output  string
		filters content.Filters
	)
	command := &cobra.Command{
		Use:   "export",
		Short: "Export active questions as a YAML question bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" {
					file, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("os.Create(%s) > %w", output, err)
					}
					defer func() {
						_ = file.Close()
					}()
					w = file
				}

				n, err := datasync.ExportQuestions(ctx, services.Content, filters, w)
				if err != nil {
					return fmt.Errorf("export questions: %w", err)
				}
				if output != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d questions to %s\n", n, output)
				}
				return nil
			})
		},
	}
	command.Flags().StringVarP(&output, "output", "o", "", "file to write, defaults to stdout")
	command.Flags().StringVar(&filters.SourceID, "source", "", "only export questions from this source")
	command.Flags().StringSliceVar(&filters.SubjectIDs, "subject", nil, "only export questions from these subjects")
	command.Flags().StringVar(&filters.Difficulty, "difficulty", "", "only export questions of this difficulty")
	return command
}
