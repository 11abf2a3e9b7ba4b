package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/bootstrap"
	"github.com/at-ishikawa/studyprep/internal/cli"
	"github.com/at-ishikawa/studyprep/internal/config"
	"github.com/at-ishikawa/studyprep/internal/content"
	"github.com/at-ishikawa/studyprep/internal/report"
)

func newExamCommand() *cobra.Command {
	examCommand := &cobra.Command{
		Use:   "exam",
		Short: "Timed assessment session commands",
	}

	examCommand.AddCommand(newExamCreateCommand())
	examCommand.AddCommand(newExamStartCommand())
	examCommand.AddCommand(newExamTakeCommand())
	examCommand.AddCommand(newExamFinalizeCommand())
	examCommand.AddCommand(newExamShowCommand())
	examCommand.AddCommand(newExamListCommand())
	examCommand.AddCommand(newExamReportCommand())

	return examCommand
}

type createFlags struct {
	title            string
	quantity         int
	sourceID         string
	subjectIDs       []string
	difficulty       string
	timeLimitMinutes int
}

func (f *createFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "Practice exam", "session title")
	fs.IntVarP(&f.quantity, "quantity", "n", 0, "number of questions to draw")
	fs.StringVar(&f.sourceID, "source", "", "only draw questions from this source")
	fs.StringSliceVar(&f.subjectIDs, "subject", nil, "only draw questions from these subjects")
	fs.StringVar(&f.difficulty, "difficulty", "", "only draw questions of this difficulty")
	fs.IntVar(&f.timeLimitMinutes, "time-limit", 0, "time limit in minutes, derived from the item count when omitted")
}

func (f *createFlags) request(fs *pflag.FlagSet) assessment.CreateRequest {
	req := assessment.CreateRequest{
		Owner:    userID,
		Title:    f.title,
		Quantity: f.quantity,
		Filters: content.Filters{
			SourceID:   f.sourceID,
			SubjectIDs: f.subjectIDs,
			Difficulty: f.difficulty,
		},
	}
	if fs.Changed("time-limit") {
		limit := f.timeLimitMinutes
		req.TimeLimitMinutes = &limit
	}
	return req
}

func newExamCreateCommand() *cobra.Command {
	var flags createFlags
	command := &cobra.Command{
		Use:   "create",
		Short: "Draw a new session from the question pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := flags.request(cmd.Flags())
			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				result, err := services.Assessment.Create(ctx, req)
				if err != nil {
					return fmt.Errorf("create session: %w", err)
				}
				out := cmd.OutOrStdout()
				if result.Shortfall != nil {
					_, _ = fmt.Fprintf(out, "Warning: %s.\n", result.Shortfall)
				}
				_, _ = fmt.Fprintf(out, "Created session %s with %d items and a %d minute limit.\n",
					result.Session.ID, len(result.Session.Items), result.Session.TimeLimitMinutes)
				return nil
			})
		},
	}
	flags.addFlags(command.Flags())
	_ = command.MarkFlagRequired("quantity")
	return command
}

func newExamStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start the countdown of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				session, err := services.Assessment.Start(ctx, userID, args[0])
				if err != nil {
					return fmt.Errorf("start session: %w", err)
				}
				deadline, _ := session.Deadline()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s started at %s. Time is up at %s.\n",
					session.ID, session.StartedAt.Format("15:04:05"), deadline.Format("15:04:05"))
				return nil
			})
		},
	}
}

func newExamTakeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "take <session-id>",
		Short: "Take a session interactively, starting or resuming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, cfg *config.Config, services *bootstrap.Services) error {
				session, err := services.Assessment.Get(ctx, userID, args[0])
				if err != nil {
					return fmt.Errorf("get session: %w", err)
				}
				if session.Status != assessment.StatusCompleted {
					if session, err = services.Assessment.Start(ctx, userID, args[0]); err != nil {
						return fmt.Errorf("start session: %w", err)
					}
				}

				questions, err := services.Assessment.Questions(ctx, session)
				if err != nil {
					return fmt.Errorf("load questions: %w", err)
				}
				if session.Status != assessment.StatusCompleted {
					runner, err := assessment.NewRunner(services.Assessment, session, services.Clock.Now(), bootstrap.RunnerConfig(cfg.Assessment))
					if err != nil {
						return err
					}
					examCLI := cli.NewExamCLI(cmd.InOrStdin(), cmd.OutOrStdout(), services.Clock)
					session, err = examCLI.Take(ctx, runner, questions)
					if errors.Is(err, cli.ErrInputClosed) {
						return nil
					}
					if err != nil {
						return err
					}
					if session.Status != assessment.StatusCompleted {
						return nil
					}
				}
				return printSummary(cmd.OutOrStdout(), session, questions)
			})
		},
	}
}

func newExamFinalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <session-id>",
		Short: "Score a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				session, err := services.Assessment.Finalize(ctx, userID, args[0])
				if err != nil {
					return fmt.Errorf("finalize session: %w", err)
				}
				questions, err := services.Assessment.Questions(ctx, session)
				if err != nil {
					return fmt.Errorf("load questions: %w", err)
				}
				return printSummary(cmd.OutOrStdout(), session, questions)
			})
		},
	}
}

func newExamShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the progress or the result of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				session, err := services.Assessment.Get(ctx, userID, args[0])
				if err != nil {
					return fmt.Errorf("get session: %w", err)
				}
				out := cmd.OutOrStdout()
				if session.Status != assessment.StatusCompleted {
					answered := 0
					for _, item := range session.Items {
						if item.Answered() {
							answered++
						}
					}
					_, _ = fmt.Fprintf(out, "%s (%s)\nAnswered %d of %d. Remaining %s.\n",
						session.Title, session.Status, answered, len(session.Items), session.Remaining(services.Clock.Now()).Truncate(time.Second))
					return nil
				}
				questions, err := services.Assessment.Questions(ctx, session)
				if err != nil {
					return fmt.Errorf("load questions: %w", err)
				}
				return printSummary(out, session, questions)
			})
		},
	}
}

func newExamListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				sessions, err := services.Assessment.List(ctx, userID)
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				return cli.PrintSessions(cmd.OutOrStdout(), sessions)
			})
		},
	}
}

func newExamReportCommand() *cobra.Command {
	var withPDF bool
	command := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Write a markdown report of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, cfg *config.Config, services *bootstrap.Services) error {
				session, err := services.Assessment.Get(ctx, userID, args[0])
				if err != nil {
					return fmt.Errorf("get session: %w", err)
				}
				questions, err := services.Assessment.Questions(ctx, session)
				if err != nil {
					return fmt.Errorf("load questions: %w", err)
				}
				files, err := report.NewWriter(cfg.Reports).Write(session, questions, withPDF)
				if err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", files.Markdown)
				if files.PDF != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "PDF written to %s\n", files.PDF)
				}
				return nil
			})
		},
	}
	command.Flags().BoolVar(&withPDF, "pdf", false, "also convert the report to PDF")
	return command
}

func printSummary(out io.Writer, session *assessment.Session, questions map[string]content.Question) error {
	return cli.PrintSummary(out, session, assessment.Summarize(session, questions))
}
