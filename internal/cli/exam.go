package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/content"
)

// ErrInputClosed is returned when input ends before the session is finalized.
// Pending answers have been saved and the session can be resumed.
var ErrInputClosed = errors.New("input closed before the session was submitted")

const examHelp = "A-E answer, f flag, n or > next, < previous, g <n> go to, p pause, r resume, s submit, q save and quit"

// ExamCLI takes an assessment session interactively.
type ExamCLI struct {
	in     io.Reader
	out    io.Writer
	clock  clock.Clock
	colors palette
}

// NewExamCLI creates a new ExamCLI.
func NewExamCLI(in io.Reader, out io.Writer, c clock.Clock) *ExamCLI {
	return &ExamCLI{in: in, out: out, clock: c, colors: newPalette()}
}

type examState struct {
	runner    *assessment.Runner
	questions map[string]content.Question
	current   int
	// shownAt is when the current item was first displayed, shifted forward by time spent paused.
	shownAt    time.Time
	shownOrder int
	pausedAt   time.Time
}

// Take runs the session until it is submitted, the time runs out, or the user quits.
// Quitting saves pending answers and returns the in-memory session with ErrInputClosed.
func (c *ExamCLI) Take(ctx context.Context, runner *assessment.Runner, questions map[string]content.Question) (*assessment.Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- runner.Run(ctx)
	}()
	lines := readLines(ctx, c.in)

	state := &examState{runner: runner, questions: questions, current: firstUnanswered(runner.Snapshot())}
	_, _ = fmt.Fprintln(c.out, examHelp)
	c.show(state)

	for {
		select {
		case <-runner.Done():
			cancel()
			<-runErr
			_, _ = c.colors.yellow.Fprintln(c.out, "Session finalized.")
			return runner.Result(), nil
		case err := <-runErr:
			if err != nil {
				return nil, err
			}
			return runner.Result(), nil
		case line, ok := <-lines:
			if !ok {
				return c.quit(ctx, cancel, runErr, runner, ErrInputClosed)
			}
			err := c.handle(ctx, state, line)
			if errors.Is(err, errEnd) {
				return c.quit(ctx, cancel, runErr, runner, nil)
			}
			if err != nil {
				_, _ = c.colors.red.Fprintf(c.out, "%v\n", err)
			}
			if result := runner.Result(); result != nil {
				cancel()
				<-runErr
				return result, nil
			}
			c.show(state)
		}
	}
}

func (c *ExamCLI) quit(ctx context.Context, cancel context.CancelFunc, runErr <-chan error, runner *assessment.Runner, cause error) (*assessment.Session, error) {
	cancel()
	<-runErr
	if result := runner.Result(); result != nil {
		return result, nil
	}
	if err := runner.Flush(context.WithoutCancel(ctx)); err != nil {
		return runner.Snapshot(), fmt.Errorf("save progress: %w", err)
	}
	_, _ = fmt.Fprintln(c.out, "Progress saved. Resume with the same session ID.")
	return runner.Snapshot(), cause
}

func (c *ExamCLI) handle(ctx context.Context, state *examState, line string) error {
	total := len(state.runner.Snapshot().Items)
	command, arg, _ := strings.Cut(line, " ")

	switch strings.ToLower(command) {
	case "a", "b", "c", "d", "e":
		elapsed := int(c.clock.Now().Sub(state.shownAt).Seconds())
		if err := state.runner.Answer(state.current, strings.ToUpper(command), elapsed); err != nil {
			return err
		}
		if state.current < total {
			return c.move(state, state.current+1, total)
		}
		return nil
	case "", "n", ">":
		return c.move(state, state.current+1, total)
	case "<":
		return c.move(state, state.current-1, total)
	case "g":
		order, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return fmt.Errorf("invalid item number %q", arg)
		}
		return c.move(state, order, total)
	case "f":
		flagged, err := state.runner.ToggleFlag(state.current)
		if err != nil {
			return err
		}
		if flagged {
			_, _ = fmt.Fprintf(c.out, "Item %d flagged for review.\n", state.current)
		}
		return nil
	case "p":
		if state.runner.Pause() {
			state.pausedAt = c.clock.Now()
			_, _ = c.colors.yellow.Fprintln(c.out, "Paused. Enter r to resume.")
		}
		return nil
	case "r":
		if state.runner.Resume() {
			state.shownAt = state.shownAt.Add(c.clock.Now().Sub(state.pausedAt))
		}
		return nil
	case "s":
		if _, err := state.runner.Submit(ctx); err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		return nil
	case "q":
		return errEnd
	default:
		return fmt.Errorf("unknown command %q (%s)", line, examHelp)
	}
}

func (c *ExamCLI) move(state *examState, order, total int) error {
	if order < 1 || order > total {
		return fmt.Errorf("item %d is out of range 1-%d", order, total)
	}
	state.current = order
	return nil
}

func (c *ExamCLI) show(state *examState) {
	if state.runner.Paused() {
		return
	}
	session := state.runner.Snapshot()
	item, err := session.Item(state.current)
	if err != nil {
		return
	}
	q, ok := state.questions[item.QuestionID]

	_, _ = fmt.Fprintln(c.out)
	_, _ = c.colors.bold.Fprintf(c.out, "[%d/%d] %s", item.Order, len(session.Items), q.SubjectName)
	if item.FlaggedForReview {
		_, _ = c.colors.yellow.Fprint(c.out, " (flagged)")
	}
	_, _ = fmt.Fprintf(c.out, "  remaining %s\n", formatRemaining(state.runner.Remaining()))

	if !ok {
		_, _ = c.colors.italic.Fprintf(c.out, "Question %s is no longer available.\n", item.QuestionID)
	} else {
		_, _ = fmt.Fprintln(c.out, q.Statement)
		for _, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				continue
			}
			_, _ = fmt.Fprintf(c.out, "  %s) %s\n", o.Label, o.Text)
		}
	}
	if item.Answered() {
		_, _ = fmt.Fprintf(c.out, "Your answer: %s\n", *item.UserAnswer)
	}
	_, _ = fmt.Fprint(c.out, "> ")
	if state.shownOrder != state.current {
		state.shownOrder = state.current
		state.shownAt = c.clock.Now()
	}
}

func firstUnanswered(s *assessment.Session) int {
	for _, item := range s.Items {
		if !item.Answered() {
			return item.Order
		}
	}
	return 1
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
