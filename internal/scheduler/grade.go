package scheduler

import "fmt"

// Mode selects the scheduling variant.
type Mode int

const (
	ModeBinary Mode = iota
	ModeGraded
)

func (m Mode) String() string {
	switch m {
	case ModeGraded:
		return "graded"
	default:
		return "binary"
	}
}

// Grade is a tagged grading outcome: either Binary(correct) or Graded(quality).
type Grade struct {
	mode    Mode
	correct bool
	quality int
}

// Binary grades a question review as correct or incorrect.
func Binary(correct bool) Grade {
	return Grade{mode: ModeBinary, correct: correct}
}

// Graded grades a flashcard on the 0-5 recall scale.
func Graded(quality int) Grade {
	return Grade{mode: ModeGraded, quality: quality}
}

// Mode returns the variant this grade dispatches to.
func (g Grade) Mode() Mode {
	return g.mode
}

// Quality returns the recall grade. Binary grades map to 5 or 0.
func (g Grade) Quality() int {
	if g.mode == ModeGraded {
		return g.quality
	}
	if g.correct {
		return MaxQuality
	}
	return MinQuality
}

// Success reports whether the grade counts as a successful recall.
func (g Grade) Success() bool {
	if g.mode == ModeGraded {
		return g.quality >= PassingQuality
	}
	return g.correct
}

// Validate checks the grade before any computation.
func (g Grade) Validate() error {
	if g.mode == ModeGraded {
		return ValidateQuality(g.quality)
	}
	return nil
}

func (g Grade) String() string {
	if g.mode == ModeGraded {
		return fmt.Sprintf("graded(%d)", g.quality)
	}
	return fmt.Sprintf("binary(%t)", g.correct)
}
