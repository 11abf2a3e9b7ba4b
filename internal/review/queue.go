// Package review builds the review queue of learning items that are due for a user.
package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/learning"
)

// Mastery is a coarse label derived from the mean ease factor of a subject.
type Mastery string

const (
	MasteryMastered Mastery = "Mastered"
	MasteryGood     Mastery = "Good"
	MasteryLearning Mastery = "Learning"
	MasteryNew      Mastery = "New"
)

// MasteryOf maps a mean ease factor to a mastery label.
func MasteryOf(meanEase float64) Mastery {
	switch {
	case meanEase >= 2.2:
		return MasteryMastered
	case meanEase >= 1.8:
		return MasteryGood
	case meanEase >= 1.5:
		return MasteryLearning
	default:
		return MasteryNew
	}
}

// Counts are day-bucketed counts relative to the reference date.
// DueToday includes overdue items. DueThisWeek covers the seven days after the reference date.
type Counts struct {
	Overdue     int `json:"overdue"`
	DueToday    int `json:"dueToday"`
	DueTomorrow int `json:"dueTomorrow"`
	DueThisWeek int `json:"dueThisWeek"`
}

// SubjectGroup summarizes the items of one subject.
type SubjectGroup struct {
	Subject   string  `json:"subject"`
	Overdue   int     `json:"overdue"`
	DueToday  int     `json:"dueToday"`
	Scheduled int     `json:"scheduled"`
	Total     int     `json:"total"`
	MeanEase  float64 `json:"meanEase"`
	Mastery   Mastery `json:"mastery"`
}

// Queue is the review queue of one user as of a reference date.
type Queue struct {
	ReferenceDate time.Time       `json:"referenceDate"`
	Due           []learning.Item `json:"due"`
	Counts        Counts          `json:"counts"`
	Subjects      []SubjectGroup  `json:"subjects"`
}

// Next returns up to limit due items, most overdue first and then lowest ease.
// A limit of zero or less returns every due item.
func (q *Queue) Next(limit int) []learning.Item {
	items := make([]learning.Item, len(q.Due))
	copy(items, q.Due)
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].DueDate.Equal(items[j].DueDate) {
			return items[i].DueDate.Before(items[j].DueDate)
		}
		if items[i].EaseFactor != items[j].EaseFactor {
			return items[i].EaseFactor < items[j].EaseFactor
		}
		return items[i].ID < items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Builder assembles review queues from the learning item repository.
type Builder struct {
	repo learning.ItemRepository
}

// NewBuilder creates a new Builder.
func NewBuilder(repo learning.ItemRepository) *Builder {
	return &Builder{repo: repo}
}

// Build returns the owner's queue as of referenceDate. Only the calendar date of referenceDate is used.
func (b *Builder) Build(ctx context.Context, owner string, referenceDate time.Time) (*Queue, error) {
	today := clock.DateOf(referenceDate)

	var due, all []learning.Item
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := b.repo.ListDueBefore(ctx, owner, today)
		if err != nil {
			return fmt.Errorf("repo.ListDueBefore() > %w", err)
		}
		due = items
		return nil
	})
	g.Go(func() error {
		items, err := b.repo.ListByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("repo.ListByOwner() > %w", err)
		}
		all = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Queue{
		ReferenceDate: today,
		Due:           due,
		Counts:        countByDay(all, today),
		Subjects:      groupBySubject(all, today),
	}, nil
}

func countByDay(items []learning.Item, today time.Time) Counts {
	var counts Counts
	for _, item := range items {
		days := clock.DaysBetween(today, item.DueDate)
		switch {
		case days < 0:
			counts.Overdue++
			counts.DueToday++
		case days == 0:
			counts.DueToday++
		default:
			if days == 1 {
				counts.DueTomorrow++
			}
			if days <= 7 {
				counts.DueThisWeek++
			}
		}
	}
	return counts
}

func groupBySubject(items []learning.Item, today time.Time) []SubjectGroup {
	groups := make(map[string]*SubjectGroup)
	easeSums := make(map[string]float64)
	for _, item := range items {
		group, ok := groups[item.Subject]
		if !ok {
			group = &SubjectGroup{Subject: item.Subject}
			groups[item.Subject] = group
		}
		switch days := clock.DaysBetween(today, item.DueDate); {
		case days < 0:
			group.Overdue++
		case days == 0:
			group.DueToday++
		default:
			group.Scheduled++
		}
		group.Total++
		easeSums[item.Subject] += item.EaseFactor
	}

	result := make([]SubjectGroup, 0, len(groups))
	for subject, group := range groups {
		group.MeanEase = easeSums[subject] / float64(group.Total)
		group.Mastery = MasteryOf(group.MeanEase)
		result = append(result, *group)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Overdue != b.Overdue {
			return a.Overdue > b.Overdue
		}
		if a.DueToday != b.DueToday {
			return a.DueToday > b.DueToday
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Subject < b.Subject
	})
	return result
}
