package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/repository"
)

// ConflictChecker answers whether a candidate slot is free. It checks
// true interval overlap against scheduled appointments, never exact
// start match only. Read-only; the authoritative re-check happens inside
// the repository's booking transaction.
type ConflictChecker struct {
	repo repository.AppointmentRepository
}

func NewConflictChecker(repo repository.AppointmentRepository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// IsFree reports whether [start, start+duration) intersects no scheduled
// appointment. exclude, when non-nil, ignores that appointment's own row
// so a reschedule does not conflict with itself.
func (c *ConflictChecker) IsFree(ctx context.Context, start time.Time, duration time.Duration, exclude *uuid.UUID) (bool, error) {
	overlapping, err := c.repo.FindOverlapping(ctx, start, start.Add(duration))
	if err != nil {
		return false, err
	}
	for _, apt := range overlapping {
		if exclude != nil && apt.ID == *exclude {
			continue
		}
		return false, nil
	}
	return true, nil
}
