package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

// Sentinel errors translated into business outcomes at the service
// boundary.
var (
	ErrNotFound  = errors.New("record not found")
	ErrSlotTaken = errors.New("slot already booked")
)

type (
	// AppointmentRepository owns appointment persistence. Create and
	// Reschedule are atomic: the conflict re-check, the row mutation and
	// the outbox enqueue happen in one transaction, serialized per slot,
	// so two concurrent bookings of the same slot cannot both commit.
	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// Create inserts a scheduled appointment plus its outbox event.
		// Returns ErrSlotTaken when the slot overlaps an existing
		// scheduled appointment, unless force is set.
		Create(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent, force bool) error
		// Reschedule moves an existing appointment to apt.ScheduledAt
		// under the same conflict protocol, excluding the appointment's
		// own row from the overlap check.
		Reschedule(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error
		// Update persists status/notes mutations. evt may be nil when no
		// notification should be enqueued.
		Update(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error
		Delete(ctx context.Context, id uuid.UUID, evt *model.OutboxEvent) error
		SetCalendarEventID(ctx context.Context, id uuid.UUID, calendarEventID string) error

		FindByExactStart(ctx context.Context, start time.Time) ([]*model.Appointment, error)
		FindOverlapping(ctx context.Context, start, end time.Time) ([]*model.Appointment, error)
		FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Appointment, error)
		FindUpcoming(ctx context.Context, withinDays int) ([]*model.Appointment, error)
		FindByDateRange(ctx context.Context, start, end time.Time) ([]*model.Appointment, error)
	}

	// OutboxRepository drives at-least-once notification delivery.
	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
