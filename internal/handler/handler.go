package handler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

// SchedulingService is the engine surface consumed by the REST and
// voice handlers.
type SchedulingService interface {
	SearchAvailableSlots(ctx context.Context, date time.Time, durationMinutes int, policyName string) ([]model.Slot, error)
	Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time, contact model.CustomerContact) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, contact model.CustomerContact) error
	Complete(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListUpcoming(ctx context.Context, withinDays int) ([]*model.Appointment, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Appointment, error)
}

// ParseDate accepts the date formats the booking surfaces send.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateTime accepts the datetime formats the booking surfaces send.
func ParseDateTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
