package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further booking transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Appointment is the single bookable-calendar entry. The customer it
// belongs to lives in a sibling application and is referenced by an
// opaque id only.
type Appointment struct {
	Base
	CustomerID      uuid.UUID         `db:"customer_id" json:"customer_id"`
	ScheduledAt     time.Time         `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Status          AppointmentStatus `db:"status" json:"status"`
	AppointmentType string            `db:"appointment_type" json:"appointment_type"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	ForcedBy        *string           `db:"forced_by" json:"forced_by,omitempty"`
	CalendarEventID *string           `db:"calendar_event_id" json:"calendar_event_id,omitempty"`
}

// EndTime returns the exclusive end of the appointment interval.
func (a *Appointment) EndTime() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether [start, start+d) intersects this appointment's
// interval.
func (a *Appointment) Overlaps(start time.Time, d time.Duration) bool {
	end := start.Add(d)
	return a.ScheduledAt.Before(end) && start.Before(a.EndTime())
}

// CustomerContact carries just enough of the external customer record to
// render notifications.
type CustomerContact struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

// BookingRequest is the service-level input for creating an appointment.
// Force bypasses the conflict check; ForcedBy records the privileged
// actor that invoked the override.
type BookingRequest struct {
	CustomerID      uuid.UUID       `json:"customer_id" validate:"required"`
	ScheduledAt     time.Time       `json:"scheduled_at" validate:"required"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,gt=0"`
	AppointmentType string          `json:"appointment_type" validate:"required"`
	Notes           string          `json:"notes" validate:"max=1000"`
	Force           bool            `json:"force"`
	ForcedBy        string          `json:"-"`
	Contact         CustomerContact `json:"contact"`
}

// Slot is a bookable start time produced by an availability search.
type Slot struct {
	Start           time.Time `json:"-"`
	ISO             string    `json:"iso"`
	Display         string    `json:"display"`
	DurationMinutes int       `json:"duration_minutes"`
}
