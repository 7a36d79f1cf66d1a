package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusRetry     OutboxStatus = "retry"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Outbox event types, one per notification kind.
const (
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentUpdated   = "appointment.updated"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentDeleted   = "appointment.deleted"
)

// OutboxEvent is written in the same transaction as the appointment
// mutation it describes and delivered asynchronously by the worker with
// at-least-once semantics.
type OutboxEvent struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	EventType      string          `db:"event_type" json:"event_type"`
	Payload        json.RawMessage `db:"payload" json:"payload"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key"`
	Status         OutboxStatus    `db:"status" json:"status"`
	ErrorMessage   *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount     int             `db:"retry_count" json:"retry_count"`
	RetryAt        *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	ProcessedAt    *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// NotificationPayload is the outbox payload for appointment events.
type NotificationPayload struct {
	Appointment Appointment     `json:"appointment"`
	Contact     CustomerContact `json:"contact"`
}

// NewAppointmentEvent builds an outbox event for the given appointment.
// The idempotency key dedupes redelivery per appointment and kind.
func NewAppointmentEvent(eventType string, apt *Appointment, contact CustomerContact) (*OutboxEvent, error) {
	payload, err := json.Marshal(NotificationPayload{Appointment: *apt, Contact: contact})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return &OutboxEvent{
		ID:             uuid.New(),
		EventType:      eventType,
		Payload:        payload,
		IdempotencyKey: fmt.Sprintf("%s:%s", apt.ID, eventType),
		Status:         OutboxStatusPending,
	}, nil
}
