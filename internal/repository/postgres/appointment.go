package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

const appointmentColumns = `
	id, customer_id, scheduled_at, duration_minutes, status,
	appointment_type, notes, forced_by, calendar_event_id,
	created_at, updated_at
`

// lockSlot serializes writers on the same slot instant within the
// transaction. The lock is released automatically at commit/rollback.
func lockSlot(ctx context.Context, tx *sqlx.Tx, start time.Time) error {
	_, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 42))`,
		start.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to lock slot: %w", err)
	}
	return nil
}

// hasOverlapTx checks for a scheduled appointment intersecting
// [start, end), optionally excluding one row (reschedule of itself).
func hasOverlapTx(ctx context.Context, tx *sqlx.Tx, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE status = 'scheduled'
			AND scheduled_at < $2
			AND scheduled_at + (duration_minutes * interval '1 minute') > $1
	`
	args := []interface{}{start, end}
	if excludeID != nil {
		query += " AND id != $3"
		args = append(args, *excludeID)
	}
	query += ")"

	var overlap bool
	if err := tx.GetContext(ctx, &overlap, query, args...); err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return overlap, nil
}

func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, evt *model.OutboxEvent) error {
	if evt == nil {
		return nil
	}
	now := time.Now()
	evt.CreatedAt = now
	evt.UpdatedAt = now
	if evt.Status == "" {
		evt.Status = model.OutboxStatusPending
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, idempotency_key, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query,
		evt.ID, evt.EventType, evt.Payload, evt.IdempotencyKey,
		evt.Status, evt.CreatedAt, evt.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to enqueue outbox event: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent, force bool) error {
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	now := time.Now()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockSlot(ctx, tx, apt.ScheduledAt); err != nil {
			return err
		}

		if !force {
			overlap, err := hasOverlapTx(ctx, tx, apt.ScheduledAt, apt.EndTime(), nil)
			if err != nil {
				return err
			}
			if overlap {
				return repository.ErrSlotTaken
			}
		}

		query := `
			INSERT INTO appointments (` + appointmentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		if _, err := tx.ExecContext(ctx, query,
			apt.ID, apt.CustomerID, apt.ScheduledAt, apt.DurationMinutes,
			apt.Status, apt.AppointmentType, apt.Notes, apt.ForcedBy,
			apt.CalendarEventID, apt.CreatedAt, apt.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}

		return insertOutboxTx(ctx, tx, evt)
	})
}

func (r *appointmentRepository) Reschedule(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	apt.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockSlot(ctx, tx, apt.ScheduledAt); err != nil {
			return err
		}

		overlap, err := hasOverlapTx(ctx, tx, apt.ScheduledAt, apt.EndTime(), &apt.ID)
		if err != nil {
			return err
		}
		if overlap {
			return repository.ErrSlotTaken
		}

		query := `
			UPDATE appointments
			SET scheduled_at = $1, duration_minutes = $2, updated_at = $3
			WHERE id = $4
		`
		result, err := tx.ExecContext(ctx, query,
			apt.ScheduledAt, apt.DurationMinutes, apt.UpdatedAt, apt.ID)
		if err != nil {
			return fmt.Errorf("failed to reschedule appointment: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}

		return insertOutboxTx(ctx, tx, evt)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	apt.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE appointments
			SET status = $1, notes = $2, forced_by = $3, updated_at = $4
			WHERE id = $5
		`
		result, err := tx.ExecContext(ctx, query,
			apt.Status, apt.Notes, apt.ForcedBy, apt.UpdatedAt, apt.ID)
		if err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}

		return insertOutboxTx(ctx, tx, evt)
	})
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID, evt *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}

		return insertOutboxTx(ctx, tx, evt)
	})
}

func (r *appointmentRepository) SetCalendarEventID(ctx context.Context, id uuid.UUID, calendarEventID string) error {
	query := `UPDATE appointments SET calendar_event_id = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, calendarEventID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set calendar event id: %w", err)
	}
	return nil
}

func (r *appointmentRepository) FindByExactStart(ctx context.Context, start time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE scheduled_at = $1 AND status = 'scheduled'
		ORDER BY created_at ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, start); err != nil {
		return nil, fmt.Errorf("failed to find appointments by start: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) FindOverlapping(ctx context.Context, start, end time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'scheduled'
		AND scheduled_at < $2
		AND scheduled_at + (duration_minutes * interval '1 minute') > $1
		ORDER BY scheduled_at ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to find overlapping appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE customer_id = $1
		ORDER BY scheduled_at DESC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, customerID); err != nil {
		return nil, fmt.Errorf("failed to find customer appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) FindUpcoming(ctx context.Context, withinDays int) ([]*model.Appointment, error) {
	now := time.Now()
	return r.FindByDateRange(ctx, now, now.AddDate(0, 0, withinDays))
}

func (r *appointmentRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'scheduled'
		AND scheduled_at >= $1
		AND scheduled_at < $2
		ORDER BY scheduled_at ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to find appointments in range: %w", err)
	}
	return appointments, nil
}
