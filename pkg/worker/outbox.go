package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/service/notification"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// EventsChannel is the broker channel sibling apps subscribe to.
const EventsChannel = "scheduling.events"

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// OutboxProcessor drains the outbox: delivers notifications through the
// dispatcher and publishes the canonical event to the broker. Delivery
// is at-least-once; the idempotency key on each event dedupes enqueue,
// and redelivered emails are tolerated by design.
type OutboxProcessor struct {
	outbox       repository.OutboxRepository
	appointments repository.AppointmentRepository
	dispatcher   notification.Dispatcher
	broker       messaging.Broker
	config       OutboxProcessorConfig
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewOutboxProcessor(
	outbox repository.OutboxRepository,
	appointments repository.AppointmentRepository,
	dispatcher notification.Dispatcher,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 30 * time.Second
	}

	return &OutboxProcessor{
		outbox:       outbox,
		appointments: appointments,
		dispatcher:   dispatcher,
		broker:       broker,
		config:       config,
		logger:       logger,
		metrics:      m,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.outbox.GetPendingEventsWithLock(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, evt := range events {
		if err := p.processEvent(ctx, evt); err != nil {
			p.metrics.OutboxEventsFailed.Inc()
			p.fail(ctx, evt, err)
			continue
		}

		p.metrics.OutboxEventsProcessed.Inc()
		if err := p.outbox.MarkProcessed(ctx, evt.ID); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", evt.ID.String())
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, evt *model.OutboxEvent) error {
	var payload model.NotificationPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	apt := &payload.Appointment

	if err := p.deliver(ctx, evt.EventType, apt, payload.Contact); err != nil {
		return err
	}

	// Sibling apps get the canonical event; losing it is not worth a
	// redelivery of the customer-facing notification.
	if p.broker != nil {
		if err := p.broker.Publish(ctx, EventsChannel, map[string]interface{}{
			"type":           evt.EventType,
			"appointment_id": apt.ID.String(),
			"scheduled_at":   apt.ScheduledAt,
		}); err != nil {
			p.logger.Error(err, "failed to publish event", "event_type", evt.EventType)
		}
	}

	return nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, eventType string, apt *model.Appointment, contact model.CustomerContact) error {
	switch eventType {
	case model.EventAppointmentCreated:
		if err := p.dispatcher.SendConfirmation(ctx, apt, contact); err != nil {
			p.metrics.NotificationsFailed.WithLabelValues("confirmation").Inc()
			return fmt.Errorf("failed to send confirmation: %w", err)
		}
		p.metrics.NotificationsSent.WithLabelValues("confirmation").Inc()

		eventID, err := p.dispatcher.CreateCalendarEvent(ctx, apt)
		if err != nil {
			p.metrics.NotificationsFailed.WithLabelValues("calendar").Inc()
			return fmt.Errorf("failed to create calendar event: %w", err)
		}
		if eventID != "" {
			if err := p.appointments.SetCalendarEventID(ctx, apt.ID, eventID); err != nil {
				p.logger.Error(err, "failed to store calendar event id", "appointment_id", apt.ID.String())
			}
		}

	case model.EventAppointmentUpdated:
		if err := p.dispatcher.SendUpdate(ctx, apt, contact); err != nil {
			p.metrics.NotificationsFailed.WithLabelValues("update").Inc()
			return fmt.Errorf("failed to send update: %w", err)
		}
		p.metrics.NotificationsSent.WithLabelValues("update").Inc()

		if apt.CalendarEventID != nil {
			if _, err := p.dispatcher.UpdateCalendarEvent(ctx, *apt.CalendarEventID, apt); err != nil {
				p.metrics.NotificationsFailed.WithLabelValues("calendar").Inc()
				return fmt.Errorf("failed to update calendar event: %w", err)
			}
		}

	case model.EventAppointmentCancelled:
		if err := p.dispatcher.SendCancellation(ctx, apt, contact); err != nil {
			p.metrics.NotificationsFailed.WithLabelValues("cancellation").Inc()
			return fmt.Errorf("failed to send cancellation: %w", err)
		}
		p.metrics.NotificationsSent.WithLabelValues("cancellation").Inc()

		if apt.CalendarEventID != nil {
			if _, err := p.dispatcher.DeleteCalendarEvent(ctx, *apt.CalendarEventID); err != nil {
				p.metrics.NotificationsFailed.WithLabelValues("calendar").Inc()
				return fmt.Errorf("failed to delete calendar event: %w", err)
			}
		}

	case model.EventAppointmentDeleted:
		if apt.CalendarEventID != nil {
			if _, err := p.dispatcher.DeleteCalendarEvent(ctx, *apt.CalendarEventID); err != nil {
				p.metrics.NotificationsFailed.WithLabelValues("calendar").Inc()
				return fmt.Errorf("failed to delete calendar event: %w", err)
			}
		}

	default:
		return fmt.Errorf("unknown event type %q", eventType)
	}

	return nil
}

func (p *OutboxProcessor) fail(ctx context.Context, evt *model.OutboxEvent, cause error) {
	p.logger.Error(cause, "failed to deliver event",
		"event_id", evt.ID.String(),
		"event_type", evt.EventType,
		"retry_count", evt.RetryCount)

	if evt.RetryCount+1 >= p.config.MaxRetries {
		if err := p.outbox.MoveToDeadLetter(ctx, evt, cause.Error()); err != nil {
			p.logger.Error(err, "failed to move event to dead letter", "event_id", evt.ID.String())
		}
		return
	}

	p.metrics.OutboxRetries.WithLabelValues(evt.EventType).Inc()
	backoff := p.config.RetryDelay * time.Duration(evt.RetryCount+1)
	if err := p.outbox.MarkRetry(ctx, evt.ID, cause.Error(), time.Now().Add(backoff)); err != nil {
		p.logger.Error(err, "failed to schedule retry", "event_id", evt.ID.String())
	}
}
