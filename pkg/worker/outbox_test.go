package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("scheduling", "worker_test")

type fakeOutbox struct {
	pending     []*model.OutboxEvent
	processed   []uuid.UUID
	retried     []uuid.UUID
	deadLetters []*model.OutboxEvent
}

func (f *fakeOutbox) Create(context.Context, *model.OutboxEvent) error { return nil }

func (f *fakeOutbox) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutbox) MarkProcessed(_ context.Context, id uuid.UUID) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutbox) MarkRetry(_ context.Context, id uuid.UUID, _ string, _ time.Time) error {
	f.retried = append(f.retried, id)
	return nil
}

func (f *fakeOutbox) MoveToDeadLetter(_ context.Context, evt *model.OutboxEvent, _ string) error {
	f.deadLetters = append(f.deadLetters, evt)
	return nil
}

func (f *fakeOutbox) DeleteProcessedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeAppointments struct {
	repository.AppointmentRepository
	calendarIDs map[uuid.UUID]string
}

func (f *fakeAppointments) SetCalendarEventID(_ context.Context, id uuid.UUID, calendarEventID string) error {
	if f.calendarIDs == nil {
		f.calendarIDs = make(map[uuid.UUID]string)
	}
	f.calendarIDs[id] = calendarEventID
	return nil
}

type fakeDispatcher struct {
	confirmations  int
	updates        int
	cancellations  int
	calendarEvents int
	deletedEvents  []string
	err            error
}

func (f *fakeDispatcher) SendConfirmation(context.Context, *model.Appointment, model.CustomerContact) error {
	if f.err != nil {
		return f.err
	}
	f.confirmations++
	return nil
}

func (f *fakeDispatcher) SendUpdate(context.Context, *model.Appointment, model.CustomerContact) error {
	if f.err != nil {
		return f.err
	}
	f.updates++
	return nil
}

func (f *fakeDispatcher) SendCancellation(context.Context, *model.Appointment, model.CustomerContact) error {
	if f.err != nil {
		return f.err
	}
	f.cancellations++
	return nil
}

func (f *fakeDispatcher) CreateCalendarEvent(context.Context, *model.Appointment) (string, error) {
	f.calendarEvents++
	return "cal-event-1", nil
}

func (f *fakeDispatcher) UpdateCalendarEvent(_ context.Context, eventID string, _ *model.Appointment) (string, error) {
	return eventID, nil
}

func (f *fakeDispatcher) DeleteCalendarEvent(_ context.Context, eventID string) (string, error) {
	f.deletedEvents = append(f.deletedEvents, eventID)
	return eventID, nil
}

type fakeBroker struct {
	published []string
	err       error
}

func (f *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, channel)
	return nil
}

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

func eventFor(t *testing.T, eventType string, retryCount int) *model.OutboxEvent {
	t.Helper()

	apt := &model.Appointment{
		CustomerID:      uuid.New(),
		ScheduledAt:     time.Date(2025, time.March, 3, 10, 0, 0, 0, time.Local),
		DurationMinutes: 30,
		Status:          model.AppointmentStatusScheduled,
		AppointmentType: "consultation",
	}
	apt.ID = uuid.New()

	evt, err := model.NewAppointmentEvent(eventType, apt, model.CustomerContact{Name: "Dana", Email: "dana@example.com"})
	require.NoError(t, err)
	evt.RetryCount = retryCount
	return evt
}

func newTestProcessor(outbox *fakeOutbox, dispatcher *fakeDispatcher, broker *fakeBroker) (*OutboxProcessor, *fakeAppointments) {
	apts := &fakeAppointments{}
	var b messaging.Broker
	if broker != nil {
		b = broker
	}

	return NewOutboxProcessor(
		outbox,
		apts,
		dispatcher,
		b,
		OutboxProcessorConfig{BatchSize: 10, MaxRetries: 3, RetryDelay: time.Second},
		logger.NewLogger(nil),
		testMetrics,
	), apts
}

func TestProcessEvents_CreatedEvent(t *testing.T) {
	evt := eventFor(t, model.EventAppointmentCreated, 0)
	outbox := &fakeOutbox{pending: []*model.OutboxEvent{evt}}
	dispatcher := &fakeDispatcher{}
	broker := &fakeBroker{}
	p, apts := newTestProcessor(outbox, dispatcher, broker)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, 1, dispatcher.confirmations)
	assert.Equal(t, 1, dispatcher.calendarEvents)
	assert.Equal(t, []uuid.UUID{evt.ID}, outbox.processed)
	assert.Empty(t, outbox.retried)
	assert.Equal(t, []string{EventsChannel}, broker.published)

	// The calendar event id is written back to the appointment.
	var payload model.NotificationPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "cal-event-1", apts.calendarIDs[payload.Appointment.ID])
}

func TestProcessEvents_CancelledEvent(t *testing.T) {
	evt := eventFor(t, model.EventAppointmentCancelled, 0)
	outbox := &fakeOutbox{pending: []*model.OutboxEvent{evt}}
	dispatcher := &fakeDispatcher{}
	p, _ := newTestProcessor(outbox, dispatcher, nil)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, 1, dispatcher.cancellations)
	assert.Equal(t, []uuid.UUID{evt.ID}, outbox.processed)
}

func TestProcessEvents_DeliveryFailureSchedulesRetry(t *testing.T) {
	evt := eventFor(t, model.EventAppointmentCreated, 0)
	outbox := &fakeOutbox{pending: []*model.OutboxEvent{evt}}
	dispatcher := &fakeDispatcher{err: errors.New("smtp down")}
	p, _ := newTestProcessor(outbox, dispatcher, nil)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, outbox.processed)
	assert.Equal(t, []uuid.UUID{evt.ID}, outbox.retried)
	assert.Empty(t, outbox.deadLetters)
}

func TestProcessEvents_ExhaustedRetriesDeadLetter(t *testing.T) {
	evt := eventFor(t, model.EventAppointmentCreated, 2)
	outbox := &fakeOutbox{pending: []*model.OutboxEvent{evt}}
	dispatcher := &fakeDispatcher{err: errors.New("smtp down")}
	p, _ := newTestProcessor(outbox, dispatcher, nil)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, outbox.retried)
	require.Len(t, outbox.deadLetters, 1)
	assert.Equal(t, evt.ID, outbox.deadLetters[0].ID)
}

func TestProcessEvents_BrokerFailureDoesNotFailEvent(t *testing.T) {
	evt := eventFor(t, model.EventAppointmentCreated, 0)
	outbox := &fakeOutbox{pending: []*model.OutboxEvent{evt}}
	dispatcher := &fakeDispatcher{}
	broker := &fakeBroker{err: errors.New("redis down")}
	p, _ := newTestProcessor(outbox, dispatcher, broker)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, []uuid.UUID{evt.ID}, outbox.processed)
	assert.Empty(t, outbox.retried)
}

func TestProcessEvents_UnknownEventType(t *testing.T) {
	evt := eventFor(t, "appointment.exploded", 0)
	outbox := &fakeOutbox{pending: []*model.OutboxEvent{evt}}
	p, _ := newTestProcessor(outbox, &fakeDispatcher{}, nil)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, outbox.processed)
	assert.Equal(t, []uuid.UUID{evt.ID}, outbox.retried)
}
