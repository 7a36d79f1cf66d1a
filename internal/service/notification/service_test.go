package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

type fakeEmail struct {
	to      string
	subject string
	body    string
	sent    int
}

func (f *fakeEmail) Send(_ context.Context, to, subject, body string) error {
	f.to = to
	f.subject = subject
	f.body = body
	f.sent++
	return nil
}

func testAppointment() *model.Appointment {
	apt := &model.Appointment{
		CustomerID:      uuid.New(),
		ScheduledAt:     time.Date(2025, time.March, 3, 10, 0, 0, 0, time.Local),
		DurationMinutes: 30,
		Status:          model.AppointmentStatusScheduled,
		AppointmentType: "consultation",
	}
	apt.ID = uuid.New()
	return apt
}

func TestSendConfirmation(t *testing.T) {
	email := &fakeEmail{}
	svc := NewService(email, nil, logger.NewLogger(nil))

	contact := model.CustomerContact{Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, svc.SendConfirmation(context.Background(), testAppointment(), contact))

	assert.Equal(t, "dana@example.com", email.to)
	assert.Contains(t, email.subject, "confirmed")
	assert.Contains(t, email.body, "Dana")
	assert.Contains(t, email.body, "consultation")
	assert.Contains(t, email.body, "10:00 AM")
}

func TestSendConfirmation_NoEmailIsNoop(t *testing.T) {
	email := &fakeEmail{}
	svc := NewService(email, nil, logger.NewLogger(nil))

	require.NoError(t, svc.SendConfirmation(context.Background(), testAppointment(), model.CustomerContact{Name: "Dana"}))
	assert.Zero(t, email.sent)
}

func TestSendCancellation(t *testing.T) {
	email := &fakeEmail{}
	svc := NewService(email, nil, logger.NewLogger(nil))

	contact := model.CustomerContact{Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, svc.SendCancellation(context.Background(), testAppointment(), contact))

	assert.Contains(t, email.subject, "cancelled")
	assert.Contains(t, email.body, "rebook")
}

func TestCalendarDisabled(t *testing.T) {
	svc := NewService(&fakeEmail{}, nil, logger.NewLogger(nil))
	ctx := context.Background()

	id, err := svc.CreateCalendarEvent(ctx, testAppointment())
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = svc.UpdateCalendarEvent(ctx, "evt-1", testAppointment())
	require.NoError(t, err)

	_, err = svc.DeleteCalendarEvent(ctx, "evt-1")
	require.NoError(t, err)
}
