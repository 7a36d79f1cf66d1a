package notification

import (
	"context"
	"fmt"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

// Dispatcher delivers booking side effects. Every method is best-effort:
// callers log failures and move on, a flaky provider must never fail a
// committed booking.
type Dispatcher interface {
	SendConfirmation(ctx context.Context, apt *model.Appointment, contact model.CustomerContact) error
	SendUpdate(ctx context.Context, apt *model.Appointment, contact model.CustomerContact) error
	SendCancellation(ctx context.Context, apt *model.Appointment, contact model.CustomerContact) error
	CreateCalendarEvent(ctx context.Context, apt *model.Appointment) (string, error)
	UpdateCalendarEvent(ctx context.Context, eventID string, apt *model.Appointment) (string, error)
	DeleteCalendarEvent(ctx context.Context, eventID string) (string, error)
}

// EmailSender abstracts the SMTP transport.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CalendarClient mirrors appointments into an external calendar.
type CalendarClient interface {
	CreateEvent(ctx context.Context, apt *model.Appointment) (string, error)
	UpdateEvent(ctx context.Context, eventID string, apt *model.Appointment) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

type Service struct {
	email    EmailSender
	calendar CalendarClient
	logger   *logger.Logger
}

func NewService(email EmailSender, calendar CalendarClient, logger *logger.Logger) *Service {
	return &Service{
		email:    email,
		calendar: calendar,
		logger:   logger,
	}
}

func (s *Service) SendConfirmation(ctx context.Context, apt *model.Appointment, contact model.CustomerContact) error {
	if contact.Email == "" {
		return nil
	}
	subject := "Your appointment is confirmed"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s appointment is confirmed for %s (%d minutes).\n\nSee you then!",
		contact.Name, apt.AppointmentType,
		scheduling.FormatSlot(apt.ScheduledAt), apt.DurationMinutes,
	)
	return s.email.Send(ctx, contact.Email, subject, body)
}

func (s *Service) SendUpdate(ctx context.Context, apt *model.Appointment, contact model.CustomerContact) error {
	if contact.Email == "" {
		return nil
	}
	subject := "Your appointment has been updated"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s appointment has been moved to %s (%d minutes).\n\nSee you then!",
		contact.Name, apt.AppointmentType,
		scheduling.FormatSlot(apt.ScheduledAt), apt.DurationMinutes,
	)
	return s.email.Send(ctx, contact.Email, subject, body)
}

func (s *Service) SendCancellation(ctx context.Context, apt *model.Appointment, contact model.CustomerContact) error {
	if contact.Email == "" {
		return nil
	}
	subject := "Your appointment has been cancelled"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s appointment on %s has been cancelled.\n\nReply to this email if you'd like to rebook.",
		contact.Name, apt.AppointmentType,
		scheduling.FormatSlot(apt.ScheduledAt),
	)
	return s.email.Send(ctx, contact.Email, subject, body)
}

func (s *Service) CreateCalendarEvent(ctx context.Context, apt *model.Appointment) (string, error) {
	if s.calendar == nil {
		return "", nil
	}
	return s.calendar.CreateEvent(ctx, apt)
}

func (s *Service) UpdateCalendarEvent(ctx context.Context, eventID string, apt *model.Appointment) (string, error) {
	if s.calendar == nil || eventID == "" {
		return "", nil
	}
	return s.calendar.UpdateEvent(ctx, eventID, apt)
}

func (s *Service) DeleteCalendarEvent(ctx context.Context, eventID string) (string, error) {
	if s.calendar == nil || eventID == "" {
		return "calendar sync disabled", nil
	}
	if err := s.calendar.DeleteEvent(ctx, eventID); err != nil {
		return "", err
	}
	return "calendar event removed", nil
}
