package notification

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/model"
)

// GoogleCalendar mirrors appointments into a Google calendar using a
// service account.
type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
}

func NewGoogleCalendar(ctx context.Context, cfg config.CalendarConfig) (*GoogleCalendar, error) {
	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar credentials: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(creds, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar credentials: %w", err)
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	return &GoogleCalendar{svc: svc, calendarID: cfg.CalendarID}, nil
}

func (g *GoogleCalendar) buildEvent(apt *model.Appointment) *calendar.Event {
	return &calendar.Event{
		Summary:     fmt.Sprintf("%s (%s)", apt.AppointmentType, apt.CustomerID),
		Description: apt.Notes,
		Start: &calendar.EventDateTime{
			DateTime: apt.ScheduledAt.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: apt.EndTime().Format(time.RFC3339),
		},
	}
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, apt *model.Appointment) (string, error) {
	created, err := g.svc.Events.Insert(g.calendarID, g.buildEvent(apt)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	return created.Id, nil
}

func (g *GoogleCalendar) UpdateEvent(ctx context.Context, eventID string, apt *model.Appointment) (string, error) {
	updated, err := g.svc.Events.Update(g.calendarID, eventID, g.buildEvent(apt)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update calendar event: %w", err)
	}
	return updated.Id, nil
}

func (g *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}
