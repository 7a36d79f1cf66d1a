package appointment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

type fakeService struct {
	slots       []model.Slot
	bookErr     error
	booked      *model.BookingRequest
	appointment *model.Appointment
}

func (f *fakeService) SearchAvailableSlots(context.Context, time.Time, int, string) ([]model.Slot, error) {
	return f.slots, nil
}

func (f *fakeService) Book(_ context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	f.booked = req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	if f.appointment != nil {
		return f.appointment, nil
	}
	apt := &model.Appointment{
		CustomerID:      req.CustomerID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Status:          model.AppointmentStatusScheduled,
		AppointmentType: req.AppointmentType,
	}
	apt.ID = uuid.New()
	return apt, nil
}

func (f *fakeService) Reschedule(_ context.Context, id uuid.UUID, newTime time.Time, _ model.CustomerContact) (*model.Appointment, error) {
	apt := &model.Appointment{ScheduledAt: newTime, Status: model.AppointmentStatusScheduled}
	apt.ID = id
	return apt, nil
}

func (f *fakeService) Cancel(context.Context, uuid.UUID, model.CustomerContact) error { return nil }
func (f *fakeService) Complete(context.Context, uuid.UUID) error                      { return nil }
func (f *fakeService) Delete(context.Context, uuid.UUID) error                        { return nil }

func (f *fakeService) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	return nil, apperrors.NotFound("appointment", nil)
}

func (f *fakeService) ListUpcoming(context.Context, int) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeService) ListForCustomer(context.Context, uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func setupRouter(svc *fakeService, actorRole string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	if actorRole != "" {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextActorID, "staff-1")
			c.Set(middleware.ContextActorRole, actorRole)
		})
	}

	h := NewHandler(svc, Defaults{Policy: "office", DurationMinutes: 30})
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func futureTime() string {
	return time.Now().AddDate(0, 0, 7).Format(time.RFC3339)
}

func TestAvailability(t *testing.T) {
	start := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.Local)
	svc := &fakeService{slots: []model.Slot{{
		Start:           start,
		ISO:             start.Format(time.RFC3339),
		Display:         "Monday, March 3 at 10:00 AM",
		DurationMinutes: 30,
	}}}
	r := setupRouter(svc, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/availability?date=2025-03-03", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "10:00 AM")
}

func TestAvailability_BadDate(t *testing.T) {
	r := setupRouter(&fakeService{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/availability?date=tomorrow", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBook(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(svc, "")

	body := fmt.Sprintf(`{
		"customer_id": %q,
		"scheduled_at": %q,
		"appointment_type": "consultation",
		"contact": {"name": "Dana", "email": "dana@example.com"}
	}`, uuid.NewString(), futureTime())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.booked)
	assert.Equal(t, 30, svc.booked.DurationMinutes, "default duration applies")
	assert.False(t, svc.booked.Force)
}

func TestBook_PastTimeRejected(t *testing.T) {
	r := setupRouter(&fakeService{}, "")

	body := fmt.Sprintf(`{
		"customer_id": %q,
		"scheduled_at": "2020-01-01T10:00:00Z",
		"appointment_type": "consultation"
	}`, uuid.NewString())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBook_ForceRequiresAdmin(t *testing.T) {
	svc := &fakeService{}

	body := fmt.Sprintf(`{
		"customer_id": %q,
		"scheduled_at": %q,
		"appointment_type": "consultation",
		"force": true
	}`, uuid.NewString(), futureTime())

	// Anonymous caller is refused.
	r := setupRouter(svc, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, svc.booked)

	// Admin session goes through and the override is attributed.
	r = setupRouter(svc, middleware.RoleAdmin)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/appointments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.booked)
	assert.True(t, svc.booked.Force)
	assert.Equal(t, "staff-1", svc.booked.ForcedBy)
}

func TestBook_ConflictCarriesAlternatives(t *testing.T) {
	alt := time.Date(2025, time.March, 3, 13, 0, 0, 0, time.Local)
	svc := &fakeService{bookErr: &apperrors.SlotConflictError{
		Requested: time.Date(2025, time.March, 3, 10, 0, 0, 0, time.Local),
		Alternatives: []apperrors.SlotAlternative{{
			Start:   alt,
			ISO:     alt.Format(time.RFC3339),
			Display: "Monday, March 3 at 1:00 PM",
		}},
	}}
	r := setupRouter(svc, "")

	body := fmt.Sprintf(`{
		"customer_id": %q,
		"scheduled_at": %q,
		"appointment_type": "consultation"
	}`, uuid.NewString(), futureTime())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Alternatives, 1)
	assert.Equal(t, "Monday, March 3 at 1:00 PM", resp.Alternatives[0].Display)
}

func TestGet_NotFound(t *testing.T) {
	r := setupRouter(&fakeService{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete(t *testing.T) {
	r := setupRouter(&fakeService{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
