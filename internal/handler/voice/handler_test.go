package voice

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
	slots    []model.Slot
	bookErr  error
	booked   *model.BookingRequest
	searched struct {
		duration int
		policy   string
	}
}

func (f *fakeService) SearchAvailableSlots(_ context.Context, _ time.Time, durationMinutes int, policyName string) ([]model.Slot, error) {
	f.searched.duration = durationMinutes
	f.searched.policy = policyName
	return f.slots, nil
}

func (f *fakeService) Book(_ context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	f.booked = req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	apt := &model.Appointment{
		ScheduledAt:     req.ScheduledAt,
		AppointmentType: req.AppointmentType,
		Status:          model.AppointmentStatusScheduled,
	}
	apt.ID = uuid.New()
	return apt, nil
}

func (f *fakeService) Reschedule(context.Context, uuid.UUID, time.Time, model.CustomerContact) (*model.Appointment, error) {
	return nil, nil
}
func (f *fakeService) Cancel(context.Context, uuid.UUID, model.CustomerContact) error { return nil }
func (f *fakeService) Complete(context.Context, uuid.UUID) error                      { return nil }
func (f *fakeService) Delete(context.Context, uuid.UUID) error                        { return nil }
func (f *fakeService) Get(context.Context, uuid.UUID) (*model.Appointment, error) {
	return nil, nil
}
func (f *fakeService) ListUpcoming(context.Context, int) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeService) ListForCustomer(context.Context, uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func setupRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := NewHandler(svc, Defaults{Policy: "extended", DurationMinutes: 60})
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestAvailability_UsesVoiceDefaults(t *testing.T) {
	svc := &fakeService{slots: []model.Slot{{
		Display:         "Saturday, March 1 at 10:00 AM",
		DurationMinutes: 60,
	}}}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/voice/availability",
		bytes.NewBufferString(`{"date": "2025-03-01"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 60, svc.searched.duration)
	assert.Equal(t, "extended", svc.searched.policy)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["speech"], "Saturday, March 1 at 10:00 AM")
}

func TestAvailability_NoOpenings(t *testing.T) {
	r := setupRouter(&fakeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/voice/availability",
		bytes.NewBufferString(`{"date": "2025-03-02"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no openings")
}

func TestBook_ConflictSpokenNotErrored(t *testing.T) {
	alt := time.Date(2025, time.March, 3, 13, 0, 0, 0, time.Local)
	svc := &fakeService{bookErr: &apperrors.SlotConflictError{
		Requested: time.Date(2025, time.March, 3, 10, 0, 0, 0, time.Local),
		Alternatives: []apperrors.SlotAlternative{{
			Start:   alt,
			ISO:     alt.Format(time.RFC3339),
			Display: "Monday, March 3 at 1:00 PM",
		}},
	}}
	r := setupRouter(svc)

	body := fmt.Sprintf(`{
		"customer_id": %q,
		"scheduled_at": "2025-03-03T10:00",
		"name": "Dana",
		"email": "dana@example.com"
	}`, uuid.NewString())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/voice/book", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	// The agent gets a conversational answer, not a 409.
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["booked"])
	assert.Contains(t, resp["speech"], "Monday, March 3 at 1:00 PM")
}

func TestBook_AppliesVoiceDuration(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(svc)

	body := fmt.Sprintf(`{
		"customer_id": %q,
		"scheduled_at": "2025-03-03T10:00",
		"name": "Dana"
	}`, uuid.NewString())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/voice/book", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.booked)
	assert.Equal(t, 60, svc.booked.DurationMinutes)
	assert.Equal(t, "consultation", svc.booked.AppointmentType)
	assert.False(t, svc.booked.Force, "the voice surface can never force")
}
