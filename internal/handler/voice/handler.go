package voice

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/handler"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

// Defaults carries the knobs the voice agent applies when the caller
// does not state them. The voice surface runs on the extended-hours
// policy with hour-long visits.
type Defaults struct {
	Policy          string
	DurationMinutes int
}

// Handler serves the conversational agent. Every response carries a
// ready-to-read "speech" field so the agent never has to compose
// sentences from raw timestamps.
type Handler struct {
	service  handler.SchedulingService
	defaults Defaults
}

func NewHandler(service handler.SchedulingService, defaults Defaults) *Handler {
	return &Handler{service: service, defaults: defaults}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	voice := r.Group("/voice")
	{
		voice.POST("/availability", h.Availability)
		voice.POST("/book", h.Book)
		voice.POST("/cancel", h.Cancel)
	}
}

type availabilityRequest struct {
	Date            string `json:"date" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
}

func (h *Handler) Availability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(err.Error(), nil))
		return
	}

	date, ok := handler.ParseDate(req.Date)
	if !ok {
		c.Error(apperrors.BadRequest("invalid date, expected YYYY-MM-DD", nil))
		return
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = h.defaults.DurationMinutes
	}

	slots, err := h.service.SearchAvailableSlots(c.Request.Context(), date, req.DurationMinutes, h.defaults.Policy)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"speech": speakSlots(slots),
		"slots":  slots,
	})
}

type bookRequest struct {
	CustomerID      string `json:"customer_id" binding:"required,uuid"`
	ScheduledAt     string `json:"scheduled_at" binding:"required"`
	AppointmentType string `json:"appointment_type"`
	Notes           string `json:"notes"`
	Name            string `json:"name"`
	Email           string `json:"email" binding:"omitempty,email"`
}

func (h *Handler) Book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(err.Error(), nil))
		return
	}

	scheduledAt, ok := handler.ParseDateTime(req.ScheduledAt)
	if !ok {
		c.Error(apperrors.BadRequest("invalid scheduled_at", nil))
		return
	}
	if req.AppointmentType == "" {
		req.AppointmentType = "consultation"
	}

	apt, err := h.service.Book(c.Request.Context(), &model.BookingRequest{
		CustomerID:      uuid.MustParse(req.CustomerID),
		ScheduledAt:     scheduledAt,
		DurationMinutes: h.defaults.DurationMinutes,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
		Contact:         model.CustomerContact{Name: req.Name, Email: req.Email},
	})
	if err != nil {
		// A taken slot is a normal conversational turn for the agent,
		// not a failure. Answer with the ranked alternatives spoken out.
		if conflict, conflictOK := apperrors.AsSlotConflict(err); conflictOK {
			c.JSON(http.StatusOK, gin.H{
				"booked":       false,
				"speech":       speakConflict(conflict),
				"alternatives": conflict.Alternatives,
			})
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booked":         true,
		"speech":         fmt.Sprintf("You're all set. I've booked your %s for %s.", apt.AppointmentType, scheduling.FormatSlot(apt.ScheduledAt)),
		"appointment_id": apt.ID,
	})
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id" binding:"required,uuid"`
	Name          string `json:"name"`
	Email         string `json:"email" binding:"omitempty,email"`
}

func (h *Handler) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(err.Error(), nil))
		return
	}

	id := uuid.MustParse(req.AppointmentID)
	contact := model.CustomerContact{Name: req.Name, Email: req.Email}
	if err := h.service.Cancel(c.Request.Context(), id, contact); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cancelled": true,
		"speech":    "Your appointment has been cancelled. Is there anything else I can help with?",
	})
}

func speakSlots(slots []model.Slot) string {
	if len(slots) == 0 {
		return "I'm sorry, there are no openings that day. Would you like to try another date?"
	}

	limit := len(slots)
	if limit > 3 {
		limit = 3
	}
	options := make([]string, 0, limit)
	for _, s := range slots[:limit] {
		options = append(options, s.Display)
	}

	return fmt.Sprintf("I have a few openings. The best options are %s. Which works for you?", strings.Join(options, ", or "))
}

func speakConflict(conflict *apperrors.SlotConflictError) string {
	if len(conflict.Alternatives) == 0 {
		return "I'm sorry, that time was just taken and I couldn't find anything nearby. Would you like to try a different day?"
	}

	options := make([]string, 0, len(conflict.Alternatives))
	for _, alt := range conflict.Alternatives {
		options = append(options, alt.Display)
	}

	return fmt.Sprintf("I'm sorry, that time is already taken. I could offer you %s. Would any of those work?", strings.Join(options, ", or "))
}
