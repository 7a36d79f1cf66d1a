package appointment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/handler"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("futuretime", func(fl validator.FieldLevel) bool {
			t, ok := handler.ParseDateTime(fl.Field().String())
			return ok && t.After(time.Now())
		})
	}
}

// Defaults carries the surface-level knobs the REST API applies when a
// request omits them.
type Defaults struct {
	Policy          string
	DurationMinutes int
}

type Handler struct {
	service  handler.SchedulingService
	defaults Defaults
}

func NewHandler(service handler.SchedulingService, defaults Defaults) *Handler {
	return &Handler{service: service, defaults: defaults}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/availability", h.Availability)
		appointments.GET("/upcoming", h.ListUpcoming)
		appointments.POST("", h.Book)
		appointments.GET("/:id", h.Get)
		appointments.POST("/:id/reschedule", h.Reschedule)
		appointments.POST("/:id/cancel", h.Cancel)
		appointments.POST("/:id/complete", h.Complete)
		appointments.DELETE("/:id", h.Delete)
	}
	r.GET("/customers/:id/appointments", h.ListForCustomer)
}

type availabilityQuery struct {
	Date            string `form:"date" binding:"required"`
	DurationMinutes int    `form:"duration_minutes" binding:"omitempty,min=5,max=480"`
	Policy          string `form:"policy"`
}

func (h *Handler) Availability(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(apperrors.BadRequest(err.Error(), nil))
		return
	}

	date, ok := handler.ParseDate(q.Date)
	if !ok {
		c.Error(apperrors.BadRequest("invalid date, expected YYYY-MM-DD", nil))
		return
	}
	if q.DurationMinutes == 0 {
		q.DurationMinutes = h.defaults.DurationMinutes
	}
	if q.Policy == "" {
		q.Policy = h.defaults.Policy
	}

	slots, err := h.service.SearchAvailableSlots(c.Request.Context(), date, q.DurationMinutes, q.Policy)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"date":  date.Format("2006-01-02"),
		"slots": slots,
	}))
}

type bookRequest struct {
	CustomerID      string `json:"customer_id" binding:"required,uuid"`
	ScheduledAt     string `json:"scheduled_at" binding:"required,futuretime"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	AppointmentType string `json:"appointment_type" binding:"required"`
	Notes           string `json:"notes"`
	Force           bool   `json:"force"`
	Contact         struct {
		Name  string `json:"name"`
		Email string `json:"email" binding:"omitempty,email"`
	} `json:"contact"`
}

func (h *Handler) Book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(err.Error(), nil))
		return
	}

	scheduledAt, _ := handler.ParseDateTime(req.ScheduledAt)
	if req.DurationMinutes == 0 {
		req.DurationMinutes = h.defaults.DurationMinutes
	}

	booking := &model.BookingRequest{
		CustomerID:      uuid.MustParse(req.CustomerID),
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
		Force:           req.Force,
		Contact: model.CustomerContact{
			Name:  req.Contact.Name,
			Email: req.Contact.Email,
		},
	}

	if req.Force {
		if c.GetString(middleware.ContextActorRole) != middleware.RoleAdmin {
			c.Error(apperrors.Forbidden("force booking requires an admin session"))
			return
		}
		booking.ForcedBy = c.GetString(middleware.ContextActorID)
	}

	apt, err := h.service.Book(c.Request.Context(), booking)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

type rescheduleRequest struct {
	ScheduledAt string `json:"scheduled_at" binding:"required,futuretime"`
	Contact     struct {
		Name  string `json:"name"`
		Email string `json:"email" binding:"omitempty,email"`
	} `json:"contact"`
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.BadRequest("invalid appointment id", nil))
		return
	}

	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(err.Error(), nil))
		return
	}

	newTime, _ := handler.ParseDateTime(req.ScheduledAt)
	contact := model.CustomerContact{Name: req.Contact.Name, Email: req.Contact.Email}

	apt, err := h.service.Reschedule(c.Request.Context(), id, newTime, contact)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

type cancelRequest struct {
	Contact struct {
		Name  string `json:"name"`
		Email string `json:"email" binding:"omitempty,email"`
	} `json:"contact"`
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.BadRequest("invalid appointment id", nil))
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.Error(apperrors.BadRequest(err.Error(), nil))
		return
	}

	contact := model.CustomerContact{Name: req.Contact.Name, Email: req.Contact.Email}
	if err := h.service.Cancel(c.Request.Context(), id, contact); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"cancelled": true}))
}

func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.BadRequest("invalid appointment id", nil))
		return
	}

	if err := h.service.Complete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"completed": true}))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.BadRequest("invalid appointment id", nil))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.BadRequest("invalid appointment id", nil))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	days := 7
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.Error(apperrors.BadRequest("invalid days parameter", nil))
			return
		}
		days = parsed
	}

	appointments, err := h.service.ListUpcoming(c.Request.Context(), days)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) ListForCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.BadRequest("invalid customer id", nil))
		return
	}

	appointments, err := h.service.ListForCustomer(c.Request.Context(), customerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}
