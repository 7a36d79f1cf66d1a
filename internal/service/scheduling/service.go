package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	domain "github.com/jwalitptl/scheduling-api/internal/scheduling"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// Service orchestrates availability search and the appointment state
// machine. Notifications are never sent inline: mutations enqueue an
// outbox event in the same transaction and the worker delivers it.
type Service struct {
	repo     repository.AppointmentRepository
	checker  *ConflictChecker
	policies map[string]domain.Policy
	cfg      config.SchedulingConfig
	cache    *gocache.Cache
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	policies map[string]domain.Policy,
	cfg config.SchedulingConfig,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		repo:     repo,
		checker:  NewConflictChecker(repo),
		policies: policies,
		cfg:      cfg,
		cache:    gocache.New(ttl, 2*ttl),
		logger:   logger,
		metrics:  m,
	}
}

// Policy resolves a named business-hours policy, falling back to the
// configured default when name is empty.
func (s *Service) Policy(name string) (domain.Policy, error) {
	if name == "" {
		name = s.cfg.DefaultPolicy
	}
	p, ok := s.policies[name]
	if !ok {
		return domain.Policy{}, apperrors.BadRequest(fmt.Sprintf("unknown business-hours policy %q", name), nil)
	}
	return p, nil
}

// SearchAvailableSlots returns the free slots for a date, preferred
// hours first, then chronologically. Results are cached for a short TTL
// since the voice agent tends to ask repeatedly while the caller decides.
func (s *Service) SearchAvailableSlots(ctx context.Context, date time.Time, durationMinutes int, policyName string) ([]model.Slot, error) {
	if durationMinutes <= 0 {
		return nil, apperrors.BadRequest("duration must be positive", nil)
	}
	policy, err := s.Policy(policyName)
	if err != nil {
		return nil, err
	}

	s.metrics.SlotSearches.Inc()

	cacheKey := fmt.Sprintf("slots:%s:%d:%s", date.Format("2006-01-02"), durationMinutes, policy.Name)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.SlotSearchCached.Inc()
		return cached.([]model.Slot), nil
	}

	free, err := s.freeSlotsForDate(ctx, policy, date, durationMinutes)
	if err != nil {
		return nil, err
	}

	ranked := domain.Rank(free, 0)
	slots := make([]model.Slot, 0, len(ranked))
	for _, start := range ranked {
		slots = append(slots, model.Slot{
			Start:           start,
			ISO:             domain.FormatSlotISO(start),
			Display:         domain.FormatSlot(start),
			DurationMinutes: durationMinutes,
		})
	}

	s.cache.Set(cacheKey, slots, gocache.DefaultExpiration)
	return slots, nil
}

// freeSlotsForDate generates the day's candidates and filters them
// against booked appointments with one range query.
func (s *Service) freeSlotsForDate(ctx context.Context, policy domain.Policy, date time.Time, durationMinutes int) ([]time.Time, error) {
	duration := time.Duration(durationMinutes) * time.Minute
	candidates := domain.SlotsForDate(policy, date, duration)
	if len(candidates) == 0 {
		return nil, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	booked, err := s.repo.FindByDateRange(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load booked appointments: %w", err)
	}

	var free []time.Time
	for _, start := range candidates {
		conflict := false
		for _, apt := range booked {
			if apt.Overlaps(start, duration) {
				conflict = true
				break
			}
		}
		if !conflict {
			free = append(free, start)
		}
	}
	return free, nil
}

// Book creates a scheduled appointment. Without force, an occupied slot
// yields a SlotConflictError carrying ranked alternatives; with force the
// conflict check is bypassed (the override actor is recorded and logged).
func (s *Service) Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	if err := s.validateBooking(req); err != nil {
		return nil, err
	}

	if !req.Force {
		free, err := s.checker.IsFree(ctx, req.ScheduledAt, time.Duration(req.DurationMinutes)*time.Minute, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to check availability: %w", err)
		}
		if !free {
			return nil, s.conflict(ctx, req.ScheduledAt, req.DurationMinutes)
		}
	}

	apt := &model.Appointment{
		CustomerID:      req.CustomerID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Status:          model.AppointmentStatusScheduled,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
	}
	apt.ID = uuid.New()
	if req.Force {
		forcedBy := req.ForcedBy
		if forcedBy == "" {
			forcedBy = "unknown"
		}
		apt.ForcedBy = &forcedBy
	}

	evt, err := model.NewAppointmentEvent(model.EventAppointmentCreated, apt, req.Contact)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.Create(ctx, apt, evt, req.Force); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			// Lost the race after the optimistic check passed.
			return nil, s.conflict(ctx, req.ScheduledAt, req.DurationMinutes)
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.cache.Flush()
	s.metrics.BookingsCreated.WithLabelValues(apt.AppointmentType, fmt.Sprintf("%t", req.Force)).Inc()
	if req.Force {
		s.metrics.ForceOverrides.Inc()
		s.logger.Warn("appointment booked with conflict check bypassed",
			"appointment_id", apt.ID.String(),
			"scheduled_at", apt.ScheduledAt.Format(time.RFC3339),
			"forced_by", req.ForcedBy)
	} else {
		s.logger.Info("appointment booked",
			"appointment_id", apt.ID.String(),
			"scheduled_at", apt.ScheduledAt.Format(time.RFC3339))
	}

	return apt, nil
}

// Reschedule moves a scheduled appointment to newTime. On conflict the
// appointment is left untouched and the error carries alternatives.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time, contact model.CustomerContact) (*model.Appointment, error) {
	if newTime.IsZero() {
		return nil, apperrors.BadRequest("new time is required", nil)
	}

	apt, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status.Terminal() {
		return nil, apperrors.BadRequest(fmt.Sprintf("cannot reschedule a %s appointment", apt.Status), nil)
	}

	free, err := s.checker.IsFree(ctx, newTime, time.Duration(apt.DurationMinutes)*time.Minute, &apt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if !free {
		return nil, s.conflict(ctx, newTime, apt.DurationMinutes)
	}

	apt.ScheduledAt = newTime

	evt, err := model.NewAppointmentEvent(model.EventAppointmentUpdated, apt, contact)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.Reschedule(ctx, apt, evt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, s.conflict(ctx, newTime, apt.DurationMinutes)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	s.cache.Flush()
	s.logger.Info("appointment rescheduled",
		"appointment_id", apt.ID.String(),
		"scheduled_at", newTime.Format(time.RFC3339))

	return apt, nil
}

// Cancel transitions the appointment to cancelled, freeing its slot.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, contact model.CustomerContact) error {
	apt, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status == model.AppointmentStatusCancelled {
		return apperrors.BadRequest("appointment is already cancelled", nil)
	}
	if apt.Status == model.AppointmentStatusCompleted {
		return apperrors.BadRequest("cannot cancel a completed appointment", nil)
	}

	apt.Status = model.AppointmentStatusCancelled

	evt, err := model.NewAppointmentEvent(model.EventAppointmentCancelled, apt, contact)
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repo.Update(ctx, apt, evt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.cache.Flush()
	s.logger.Info("appointment cancelled", "appointment_id", apt.ID.String())
	return nil
}

// Complete marks a scheduled appointment as completed. No notification
// is enqueued; completion is a back-office transition.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	apt, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status != model.AppointmentStatusScheduled {
		return apperrors.BadRequest(fmt.Sprintf("cannot complete a %s appointment", apt.Status), nil)
	}

	apt.Status = model.AppointmentStatusCompleted
	if err := s.repo.Update(ctx, apt, nil); err != nil {
		return fmt.Errorf("failed to complete appointment: %w", err)
	}

	s.logger.Info("appointment completed", "appointment_id", apt.ID.String())
	return nil
}

// Delete hard-removes the record. Unlike Cancel it leaves no history;
// the mirrored calendar event is removed by the worker.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	apt, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return fmt.Errorf("failed to get appointment: %w", err)
	}

	evt, err := model.NewAppointmentEvent(model.EventAppointmentDeleted, apt, model.CustomerContact{})
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repo.Delete(ctx, id, evt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	s.cache.Flush()
	s.logger.Info("appointment deleted", "appointment_id", id.String())
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) ListUpcoming(ctx context.Context, withinDays int) ([]*model.Appointment, error) {
	if withinDays <= 0 {
		withinDays = s.cfg.SearchDays
	}
	appointments, err := s.repo.FindUpcoming(ctx, withinDays)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Appointment, error) {
	appointments, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) validateBooking(req *model.BookingRequest) error {
	if req.CustomerID == uuid.Nil {
		return apperrors.BadRequest("customer id is required", nil)
	}
	if req.ScheduledAt.IsZero() {
		return apperrors.BadRequest("scheduled time is required", nil)
	}
	if req.DurationMinutes <= 0 {
		return apperrors.BadRequest("duration must be positive", nil)
	}
	if req.AppointmentType == "" {
		return apperrors.BadRequest("appointment type is required", nil)
	}
	return nil
}

// conflict builds the caller-visible conflict outcome: the requested
// time plus up to MaxAlternatives free slots gathered by scanning
// forward SearchDays days, at most MaxAlternativesPerDay per day,
// preferred hours first.
func (s *Service) conflict(ctx context.Context, requested time.Time, durationMinutes int) error {
	s.metrics.BookingConflicts.Inc()

	alternatives, err := s.findAlternatives(ctx, requested, durationMinutes)
	if err != nil {
		// Alternatives are a courtesy; the conflict itself still stands.
		s.logger.Error(err, "failed to collect alternative slots")
	}

	return &apperrors.SlotConflictError{
		Requested:    requested,
		Alternatives: alternatives,
	}
}

func (s *Service) findAlternatives(ctx context.Context, requested time.Time, durationMinutes int) ([]apperrors.SlotAlternative, error) {
	policy, err := s.Policy("")
	if err != nil {
		return nil, err
	}

	var candidates []time.Time
	for day := 0; day < s.cfg.SearchDays; day++ {
		date := requested.AddDate(0, 0, day)
		free, err := s.freeSlotsForDate(ctx, policy, date, durationMinutes)
		if err != nil {
			return nil, err
		}

		perDay := 0
		for _, start := range free {
			// Offer strictly later times; earlier same-day slots are
			// rarely what the caller wants.
			if !start.After(requested) {
				continue
			}
			candidates = append(candidates, start)
			perDay++
			if perDay >= s.cfg.MaxAlternativesPerDay {
				break
			}
		}
	}

	ranked := domain.Rank(candidates, s.cfg.MaxAlternatives)
	alternatives := make([]apperrors.SlotAlternative, 0, len(ranked))
	for _, start := range ranked {
		alternatives = append(alternatives, apperrors.SlotAlternative{
			Start:   start,
			ISO:     domain.FormatSlotISO(start),
			Display: domain.FormatSlot(start),
		})
	}
	return alternatives, nil
}
