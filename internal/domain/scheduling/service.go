package scheduling

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/platform/notification"
	"github.com/clinicq/clinicq/internal/platform/verify"
)

// SubjectInfo is the slice of a subject the booking flow needs: who to
// notify, and who owns a family-member record.
type SubjectInfo struct {
	ID      uuid.UUID
	Kind    string
	Name    string
	Phone   string
	OwnerID uuid.UUID
}

// SubjectLookup resolves subject IDs. Implemented by the subject domain.
type SubjectLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*SubjectInfo, error)
}

const subjectKindFamily = "family"

// Service implements the booking core: slot catalog, capacity reservation,
// check-in queueing, queue projections, consultation, and session sweep.
type Service struct {
	slots    SlotRepository
	bookings BookingRepository
	subjects SubjectLookup
	verifier verify.Verifier
	notifier notification.Notifier
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(slots SlotRepository, bookings BookingRepository, subjects SubjectLookup,
	verifier verify.Verifier, notifier notification.Notifier, loc *time.Location, logger zerolog.Logger) *Service {
	return &Service{
		slots:    slots,
		bookings: bookings,
		subjects: subjects,
		verifier: verifier,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides the wall clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) checkVerified(ctx context.Context, resourceID string) error {
	ok, err := s.verifier.IsVerified(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("verify resource %s: %w", resourceID, err)
	}
	if !ok {
		return fmt.Errorf("%w: resource %s is not verified", ErrUnauthorized, resourceID)
	}
	return nil
}

// CreateSlot publishes a bookable window for a verified resource. Capacity
// defaults to 1.
func (s *Service) CreateSlot(ctx context.Context, resourceID, date, windowLabel string, capacity int) (*Slot, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("%w: resource_id is required", ErrValidation)
	}
	if err := s.checkVerified(ctx, resourceID); err != nil {
		return nil, err
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	window, err := ParseWindow(windowLabel)
	if err != nil {
		return nil, err
	}
	if capacity == 0 {
		capacity = 1
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
	}

	slot := &Slot{
		ResourceID:  resourceID,
		SlotDate:    day,
		WindowLabel: window.Label,
		StartMinute: window.StartMinute,
		EndMinute:   window.EndMinute,
		Capacity:    capacity,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// ListAvailable returns open slots with spare capacity, ordered by start time.
func (s *Service) ListAvailable(ctx context.Context, resourceID, date string) ([]*Slot, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.slots.ListAvailable(ctx, resourceID, day)
}

// CreateBooking reserves one capacity unit and issues a check-in ticket.
// callerID is the authenticated subject; booking a family member requires the
// member to belong to the caller.
func (s *Service) CreateBooking(ctx context.Context, resourceID, date, windowLabel string, subjectID, callerID uuid.UUID) (*Booking, error) {
	if err := s.checkVerified(ctx, resourceID); err != nil {
		return nil, err
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	subj, err := s.subjects.Lookup(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subj.Kind == subjectKindFamily && subj.OwnerID != callerID {
		return nil, fmt.Errorf("%w: subject does not belong to the caller", ErrValidation)
	}

	ticket, err := NewTicket()
	if err != nil {
		return nil, err
	}
	booking := &Booking{SubjectID: subjectID, Ticket: ticket}
	slot, err := s.bookings.Reserve(ctx, resourceID, day, windowLabel, booking)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, subj.Phone, "booking-confirmed", map[string]string{
		"name":   subj.Name,
		"date":   slot.SlotDate,
		"window": slot.WindowLabel,
		"ticket": booking.Ticket,
	})
	return booking, nil
}

// CheckIn admits a ticket holder and assigns the next queue number for the
// slot. Repeat check-ins return the already assigned number.
func (s *Service) CheckIn(ctx context.Context, ticket string) (int, error) {
	booking, err := s.bookings.GetByTicket(ctx, ticket)
	if err != nil {
		return 0, err
	}
	if booking.Status == StatusRejected {
		return 0, fmt.Errorf("%w: booking was rejected", ErrInvalidState)
	}
	if booking.QueueNumber != nil {
		return *booking.QueueNumber, nil
	}

	slot, err := s.slots.GetByID(ctx, booking.SlotID)
	if err != nil {
		return 0, err
	}
	if slot.IsClosed {
		return 0, fmt.Errorf("%w: slot is closed", ErrConflict)
	}

	now := s.now().In(s.loc)
	if slot.SlotDate != now.Format(dateLayout) {
		return 0, fmt.Errorf("%w: check-in allowed only on appointment date", ErrValidation)
	}
	if !slot.Window().Contains(now.Hour()*60 + now.Minute()) {
		return 0, fmt.Errorf("%w: outside check-in window", ErrValidation)
	}

	number, err := s.bookings.AssignQueueNumber(ctx, booking.ID)
	if err != nil {
		return 0, err
	}

	if subj, lookupErr := s.subjects.Lookup(ctx, booking.SubjectID); lookupErr == nil {
		s.notifier.Notify(ctx, subj.Phone, "checked-in", map[string]string{
			"name":         subj.Name,
			"queue_number": strconv.Itoa(number),
		})
	}
	return number, nil
}

// GetQueue returns a page of the checked-in bookings for a resource and date
// in serving order, plus the total queue length.
func (s *Service) GetQueue(ctx context.Context, resourceID, date string, limit, offset int) ([]*Booking, int, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, 0, err
	}
	return s.bookings.ListQueue(ctx, resourceID, day, limit, offset)
}

// GetStatus reports the waiting position behind a ticket. The booking must
// have checked in.
func (s *Service) GetStatus(ctx context.Context, ticket string) (*QueueStatus, error) {
	booking, err := s.bookings.GetByTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if booking.QueueNumber == nil {
		return nil, fmt.Errorf("%w: booking has not checked in", ErrInvalidState)
	}

	slot, err := s.slots.GetByID(ctx, booking.SlotID)
	if err != nil {
		return nil, err
	}
	serving, err := s.bookings.CurrentlyServing(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	ahead, err := s.bookings.CountAhead(ctx, slot.ID, *booking.QueueNumber)
	if err != nil {
		return nil, err
	}
	total, err := s.bookings.CountCheckedInToday(ctx, slot.ResourceID, slot.SlotDate)
	if err != nil {
		return nil, err
	}

	return &QueueStatus{
		YourQueueNumber:     *booking.QueueNumber,
		CurrentlyServing:    serving,
		PeopleAhead:         ahead,
		TotalCheckedInToday: total,
	}, nil
}

// Consult records the served payload for a checked-in booking.
func (s *Service) Consult(ctx context.Context, bookingID uuid.UUID, payload ConsultationPayload) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	slot, err := s.slots.GetByID(ctx, booking.SlotID)
	if err != nil {
		return err
	}
	if err := s.checkVerified(ctx, slot.ResourceID); err != nil {
		return err
	}
	return s.bookings.RecordConsultation(ctx, bookingID, payload)
}

// CompleteBooking finalizes a booking after payment confirmation.
func (s *Service) CompleteBooking(ctx context.Context, ticket string) error {
	booking, err := s.bookings.GetByTicket(ctx, ticket)
	if err != nil {
		return err
	}
	return s.bookings.Complete(ctx, booking.ID)
}

// CompleteByID finalizes a booking from the provider side without a payment
// confirmation, for walk-ins settled at the desk.
func (s *Service) CompleteByID(ctx context.Context, bookingID uuid.UUID) error {
	return s.bookings.Complete(ctx, bookingID)
}

// MarkPaymentFailed rejects a still-booked booking whose payment fell
// through, releasing its capacity unit.
func (s *Service) MarkPaymentFailed(ctx context.Context, ticket string) error {
	booking, err := s.bookings.GetByTicket(ctx, ticket)
	if err != nil {
		return err
	}
	return s.bookings.Reject(ctx, booking.ID, "payment failed")
}

// EndSession closes a slot permanently and no-shows every booking that never
// checked in. Checked-in and later bookings are untouched.
func (s *Service) EndSession(ctx context.Context, slotID uuid.UUID) (int, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return 0, err
	}

	rejected, err := s.bookings.CloseSlot(ctx, slotID)
	if err != nil {
		return 0, err
	}
	for _, b := range rejected {
		if subj, lookupErr := s.subjects.Lookup(ctx, b.SubjectID); lookupErr == nil {
			s.notifier.Notify(ctx, subj.Phone, "session-ended", map[string]string{
				"name":   subj.Name,
				"date":   slot.SlotDate,
				"window": slot.WindowLabel,
			})
		}
	}
	return len(rejected), nil
}

// SweepExpiredSlots ends the session on every open slot whose window has
// fully elapsed. Idempotent; safe to run on a timer.
func (s *Service) SweepExpiredSlots(ctx context.Context) (int, error) {
	now := s.now().In(s.loc)
	expired, err := s.slots.ListExpired(ctx, now.Format(dateLayout), now.Hour()*60+now.Minute())
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, slot := range expired {
		rejected, err := s.EndSession(ctx, slot.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("slot_id", slot.ID.String()).Msg("sweep: end session failed")
			continue
		}
		swept++
		if rejected > 0 {
			s.logger.Info().
				Str("slot_id", slot.ID.String()).
				Str("window", slot.WindowLabel).
				Int("no_shows", rejected).
				Msg("sweep: closed expired slot")
		}
	}
	return swept, nil
}
