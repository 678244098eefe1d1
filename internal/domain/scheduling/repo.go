package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// SlotRepository is the storage port for slots.
type SlotRepository interface {
	// Create inserts a slot. Returns ErrConflict if a slot already exists
	// for the same (resource_id, slot_date, window_label).
	Create(ctx context.Context, s *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	// ListAvailable returns open slots with spare capacity for a resource
	// and date, ordered by window start.
	ListAvailable(ctx context.Context, resourceID, date string) ([]*Slot, error)
	// ListExpired returns open slots whose window has fully elapsed: every
	// slot dated before today, plus today's slots with end_minute < nowMinute.
	ListExpired(ctx context.Context, today string, nowMinute int) ([]*Slot, error)
}

// BookingRepository is the storage port for bookings. The two atomicity
// critical operations, Reserve and AssignQueueNumber, must serialize per
// slot: implementations lock the slot row (or an equivalent per-slot mutex)
// for the whole read-check-write sequence.
type BookingRepository interface {
	// Reserve atomically checks the slot identified by (resourceID, date,
	// windowLabel) for spare capacity, increments booked_count, and inserts
	// the booking with status booked. Returns ErrNotFound if no open slot
	// matches, ErrConflict if capacity is exhausted or the slot is closed.
	Reserve(ctx context.Context, resourceID, date, windowLabel string, b *Booking) (*Slot, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByTicket(ctx context.Context, ticket string) (*Booking, error)

	// AssignQueueNumber atomically counts the slot's bookings that already
	// hold a queue number and assigns count+1 to this booking, moving it to
	// checked_in. Returns ErrInvalidState if the booking is not in booked
	// status by the time the lock is held.
	AssignQueueNumber(ctx context.Context, bookingID uuid.UUID) (int, error)

	// ListQueue returns a page of checked-in bookings for a resource and
	// date, ordered by queue number ascending, along with the total count
	// before limit/offset.
	ListQueue(ctx context.Context, resourceID, date string, limit, offset int) ([]*Booking, int, error)
	// CurrentlyServing returns the highest queue number among consulted
	// bookings in the slot, or 0 if nobody has been served yet.
	CurrentlyServing(ctx context.Context, slotID uuid.UUID) (int, error)
	// CountAhead returns checked-in bookings in the slot with a queue
	// number strictly below the given one.
	CountAhead(ctx context.Context, slotID uuid.UUID, queueNumber int) (int, error)
	// CountCheckedInToday counts bookings for the resource and date that
	// hold a queue number, whatever their later status.
	CountCheckedInToday(ctx context.Context, resourceID, date string) (int, error)

	// RecordConsultation stores the served payload and moves the booking
	// from checked_in to consulted. ErrInvalidState on any other status.
	RecordConsultation(ctx context.Context, bookingID uuid.UUID, p ConsultationPayload) error
	// Complete moves the booking to completed. ErrInvalidState if rejected.
	Complete(ctx context.Context, bookingID uuid.UUID) error
	// Reject moves a booked booking to rejected, recording the reason, and
	// releases its capacity unit. ErrInvalidState on any other status.
	Reject(ctx context.Context, bookingID uuid.UUID, reason string) error

	// CloseSlot sets is_closed, rejects every booking still in booked
	// status as a no-show, and releases their capacity units, all in one
	// transaction. Returns the bookings it rejected. Idempotent on
	// already-closed slots.
	CloseSlot(ctx context.Context, slotID uuid.UUID) ([]*Booking, error)
}
