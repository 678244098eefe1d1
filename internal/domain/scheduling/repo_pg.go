package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

const slotCols = `id, resource_id, slot_date, window_label, start_minute, end_minute,
	capacity, booked_count, is_closed, created_at, updated_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(&s.ID, &s.ResourceID, &s.SlotDate, &s.WindowLabel, &s.StartMinute, &s.EndMinute,
		&s.Capacity, &s.BookedCount, &s.IsClosed, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: slot", ErrNotFound)
	}
	return &s, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *slotRepoPG) Create(ctx context.Context, s *Slot) error {
	s.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO slot (id, resource_id, slot_date, window_label, start_minute, end_minute, capacity)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING booked_count, is_closed, created_at, updated_at`,
		s.ID, s.ResourceID, s.SlotDate, s.WindowLabel, s.StartMinute, s.EndMinute, s.Capacity).
		Scan(&s.BookedCount, &s.IsClosed, &s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: slot already exists for %s %s", ErrConflict, s.SlotDate, s.WindowLabel)
	}
	return err
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.pool.QueryRow(ctx, `SELECT `+slotCols+` FROM slot WHERE id = $1`, id))
}

func (r *slotRepoPG) ListAvailable(ctx context.Context, resourceID, date string) ([]*Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotCols+` FROM slot
		WHERE resource_id = $1 AND slot_date = $2 AND NOT is_closed AND booked_count < capacity
		ORDER BY start_minute`, resourceID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *slotRepoPG) ListExpired(ctx context.Context, today string, nowMinute int) ([]*Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotCols+` FROM slot
		WHERE NOT is_closed AND (slot_date < $1 OR (slot_date = $1 AND end_minute < $2))
		ORDER BY slot_date, start_minute`, today, nowMinute)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// =========== Booking Repository ===========

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewBookingRepoPG(pool *pgxpool.Pool) BookingRepository { return &bookingRepoPG{pool: pool} }

const bookingCols = `id, slot_id, subject_id, ticket, status, queue_number,
	diagnosis, prescription, fee_minor, notes, reject_reason, checked_in_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.SlotID, &b.SubjectID, &b.Ticket, &b.Status, &b.QueueNumber,
		&b.Diagnosis, &b.Prescription, &b.FeeMinor, &b.Notes, &b.RejectReason, &b.CheckedInAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking", ErrNotFound)
	}
	return &b, err
}

func (r *bookingRepoPG) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Reserve locks the slot row, re-checks capacity under the lock, increments
// booked_count, and inserts the booking. Concurrent reservations against the
// same slot queue up on the row lock, so capacity can never be oversold.
func (r *bookingRepoPG) Reserve(ctx context.Context, resourceID, date, windowLabel string, b *Booking) (*Slot, error) {
	var slot *Slot
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		slot, err = scanSlot(tx.QueryRow(ctx, `
			SELECT `+slotCols+` FROM slot
			WHERE resource_id = $1 AND slot_date = $2 AND window_label = $3
			FOR UPDATE`, resourceID, date, windowLabel))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: slot not available", ErrNotFound)
			}
			return err
		}
		if slot.IsClosed {
			return fmt.Errorf("%w: slot is closed", ErrConflict)
		}
		if slot.BookedCount >= slot.Capacity {
			return fmt.Errorf("%w: slot is full", ErrConflict)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE slot SET booked_count = booked_count + 1, updated_at = NOW()
			WHERE id = $1`, slot.ID); err != nil {
			return err
		}
		slot.BookedCount++

		b.ID = uuid.New()
		b.SlotID = slot.ID
		b.Status = StatusBooked
		return tx.QueryRow(ctx, `
			INSERT INTO booking (id, slot_id, subject_id, ticket, status)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING created_at, updated_at`,
			b.ID, b.SlotID, b.SubjectID, b.Ticket, b.Status).
			Scan(&b.CreatedAt, &b.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE id = $1`, id))
}

func (r *bookingRepoPG) GetByTicket(ctx context.Context, ticket string) (*Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE ticket = $1`, ticket))
}

// AssignQueueNumber locks the slot row, counts bookings that already hold a
// queue number, and assigns count+1. The slot lock serializes concurrent
// check-ins, so numbers come out gap-free and unique per slot.
func (r *bookingRepoPG) AssignQueueNumber(ctx context.Context, bookingID uuid.UUID) (int, error) {
	var assigned int
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE id = $1`, bookingID))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `SELECT 1 FROM slot WHERE id = $1 FOR UPDATE`, b.SlotID); err != nil {
			return err
		}

		// Re-read under the lock; a concurrent sweep may have rejected it.
		b, err = scanBooking(tx.QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE id = $1`, bookingID))
		if err != nil {
			return err
		}
		if b.Status != StatusBooked {
			return fmt.Errorf("%w: booking is %s", ErrInvalidState, b.Status)
		}

		var taken int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM booking WHERE slot_id = $1 AND queue_number IS NOT NULL`,
			b.SlotID).Scan(&taken); err != nil {
			return err
		}
		assigned = taken + 1

		_, err = tx.Exec(ctx, `
			UPDATE booking SET status = $2, queue_number = $3, checked_in_at = NOW(), updated_at = NOW()
			WHERE id = $1`, bookingID, StatusCheckedIn, assigned)
		return err
	})
	if err != nil {
		return 0, err
	}
	return assigned, nil
}

func (r *bookingRepoPG) ListQueue(ctx context.Context, resourceID, date string, limit, offset int) ([]*Booking, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM booking b
		JOIN slot s ON s.id = b.slot_id
		WHERE s.resource_id = $1 AND s.slot_date = $2 AND b.status = $3`,
		resourceID, date, StatusCheckedIn).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.slot_id, b.subject_id, b.ticket, b.status, b.queue_number,
			b.diagnosis, b.prescription, b.fee_minor, b.notes, b.reject_reason, b.checked_in_at, b.created_at, b.updated_at
		FROM booking b
		JOIN slot s ON s.id = b.slot_id
		WHERE s.resource_id = $1 AND s.slot_date = $2 AND b.status = $3
		ORDER BY b.queue_number
		LIMIT $4 OFFSET $5`, resourceID, date, StatusCheckedIn, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (r *bookingRepoPG) CurrentlyServing(ctx context.Context, slotID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(queue_number), 0) FROM booking
		WHERE slot_id = $1 AND status = $2`, slotID, StatusConsulted).Scan(&n)
	return n, err
}

func (r *bookingRepoPG) CountAhead(ctx context.Context, slotID uuid.UUID, queueNumber int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM booking
		WHERE slot_id = $1 AND status = $2 AND queue_number < $3`,
		slotID, StatusCheckedIn, queueNumber).Scan(&n)
	return n, err
}

func (r *bookingRepoPG) CountCheckedInToday(ctx context.Context, resourceID, date string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM booking b
		JOIN slot s ON s.id = b.slot_id
		WHERE s.resource_id = $1 AND s.slot_date = $2 AND b.queue_number IS NOT NULL`,
		resourceID, date).Scan(&n)
	return n, err
}

func (r *bookingRepoPG) RecordConsultation(ctx context.Context, bookingID uuid.UUID, p ConsultationPayload) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE booking SET status = $2, diagnosis = $3, prescription = $4, fee_minor = $5, notes = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7`,
		bookingID, StatusConsulted, p.Diagnosis, p.Prescription, p.FeeMinor, p.Notes, StatusCheckedIn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.statusError(ctx, bookingID, StatusCheckedIn)
	}
	return nil
}

func (r *bookingRepoPG) Complete(ctx context.Context, bookingID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE booking SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($3, $4)`,
		bookingID, StatusCompleted, StatusRejected, StatusCompleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		b, err := r.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == StatusCompleted {
			return nil // already completed, idempotent
		}
		return fmt.Errorf("%w: booking is %s", ErrInvalidState, b.Status)
	}
	return nil
}

// Reject releases a booked booking's capacity unit along with the status
// change, keeping booked_count equal to the count of non-rejected bookings.
func (r *bookingRepoPG) Reject(ctx context.Context, bookingID uuid.UUID, reason string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE booking SET status = $2, reject_reason = $4, updated_at = NOW()
			WHERE id = $1 AND status = $3`,
			bookingID, StatusRejected, StatusBooked, reason)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.statusError(ctx, bookingID, StatusBooked)
		}
		_, err = tx.Exec(ctx, `
			UPDATE slot SET booked_count = booked_count - 1, updated_at = NOW()
			WHERE id = (SELECT slot_id FROM booking WHERE id = $1)`, bookingID)
		return err
	})
}

func (r *bookingRepoPG) CloseSlot(ctx context.Context, slotID uuid.UUID) ([]*Booking, error) {
	var rejected []*Booking
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		slot, err := scanSlot(tx.QueryRow(ctx, `SELECT `+slotCols+` FROM slot WHERE id = $1 FOR UPDATE`, slotID))
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			UPDATE booking SET status = $2, reject_reason = 'no show', updated_at = NOW()
			WHERE slot_id = $1 AND status = $3
			RETURNING `+bookingCols, slotID, StatusRejected, StatusBooked)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			b, err := scanBooking(rows)
			if err != nil {
				return err
			}
			rejected = append(rejected, b)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		newCount := slot.BookedCount - len(rejected)
		if newCount < 0 {
			newCount = 0
		}
		_, err = tx.Exec(ctx, `
			UPDATE slot SET is_closed = TRUE, booked_count = $2, updated_at = NOW()
			WHERE id = $1`, slotID, newCount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

func (r *bookingRepoPG) statusError(ctx context.Context, bookingID uuid.UUID, want BookingStatus) error {
	b, err := r.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: booking is %s, want %s", ErrInvalidState, b.Status, want)
}
