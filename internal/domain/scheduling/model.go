package scheduling

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking. Transitions only move
// forward: booked -> checked_in -> consulted -> completed, or
// booked -> rejected. Rejected and completed are terminal.
type BookingStatus string

const (
	StatusBooked    BookingStatus = "booked"
	StatusCheckedIn BookingStatus = "checked_in"
	StatusConsulted BookingStatus = "consulted"
	StatusCompleted BookingStatus = "completed"
	StatusRejected  BookingStatus = "rejected"
)

// Terminal reports whether no further transition may leave the status.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

const dateLayout = "2006-01-02"

// ParseDate validates a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrValidation, s)
	}
	return t.Format(dateLayout), nil
}

// TimeWindow is a same-day interval expressed as minutes after midnight.
// It is parsed once, at slot creation; check-in only compares integers.
type TimeWindow struct {
	Label       string `json:"label"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

// Contains reports whether the given minute-of-day falls inside the window,
// boundaries included.
func (w TimeWindow) Contains(minute int) bool {
	return minute >= w.StartMinute && minute <= w.EndMinute
}

var clockLayouts = []string{"3:04PM", "3.04PM", "15:04", "15.04"}

func parseClock(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("unparseable clock time %q", s)
}

// ParseWindow parses a window label such as "10:00AM-11:00AM" or
// "10.00AM-11.00AM" into a TimeWindow. The label is preserved verbatim as the
// slot's identity within a resource/date.
func ParseWindow(label string) (TimeWindow, error) {
	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 {
		return TimeWindow{}, fmt.Errorf("%w: window %q must be start-end", ErrValidation, label)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if start > end {
		return TimeWindow{}, fmt.Errorf("%w: window %q ends before it starts", ErrValidation, label)
	}
	return TimeWindow{Label: label, StartMinute: start, EndMinute: end}, nil
}

// Slot maps to the slot table: one bookable time window for a resource on a
// date, with a capacity ceiling and a one-way closed flag.
type Slot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ResourceID  string    `db:"resource_id" json:"resource_id"`
	SlotDate    string    `db:"slot_date" json:"slot_date"`
	WindowLabel string    `db:"window_label" json:"window_label"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	Capacity    int       `db:"capacity" json:"capacity"`
	BookedCount int       `db:"booked_count" json:"booked_count"`
	IsClosed    bool      `db:"is_closed" json:"is_closed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Window returns the slot's parsed time window.
func (s *Slot) Window() TimeWindow {
	return TimeWindow{Label: s.WindowLabel, StartMinute: s.StartMinute, EndMinute: s.EndMinute}
}

// HasCapacity reports whether the slot can accept another booking.
func (s *Slot) HasCapacity() bool {
	return !s.IsClosed && s.BookedCount < s.Capacity
}

// Booking maps to the booking table: one subject's claim on one unit of a
// slot's capacity. The ticket is the only handle handed to the subject.
type Booking struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	SlotID       uuid.UUID     `db:"slot_id" json:"slot_id"`
	SubjectID    uuid.UUID     `db:"subject_id" json:"subject_id"`
	Ticket       string        `db:"ticket" json:"ticket"`
	Status       BookingStatus `db:"status" json:"status"`
	QueueNumber  *int          `db:"queue_number" json:"queue_number,omitempty"`
	Diagnosis    *string       `db:"diagnosis" json:"diagnosis,omitempty"`
	Prescription *string       `db:"prescription" json:"prescription,omitempty"`
	FeeMinor     *int64        `db:"fee_minor" json:"fee_minor,omitempty"`
	Notes        *string       `db:"notes" json:"notes,omitempty"`
	RejectReason *string       `db:"reject_reason" json:"reject_reason,omitempty"`
	CheckedInAt  *time.Time    `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// ConsultationPayload is what the provider records when serving a booking.
// FeeMinor is in the currency's minor unit (paise, cents).
type ConsultationPayload struct {
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	FeeMinor     int64  `json:"fee_minor"`
	Notes        string `json:"notes"`
}

// QueueStatus is the projection a ticket holder sees while waiting.
type QueueStatus struct {
	YourQueueNumber     int `json:"your_queue_number"`
	CurrentlyServing    int `json:"currently_serving_number"`
	PeopleAhead         int `json:"people_ahead_of_you"`
	TotalCheckedInToday int `json:"total_checked_in_today"`
}

// NewTicket returns a 32-character hex string from 16 bytes of crypto/rand.
// Possession of the ticket grants check-in rights; it must not be guessable.
func NewTicket() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate ticket: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}
