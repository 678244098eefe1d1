package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore backs both repositories in memory, guarded by a single mutex. One
// lock for the whole store gives the same per-slot serialization the Postgres
// repos get from row locks. Used in development mode and in tests.
type MemStore struct {
	mu       sync.Mutex
	slots    map[uuid.UUID]*Slot
	bookings map[uuid.UUID]*Booking
	byTicket map[string]uuid.UUID
}

func NewMemStore() *MemStore {
	return &MemStore{
		slots:    make(map[uuid.UUID]*Slot),
		bookings: make(map[uuid.UUID]*Booking),
		byTicket: make(map[string]uuid.UUID),
	}
}

// SlotRepo returns the SlotRepository view of the store.
func (m *MemStore) SlotRepo() SlotRepository { return &memSlotRepo{m} }

// BookingRepo returns the BookingRepository view of the store.
func (m *MemStore) BookingRepo() BookingRepository { return &memBookingRepo{m} }

func copySlot(s *Slot) *Slot {
	cp := *s
	return &cp
}

func copyBooking(b *Booking) *Booking {
	cp := *b
	return &cp
}

// -- SlotRepository --

type memSlotRepo struct{ store *MemStore }

func (r *memSlotRepo) Create(_ context.Context, s *Slot) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.slots {
		if existing.ResourceID == s.ResourceID && existing.SlotDate == s.SlotDate && existing.WindowLabel == s.WindowLabel {
			return fmt.Errorf("%w: slot already exists for %s %s", ErrConflict, s.SlotDate, s.WindowLabel)
		}
	}
	s.ID = uuid.New()
	s.BookedCount = 0
	s.IsClosed = false
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	m.slots[s.ID] = copySlot(s)
	return nil
}

func (r *memSlotRepo) GetByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: slot", ErrNotFound)
	}
	return copySlot(s), nil
}

func (r *memSlotRepo) ListAvailable(_ context.Context, resourceID, date string) ([]*Slot, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Slot
	for _, s := range m.slots {
		if s.ResourceID == resourceID && s.SlotDate == date && s.HasCapacity() {
			items = append(items, copySlot(s))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartMinute < items[j].StartMinute })
	return items, nil
}

func (r *memSlotRepo) ListExpired(_ context.Context, today string, nowMinute int) ([]*Slot, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Slot
	for _, s := range m.slots {
		if s.IsClosed {
			continue
		}
		if s.SlotDate < today || (s.SlotDate == today && s.EndMinute < nowMinute) {
			items = append(items, copySlot(s))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SlotDate != items[j].SlotDate {
			return items[i].SlotDate < items[j].SlotDate
		}
		return items[i].StartMinute < items[j].StartMinute
	})
	return items, nil
}

// -- BookingRepository --

type memBookingRepo struct{ store *MemStore }

func (r *memBookingRepo) Reserve(_ context.Context, resourceID, date, windowLabel string, b *Booking) (*Slot, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	var slot *Slot
	for _, s := range m.slots {
		if s.ResourceID == resourceID && s.SlotDate == date && s.WindowLabel == windowLabel {
			slot = s
			break
		}
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: slot not available", ErrNotFound)
	}
	if slot.IsClosed {
		return nil, fmt.Errorf("%w: slot is closed", ErrConflict)
	}
	if slot.BookedCount >= slot.Capacity {
		return nil, fmt.Errorf("%w: slot is full", ErrConflict)
	}

	slot.BookedCount++
	slot.UpdatedAt = time.Now().UTC()

	b.ID = uuid.New()
	b.SlotID = slot.ID
	b.Status = StatusBooked
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = copyBooking(b)
	m.byTicket[b.Ticket] = b.ID
	return copySlot(slot), nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking", ErrNotFound)
	}
	return copyBooking(b), nil
}

func (r *memBookingRepo) GetByTicket(_ context.Context, ticket string) (*Booking, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byTicket[ticket]
	if !ok {
		return nil, fmt.Errorf("%w: booking", ErrNotFound)
	}
	return copyBooking(m.bookings[id]), nil
}

func (r *memBookingRepo) AssignQueueNumber(_ context.Context, bookingID uuid.UUID) (int, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[bookingID]
	if !ok {
		return 0, fmt.Errorf("%w: booking", ErrNotFound)
	}
	if b.Status != StatusBooked {
		return 0, fmt.Errorf("%w: booking is %s", ErrInvalidState, b.Status)
	}

	taken := 0
	for _, other := range m.bookings {
		if other.SlotID == b.SlotID && other.QueueNumber != nil {
			taken++
		}
	}
	assigned := taken + 1
	now := time.Now().UTC()
	b.Status = StatusCheckedIn
	b.QueueNumber = &assigned
	b.CheckedInAt = &now
	b.UpdatedAt = now
	return assigned, nil
}

func (r *memBookingRepo) ListQueue(_ context.Context, resourceID, date string, limit, offset int) ([]*Booking, int, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Booking
	for _, b := range m.bookings {
		if b.Status != StatusCheckedIn {
			continue
		}
		s := m.slots[b.SlotID]
		if s != nil && s.ResourceID == resourceID && s.SlotDate == date {
			items = append(items, copyBooking(b))
		}
	}
	sort.Slice(items, func(i, j int) bool { return *items[i].QueueNumber < *items[j].QueueNumber })
	total := len(items)
	if offset >= total {
		return nil, total, nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, total, nil
}

func (r *memBookingRepo) CurrentlyServing(_ context.Context, slotID uuid.UUID) (int, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	highest := 0
	for _, b := range m.bookings {
		if b.SlotID == slotID && b.Status == StatusConsulted && b.QueueNumber != nil && *b.QueueNumber > highest {
			highest = *b.QueueNumber
		}
	}
	return highest, nil
}

func (r *memBookingRepo) CountAhead(_ context.Context, slotID uuid.UUID, queueNumber int) (int, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.SlotID == slotID && b.Status == StatusCheckedIn && b.QueueNumber != nil && *b.QueueNumber < queueNumber {
			n++
		}
	}
	return n, nil
}

func (r *memBookingRepo) CountCheckedInToday(_ context.Context, resourceID, date string) (int, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.QueueNumber == nil {
			continue
		}
		s := m.slots[b.SlotID]
		if s != nil && s.ResourceID == resourceID && s.SlotDate == date {
			n++
		}
	}
	return n, nil
}

func (r *memBookingRepo) RecordConsultation(_ context.Context, bookingID uuid.UUID, p ConsultationPayload) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: booking", ErrNotFound)
	}
	if b.Status != StatusCheckedIn {
		return fmt.Errorf("%w: booking is %s, want %s", ErrInvalidState, b.Status, StatusCheckedIn)
	}
	b.Status = StatusConsulted
	b.Diagnosis = &p.Diagnosis
	b.Prescription = &p.Prescription
	b.FeeMinor = &p.FeeMinor
	b.Notes = &p.Notes
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memBookingRepo) Complete(_ context.Context, bookingID uuid.UUID) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: booking", ErrNotFound)
	}
	switch b.Status {
	case StatusCompleted:
		return nil
	case StatusRejected:
		return fmt.Errorf("%w: booking is %s", ErrInvalidState, b.Status)
	}
	b.Status = StatusCompleted
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memBookingRepo) Reject(_ context.Context, bookingID uuid.UUID, reason string) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: booking", ErrNotFound)
	}
	if b.Status != StatusBooked {
		return fmt.Errorf("%w: booking is %s, want %s", ErrInvalidState, b.Status, StatusBooked)
	}
	b.Status = StatusRejected
	b.RejectReason = &reason
	b.UpdatedAt = time.Now().UTC()
	if s := m.slots[b.SlotID]; s != nil && s.BookedCount > 0 {
		s.BookedCount--
		s.UpdatedAt = b.UpdatedAt
	}
	return nil
}

func (r *memBookingRepo) CloseSlot(_ context.Context, slotID uuid.UUID) ([]*Booking, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return nil, fmt.Errorf("%w: slot", ErrNotFound)
	}

	now := time.Now().UTC()
	noShow := "no show"
	var rejected []*Booking
	for _, b := range m.bookings {
		if b.SlotID == slotID && b.Status == StatusBooked {
			b.Status = StatusRejected
			b.RejectReason = &noShow
			b.UpdatedAt = now
			rejected = append(rejected, copyBooking(b))
		}
	}
	s.IsClosed = true
	s.BookedCount -= len(rejected)
	if s.BookedCount < 0 {
		s.BookedCount = 0
	}
	s.UpdatedAt = now
	return rejected, nil
}
