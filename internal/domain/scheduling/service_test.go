package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/platform/notification"
	"github.com/clinicq/clinicq/internal/platform/verify"
)

const (
	testResource = "doc-1"
	testDate     = "2026-09-01"
	testWindow   = "10:00AM-11:00AM"
)

// testClock is 10:05 on the test date, inside the test window.
var testClock = time.Date(2026, 9, 1, 10, 5, 0, 0, time.UTC)

type stubSubjects struct {
	mu       sync.Mutex
	subjects map[uuid.UUID]*SubjectInfo
}

func newStubSubjects() *stubSubjects {
	return &stubSubjects{subjects: make(map[uuid.UUID]*SubjectInfo)}
}

func (s *stubSubjects) add(kind string, owner uuid.UUID) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.subjects[id] = &SubjectInfo{ID: id, Kind: kind, Name: "Subject " + id.String()[:8], Phone: "+91990011", OwnerID: owner}
	return id
}

func (s *stubSubjects) Lookup(_ context.Context, id uuid.UUID) (*SubjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subj, ok := s.subjects[id]
	if !ok {
		return nil, fmt.Errorf("%w: subject", ErrNotFound)
	}
	return subj, nil
}

type testEnv struct {
	svc      *Service
	store    *MemStore
	subjects *stubSubjects
	verifier *verify.StaticVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := NewMemStore()
	subjects := newStubSubjects()
	verifier := verify.NewStaticVerifier(testResource)
	svc := NewService(store.SlotRepo(), store.BookingRepo(), subjects, verifier,
		notification.NopNotifier{}, time.UTC, zerolog.Nop())
	svc.SetClock(func() time.Time { return testClock })
	return &testEnv{svc: svc, store: store, subjects: subjects, verifier: verifier}
}

func (e *testEnv) mustSlot(t *testing.T, capacity int) *Slot {
	t.Helper()
	slot, err := e.svc.CreateSlot(context.Background(), testResource, testDate, testWindow, capacity)
	if err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	return slot
}

func (e *testEnv) mustBooking(t *testing.T) *Booking {
	t.Helper()
	subjID := e.subjects.add("patient", uuid.Nil)
	b, err := e.svc.CreateBooking(context.Background(), testResource, testDate, testWindow, subjID, subjID)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return b
}

func TestCreateSlot(t *testing.T) {
	env := newTestEnv(t)
	slot := env.mustSlot(t, 0)

	if slot.Capacity != 1 {
		t.Errorf("capacity = %d, want default 1", slot.Capacity)
	}
	if slot.StartMinute != 600 || slot.EndMinute != 660 {
		t.Errorf("window minutes = (%d, %d)", slot.StartMinute, slot.EndMinute)
	}
	if slot.IsClosed || slot.BookedCount != 0 {
		t.Errorf("fresh slot = %+v", slot)
	}
}

func TestCreateSlotDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 2)
	_, err := env.svc.CreateSlot(context.Background(), testResource, testDate, testWindow, 2)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate slot err = %v, want ErrConflict", err)
	}
}

func TestCreateSlotUnverifiedResource(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateSlot(context.Background(), "doc-unverified", testDate, testWindow, 1)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCreateSlotBadWindow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateSlot(context.Background(), testResource, testDate, "11:00AM-10:00AM", 1)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestListAvailableExcludesFullAndClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustSlot(t, 1)
	later, err := env.svc.CreateSlot(ctx, testResource, testDate, "2:00PM-3:00PM", 1)
	if err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}

	env.mustBooking(t) // fills the 10AM slot

	slots, err := env.svc.ListAvailable(ctx, testResource, testDate)
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(slots) != 1 || slots[0].ID != later.ID {
		t.Fatalf("available = %v, want only the 2PM slot", slots)
	}

	if _, err := env.svc.EndSession(ctx, later.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	slots, err = env.svc.ListAvailable(ctx, testResource, testDate)
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("available after close = %v, want none", slots)
	}
}

func TestCreateBookingIssuesTicket(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 2)
	b := env.mustBooking(t)

	if b.Ticket == "" || b.Status != StatusBooked {
		t.Errorf("booking = %+v", b)
	}
}

func TestCreateBookingNoSlot(t *testing.T) {
	env := newTestEnv(t)
	subjID := env.subjects.add("patient", uuid.Nil)
	_, err := env.svc.CreateBooking(context.Background(), testResource, testDate, testWindow, subjID, subjID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateBookingFamilyOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 5)
	ctx := context.Background()

	owner := env.subjects.add("patient", uuid.Nil)
	child := env.subjects.add("family", owner)
	stranger := env.subjects.add("patient", uuid.Nil)

	if _, err := env.svc.CreateBooking(ctx, testResource, testDate, testWindow, child, owner); err != nil {
		t.Errorf("owner booking own family member: %v", err)
	}
	_, err := env.svc.CreateBooking(ctx, testResource, testDate, testWindow, child, stranger)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("stranger booking family member err = %v, want ErrValidation", err)
	}
}

// Scenario: capacity 2, three concurrent bookings, exactly two succeed.
func TestCapacitySafetyConcurrent(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 2)
	ctx := context.Background()

	const n = 3
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subjID := env.subjects.add("patient", uuid.Nil)
			_, err := env.svc.CreateBooking(ctx, testResource, testDate, testWindow, subjID, subjID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 2 || conflicts != 1 {
		t.Errorf("successes = %d, conflicts = %d, want 2 and 1", ok, conflicts)
	}
}

func TestCheckInAssignsQueueNumber(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 5)
	b := env.mustBooking(t)

	n, err := env.svc.CheckIn(context.Background(), b.Ticket)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if n != 1 {
		t.Errorf("queue number = %d, want 1", n)
	}
}

func TestCheckInIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 5)
	first := env.mustBooking(t)
	second := env.mustBooking(t)

	ctx := context.Background()
	if _, err := env.svc.CheckIn(ctx, first.Ticket); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	n, err := env.svc.CheckIn(ctx, second.Ticket)
	if err != nil || n != 2 {
		t.Fatalf("second CheckIn = (%d, %v), want (2, nil)", n, err)
	}

	// Repeating returns the same number and admits nobody new.
	again, err := env.svc.CheckIn(ctx, second.Ticket)
	if err != nil || again != 2 {
		t.Fatalf("repeat CheckIn = (%d, %v), want (2, nil)", again, err)
	}
	total, err := env.store.BookingRepo().CountCheckedInToday(ctx, testResource, testDate)
	if err != nil || total != 2 {
		t.Fatalf("checked-in count = (%d, %v), want 2", total, err)
	}
}

func TestCheckInOutsideWindow(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)

	env.svc.SetClock(func() time.Time { return time.Date(2026, 9, 1, 9, 58, 0, 0, time.UTC) })
	if _, err := env.svc.CheckIn(context.Background(), b.Ticket); !errors.Is(err, ErrValidation) {
		t.Errorf("09:58 check-in err = %v, want ErrValidation", err)
	}

	env.svc.SetClock(func() time.Time { return testClock })
	n, err := env.svc.CheckIn(context.Background(), b.Ticket)
	if err != nil || n != 1 {
		t.Errorf("10:05 check-in = (%d, %v), want (1, nil)", n, err)
	}
}

func TestCheckInWrongDate(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)

	env.svc.SetClock(func() time.Time { return time.Date(2026, 9, 2, 10, 5, 0, 0, time.UTC) })
	if _, err := env.svc.CheckIn(context.Background(), b.Ticket); !errors.Is(err, ErrValidation) {
		t.Errorf("next-day check-in err = %v, want ErrValidation", err)
	}
}

func TestCheckInUnknownTicket(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.CheckIn(context.Background(), "deadbeef"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCheckInRejectedBooking(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)

	if err := env.svc.MarkPaymentFailed(context.Background(), b.Ticket); err != nil {
		t.Fatalf("MarkPaymentFailed: %v", err)
	}
	if _, err := env.svc.CheckIn(context.Background(), b.Ticket); !errors.Is(err, ErrInvalidState) {
		t.Errorf("rejected check-in err = %v, want ErrInvalidState", err)
	}
}

// Queue numbers come out unique and gap-free under concurrent check-ins.
func TestQueueUniquenessConcurrent(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 20)
	ctx := context.Background()

	const m = 10
	tickets := make([]string, m)
	for i := range tickets {
		tickets[i] = env.mustBooking(t).Ticket
	}

	numbers := make(chan int, m)
	var wg sync.WaitGroup
	for _, ticket := range tickets {
		wg.Add(1)
		go func(tk string) {
			defer wg.Done()
			n, err := env.svc.CheckIn(ctx, tk)
			if err != nil {
				t.Errorf("CheckIn: %v", err)
				return
			}
			numbers <- n
		}(ticket)
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for n := range numbers {
		if seen[n] {
			t.Errorf("duplicate queue number %d", n)
		}
		seen[n] = true
	}
	for want := 1; want <= m; want++ {
		if !seen[want] {
			t.Errorf("missing queue number %d", want)
		}
	}
}

// Scenario: five in queue, number 2 consulted; number 4 sees serving=2, ahead=2.
func TestGetStatusProjection(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 10)
	ctx := context.Background()

	bookings := make([]*Booking, 5)
	for i := range bookings {
		bookings[i] = env.mustBooking(t)
		if _, err := env.svc.CheckIn(ctx, bookings[i].Ticket); err != nil {
			t.Fatalf("CheckIn: %v", err)
		}
	}

	if err := env.svc.Consult(ctx, bookings[1].ID, ConsultationPayload{Diagnosis: "flu", FeeMinor: 50000}); err != nil {
		t.Fatalf("Consult: %v", err)
	}

	status, err := env.svc.GetStatus(ctx, bookings[3].Ticket)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.YourQueueNumber != 4 {
		t.Errorf("your number = %d, want 4", status.YourQueueNumber)
	}
	if status.CurrentlyServing != 2 {
		t.Errorf("currently serving = %d, want 2", status.CurrentlyServing)
	}
	if status.PeopleAhead != 2 {
		t.Errorf("people ahead = %d, want 2 (numbers 1 and 3)", status.PeopleAhead)
	}
	if status.TotalCheckedInToday != 5 {
		t.Errorf("total checked in = %d, want 5", status.TotalCheckedInToday)
	}
}

func TestGetStatusBeforeCheckIn(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)

	if _, err := env.svc.GetStatus(context.Background(), b.Ticket); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestGetQueueOrder(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b := env.mustBooking(t)
		if _, err := env.svc.CheckIn(ctx, b.Ticket); err != nil {
			t.Fatalf("CheckIn: %v", err)
		}
	}

	queue, total, err := env.svc.GetQueue(ctx, testResource, testDate, 20, 0)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if total != 3 {
		t.Fatalf("queue total = %d, want 3", total)
	}
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}
	for i, b := range queue {
		if *b.QueueNumber != i+1 {
			t.Errorf("queue[%d] number = %d, want %d", i, *b.QueueNumber, i+1)
		}
	}

	page, total, err := env.svc.GetQueue(ctx, testResource, testDate, 2, 2)
	if err != nil {
		t.Fatalf("GetQueue page: %v", err)
	}
	if total != 3 || len(page) != 1 || *page[0].QueueNumber != 3 {
		t.Errorf("page = %d items, total %d, want 1 item (number 3) of 3", len(page), total)
	}
}

func TestConsultRequiresCheckedIn(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)

	err := env.svc.Consult(context.Background(), b.ID, ConsultationPayload{Diagnosis: "flu"})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("consult on booked err = %v, want ErrInvalidState", err)
	}
}

func TestConsultStoresPayload(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)
	ctx := context.Background()

	if _, err := env.svc.CheckIn(ctx, b.Ticket); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	payload := ConsultationPayload{Diagnosis: "viral fever", Prescription: "rest, fluids", FeeMinor: 75000, Notes: "follow up in a week"}
	if err := env.svc.Consult(ctx, b.ID, payload); err != nil {
		t.Fatalf("Consult: %v", err)
	}

	stored, err := env.store.BookingRepo().GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != StatusConsulted {
		t.Errorf("status = %s, want consulted", stored.Status)
	}
	if stored.Diagnosis == nil || *stored.Diagnosis != payload.Diagnosis {
		t.Errorf("diagnosis = %v", stored.Diagnosis)
	}
	if stored.FeeMinor == nil || *stored.FeeMinor != payload.FeeMinor {
		t.Errorf("fee = %v", stored.FeeMinor)
	}
}

func TestCompleteBooking(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)
	ctx := context.Background()

	if _, err := env.svc.CheckIn(ctx, b.Ticket); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if err := env.svc.Consult(ctx, b.ID, ConsultationPayload{FeeMinor: 50000}); err != nil {
		t.Fatalf("Consult: %v", err)
	}
	if err := env.svc.CompleteBooking(ctx, b.Ticket); err != nil {
		t.Fatalf("CompleteBooking: %v", err)
	}

	// Repeat completion is a no-op; consult can no longer touch it.
	if err := env.svc.CompleteBooking(ctx, b.Ticket); err != nil {
		t.Errorf("repeat CompleteBooking: %v", err)
	}
	if err := env.svc.Consult(ctx, b.ID, ConsultationPayload{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("consult on completed err = %v, want ErrInvalidState", err)
	}
}

func TestCompleteRejectedBooking(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)
	ctx := context.Background()

	if err := env.svc.MarkPaymentFailed(ctx, b.Ticket); err != nil {
		t.Fatalf("MarkPaymentFailed: %v", err)
	}
	if err := env.svc.CompleteBooking(ctx, b.Ticket); !errors.Is(err, ErrInvalidState) {
		t.Errorf("complete on rejected err = %v, want ErrInvalidState", err)
	}
}

func TestMarkPaymentFailedReleasesCapacity(t *testing.T) {
	env := newTestEnv(t)
	slot := env.mustSlot(t, 1)
	b := env.mustBooking(t)
	ctx := context.Background()

	if err := env.svc.MarkPaymentFailed(ctx, b.Ticket); err != nil {
		t.Fatalf("MarkPaymentFailed: %v", err)
	}

	got, err := env.store.SlotRepo().GetByID(ctx, slot.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.BookedCount != 0 {
		t.Errorf("booked count = %d, want 0 after rejection", got.BookedCount)
	}

	rb, err := env.store.BookingRepo().GetByTicket(ctx, b.Ticket)
	if err != nil {
		t.Fatalf("GetByTicket: %v", err)
	}
	if rb.RejectReason == nil || *rb.RejectReason != "payment failed" {
		t.Errorf("reject reason = %v, want %q", rb.RejectReason, "payment failed")
	}

	// The freed unit can be booked again.
	env.mustBooking(t)
}

func TestMarkPaymentFailedOnCheckedIn(t *testing.T) {
	env := newTestEnv(t)
	env.mustSlot(t, 1)
	b := env.mustBooking(t)
	ctx := context.Background()

	if _, err := env.svc.CheckIn(ctx, b.Ticket); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if err := env.svc.MarkPaymentFailed(ctx, b.Ticket); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

// Scenario: end session rejects the no-show, spares the checked-in booking,
// and closes the slot to further bookings.
func TestEndSession(t *testing.T) {
	env := newTestEnv(t)
	slot := env.mustSlot(t, 5)
	ctx := context.Background()

	noShow := env.mustBooking(t)
	arrived := env.mustBooking(t)
	if _, err := env.svc.CheckIn(ctx, arrived.Ticket); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	rejected, err := env.svc.EndSession(ctx, slot.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}

	repo := env.store.BookingRepo()
	ns, _ := repo.GetByTicket(ctx, noShow.Ticket)
	if ns.Status != StatusRejected {
		t.Errorf("no-show status = %s, want rejected", ns.Status)
	}
	if ns.RejectReason == nil || *ns.RejectReason != "no show" {
		t.Errorf("no-show reason = %v, want %q", ns.RejectReason, "no show")
	}
	ar, _ := repo.GetByTicket(ctx, arrived.Ticket)
	if ar.Status != StatusCheckedIn || *ar.QueueNumber != 1 {
		t.Errorf("arrived booking mutated by sweep: %+v", ar)
	}

	got, _ := env.store.SlotRepo().GetByID(ctx, slot.ID)
	if !got.IsClosed {
		t.Error("slot not closed")
	}

	subjID := env.subjects.add("patient", uuid.Nil)
	if _, err := env.svc.CreateBooking(ctx, testResource, testDate, testWindow, subjID, subjID); !errors.Is(err, ErrConflict) {
		t.Errorf("booking on closed slot err = %v, want ErrConflict", err)
	}
}

func TestEndSessionUnknownSlot(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.EndSession(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSweepExpiredSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustSlot(t, 5) // 10-11AM, still running at the test clock
	morning, err := env.svc.CreateSlot(ctx, testResource, testDate, "8:00AM-9:00AM", 5)
	if err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	noShow := env.mustBookingInWindow(t, "8:00AM-9:00AM")

	swept, err := env.svc.SweepExpiredSlots(ctx)
	if err != nil {
		t.Fatalf("SweepExpiredSlots: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1 (only the elapsed morning slot)", swept)
	}

	got, _ := env.store.SlotRepo().GetByID(ctx, morning.ID)
	if !got.IsClosed {
		t.Error("morning slot not closed")
	}
	b, _ := env.store.BookingRepo().GetByTicket(ctx, noShow.Ticket)
	if b.Status != StatusRejected {
		t.Errorf("no-show status = %s, want rejected", b.Status)
	}

	// Running again sweeps nothing new.
	swept, err = env.svc.SweepExpiredSlots(ctx)
	if err != nil || swept != 0 {
		t.Errorf("second sweep = (%d, %v), want (0, nil)", swept, err)
	}
}

func (e *testEnv) mustBookingInWindow(t *testing.T, window string) *Booking {
	t.Helper()
	subjID := e.subjects.add("patient", uuid.Nil)
	b, err := e.svc.CreateBooking(context.Background(), testResource, testDate, window, subjID, subjID)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return b
}

func TestBookingNotificationSent(t *testing.T) {
	store := NewMemStore()
	subjects := newStubSubjects()
	sms := &notification.MockSMSSender{}
	manager := notification.NewManager(&notification.MockEmailSender{}, sms, notification.NewTemplateEngine())
	svc := NewService(store.SlotRepo(), store.BookingRepo(), subjects, verify.NewStaticVerifier(testResource),
		notification.NewBestEffort(manager, zerolog.Nop()), time.UTC, zerolog.Nop())
	svc.SetClock(func() time.Time { return testClock })

	ctx := context.Background()
	if _, err := svc.CreateSlot(ctx, testResource, testDate, testWindow, 1); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	subjID := subjects.add("patient", uuid.Nil)
	if _, err := svc.CreateBooking(ctx, testResource, testDate, testWindow, subjID, subjID); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if len(sms.Calls()) != 1 {
		t.Errorf("sms calls = %d, want 1", len(sms.Calls()))
	}
}
