package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/scheduling"
	"github.com/clinicq/clinicq/internal/platform/notification"
	"github.com/clinicq/clinicq/internal/platform/verify"
)

const (
	testResource = "doc-1"
	testDate     = "2026-09-01"
	testWindow   = "10:00AM-11:00AM"
	testSecret   = "hook-secret"
)

type stubSubjects struct{ id uuid.UUID }

func (s *stubSubjects) Lookup(context.Context, uuid.UUID) (*scheduling.SubjectInfo, error) {
	return &scheduling.SubjectInfo{ID: s.id, Kind: "patient", Name: "Asha", Phone: "+9199"}, nil
}

func newFixture(t *testing.T) (*Handler, *scheduling.Service, *scheduling.MemStore, string) {
	t.Helper()
	store := scheduling.NewMemStore()
	svc := scheduling.NewService(store.SlotRepo(), store.BookingRepo(), &stubSubjects{id: uuid.New()},
		verify.NewStaticVerifier(testResource), notification.NopNotifier{}, time.UTC, zerolog.Nop())
	svc.SetClock(func() time.Time { return time.Date(2026, 9, 1, 10, 5, 0, 0, time.UTC) })

	ctx := context.Background()
	if _, err := svc.CreateSlot(ctx, testResource, testDate, testWindow, 2); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	booking, err := svc.CreateBooking(ctx, testResource, testDate, testWindow, uuid.New(), uuid.Nil)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	return NewHandler(svc, testSecret, zerolog.Nop()), svc, store, booking.Ticket
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func deliver(h *Handler, body, signature string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	return rec, h.Receive(e.NewContext(req, rec))
}

func TestWebhookPaymentFailed(t *testing.T) {
	h, _, store, ticket := newFixture(t)

	body := `{"ticket":"` + ticket + `","event":"payment.failed"}`
	rec, err := deliver(h, body, sign(body))
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	b, err := store.BookingRepo().GetByTicket(context.Background(), ticket)
	if err != nil {
		t.Fatalf("GetByTicket: %v", err)
	}
	if b.Status != scheduling.StatusRejected {
		t.Errorf("status = %s, want rejected", b.Status)
	}
}

func TestWebhookPaymentCaptured(t *testing.T) {
	h, svc, store, ticket := newFixture(t)
	ctx := context.Background()

	if _, err := svc.CheckIn(ctx, ticket); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	body := `{"ticket":"` + ticket + `","event":"payment.captured"}`
	if _, err := deliver(h, body, sign(body)); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	b, _ := store.BookingRepo().GetByTicket(ctx, ticket)
	if b.Status != scheduling.StatusCompleted {
		t.Errorf("status = %s, want completed", b.Status)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	h, _, _, ticket := newFixture(t)

	body := `{"ticket":"` + ticket + `","event":"payment.failed"}`
	_, err := deliver(h, body, "deadbeef")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
}

func TestWebhookFailedAfterCheckInIsIgnored(t *testing.T) {
	h, svc, store, ticket := newFixture(t)
	ctx := context.Background()

	if _, err := svc.CheckIn(ctx, ticket); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	// A late failure callback must not reject someone already in the queue.
	body := `{"ticket":"` + ticket + `","event":"payment.failed"}`
	rec, err := deliver(h, body, sign(body))
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 so the gateway stops retrying", rec.Code)
	}

	b, _ := store.BookingRepo().GetByTicket(ctx, ticket)
	if b.Status != scheduling.StatusCheckedIn {
		t.Errorf("status = %s, want checked_in untouched", b.Status)
	}
}

func TestWebhookUnknownEvent(t *testing.T) {
	h, _, _, ticket := newFixture(t)

	body := `{"ticket":"` + ticket + `","event":"payment.exploded"}`
	_, err := deliver(h, body, sign(body))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}
