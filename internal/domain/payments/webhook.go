// Package payments receives asynchronous payment gateway callbacks and maps
// them onto booking transitions: captured finalizes a booking, failed rejects
// a still-booked one.
package payments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/scheduling"
)

const signatureHeader = "X-Webhook-Signature"

const (
	EventCaptured = "payment.captured"
	EventFailed   = "payment.failed"
)

type webhookEvent struct {
	Ticket string `json:"ticket"`
	Event  string `json:"event"`
}

type Handler struct {
	svc    *scheduling.Service
	secret []byte
	logger zerolog.Logger
}

// NewHandler builds the webhook handler. An empty secret disables signature
// verification; only acceptable in development mode.
func NewHandler(svc *scheduling.Service, secret string, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, secret: []byte(secret), logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Gateway callbacks authenticate by signature, not by JWT.
	e.POST("/webhooks/payment", h.Receive)
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	if len(h.secret) == 0 {
		return true
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

func (h *Handler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	if !h.verifySignature(body, c.Request().Header.Get(signatureHeader)) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var event webhookEvent
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed payload")
	}
	if event.Ticket == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket is required")
	}

	ctx := c.Request().Context()
	switch event.Event {
	case EventCaptured:
		err = h.svc.CompleteBooking(ctx, event.Ticket)
	case EventFailed:
		err = h.svc.MarkPaymentFailed(ctx, event.Ticket)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown event")
	}

	if err != nil {
		// The gateway retries on 5xx. State errors are final, so answer 200
		// and log; a booking already past booked cannot be payment-failed.
		if errors.Is(err, scheduling.ErrInvalidState) || errors.Is(err, scheduling.ErrNotFound) {
			h.logger.Warn().Err(err).Str("event", event.Event).Msg("payment webhook ignored")
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.logger.Info().Str("event", event.Event).Msg("payment webhook applied")
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
