package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicq/clinicq/internal/platform/auth"
	"github.com/clinicq/clinicq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Provider-facing endpoints
	provider := api.Group("", auth.RequireRole("admin", "provider"))
	provider.POST("/slots", h.CreateSlot)
	provider.POST("/slots/:id/end-session", h.EndSession)
	provider.POST("/bookings/:id/consult", h.Consult)
	provider.POST("/bookings/:id/complete", h.Complete)
	provider.GET("/queue", h.GetQueue)

	// Subject-facing endpoints
	api.GET("/slots", h.ListAvailable)
	api.POST("/bookings", h.CreateBooking)
	api.POST("/check-in", h.CheckIn)
	api.GET("/queue/status", h.GetStatus)
}

// httpError maps service error kinds onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type createSlotRequest struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date"`
	Window     string `json:"window"`
	Capacity   int    `json:"capacity"`
}

func (h *Handler) CreateSlot(c echo.Context) error {
	var req createSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	slot, err := h.svc.CreateSlot(c.Request().Context(), req.ResourceID, req.Date, req.Window, req.Capacity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, slot)
}

func (h *Handler) ListAvailable(c echo.Context) error {
	resourceID := c.QueryParam("resource_id")
	date := c.QueryParam("date")
	if resourceID == "" || date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "resource_id and date query parameters are required")
	}
	slots, err := h.svc.ListAvailable(c.Request().Context(), resourceID, date)
	if err != nil {
		return httpError(err)
	}
	if slots == nil {
		slots = []*Slot{}
	}
	return c.JSON(http.StatusOK, slots)
}

type createBookingRequest struct {
	ResourceID string    `json:"resource_id"`
	Date       string    `json:"date"`
	Window     string    `json:"window"`
	SubjectID  uuid.UUID `json:"subject_id"`
}

type createBookingResponse struct {
	BookingID uuid.UUID `json:"booking_id"`
	Ticket    string    `json:"ticket"`
}

func (h *Handler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.SubjectID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id is required")
	}

	callerID := uuid.Nil
	if sid := auth.SubjectIDFromContext(c.Request().Context()); sid != "" {
		if parsed, err := uuid.Parse(sid); err == nil {
			callerID = parsed
		}
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), req.ResourceID, req.Date, req.Window, req.SubjectID, callerID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, createBookingResponse{BookingID: booking.ID, Ticket: booking.Ticket})
}

type checkInRequest struct {
	Ticket string `json:"ticket"`
}

type checkInResponse struct {
	QueueNumber int `json:"queue_number"`
}

func (h *Handler) CheckIn(c echo.Context) error {
	var req checkInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Ticket == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket is required")
	}
	number, err := h.svc.CheckIn(c.Request().Context(), req.Ticket)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, checkInResponse{QueueNumber: number})
}

func (h *Handler) GetQueue(c echo.Context) error {
	resourceID := c.QueryParam("resource_id")
	date := c.QueryParam("date")
	if resourceID == "" || date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "resource_id and date query parameters are required")
	}
	pg := pagination.FromContext(c)
	queue, total, err := h.svc.GetQueue(c.Request().Context(), resourceID, date, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if queue == nil {
		queue = []*Booking{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(queue, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetStatus(c echo.Context) error {
	ticket := c.QueryParam("ticket")
	if ticket == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket query parameter is required")
	}
	status, err := h.svc.GetStatus(c.Request().Context(), ticket)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) Consult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var payload ConsultationPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Consult(c.Request().Context(), id, payload); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.CompleteByID(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type endSessionResponse struct {
	RejectedNoShows int `json:"rejected_no_shows"`
}

func (h *Handler) EndSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rejected, err := h.svc.EndSession(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, endSessionResponse{RejectedNoShows: rejected})
}
