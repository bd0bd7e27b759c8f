package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"stillwater/internal/audit"
	"stillwater/internal/flow"
	"stillwater/internal/metrics"
	"stillwater/internal/service"
	"stillwater/internal/storage"
)

const flowSessionHeader = "X-Flow-Session"

// handleCalendar returns the bookable dates for a cursor page.
// GET /api/v1/calendar?cursor=N
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")

	cursor := 0
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dates":  s.svc.Calendar(cursor),
		"cursor": cursor,
	})
}

// handleDaySlots returns every slot of a date with its availability.
// GET /api/v1/slots/{date}
func (s *Server) handleDaySlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	date := mux.Vars(r)["date"]
	slots, err := s.svc.DaySlots(r.Context(), date)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date,
		"slots": slots,
	})
}

// handleAvailability returns only the free time labels for a date.
// GET /api/v1/availability/{date}
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	date := mux.Vars(r)["date"]
	times, err := s.svc.AvailableTimes(r.Context(), date)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date,
		"times": times,
	})
}

// handleReserve attempts to take a slot.
// POST /api/v1/bookings
func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reserve")

	var req service.ReserveRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if id := callerIdentity(r); id != nil && id.UserID != "" {
		req.UserID = &id.UserID
	}

	session := s.sessions.GetOrCreate(r.Header.Get(flowSessionHeader))
	w.Header().Set(flowSessionHeader, session.ID)
	if !s.beginSubmit(session, req.Date, req.Time) {
		writeError(w, http.StatusConflict, "a submission is already in progress")
		return
	}

	res, err := s.svc.Reserve(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrSlotTaken):
			s.fsm.Transition(session, flow.StateConflict)
			writeError(w, http.StatusConflict, "slot already taken")
		case errors.Is(err, service.ErrMissingFields),
			errors.Is(err, service.ErrInvalidDate),
			errors.Is(err, service.ErrDayNotBookable),
			errors.Is(err, service.ErrInvalidSlot),
			errors.Is(err, service.ErrSlotInPast):
			s.fsm.Transition(session, flow.StateError)
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.fsm.Transition(session, flow.StateError)
			s.logger.Error().Err(err).Msg("reserve failed")
			writeError(w, http.StatusInternalServerError, "could not reserve slot")
		}
		return
	}

	s.fsm.Transition(session, flow.StateSuccess)
	writeJSON(w, http.StatusCreated, res)
}

// beginSubmit walks the dialog to Submitting. A submission already in
// flight is refused, as is a replay of a finished dialog for the same
// slot. A finished dialog restarts at date selection when the client
// picks a different slot.
func (s *Server) beginSubmit(session *flow.Session, date, timeLabel string) bool {
	switch session.GetState() {
	case flow.StateSubmitting:
		return false
	case flow.StateSuccess:
		sel := session.CurrentSelection()
		if sel.Date == date && sel.Time == timeLabel {
			return false
		}
		s.fsm.Transition(session, flow.StateSelectingDate)
	case flow.StateConflict, flow.StateError:
		s.fsm.Transition(session, flow.StateSelectingDate)
	}
	session.SetSelection(date, timeLabel)
	s.fsm.Transition(session, flow.StateSelectingTime)
	s.fsm.Transition(session, flow.StateEnteringDetails)
	return s.fsm.Transition(session, flow.StateSubmitting)
}

// handleVerifyPayment settles a pending booking from the gateway callback.
// POST /api/v1/payments/verify
func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("verify_payment")

	var req service.VerifyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BookingID == "" || req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "booking_id, razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	b, err := s.svc.VerifyPayment(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrBookingNotFound):
			writeError(w, http.StatusNotFound, "booking not found")
		case errors.Is(err, service.ErrSignatureInvalid):
			writeError(w, http.StatusUnauthorized, "payment verification failed")
		case errors.Is(err, service.ErrNotAwaitingPayment):
			writeError(w, http.StatusConflict, "booking is not awaiting payment")
		default:
			s.logger.Error().Err(err).Msg("payment verification failed")
			writeError(w, http.StatusInternalServerError, "could not verify payment")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": b})
}

// handleMyBookings lists the caller's bookings.
// GET /api/v1/bookings/my
func (s *Server) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("my_bookings")

	id := callerIdentity(r)
	bookings, err := s.svc.UserBookings(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("list bookings failed")
		writeError(w, http.StatusInternalServerError, "could not load bookings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

// handleCancel removes the caller's own booking.
// DELETE /api/v1/bookings/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")

	id := callerIdentity(r)
	bookingID := mux.Vars(r)["id"]
	if err := s.svc.Cancel(r.Context(), bookingID, id.UserID); err != nil {
		if errors.Is(err, storage.ErrBookingNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Msg("cancel failed")
		writeError(w, http.StatusInternalServerError, "could not cancel booking")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleAuditExport streams a month of the audit trail as XLSX.
// GET /api/v1/admin/audit/export?month=YYYY-MM
func (s *Server) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit_export")

	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "audit export disabled")
		return
	}

	month := time.Now().UTC()
	if raw := r.URL.Query().Get("month"); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid month; expected YYYY-MM")
			return
		}
		month = t
	}
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", audit.ExportFilename(from)))
	if err := s.exporter.WriteXLSX(r.Context(), from, to, w); err != nil {
		s.logger.Error().Err(err).Msg("audit export failed")
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
	default:
		s.logger.Error().Err(err).Msg("availability lookup failed")
		writeError(w, http.StatusServiceUnavailable, "availability temporarily unavailable")
	}
}
