package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/waymaker/tour-booking/internal/booking"
	"github.com/waymaker/tour-booking/internal/partner"
	"github.com/waymaker/tour-booking/internal/ratelimit"
)

func createBookingHandler(svc *booking.Service, limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if msg := validateCreate(req); msg != "" {
			writeError(w, http.StatusBadRequest, "validation_error", msg)
			return
		}

		if _, err := limiter.Check(r.Context(), clientIdentifier(r)); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many booking requests, please try again later")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		b, err := svc.Create(r.Context(), booking.CreateRequest{
			ParentName:   req.ParentName,
			Email:        req.Email,
			Phone:        req.Phone,
			FacilitySlug: req.FacilitySlug,
			Date:         req.Date,
			TimeWindow:   req.TimeWindow,
			Message:      req.Message,
		})
		if err != nil {
			handleCreateError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CreateBookingResponse{Success: true, BookingID: b.ID})
	}
}

func validateCreate(req CreateBookingRequest) string {
	switch {
	case req.ParentName == "":
		return "parentName is required"
	case req.Email == "":
		return "email is required"
	case req.Message == "":
		return "message is required"
	case req.FacilitySlug == "":
		return "facilitySlug is required"
	case req.Date == "":
		return "date is required"
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	return ""
}

func handleCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, partner.ErrNotFound):
		writeError(w, http.StatusBadRequest, "unknown_facility", err.Error())
	case errors.Is(err, booking.ErrDateBlocked):
		writeError(w, http.StatusConflict, "date_blocked", err.Error())
	case errors.Is(err, booking.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "capacity_exceeded", "all tour slots for this date are taken, please pick another day")
	case errors.Is(err, booking.ErrConcurrencyExhausted):
		writeError(w, http.StatusInternalServerError, "busy", "could not complete the booking, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func cancelBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.BookingID == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "bookingId is required")
			return
		}

		err := svc.Cancel(r.Context(), req.BookingID)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, CancelBookingResponse{Success: true})
		case errors.Is(err, booking.ErrAlreadyCancelled):
			writeJSON(w, http.StatusOK, CancelBookingResponse{Message: "booking already cancelled"})
		case errors.Is(err, booking.ErrNotFound):
			writeError(w, http.StatusNotFound, "booking_not_found", "no booking with this id")
		case errors.Is(err, booking.ErrConcurrencyExhausted):
			writeError(w, http.StatusInternalServerError, "busy", "could not complete the cancellation, please retry")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
	}
}
