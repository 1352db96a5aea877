package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/account"
	"github.com/medibook/telehealth-booking/internal/consultation"
	"github.com/medibook/telehealth-booking/internal/metrics"
)

func bookConsultationHandler(consultations *consultation.Service, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}
		if req.Reason == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "reason is required")
			return
		}

		result, err := consultations.Book(r.Context(), UserIDFromContext(r.Context()), doctorID, slotID, req.Reason)
		if err != nil {
			m.ObserveBooking(bookingOutcome(err))
			handleConsultationError(w, err)
			return
		}
		m.ObserveBooking("won")

		writeJSON(w, http.StatusCreated, BookingResponse{
			Consultation: toConsultationResponse(&result.Consultation),
			PaymentID:    result.PaymentID,
			Amount:       result.Amount,
			Currency:     result.Currency,
		})
	}
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, consultation.ErrSlotNotAvailable):
		return "lost"
	case errors.Is(err, consultation.ErrSlotNotFound),
		errors.Is(err, consultation.ErrDoctorMismatch),
		errors.Is(err, consultation.ErrDoctorNotApproved):
		return "rejected"
	}
	return "error"
}

func listMyConsultationsHandler(consultations *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result, err := consultations.ListByPatient(r.Context(), UserIDFromContext(r.Context()), consultation.ListFilter{
			Status: consultation.Status(q.Get("status")),
			Limit:  int(parseInt64(q.Get("limit"))),
			Offset: int(parseInt64(q.Get("offset"))),
		})
		if err != nil {
			handleConsultationError(w, err)
			return
		}

		writeConsultationList(w, result)
	}
}

func listDoctorConsultationsHandler(consultations *consultation.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor, ok := requireCallerDoctor(w, r, accounts)
		if !ok {
			return
		}

		q := r.URL.Query()
		result, err := consultations.ListByDoctor(r.Context(), doctor.ID, consultation.ListFilter{
			Status: consultation.Status(q.Get("status")),
			Limit:  int(parseInt64(q.Get("limit"))),
			Offset: int(parseInt64(q.Get("offset"))),
		})
		if err != nil {
			handleConsultationError(w, err)
			return
		}

		writeConsultationList(w, result)
	}
}

func getConsultationHandler(consultations *consultation.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		callerID := UserIDFromContext(r.Context())
		role := RoleFromContext(r.Context())

		c, err := consultations.Get(r.Context(), id, callerID, optionalDoctorID(r, accounts), role == account.RoleAdmin)
		if err != nil {
			handleConsultationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(c))
	}
}

func updateConsultationStatusHandler(consultations *consultation.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor, ok := requireCallerDoctor(w, r, accounts)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		var req UpdateConsultationStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		updated, err := consultations.UpdateStatus(r.Context(), id, doctor.ID, consultation.Status(req.Status), req.Notes)
		if err != nil {
			handleConsultationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(updated))
	}
}

func cancelConsultationHandler(consultations *consultation.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		cancelled, err := consultations.Cancel(r.Context(), id, UserIDFromContext(r.Context()), optionalDoctorID(r, accounts))
		if err != nil {
			handleConsultationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(cancelled))
	}
}

// optionalDoctorID resolves the caller's doctor record if they have one,
// uuid.Nil otherwise. Patients and admins simply have none.
func optionalDoctorID(r *http.Request, accounts *account.Service) uuid.UUID {
	if RoleFromContext(r.Context()) != account.RoleDoctor {
		return uuid.Nil
	}
	doctor, err := accounts.GetDoctorByUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil
	}
	return doctor.ID
}

func writeConsultationList(w http.ResponseWriter, result []consultation.Consultation) {
	out := make([]ConsultationResponse, 0, len(result))
	for i := range result {
		out = append(out, toConsultationResponse(&result[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func handleConsultationError(w http.ResponseWriter, err error) {
	var invalidTransition *consultation.InvalidTransitionError

	switch {
	case errors.Is(err, consultation.ErrConsultationNotFound):
		writeError(w, http.StatusNotFound, "consultation_not_found", err.Error())
	case errors.Is(err, consultation.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, consultation.ErrSlotNotAvailable):
		writeError(w, http.StatusConflict, "slot_not_available", err.Error())
	case errors.Is(err, consultation.ErrDoctorMismatch):
		writeError(w, http.StatusConflict, "doctor_mismatch", err.Error())
	case errors.Is(err, consultation.ErrDoctorNotApproved):
		writeError(w, http.StatusForbidden, "doctor_not_approved", err.Error())
	case errors.As(err, &invalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", invalidTransition.Error())
	case errors.Is(err, consultation.ErrNotConsultationDoctor),
		errors.Is(err, consultation.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, consultation.ErrNotCancellable):
		writeError(w, http.StatusConflict, "not_cancellable", err.Error())
	case errors.Is(err, consultation.ErrCancellationWindowExpired):
		writeError(w, http.StatusConflict, "cancellation_window_expired", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
