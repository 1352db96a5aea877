package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/account"
	"github.com/medibook/telehealth-booking/internal/prescription"
)

func createPrescriptionHandler(prescriptions *prescription.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor, ok := requireCallerDoctor(w, r, accounts)
		if !ok {
			return
		}

		var req CreatePrescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		consultationID, err := uuid.Parse(req.ConsultationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "consultation_id must be a valid UUID")
			return
		}
		if req.Medications == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "medications is required")
			return
		}

		p, err := prescriptions.Create(r.Context(), doctor.ID, consultationID, req.Medications, req.Advice)
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPrescriptionResponse(p))
	}
}

func getConsultationPrescriptionHandler(prescriptions *prescription.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		consultationID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		callerID := UserIDFromContext(r.Context())
		isAdmin := RoleFromContext(r.Context()) == account.RoleAdmin

		p, err := prescriptions.GetByConsultation(r.Context(), consultationID, callerID, optionalDoctorID(r, accounts), isAdmin)
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionResponse(p))
	}
}

func handlePrescriptionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prescription.ErrPrescriptionNotFound):
		writeError(w, http.StatusNotFound, "prescription_not_found", err.Error())
	case errors.Is(err, prescription.ErrConsultationNotFound):
		writeError(w, http.StatusNotFound, "consultation_not_found", err.Error())
	case errors.Is(err, prescription.ErrNotConsultationDoctor),
		errors.Is(err, prescription.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, prescription.ErrConsultationNotCompleted):
		writeError(w, http.StatusConflict, "consultation_not_completed", err.Error())
	case errors.Is(err, prescription.ErrAlreadyPrescribed):
		writeError(w, http.StatusConflict, "already_prescribed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
