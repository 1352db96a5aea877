package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/account"
	"github.com/medibook/telehealth-booking/internal/availability"
)

// requireCallerDoctor resolves the clinical profile of a DOCTOR-role caller,
// writing the error response itself when there is none.
func requireCallerDoctor(w http.ResponseWriter, r *http.Request, accounts *account.Service) (*account.Doctor, bool) {
	doctor, err := accounts.GetDoctorByUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, account.ErrDoctorNotFound) {
			writeError(w, http.StatusForbidden, "doctor_profile_required", "caller has no doctor profile")
		} else {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return nil, false
	}
	return doctor, true
}

func createSlotHandler(slots *availability.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor, ok := requireCallerDoctor(w, r, accounts)
		if !ok {
			return
		}

		var req CreateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slot, err := slots.CreateSlot(r.Context(), doctor.ID, req.StartTime, req.EndTime, req.MaxPatients)
		if err != nil {
			handleSlotError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponse(slot))
	}
}

func listAvailableSlotsHandler(slots *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		from := parseTimeParam(r.URL.Query().Get("from"))
		to := parseTimeParam(r.URL.Query().Get("to"))

		result, err := slots.ListAvailable(r.Context(), doctorID, from, to)
		if err != nil {
			handleSlotError(w, err)
			return
		}

		out := make([]SlotResponse, 0, len(result))
		for i := range result {
			out = append(out, toSlotResponse(&result[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func updateSlotHandler(slots *availability.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor, ok := requireCallerDoctor(w, r, accounts)
		if !ok {
			return
		}

		slotID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		var req UpdateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slot, err := slots.UpdateSlot(r.Context(), doctor.ID, slotID, availability.SlotUpdate{
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			MaxPatients: req.MaxPatients,
		})
		if err != nil {
			handleSlotError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func deleteSlotHandler(slots *availability.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor, ok := requireCallerDoctor(w, r, accounts)
		if !ok {
			return
		}

		slotID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		if err := slots.DeleteSlot(r.Context(), doctor.ID, slotID); err != nil {
			handleSlotError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleSlotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, availability.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, availability.ErrPastSlot):
		writeError(w, http.StatusBadRequest, "past_slot", err.Error())
	case errors.Is(err, availability.ErrOverlapConflict):
		writeError(w, http.StatusConflict, "overlap_conflict", err.Error())
	case errors.Is(err, availability.ErrNotSlotOwner):
		writeError(w, http.StatusForbidden, "not_slot_owner", err.Error())
	case errors.Is(err, availability.ErrSlotBooked):
		writeError(w, http.StatusConflict, "slot_booked", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseTimeParam(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
