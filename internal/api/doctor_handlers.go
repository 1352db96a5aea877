package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/account"
)

func registerDoctorHandler(accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Specialization == "" || req.RegistrationNumber == "" || req.ConsultationFee <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "specialization, registration_number and a positive consultation_fee are required")
			return
		}

		doctor, err := accounts.RegisterDoctor(r.Context(), UserIDFromContext(r.Context()), account.RegisterDoctorParams{
			Specialization:     req.Specialization,
			YearsOfExperience:  req.YearsOfExperience,
			RegistrationNumber: req.RegistrationNumber,
			ClinicName:         req.ClinicName,
			ConsultationFee:    req.ConsultationFee,
			LanguagesSpoken:    req.LanguagesSpoken,
			Bio:                req.Bio,
		})
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDoctorResponse(doctor))
	}
}

func approveDoctorHandler(accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doctor, err := accounts.ApproveDoctor(r.Context(), RoleFromContext(r.Context()), doctorID)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(doctor))
	}
}

func getDoctorHandler(accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doctor, err := accounts.GetDoctor(r.Context(), doctorID)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(doctor))
	}
}

func searchDoctorsHandler(accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := account.DoctorSearchFilter{
			Specialization: q.Get("specialization"),
			MinFee:         parseInt64(q.Get("min_fee")),
			MaxFee:         parseInt64(q.Get("max_fee")),
			Limit:          int(parseInt64(q.Get("limit"))),
			Offset:         int(parseInt64(q.Get("offset"))),
		}

		doctors, err := accounts.SearchDoctors(r.Context(), filter)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		out := make([]DoctorResponse, 0, len(doctors))
		for i := range doctors {
			out = append(out, toDoctorResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
