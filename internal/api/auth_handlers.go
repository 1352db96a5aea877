package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medibook/telehealth-booking/internal/account"
)

func registerHandler(accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Email == "" || len(req.Password) < 8 || req.FullName == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "email, full_name and a password of at least 8 characters are required")
			return
		}

		user, err := accounts.Register(r.Context(), account.RegisterParams{
			Email:    req.Email,
			Password: req.Password,
			Role:     account.Role(req.Role),
			FullName: req.FullName,
			Phone:    req.Phone,
		})
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toUserResponse(user))
	}
}

func loginHandler(accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		token, user, err := accounts.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserResponse(user)})
	}
}

func handleAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, account.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, account.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, account.ErrDoctorProfileExists):
		writeError(w, http.StatusConflict, "doctor_profile_exists", err.Error())
	case errors.Is(err, account.ErrRegistrationNumberTaken):
		writeError(w, http.StatusConflict, "registration_number_taken", err.Error())
	case errors.Is(err, account.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
