package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/account"
	"github.com/medibook/telehealth-booking/internal/consultation"
	"github.com/medibook/telehealth-booking/internal/payment"
)

// paymentWebhookHandler receives the provider callback. The route is
// unauthenticated; the transaction reference is the shared secret.
func paymentWebhookHandler(payments *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.TransactionReference == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "transaction_reference is required")
			return
		}

		p, err := payments.HandleWebhook(r.Context(), req.TransactionReference, payment.Status(req.Status))
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}

func getConsultationPaymentHandler(payments *payment.Service, consultations *consultation.Service, accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		consultationID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		// Get enforces that the caller participates in the consultation.
		callerID := UserIDFromContext(r.Context())
		isAdmin := RoleFromContext(r.Context()) == account.RoleAdmin
		if _, err := consultations.Get(r.Context(), consultationID, callerID, optionalDoctorID(r, accounts), isAdmin); err != nil {
			handleConsultationError(w, err)
			return
		}

		p, err := payments.GetByConsultation(r.Context(), consultationID)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrInvalidWebhookStatus):
		writeError(w, http.StatusBadRequest, "invalid_webhook_status", err.Error())
	case errors.Is(err, payment.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "payment_not_found", err.Error())
	case errors.Is(err, payment.ErrAlreadyFinalized):
		writeError(w, http.StatusConflict, "payment_already_finalized", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
