package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/analytics"
	"github.com/medibook/telehealth-booking/internal/audit"
)

func analyticsSummaryHandler(stats *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := stats.Summary(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func consultationsPerDayHandler(stats *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		to, err := parseTimeOr(q.Get("to"), time.Now().UTC())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "to must be RFC3339")
			return
		}
		from, err := parseTimeOr(q.Get("from"), to.AddDate(0, 0, -30))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "from must be RFC3339")
			return
		}

		counts, err := stats.ConsultationsPerDay(r.Context(), from, to)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func conversionRateHandler(stats *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, err := stats.ConversionRate(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func doctorUtilizationHandler(stats *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		util, err := stats.DoctorUtilization(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, util)
	}
}

type auditEntryResponse struct {
	ID         int64           `json:"id"`
	ActorID    uuid.UUID       `json:"actor_id"`
	ActorRole  string          `json:"actor_role"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	IPAddress  *string         `json:"ip_address,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func listAuditLogsHandler(audits *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		f := audit.Filter{
			Action:     q.Get("action"),
			EntityType: q.Get("entity_type"),
			Limit:      int(parseInt64(q.Get("limit"))),
			Offset:     int(parseInt64(q.Get("offset"))),
		}
		if raw := q.Get("actor_id"); raw != "" {
			actorID, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
				return
			}
			f.ActorID = actorID
		}
		var err error
		if f.From, err = parseTimeOr(q.Get("from"), time.Time{}); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "from must be RFC3339")
			return
		}
		if f.To, err = parseTimeOr(q.Get("to"), time.Time{}); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "to must be RFC3339")
			return
		}

		entries, err := audits.List(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]auditEntryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, auditEntryResponse{
				ID:         e.ID,
				ActorID:    e.ActorID,
				ActorRole:  e.ActorRole,
				Action:     e.Action,
				EntityType: e.EntityType,
				EntityID:   e.EntityID,
				Metadata:   json.RawMessage(e.Metadata),
				IPAddress:  e.IPAddress,
				CreatedAt:  e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func parseTimeOr(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}
