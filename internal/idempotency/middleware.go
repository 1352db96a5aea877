package idempotency

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/telehealth-booking/internal/logging"
)

// HeaderKey is the client-supplied deduplication token.
const HeaderKey = "Idempotency-Key"

// UserIDResolver extracts the authenticated caller from the request context.
// uuid.Nil for anonymous requests.
type UserIDResolver func(ctx context.Context) uuid.UUID

// ReplayObserver is notified when a stored response is replayed. Wired to a
// metrics counter.
type ReplayObserver func()

// Middleware deduplicates write requests carrying an Idempotency-Key header.
//
// A fresh key executes the handler and stores a 2xx response for replay. A
// replayed key with the same payload returns the stored response verbatim
// without re-executing the handler. A replayed key with a different payload
// is rejected outright: silently serving the old response would hide a
// client bug.
type Middleware struct {
	store    Store
	ttl      time.Duration
	userID   UserIDResolver
	onReplay ReplayObserver
	log      *logging.Logger
	now      func() time.Time
}

func NewMiddleware(store Store, ttl time.Duration, userID UserIDResolver, onReplay ReplayObserver, log *logging.Logger) *Middleware {
	if log == nil {
		log = logging.Default()
	}
	return &Middleware{
		store:    store,
		ttl:      ttl,
		userID:   userID,
		onReplay: onReplay,
		log:      log,
		now:      time.Now,
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderKey)
		if key == "" || !isWriteMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "could not read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		hash := HashRequest(r.Method, r.URL.Path, body)

		rec, err := m.store.Get(r.Context(), key)
		switch {
		case err == nil:
			if rec.RequestHash != hash {
				writeMismatch(w)
				return
			}
			if m.onReplay != nil {
				m.onReplay()
			}
			m.log.Info("replaying idempotent response", "key", key, "status", rec.StatusCode)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponseBody)
			return
		case errors.Is(err, ErrRecordNotFound):
			// Fresh key, or an expired record the store already dropped.
			_ = m.store.Delete(r.Context(), key)
		default:
			// A degraded idempotency store must not block writes.
			m.log.Error("idempotency store lookup failed", "key", key, "err", err.Error())
		}

		rw := &captureWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}

		saveErr := m.store.Save(r.Context(), Record{
			Key:          key,
			UserID:       m.resolveUser(r.Context()),
			Method:       r.Method,
			Path:         r.URL.Path,
			RequestHash:  hash,
			StatusCode:   rw.statusCode,
			ResponseBody: rw.body.Bytes(),
			ExpiresAt:    m.now().Add(m.ttl),
		})
		if saveErr != nil && !errors.Is(saveErr, ErrDuplicateSave) {
			// Best effort: the caller already has its response.
			m.log.Error("saving idempotency record failed", "key", key, "err", saveErr.Error())
		}
	})
}

func (m *Middleware) resolveUser(ctx context.Context) uuid.UUID {
	if m.userID == nil {
		return uuid.Nil
	}
	return m.userID(ctx)
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func writeMismatch(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_, _ = w.Write([]byte(`{"error":"idempotency_key_reused","details":"idempotency key was already used with a different request payload"}`))
}

// captureWriter buffers the response so a 2xx can be stored for replay.
type captureWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.statusCode = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(p []byte) (int, error) {
	cw.body.Write(p)
	return cw.ResponseWriter.Write(p)
}
