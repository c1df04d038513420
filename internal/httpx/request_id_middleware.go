package httpx

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-Id"

// Client supplied ids end up in logs and response meta, so only short
// token-like values are trusted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestIDMiddleware tags every request with an id, reusing a well-formed
// inbound X-Request-Id and minting a UUID otherwise.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !requestIDPattern.MatchString(id) {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
	})
}
