package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

const ReqIDHeader = "X-Request-ID"

// RequestID keeps a caller-supplied id (up to 128 bytes) or mints a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ReqIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(ReqIDHeader, id)
		r.Header.Set(ReqIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
