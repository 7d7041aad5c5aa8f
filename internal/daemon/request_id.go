package daemon

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"transcoder/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags every request with a correlation ID. A caller
// supplied X-Request-ID is reused; otherwise a random UUID is generated.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
