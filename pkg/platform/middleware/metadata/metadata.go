package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"fedcore/pkg/requestcontext"
)

// HeaderRequestID carries the request identifier in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestMetadata stores a request id and the client IP in the context and
// echoes the request id on the response. A caller-supplied X-Request-ID is
// kept. Apply it early in the chain.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithClientIP(ctx, ClientIPFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the client IP, honouring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	// first entry of X-Forwarded-For is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	return "unknown"
}
