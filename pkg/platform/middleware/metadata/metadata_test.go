package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"fedcore/pkg/requestcontext"
)

func TestRequestMetadata(t *testing.T) {
	var gotID, gotIP string
	h := RequestMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotID = requestcontext.RequestID(r.Context())
		gotIP = requestcontext.ClientIP(r.Context())
	}))

	t.Run("generates a request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.NotEmpty(t, gotID)
		assert.Equal(t, gotID, rec.Header().Get(HeaderRequestID))
		assert.Equal(t, "192.0.2.1", gotIP)
	})

	t.Run("keeps a supplied request id and forwarded ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "abc")
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "abc", gotID)
		assert.Equal(t, "203.0.113.9", gotIP)
	})
}

func TestClientIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	assert.Equal(t, "::1", ClientIPFromRequest(req))

	req.Header.Set("X-Real-IP", " 198.51.100.2 ")
	assert.Equal(t, "198.51.100.2", ClientIPFromRequest(req))
}
