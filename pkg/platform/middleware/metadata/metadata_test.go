package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"inclusao/pkg/requestcontext"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		wantIP     string
	}{
		{
			name:       "ignores forwarding headers from untrusted peers",
			remoteAddr: "192.168.1.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			wantIP:     "192.168.1.1",
		},
		{
			name:       "uses first X-Forwarded-For hop from a trusted proxy",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.1"},
			wantIP:     "203.0.113.1",
		},
		{
			name:       "falls back to X-Real-IP",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Real-IP": "203.0.113.2"},
			wantIP:     "203.0.113.2",
		},
		{
			name:       "garbage forwarded value keeps the peer",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			wantIP:     "10.1.2.3",
		},
		{
			name:       "ipv6 peer",
			remoteAddr: "[::1]:8080",
			wantIP:     "::1",
		},
		{
			name:       "unparseable peer",
			remoteAddr: "",
			wantIP:     "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotIP, gotUA string
			h := NewMiddleware(tt.trusted).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotIP = requestcontext.ClientIP(r.Context())
				gotUA = requestcontext.UserAgent(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", "Mozilla/5.0")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantIP, gotIP)
			assert.Equal(t, "Mozilla/5.0", gotUA)
		})
	}
}
