package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func keyFor(t *testing.T, remoteAddr, xff string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var got string
	r := gin.New()
	r.Use(ClientKeyMiddleware())
	r.GET("/", func(c *gin.Context) {
		got = ClientKey(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestClientKey_ForwardedForFirstHop(t *testing.T) {
	got := keyFor(t, "10.0.0.1:1234", "190.4.20.1, 10.0.0.1")
	if got != "190.4.20.1" {
		t.Fatalf("expected first XFF hop, got %q", got)
	}
}

func TestClientKey_FallsBackToRemoteAddr(t *testing.T) {
	got := keyFor(t, "190.4.20.1:5678", "")
	if got != "190.4.20.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
}

func TestClientKey_RemoteAddrWithoutPort(t *testing.T) {
	got := keyFor(t, "190.4.20.1", "")
	if got != "190.4.20.1" {
		t.Fatalf("expected bare remote addr, got %q", got)
	}
}

func TestClientKey_UnknownBucket(t *testing.T) {
	got := keyFor(t, "", "")
	if got != UnknownClientKey {
		t.Fatalf("expected %q bucket, got %q", UnknownClientKey, got)
	}
}

func TestClientKey_EmptyForwardedForEntry(t *testing.T) {
	got := keyFor(t, "190.4.20.1:5678", " , 10.0.0.1")
	if got != "190.4.20.1" {
		t.Fatalf("blank first hop must fall through to remote addr, got %q", got)
	}
}
