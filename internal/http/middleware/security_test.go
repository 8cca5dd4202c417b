package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func okHandler(c *gin.Context) { c.Status(http.StatusOK) }

func TestSecurityHeaders_Baseline(t *testing.T) {
	r := newTestRouter()
	r.Use(SecurityHeaders(SecurityOptions{}))
	r.GET("/", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := w.Header().Get(header); got != want {
			t.Fatalf("%s = %q, want %q", header, got, want)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS emitted without EnableHSTS")
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	r := newTestRouter()
	r.Use(SecurityHeaders(SecurityOptions{EnableHSTS: true}))
	r.GET("/", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS emitted for plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	hsts := w.Header().Get("Strict-Transport-Security")
	if !strings.HasPrefix(hsts, "max-age=") || !strings.Contains(hsts, "includeSubDomains") {
		t.Fatalf("HSTS = %q, want max-age with includeSubDomains", hsts)
	}
}

func TestSecurityHeaders_NoStoreAndPolicy(t *testing.T) {
	r := newTestRouter()
	r.Use(SecurityHeaders(SecurityOptions{NoStore: true, EnablePolicy: true}))
	r.GET("/", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", got)
	}
	if w.Header().Get("Permissions-Policy") == "" {
		t.Fatal("Permissions-Policy missing with EnablePolicy")
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	r := newTestRouter()
	r.Use(RequestID(), SecurityHeaders(SecurityOptions{}))
	r.GET("/", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Request-ID") {
		t.Fatalf("Access-Control-Expose-Headers = %q, want X-Request-ID", got)
	}
}
