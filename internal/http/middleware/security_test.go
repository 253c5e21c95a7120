package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func secEngine(opt SecurityOptions, pre gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/disputes", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestSecurityHeaders_BaselineOnly(t *testing.T) {
	r := secEngine(SecurityOptions{}, func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-base")
		c.Next()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/disputes", nil))
	h := w.Header()

	for hdr, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := h.Get(hdr); got != want {
			t.Fatalf("%s = %q, want %q", hdr, got, want)
		}
	}
	// Everything optional stays off by default.
	for _, hdr := range []string{
		"Permissions-Policy", "X-Permitted-Cross-Domain-Policies",
		"Cache-Control", "Pragma", "Expires",
		"Strict-Transport-Security",
	} {
		if got := h.Get(hdr); got != "" {
			t.Fatalf("%s unexpectedly set to %q", hdr, got)
		}
	}
	if got := h.Get("Access-Control-Expose-Headers"); got != "X-Request-ID" {
		t.Fatalf("expose header = %q, want X-Request-ID", got)
	}
}

func TestSecurityHeaders_ExposeHeaderAppend(t *testing.T) {
	t.Run("appends to existing list", func(t *testing.T) {
		r := secEngine(SecurityOptions{}, func(c *gin.Context) {
			c.Header("X-Request-ID", "rid-1")
			c.Header("Access-Control-Expose-Headers", "Foo")
			c.Next()
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/disputes", nil))
		if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Foo, X-Request-ID" {
			t.Fatalf("expose header = %q, want %q", got, "Foo, X-Request-ID")
		}
	})

	t.Run("never duplicates", func(t *testing.T) {
		r := secEngine(SecurityOptions{}, func(c *gin.Context) {
			c.Header("X-Request-ID", "rid-2")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, Foo")
			c.Next()
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/disputes", nil))
		if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID, Foo" {
			t.Fatalf("expose header rewritten to %q", got)
		}
	})
}

func TestSecurityHeaders_FullHardening(t *testing.T) {
	r := secEngine(SecurityOptions{
		EnableHSTS:   true,
		HSTSMaxAge:   24 * time.Hour,
		NoStore:      true,
		EnablePolicy: true,
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/disputes", nil)
	req.TLS = &tls.ConnectionState{}
	r.ServeHTTP(w, req)
	h := w.Header()

	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %#v", h)
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("cache suppression headers missing: %#v", h)
	}
	const wantHSTS = "max-age=86400; includeSubDomains; preload"
	if got := h.Get("Strict-Transport-Security"); got != wantHSTS {
		t.Fatalf("HSTS = %q, want %q", got, wantHSTS)
	}
}

func TestSecurityHeaders_HSTSBehindProxy(t *testing.T) {
	r := secEngine(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}, nil)

	// Plain HTTP: no HSTS even when enabled.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/disputes", nil))
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS on plain HTTP: %q", got)
	}

	// Proxy-terminated TLS announced via X-Forwarded-Proto.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/disputes", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Strict-Transport-Security"); !strings.HasPrefix(got, "max-age=3600") {
		t.Fatalf("HSTS behind proxy = %q", got)
	}
}

func Test_isHTTPS(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	if isHTTPS(plain) {
		t.Fatalf("plain request reported as HTTPS")
	}

	direct := httptest.NewRequest(http.MethodGet, "/", nil)
	direct.TLS = &tls.ConnectionState{}
	if !isHTTPS(direct) {
		t.Fatalf("TLS request not reported as HTTPS")
	}

	forwarded := httptest.NewRequest(http.MethodGet, "/", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "HTTPS")
	if !isHTTPS(forwarded) {
		t.Fatalf("X-Forwarded-Proto https not reported as HTTPS")
	}
}
