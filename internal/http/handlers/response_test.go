package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-dispute-backend/internal/ai"
	"github.com/tbourn/go-dispute-backend/internal/services"
)

// envelopeEngine wires a single GET route behind the request-id and
// request-logger context the real middleware stack provides.
func envelopeEngine(rid string, logs *bytes.Buffer, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if rid != "" {
			c.Writer.Header().Set("X-Request-ID", rid)
		}
		if logs != nil {
			logger := zerolog.New(logs)
			c.Set("logger", &logger)
		}
		c.Next()
	})
	r.GET("/t", handler)
	return r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("envelope is not JSON: %v (body %q)", err, w.Body.String())
	}
	return er
}

func TestFail_ServerErrorLogsAndEchoesRequestID(t *testing.T) {
	var logs bytes.Buffer
	r := envelopeEngine("rid-500", &logs, func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "scoring backend unreachable")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	er := decodeEnvelope(t, w)
	if er.RequestID != "rid-500" || er.Code != ErrCodeInternal || er.Message != "scoring backend unreachable" {
		t.Fatalf("envelope: %+v", er)
	}
	if !strings.Contains(logs.String(), `"level":"error"`) {
		t.Fatalf("5xx not logged at error level: %s", logs.String())
	}
}

func TestFail_ClientErrorStaysOutOfLog(t *testing.T) {
	var logs bytes.Buffer
	r := envelopeEngine("rid-404", &logs, func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "transaction not found")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	er := decodeEnvelope(t, w)
	if er.RequestID != "rid-404" || er.Code != ErrCodeNotFound || er.Message != "transaction not found" {
		t.Fatalf("envelope: %+v", er)
	}
	if logs.Len() != 0 {
		t.Fatalf("4xx wrote to the error log: %s", logs.String())
	}
}

func Test_ok(t *testing.T) {
	r := envelopeEngine("", nil, func(c *gin.Context) {
		ok(c, http.StatusCreated, gin.H{"accepted": true, "turns": 3})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["accepted"] != true || int(body["turns"].(float64)) != 3 {
		t.Fatalf("body: %#v", body)
	}
}

func TestFailFromService_Taxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing transaction", services.ErrTransactionNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"missing conversation", fmt.Errorf("lookup: %w", services.ErrConversationNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"bad intake step", services.ErrInvalidStep, http.StatusBadRequest, ErrCodeBadRequest},
		{"upstream throttled", ai.ErrRateLimited, http.StatusTooManyRequests, ErrCodeUpstreamLimit},
		{"upstream quota", ai.ErrQuotaExhausted, http.StatusPaymentRequired, ErrCodeUpstreamQuota},
		{"unknown failure", errors.New("disk full"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := envelopeEngine("", nil, func(c *gin.Context) { failFromService(c, tc.err) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if er := decodeEnvelope(t, w); er.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", er.Code, tc.wantCode)
			}
		})
	}
}

func TestFailFromService_StateConflictEchoesCurrentStatus(t *testing.T) {
	r := envelopeEngine("", nil, func(c *gin.Context) {
		failFromService(c, &services.StateConflictError{
			Operation:     "accept_representment",
			CurrentStatus: "closed_lost",
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	er := decodeEnvelope(t, w)
	if er.Code != ErrCodeStateConflict {
		t.Fatalf("code = %q", er.Code)
	}
	if !strings.Contains(er.Message, "accept_representment") || !strings.Contains(er.Message, "closed_lost") {
		t.Fatalf("message does not name the operation and status: %q", er.Message)
	}
}
