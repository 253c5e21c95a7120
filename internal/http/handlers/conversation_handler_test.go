package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dispute-backend/internal/services"
)

func TestDeleteConversation_MissingKey_BadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newStubHandlers(nil, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.DELETE("/conversations", h.DeleteConversation)

	// No Idempotency-Key header -> 400 with dedicated code
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/conversations", bytes.NewBufferString(`{"conversation_id":"c1"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing key -> %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeMissingIdemKey {
		t.Fatalf("code = %q", er.Code)
	}

	// Whitespace-only key counts as missing
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/conversations", bytes.NewBufferString(`{"conversation_id":"c1"}`))
	req.Header.Set("Idempotency-Key", "   ")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank key -> %d", w.Code)
	}

	// Key present but no conversation_id -> 400 bad_request
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/conversations", bytes.NewBufferString(`{}`))
	req.Header.Set("Idempotency-Key", "k1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing conversation_id -> %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", er.Code)
	}
}

func TestDeleteConversation_Success_Replay_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Success: args forwarded, result echoed
	{
		var got struct{ uid, conv, key string }
		svc := stubDeleteSvc{
			del: func(_ context.Context, userID, conversationID, idempotencyKey string) (*services.DeleteResult, error) {
				got.uid, got.conv, got.key = userID, conversationID, idempotencyKey
				return &services.DeleteResult{
					OK:             true,
					ConversationID: conversationID,
					IdempotencyKey: idempotencyKey,
					FromCache:      true,
				}, nil
			},
		}
		h := newStubHandlers(nil, nil, nil, nil, nil, nil, svc)
		r := gin.New()
		r.DELETE("/conversations", h.DeleteConversation)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/conversations", bytes.NewBufferString(`{"conversation_id":"c1"}`))
		req.Header.Set("X-User-ID", "u1")
		req.Header.Set("Idempotency-Key", "k-42")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("delete -> %d body=%s", w.Code, w.Body.String())
		}
		if got.uid != "u1" || got.conv != "c1" || got.key != "k-42" {
			t.Fatalf("service args mismatch: %+v", got)
		}
		var out services.DeleteResult
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if !out.OK || out.ConversationID != "c1" || out.IdempotencyKey != "k-42" || !out.FromCache {
			t.Fatalf("unexpected result: %#v", out)
		}
	}

	// Unknown conversation -> 404
	{
		svc := stubDeleteSvc{
			del: func(context.Context, string, string, string) (*services.DeleteResult, error) {
				return nil, services.ErrConversationNotFound
			},
		}
		h := newStubHandlers(nil, nil, nil, nil, nil, nil, svc)
		r := gin.New()
		r.DELETE("/conversations", h.DeleteConversation)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/conversations", bytes.NewBufferString(`{"conversation_id":"missing"}`))
		req.Header.Set("Idempotency-Key", "k1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("not found -> %d", w.Code)
		}
	}
}
