// Conversation HTTP handlers.
//
// This file exposes the idempotent deletion endpoint:
//   - DELETE /conversations  (cascade delete behind the idempotency ledger)
//
// The client generates the Idempotency-Key; a replayed key returns the stored
// result byte-for-byte with from_cache set, without touching any rows.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DeleteConversationRequest is the JSON payload naming the conversation.
type DeleteConversationRequest struct {
	ConversationID string `json:"conversation_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// DeleteConversation godoc
// @ID          deleteConversation
// @Summary     Delete a conversation and its dispute data
// @Description Deletes the conversation, its messages, and the cascading dispute rows in one transaction. Retries with the same Idempotency-Key return the original result.
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"       example(user123)
// @Param       Idempotency-Key  header  string  true  "Client-generated retry key"  example(6d0d6e9e-6a3f-4b1e-bb1a-58c0e0b1c2d3)
// @Param       body             body    handlers.DeleteConversationRequest  true  "Deletion payload"
//
// @Success     200  {object}  services.DeleteResult
// @Failure     400  {object}  handlers.ErrorResponse  "Missing key or body"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [delete]
func (h *Handlers) DeleteConversation(c *gin.Context) {
	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if key == "" {
		fail(c, http.StatusBadRequest, ErrCodeMissingIdemKey, "Idempotency-Key header required")
		return
	}

	var req DeleteConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation_id required")
		return
	}

	out, err := h.deleteSvc.Delete(c.Request.Context(), userID(c), req.ConversationID, key)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
