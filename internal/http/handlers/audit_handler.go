// Audit trail HTTP handlers.
//
// This file exposes the read surface over the append-only audit log:
//   - GET /transactions/:id/audit  (paginated, weak ETag support)
//
// The trail is append-only, so (row count, latest timestamp) is an exact
// change detector and backs the conditional-response pre-check.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/repo"
	"github.com/tbourn/go-dispute-backend/internal/services"
	"github.com/tbourn/go-dispute-backend/internal/utils"
)

// GetAuditTrail godoc
// @ID          getAuditTrail
// @Summary     List a transaction's audit trail (paginated)
// @Description Returns a page of the transaction's audit rows, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Audit
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       id             path    string  true  "Transaction ID (UUID)"       format(uuid)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       per_page       query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} services.AuditPage
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Transaction not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /transactions/{id}/audit [get]
func (h *Handlers) GetAuditTrail(c *gin.Context) {
	ctx := c.Request.Context()
	txnID := c.Param("id")
	page := utils.AtoiDefault(c.Query("page"), 1)
	perPage := utils.AtoiDefault(c.Query("per_page"), 20)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okType := h.disputeSvc.(*services.DisputeService); okType {
		db = svc.DB
	}
	if db != nil {
		count, latest, err := repo.AuditStats(ctx, db, txnID)
		if err == nil {
			var ts int64
			if latest != nil {
				ts = latest.Unix()
			}
			etag := fmt.Sprintf(`W/"audit:%s:%d:%d"`, txnID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	res, err := h.disputeSvc.AuditTrail(ctx, txnID, page, perPage)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
