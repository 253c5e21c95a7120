// Evidence HTTP handlers.
//
// This file exposes the evidence endpoints:
//   - POST /disputes/evidence/verify       (multipart per-requirement verification)
//   - POST /disputes/evidence/sufficiency  (rebuttal sufficiency scoring)
//
// The verify endpoint accepts one multipart form: a `requirements` field
// holding a JSON array of {name, upload_types[]}, one file field named after
// each requirement, and an optional `dispute_context` JSON field. Files are
// read fully into memory; uploads are bounded by the router's body limit.
package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dispute-backend/internal/ai"
	"github.com/tbourn/go-dispute-backend/internal/services"
)

// SufficiencyRequest is the JSON payload for rebuttal scoring.
type SufficiencyRequest struct {
	TransactionID string   `json:"transaction_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	CustomerNote  string   `json:"customer_note" example:"I contacted the merchant twice about order #1042"`
	EvidenceFiles []string `json:"evidence_files"`
}

// SufficiencyResponse wraps the stored evaluation.
type SufficiencyResponse struct {
	Success    bool                  `json:"success"`
	Evaluation *ai.SufficiencyResult `json:"evaluation"`
	EvidenceID string                `json:"evidence_id"`
}

// VerifyEvidence godoc
// @ID          verifyEvidence
// @Summary     Verify uploaded evidence files
// @Description Validates each uploaded file against its declared requirement. Aggregate success is the AND of all per-requirement results.
// @Tags        Evidence
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-User-ID        header    string  false "User ID (demo header)"  example(user123)
// @Param       requirements     formData  string  true  "JSON array of {name, upload_types[]}"
// @Param       dispute_context  formData  string  false "JSON {category, reason}"
//
// @Success     200  {object}  services.VerificationResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse  "Upstream quota exhausted"
// @Failure     429  {object}  handlers.ErrorResponse  "Upstream rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /disputes/evidence/verify [post]
func (h *Handlers) VerifyEvidence(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form required")
		return
	}

	var requirements []ai.EvidenceItem
	reqField := formValue(form, "requirements")
	if reqField == "" || json.Unmarshal([]byte(reqField), &requirements) != nil || len(requirements) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "requirements must be a non-empty JSON array")
		return
	}

	var dc services.DisputeContext
	if raw := formValue(form, "dispute_context"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &dc); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "dispute_context must be JSON")
			return
		}
	}

	items := make([]services.VerificationItem, 0, len(requirements))
	for _, r := range requirements {
		item := services.VerificationItem{Requirement: r}
		if fh := formFile(form, r.Name); fh != nil {
			f, ferr := readUpload(fh)
			if ferr != nil {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload for "+r.Name)
				return
			}
			item.File = f
		}
		items = append(items, item)
	}

	res, err := h.verifySvc.Verify(c.Request.Context(), items, dc)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// EvaluateSufficiency godoc
// @ID          evaluateSufficiency
// @Summary     Score a customer rebuttal
// @Description Grades the customer's note and file list against the sufficiency rubric, stores the verdict, and queues a human reviewer.
// @Tags        Evidence
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.SufficiencyRequest  true  "Sufficiency payload"
//
// @Success     200  {object}  handlers.SufficiencyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Transaction not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /disputes/evidence/sufficiency [post]
func (h *Handlers) EvaluateSufficiency(c *gin.Context) {
	var req SufficiencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction_id required")
		return
	}
	if strings.TrimSpace(req.CustomerNote) == "" && len(req.EvidenceFiles) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "customer_note or evidence_files required")
		return
	}

	out, err := h.suffSvc.Evaluate(c.Request.Context(), userID(c), req.TransactionID, req.CustomerNote, req.EvidenceFiles)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, SufficiencyResponse{
		Success:    true,
		Evaluation: out.Evaluation,
		EvidenceID: out.EvidenceID,
	})
}

// formValue returns the first value of a multipart field, trimmed.
func formValue(form *multipart.Form, key string) string {
	if vs, ok := form.Value[key]; ok && len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// formFile returns the first file uploaded under the given field name.
func formFile(form *multipart.Form, key string) *multipart.FileHeader {
	if fs, ok := form.File[key]; ok && len(fs) > 0 {
		return fs[0]
	}
	return nil
}

// readUpload loads one multipart file into an UploadedFile.
func readUpload(fh *multipart.FileHeader) (*services.UploadedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &services.UploadedFile{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		SizeBytes:   fh.Size,
		Data:        data,
	}, nil
}
