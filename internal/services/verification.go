// Package services – VerificationService
//
// This file implements per-document evidence verification. Each uploaded
// file is judged against its declared requirement by a strategy picked from
// the MIME family: images go through the vision path with content attached,
// PDFs are judged from metadata at moderate leniency, and everything else is
// judged from metadata at full leniency. A requirement with no file at all is
// invalid without a port call.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-dispute-backend/internal/ai"
)

// UploadedFile is one received file plus the metadata the judgment
// strategies need. Data is only consulted for images.
type UploadedFile struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Data        []byte
}

// VerificationItem pairs a named requirement with the file uploaded for it.
// File is nil when the customer skipped the requirement.
type VerificationItem struct {
	Requirement ai.EvidenceItem
	File        *UploadedFile
}

// DisputeContext is the optional case context given to the judgment so it
// can be judged in light of the claim, not in isolation.
type DisputeContext struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// DocumentResult is the per-requirement outcome.
type DocumentResult struct {
	Requirement string `json:"requirement"`
	FileName    string `json:"file_name,omitempty"`
	IsValid     bool   `json:"is_valid"`
	Reason      string `json:"reason"`
}

// VerificationResult aggregates all per-requirement outcomes. Success is the
// logical AND of every item; InvalidDocs lists the requirement names that
// failed so the caller can re-prompt the customer.
type VerificationResult struct {
	Success     bool             `json:"success"`
	Results     []DocumentResult `json:"results"`
	InvalidDocs []string         `json:"invalid_docs"`
}

// VerificationService validates uploaded evidence files against their
// declared requirements.
type VerificationService struct {
	Port ai.Port
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(port ai.Port) *VerificationService {
	return &VerificationService{Port: port}
}

// Verify judges every item and aggregates the results. Port failures abort
// the whole batch and are passed through unwrapped; the caller retries the
// full upload rather than resuming mid-batch.
func (s *VerificationService) Verify(ctx context.Context, items []VerificationItem, dc DisputeContext) (*VerificationResult, error) {
	tr := otel.Tracer("services/VerificationService")
	ctx, span := tr.Start(ctx, "VerificationService.Verify")
	defer span.End()
	span.SetAttributes(attribute.Int("evidence.items", len(items)))

	out := &VerificationResult{Success: true, InvalidDocs: []string{}}
	for _, it := range items {
		res, err := s.verifyOne(ctx, it, dc)
		if err != nil {
			return nil, err
		}
		out.Results = append(out.Results, *res)
		if !res.IsValid {
			out.Success = false
			out.InvalidDocs = append(out.InvalidDocs, it.Requirement.Name)
		}
	}

	log.Info().
		Int("items", len(items)).
		Int("invalid", len(out.InvalidDocs)).
		Bool("success", out.Success).
		Msg("evidence batch verified")
	return out, nil
}

func (s *VerificationService) verifyOne(ctx context.Context, it VerificationItem, dc DisputeContext) (*DocumentResult, error) {
	if it.File == nil {
		return &DocumentResult{
			Requirement: it.Requirement.Name,
			IsValid:     false,
			Reason:      "not uploaded",
		}, nil
	}

	req := ai.DocumentRequest{
		RequirementName: it.Requirement.Name,
		DisputeCategory: dc.Category,
		DisputeReason:   dc.Reason,
		FileName:        it.File.FileName,
		ContentType:     it.File.ContentType,
		SizeBytes:       it.File.SizeBytes,
	}

	switch mimeFamily(it.File.ContentType) {
	case familyImage:
		req.ImageData = it.File.Data
		req.Leniency = ai.LeniencyStrict
	case familyPDF:
		req.Leniency = ai.LeniencyModerate
	default:
		req.Leniency = ai.LeniencyLenient
	}

	verdict, err := s.Port.JudgeDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	return &DocumentResult{
		Requirement: it.Requirement.Name,
		FileName:    it.File.FileName,
		IsValid:     verdict.IsValid,
		Reason:      verdict.Reason,
	}, nil
}

// MIME families that select a verification strategy.
const (
	familyImage = "image"
	familyPDF   = "pdf"
	familyOther = "other"
)

func mimeFamily(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return familyImage
	case ct == "application/pdf":
		return familyPDF
	default:
		return familyOther
	}
}
