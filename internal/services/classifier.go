// Package services – ClassifierService
//
// This file implements single-shot dispute-reason classification: one
// free-text description in, a category plus exactly three required evidence
// items out (zero for not_eligible). The cardinality and the photo-first rule
// for physical defects are enforced here after the port call, not trusted
// from the model.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-dispute-backend/internal/ai"
)

// requirementCount is the evidence-item cardinality for single-shot
// classification. The guided intake flow asks for two; this flow always asks
// for three.
const requirementCount = 3

// Classification is the customer-deliverable outcome of a single-shot
// reason classification.
type Classification struct {
	Category      ai.Category       `json:"category"`
	CategoryLabel string            `json:"category_label"`
	Explanation   string            `json:"explanation"`
	Documents     []ai.EvidenceItem `json:"documents"`
	UserMessage   string            `json:"user_message"`
}

// ClassifierService maps free-text dispute reasons to the fixed taxonomy.
type ClassifierService struct {
	Port ai.Port
}

// NewClassifierService constructs a ClassifierService.
func NewClassifierService(port ai.Port) *ClassifierService {
	return &ClassifierService{Port: port}
}

// Classify runs one classification. Returns ErrEmptyReason for blank input
// and passes port failures through unwrapped so the handler can map
// rate-limit and quota errors to their own statuses.
func (s *ClassifierService) Classify(ctx context.Context, merchantName, amount, date, reason string) (*Classification, error) {
	tr := otel.Tracer("services/ClassifierService")
	ctx, span := tr.Start(ctx, "ClassifierService.Classify")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	res, err := s.Port.ClassifyReason(ctx, ai.ReasonRequest{
		Transaction: ai.TransactionContext{
			MerchantName: strings.TrimSpace(merchantName),
			Amount:       strings.TrimSpace(amount),
			Date:         strings.TrimSpace(date),
		},
		Reason: reason,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("dispute.category", string(res.Category)))

	if err := validateClassification(res); err != nil {
		return nil, err
	}

	log.Info().
		Str("category", string(res.Category)).
		Int("documents", len(res.Documents)).
		Msg("dispute reason classified")

	return &Classification{
		Category:      res.Category,
		CategoryLabel: res.Category.Label(),
		Explanation:   res.Explanation,
		Documents:     res.Documents,
		UserMessage:   res.UserMessage,
	}, nil
}

// validateClassification enforces the structural rules the model is prompted
// with but cannot be trusted to follow: known category, exact document
// cardinality, and photo-first ordering for physical-product issues.
func validateClassification(res *ai.ReasonResult) error {
	if !ai.KnownCategory(res.Category) {
		return ai.ErrMalformedResponse
	}
	if res.Category == ai.CategoryNotEligible {
		if len(res.Documents) != 0 {
			res.Documents = nil
		}
		return nil
	}
	if len(res.Documents) != requirementCount {
		return ai.ErrMalformedResponse
	}
	if res.Category == ai.CategoryDefective && len(res.Documents) > 0 {
		first := strings.ToLower(res.Documents[0].Name)
		if !strings.Contains(first, "photo") && !strings.Contains(first, "picture") && !strings.Contains(first, "image") {
			return ai.ErrMalformedResponse
		}
	}
	return nil
}
