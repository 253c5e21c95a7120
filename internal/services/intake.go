// Package services – IntakeService
//
// This file implements the guided 3-turn dispute intake. The dialogue is
// stateless on the server: each call names an explicit step and carries every
// answer collected so far, and the service only orchestrates classification
// calls. Question generation and the final verdict are delegated to the
// classification port; merchant-mismatch detection always takes priority over
// ordinary follow-up generation.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-dispute-backend/internal/ai"
)

// Intake step identifiers.
const (
	StepGenerateQ2 = "generate_q2"
	StepGenerateQ3 = "generate_q3"
	StepEvaluate   = "evaluate"
)

// IntakeQuestion1 is the fixed opening question of every intake dialogue.
// Q2 and Q3 are generated per conversation.
const IntakeQuestion1 = "What happened with this transaction? Please describe the issue in your own words."

// IntakeInput is one intake call: the step to run plus everything the caller
// has collected so far. Amount and date are preformatted display strings.
type IntakeInput struct {
	Step              string
	Answer1           string
	Answer2           string
	Answer3           string
	Question2         string
	Question3         string
	MerchantName      string
	TransactionAmount string
	TransactionDate   string
}

// IntakeStepResult is the step-specific outcome: Question for the two
// question-generation steps, Evaluation for the final step. Exactly one of
// the two is set.
type IntakeStepResult struct {
	Step       string             `json:"step"`
	Question   *ai.QuestionResult `json:"question,omitempty"`
	Evaluation *ai.IntakeResult   `json:"evaluation,omitempty"`
}

// IntakeService drives the 3-turn intake dialogue through the classification
// port.
type IntakeService struct {
	Port ai.Port
}

// NewIntakeService constructs an IntakeService.
func NewIntakeService(port ai.Port) *IntakeService {
	return &IntakeService{Port: port}
}

// Run executes one intake step. Port failures are returned unwrapped so
// callers can distinguish rate-limit and quota errors from generic failures.
func (s *IntakeService) Run(ctx context.Context, in IntakeInput) (*IntakeStepResult, error) {
	tr := otel.Tracer("services/IntakeService")
	ctx, span := tr.Start(ctx, "IntakeService.Run")
	defer span.End()
	span.SetAttributes(attribute.String("intake.step", in.Step))

	txn := ai.TransactionContext{
		MerchantName: strings.TrimSpace(in.MerchantName),
		Amount:       strings.TrimSpace(in.TransactionAmount),
		Date:         strings.TrimSpace(in.TransactionDate),
	}

	switch in.Step {
	case StepGenerateQ2:
		if strings.TrimSpace(in.Answer1) == "" {
			return nil, ErrInvalidStep
		}
		q, err := s.Port.GenerateQuestion(ctx, ai.QuestionRequest{
			Transaction: txn,
			Turns: []ai.Turn{
				{Question: IntakeQuestion1, Answer: in.Answer1},
			},
		})
		if err != nil {
			return nil, err
		}
		s.logQuestion(in.Step, q)
		return &IntakeStepResult{Step: in.Step, Question: q}, nil

	case StepGenerateQ3:
		if strings.TrimSpace(in.Answer1) == "" || strings.TrimSpace(in.Answer2) == "" {
			return nil, ErrInvalidStep
		}
		q, err := s.Port.GenerateQuestion(ctx, ai.QuestionRequest{
			Transaction: txn,
			Turns: []ai.Turn{
				{Question: IntakeQuestion1, Answer: in.Answer1},
				{Question: s.questionOr(in.Question2, "Follow-up question"), Answer: in.Answer2},
			},
		})
		if err != nil {
			return nil, err
		}
		s.logQuestion(in.Step, q)
		return &IntakeStepResult{Step: in.Step, Question: q}, nil

	case StepEvaluate:
		if strings.TrimSpace(in.Answer1) == "" ||
			strings.TrimSpace(in.Answer2) == "" ||
			strings.TrimSpace(in.Answer3) == "" {
			return nil, ErrInvalidStep
		}
		ev, err := s.Port.EvaluateIntake(ctx, ai.IntakeRequest{
			Transaction: txn,
			Turns: []ai.Turn{
				{Question: IntakeQuestion1, Answer: in.Answer1},
				{Question: s.questionOr(in.Question2, "Follow-up question"), Answer: in.Answer2},
				{Question: s.questionOr(in.Question3, "Final question"), Answer: in.Answer3},
			},
		})
		if err != nil {
			return nil, err
		}
		log.Info().
			Bool("chargeback_possible", ev.ChargebackPossible).
			Str("category", string(ev.Category)).
			Int("required_evidence", len(ev.RequiredEvidence)).
			Msg("intake evaluated")
		return &IntakeStepResult{Step: in.Step, Evaluation: ev}, nil
	}

	return nil, ErrInvalidStep
}

func (s *IntakeService) questionOr(q, fallback string) string {
	if strings.TrimSpace(q) == "" {
		return fallback
	}
	return q
}

func (s *IntakeService) logQuestion(step string, q *ai.QuestionResult) {
	log.Debug().
		Str("step", step).
		Bool("merchant_mismatch", q.MerchantMismatch).
		Str("detected_issue", q.DetectedIssue).
		Msg("intake question generated")
}
