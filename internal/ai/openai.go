// OpenAI-compatible adapter for the classification port.
//
// The adapter speaks the chat-completions wire format with JSON-object
// responses so every judgment comes back as a single parseable structure. It
// deliberately performs no automatic retries: rate-limit and quota failures
// are surfaced as their distinct sentinel errors and the caller decides
// whether to back off.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
	defaultVision  = "gpt-4o"
	defaultTimeout = 45 * time.Second
)

// Client is an HTTP implementation of Port against an OpenAI-compatible
// chat-completions endpoint. The zero value is not usable; construct with
// NewClient.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	visionModel string
	httpClient  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a non-default completions endpoint
// (e.g. an internal proxy).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if strings.TrimSpace(u) != "" {
			c.baseURL = u
		}
	}
}

// WithModels overrides the text and vision model names.
func WithModels(text, vision string) Option {
	return func(c *Client) {
		if strings.TrimSpace(text) != "" {
			c.model = text
		}
		if strings.TrimSpace(vision) != "" {
			c.visionModel = vision
		}
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient constructs a classification client. The API key is required at
// call time, not construction time, so a misconfigured deployment fails on
// first use with a clear error rather than at startup.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		visionModel: defaultVision,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// --- wire types ---

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type     string    `json:"type"` // "text" | "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"` // "json_object"
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// complete posts one chat completion and unmarshals the JSON content of the
// first choice into out. Upstream throttling and quota failures map to the
// package sentinels; an unparseable body maps to ErrMalformedResponse.
func (c *Client) complete(ctx context.Context, model, system string, user any, out any) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return fmt.Errorf("classification API key not configured")
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0.2,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("completion request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		_ = json.Unmarshal(respBody, &ae)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, ae.Error.Message)
		case resp.StatusCode == http.StatusPaymentRequired,
			ae.Error.Code == "insufficient_quota",
			ae.Error.Type == "insufficient_quota",
			ae.Error.Type == "billing_not_active":
			return fmt.Errorf("%w: %s", ErrQuotaExhausted, ae.Error.Message)
		}
		if ae.Error.Message != "" {
			return fmt.Errorf("classification service error (%d): %s", resp.StatusCode, ae.Error.Message)
		}
		return fmt.Errorf("classification service error (%d)", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil || len(cr.Choices) == 0 {
		return fmt.Errorf("%w: unparseable completion envelope", ErrMalformedResponse)
	}
	content := strings.TrimSpace(cr.Choices[0].Message.Content)
	if content == "" {
		return fmt.Errorf("%w: empty completion content", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// --- prompts ---

// eligibilityGuidance reproduces the bank's chargeback heuristics as model
// guidance. These are instructions to the classifier, not hard-coded rules:
// the model weighs them against the customer's own words.
const eligibilityGuidance = `A chargeback is FAVORED when the customer alleges:
- a payment they did not authorize,
- non-delivery past a promised delivery date,
- a refund the merchant promised but never issued,
- a duplicate charge for one purchase,
- a wrong amount the merchant did not correct,
- a defective item or one materially different from its description.
A chargeback is DISFAVORED when:
- the customer concedes they received what they ordered as expected,
- a refund or replacement is already in motion with the merchant,
- the promised delivery or refund window has not yet elapsed,
- the payment is an authorized or recurring charge the customer misread,
- no concrete problem can be articulated,
- the customer missed the merchant's return window before complaining.`

const questionSystem = `You are a bank dispute-intake assistant generating ONE follow-up question for a cardholder.
First check whether the customer's answers name a merchant different from the transaction's merchant. If they do, set merchant_mismatch to true and make the question a polite clarification of which merchant the customer means.
Otherwise set merchant_mismatch to false, detect the issue type (one of: non_delivery, duplicate_charge, wrong_amount, unauthorized, refund_not_received, defective, unclear) and ask the single most useful context-specific follow-up for that issue.
Never mention internal bank processes. Respond with JSON: {"question": string, "merchant_mismatch": boolean, "detected_issue": string}.`

const intakeSystem = `You are a bank dispute analyst giving the final verdict of a three-question intake interview.
` + eligibilityGuidance + `
Decide chargeback_possible, pick a category from exactly this set when possible: fraud, not_received, duplicate, incorrect_amount, defective, billing_error. List EXACTLY TWO required evidence items the customer must upload, each with a name and accepted upload types from ["image","pdf","doc"].
reasoning is for bank staff only. user_message is shown to the customer: state only whether they can dispute and which documents to provide. Never reveal internal reasoning, temporary-credit mechanics, or investigation timelines in user_message.
Respond with JSON: {"chargeback_possible": boolean, "reasoning": string, "category": string, "required_evidence": [{"name": string, "upload_types": [string]}], "user_message": string}.`

const reasonSystem = `You are a bank dispute analyst classifying a cardholder's free-text dispute reason.
` + eligibilityGuidance + `
Pick category from exactly: fraud, not_received, duplicate, incorrect_amount, defective, billing_error, not_eligible.
List EXACTLY THREE required documents (ZERO when category is not_eligible), each with a name and accepted upload types from ["image","pdf","doc"]. When the issue concerns a physical product defect or mismatch, the FIRST document must be a photo of the product showing the issue.
Respond with JSON: {"category": string, "explanation": string, "documents": [{"name": string, "upload_types": [string]}], "user_message": string}.`

const sufficiencySystem = `You are a bank dispute analyst scoring a cardholder's rebuttal to merchant counter-evidence against a fixed rubric.
Mark sufficient=true only when AT LEAST THREE rubric criteria are met. reasons lists, per criterion, whether and why it is or is not met. summary is a two-sentence neutral synopsis for the human reviewer.
Respond with JSON: {"sufficient": boolean, "reasons": [string], "summary": string}.`

// --- Port implementation ---

// GenerateQuestion implements Port.
func (c *Client) GenerateQuestion(ctx context.Context, req QuestionRequest) (*QuestionResult, error) {
	payload := map[string]any{
		"transaction": req.Transaction,
		"turns":       req.Turns,
	}
	user, _ := json.Marshal(payload)

	var out QuestionResult
	if err := c.complete(ctx, c.model, questionSystem, string(user), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Question) == "" {
		return nil, fmt.Errorf("%w: missing question", ErrMalformedResponse)
	}
	return &out, nil
}

// EvaluateIntake implements Port.
func (c *Client) EvaluateIntake(ctx context.Context, req IntakeRequest) (*IntakeResult, error) {
	payload := map[string]any{
		"transaction": req.Transaction,
		"turns":       req.Turns,
	}
	user, _ := json.Marshal(payload)

	var out IntakeResult
	if err := c.complete(ctx, c.model, intakeSystem, string(user), &out); err != nil {
		return nil, err
	}
	if out.ChargebackPossible && len(out.RequiredEvidence) != 2 {
		return nil, fmt.Errorf("%w: expected 2 evidence items, got %d", ErrMalformedResponse, len(out.RequiredEvidence))
	}
	return &out, nil
}

// ClassifyReason implements Port.
func (c *Client) ClassifyReason(ctx context.Context, req ReasonRequest) (*ReasonResult, error) {
	payload := map[string]any{
		"transaction": req.Transaction,
		"reason":      req.Reason,
	}
	user, _ := json.Marshal(payload)

	var out ReasonResult
	if err := c.complete(ctx, c.model, reasonSystem, string(user), &out); err != nil {
		return nil, err
	}
	if !KnownCategory(out.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrMalformedResponse, out.Category)
	}
	return &out, nil
}

// JudgeDocument implements Port. Image uploads are sent to the vision model
// together with the requirement and dispute context; all other formats are
// judged from metadata only.
func (c *Client) JudgeDocument(ctx context.Context, req DocumentRequest) (*DocumentVerdict, error) {
	system := documentSystem(req.Leniency)
	meta := map[string]any{
		"requirement":      req.RequirementName,
		"dispute_category": req.DisputeCategory,
		"dispute_reason":   req.DisputeReason,
		"file_name":        req.FileName,
		"content_type":     req.ContentType,
		"size_bytes":       req.SizeBytes,
	}
	metaJSON, _ := json.Marshal(meta)

	var out DocumentVerdict
	if len(req.ImageData) > 0 {
		dataURL := "data:" + req.ContentType + ";base64," +
			base64.StdEncoding.EncodeToString(req.ImageData)
		parts := []contentPart{
			{Type: "text", Text: string(metaJSON)},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}
		if err := c.complete(ctx, c.visionModel, system, parts, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	if err := c.complete(ctx, c.model, system, string(metaJSON), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// documentSystem builds the judgment instructions for one leniency level.
func documentSystem(l Leniency) string {
	var sb strings.Builder
	sb.WriteString("You verify whether one uploaded file plausibly satisfies a named evidence requirement for a card dispute.\n")
	switch l {
	case LeniencyStrict:
		sb.WriteString("You can see the image. Judge relevance to the requirement, information sufficiency, and legibility. ")
		sb.WriteString("Be context-aware: for a 'wrong item received' claim, a plain photo of the received item is valid evidence even without visible damage.\n")
	case LeniencyModerate:
		sb.WriteString("You see metadata only (filename, declared type, size); the content is not introspected. ")
		sb.WriteString("Be moderately lenient: flag only obvious mismatches, such as a size far outside the normal range for this kind of document.\n")
	default:
		sb.WriteString("You see metadata only. Be lenient: reject only when the filename, type, or size is obviously inappropriate for the requirement.\n")
	}
	sb.WriteString(`Respond with JSON: {"is_valid": boolean, "reason": string}.`)
	return sb.String()
}

// ScoreEvidence implements Port.
func (c *Client) ScoreEvidence(ctx context.Context, req SufficiencyRequest) (*SufficiencyResult, error) {
	payload := map[string]any{
		"transaction": req.Transaction,
		"note":        req.Note,
		"files":       req.FileNames,
		"criteria":    req.Criteria,
	}
	user, _ := json.Marshal(payload)

	var out SufficiencyResult
	if err := c.complete(ctx, c.model, sufficiencySystem, string(user), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
