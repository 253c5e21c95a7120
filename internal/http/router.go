// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-dispute-backend/docs"
	"github.com/tbourn/go-dispute-backend/internal/ai"
	"github.com/tbourn/go-dispute-backend/internal/config"
	"github.com/tbourn/go-dispute-backend/internal/domain"
	"github.com/tbourn/go-dispute-backend/internal/http/handlers"
	"github.com/tbourn/go-dispute-backend/internal/http/middleware"
	"github.com/tbourn/go-dispute-backend/internal/repo"
	"github.com/tbourn/go-dispute-backend/internal/services"
)

// repoShim adapts the repository free functions to the narrow interfaces the
// services declare. This keeps services decoupled from the concrete repo
// package while reusing existing functions.
type repoShim struct{}

func (repoShim) GetTransaction(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Transaction, error) {
	return repo.GetTransaction(ctx, db, id, userID)
}

func (repoShim) GetTransactionAny(ctx context.Context, db *gorm.DB, id string) (*domain.Transaction, error) {
	return repo.GetTransactionAny(ctx, db, id)
}

func (repoShim) UpdateDisputeStatusWhere(ctx context.Context, db *gorm.DB, id string, from, to domain.DisputeStatus, extra map[string]any) error {
	return repo.UpdateDisputeStatusWhere(ctx, db, id, from, to, extra)
}

func (repoShim) UpdateTransactionFields(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	return repo.UpdateTransactionFields(ctx, db, id, updates)
}

func (repoShim) CreateRepresentment(ctx context.Context, db *gorm.DB, transactionID, details string, dueAt *time.Time) (*domain.Representment, error) {
	return repo.CreateRepresentment(ctx, db, transactionID, details, dueAt)
}

func (repoShim) GetActiveRepresentment(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Representment, error) {
	return repo.GetActiveRepresentment(ctx, db, transactionID)
}

func (repoShim) UpdateRepresentmentStatusWhere(ctx context.Context, db *gorm.DB, id string, from, to domain.RepresentmentStatus, resolved bool) error {
	return repo.UpdateRepresentmentStatusWhere(ctx, db, id, from, to, resolved)
}

func (repoShim) CreateEvidenceRequest(ctx context.Context, db *gorm.DB, transactionID, representmentID, requestedItems string) (*domain.EvidenceRequest, error) {
	return repo.CreateEvidenceRequest(ctx, db, transactionID, representmentID, requestedItems)
}

func (repoShim) GetPendingEvidenceRequest(ctx context.Context, db *gorm.DB, transactionID string) (*domain.EvidenceRequest, error) {
	return repo.GetPendingEvidenceRequest(ctx, db, transactionID)
}

func (repoShim) MarkEvidenceRequestSubmitted(ctx context.Context, db *gorm.DB, id string) error {
	return repo.MarkEvidenceRequestSubmitted(ctx, db, id)
}

func (repoShim) CreateCustomerEvidence(ctx context.Context, db *gorm.DB, ev *domain.CustomerEvidence) error {
	return repo.CreateCustomerEvidence(ctx, db, ev)
}

func (repoShim) DeleteEvidenceByTransaction(ctx context.Context, db *gorm.DB, transactionID string) error {
	return repo.DeleteEvidenceByTransaction(ctx, db, transactionID)
}

func (repoShim) GetActiveDispute(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Dispute, error) {
	return repo.GetActiveDispute(ctx, db, transactionID)
}

func (repoShim) UpdateDisputeStatus(ctx context.Context, db *gorm.DB, id string, status domain.DisputeStatus) error {
	return repo.UpdateDisputeStatus(ctx, db, id, status)
}

func (repoShim) AttachDisputeConversation(ctx context.Context, db *gorm.DB, id, conversationID string) error {
	return repo.AttachDisputeConversation(ctx, db, id, conversationID)
}

func (repoShim) ListDisputesByConversation(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.Dispute, error) {
	return repo.ListDisputesByConversation(ctx, db, conversationID)
}

func (repoShim) DeleteDispute(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteDispute(ctx, db, id)
}

func (repoShim) GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id, userID)
}

func (repoShim) CreateConversation(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Conversation, error) {
	return repo.CreateConversation(ctx, db, userID, title)
}

func (repoShim) TouchConversation(ctx context.Context, db *gorm.DB, id string) error {
	return repo.TouchConversation(ctx, db, id)
}

func (repoShim) CreateMessage(db *gorm.DB, conversationID, role, content string) (*domain.Message, error) {
	return repo.CreateMessage(db, conversationID, role, content)
}

func (repoShim) DeleteMessagesByConversation(ctx context.Context, db *gorm.DB, conversationID string) error {
	return repo.DeleteMessagesByConversation(ctx, db, conversationID)
}

func (repoShim) DeleteConversation(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteConversation(ctx, db, id, userID)
}

func (repoShim) AppendAction(ctx context.Context, db *gorm.DB, txn *domain.Transaction, action, details, performedBy string) (*domain.ChargebackAction, error) {
	return repo.AppendAction(ctx, db, txn, action, details, performedBy)
}

func (repoShim) CountActions(ctx context.Context, db *gorm.DB, transactionID string) (int64, error) {
	return repo.CountActions(ctx, db, transactionID)
}

func (repoShim) ListActionsPage(ctx context.Context, db *gorm.DB, transactionID string, offset, limit int) ([]domain.ChargebackAction, error) {
	return repo.ListActionsPage(ctx, db, transactionID, offset, limit)
}

func (repoShim) GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, userID, key, now)
}

func (repoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key, operation, resultJSON string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, userID, key, operation, resultJSON, status, ttl)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, port ai.Port, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (20 MiB: evidence uploads carry images)
	r.Use(limitBody(20 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Role", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Role", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/port
	rules := services.NewEligibilityService(cfg.BaseCurrency, cfg.MinDisputeAmount, cfg.SettlementMinDays, cfg.SettlementMaxDays)
	disputeSvc := services.NewDisputeService(db, repoShim{}, rules)
	intakeSvc := services.NewIntakeService(port)
	classifierSvc := services.NewClassifierService(port)
	verifySvc := services.NewVerificationService(port)
	suffSvc := services.NewSufficiencyService(db, repoShim{}, port)
	repSvc := services.NewRepresentmentService(db, repoShim{})
	deleteSvc := services.NewDeletionService(db, repoShim{})
	deleteSvc.KeyTTL = cfg.IdempotencyTTL

	h := handlers.New(disputeSvc, intakeSvc, classifierSvc, verifySvc, suffSvc, repSvc, deleteSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Disputes
		api.POST("/disputes/eligibility", h.CheckEligibility)
		api.POST("/disputes/intake", h.IntakeStep)
		api.POST("/disputes/classify", h.ClassifyReason)

		// Evidence
		api.POST("/disputes/evidence/verify", h.VerifyEvidence)
		api.POST("/disputes/evidence/sufficiency", h.EvaluateSufficiency)

		// Representments (bank operators)
		api.POST("/representments/detect", h.DetectRepresentment)
		api.POST("/representments/accept", h.AcceptRepresentment)
		api.POST("/representments/reject", h.RejectRepresentment)
		api.POST("/representments/reject-evidence", h.RejectCustomerEvidence)

		// Conversations
		api.DELETE("/conversations", h.DeleteConversation)

		// Audit trail
		api.GET("/transactions/:id/audit", h.GetAuditTrail)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
