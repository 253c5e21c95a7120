// Package services – EligibilityService
//
// This file implements the deterministic rule engine deciding whether a
// transaction may be disputed. Rules are evaluated independently and every
// applicable reason is collected, not just the first; the result is a pure
// function of the transaction and configuration (aside from logging), so
// repeated checks are idempotent.
package services

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// Eligibility verdict values.
const (
	StatusEligible   = "ELIGIBLE"
	StatusIneligible = "INELIGIBLE"
)

// Ineligibility reason strings. These are customer-facing and asserted on by
// clients, so the phrasing is stable.
const (
	ReasonTooEarly        = "This transaction has not settled yet; card payments typically settle in 2-3 business days. Please check back soon."
	ReasonPendingTooLong  = "This transaction has been pending settlement unusually long. Please escalate to support."
	ReasonAwaitSettlement = "This transaction has not settled yet. Please wait for settlement before disputing."
	ReasonFullyRefunded   = "This transaction has already been fully refunded."
	ReasonSecuredWallet   = "This payment was made through a secured non-OTP wallet and is not eligible for dispute."
)

// otpSecuredIndications are the authorization indicator codes that mark a
// wallet payment as OTP-verified. Wallet payments outside this set used
// strong device authentication instead and cannot be disputed as
// unauthorized.
var otpSecuredIndications = map[string]struct{}{
	"2":   {},
	"212": {},
}

// strongAuthWallets are the digital wallets whose payments carry device-level
// strong authentication.
var strongAuthWallets = map[string]struct{}{
	"Apple Pay":   {},
	"Google Pay":  {},
	"Samsung Pay": {},
}

// EligibilityResult is the verdict of one eligibility evaluation.
// WriteOffRecommended is bank-internal and never shown to the customer: it
// marks small-amount transactions where a goodwill write-off is cheaper than
// a network dispute.
type EligibilityResult struct {
	Status              string   `json:"status"`
	IneligibleReasons   []string `json:"ineligible_reasons,omitempty"`
	WriteOffRecommended bool     `json:"write_off_recommended,omitempty"`
}

// Eligible reports whether the verdict allows a dispute.
func (r *EligibilityResult) Eligible() bool { return r.Status == StatusEligible }

// EligibilityService evaluates the dispute-eligibility rule set.
type EligibilityService struct {
	// BaseCurrency is the bank's accounting currency; local amounts in this
	// currency take precedence over the transaction amount.
	BaseCurrency string
	// MinDisputeAmount is the threshold below which a write-off is
	// recommended instead of a dispute.
	MinDisputeAmount float64
	// SettlementMinDays / SettlementMaxDays bound the normal settlement
	// window for the too-early / pending-too-long reasons.
	SettlementMinDays int
	SettlementMaxDays int

	// Now is injectable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

// NewEligibilityService constructs an EligibilityService with production
// defaults.
func NewEligibilityService(baseCurrency string, minAmount float64, minDays, maxDays int) *EligibilityService {
	return &EligibilityService{
		BaseCurrency:      baseCurrency,
		MinDisputeAmount:  minAmount,
		SettlementMinDays: minDays,
		SettlementMaxDays: maxDays,
		Now:               time.Now,
	}
}

// Evaluate runs every rule against the transaction and collects all
// applicable ineligibility reasons. An unsettled transaction is blocked
// regardless of what later rules find, but evaluation continues so the
// customer sees every reason at once.
func (s *EligibilityService) Evaluate(txn *domain.Transaction) *EligibilityResult {
	res := &EligibilityResult{Status: StatusEligible}

	// 1) Settlement gate.
	if !txn.Settled {
		age := s.now().Sub(txn.TransactionAt)
		days := int(age.Hours() / 24)
		switch {
		case days < s.SettlementMinDays:
			res.IneligibleReasons = append(res.IneligibleReasons, ReasonTooEarly)
		case days > s.SettlementMaxDays:
			res.IneligibleReasons = append(res.IneligibleReasons, ReasonPendingTooLong)
		default:
			res.IneligibleReasons = append(res.IneligibleReasons, ReasonAwaitSettlement)
		}
	}

	// 2) Refund exhaustion.
	base := s.baseAmount(txn)
	if txn.RefundReceived && base-txn.RefundAmount <= 0 {
		res.IneligibleReasons = append(res.IneligibleReasons, ReasonFullyRefunded)
	}

	// 3) Secured-wallet exclusion.
	if txn.IsWalletPayment {
		if _, strong := strongAuthWallets[txn.WalletType]; strong {
			if _, otp := otpSecuredIndications[txn.SecuredIndication]; !otp {
				res.IneligibleReasons = append(res.IneligibleReasons, ReasonSecuredWallet)
			}
		}
	}

	// 4) Write-off recommendation: informational only, never blocks.
	if base < s.MinDisputeAmount {
		res.WriteOffRecommended = true
	}

	if len(res.IneligibleReasons) > 0 {
		res.Status = StatusIneligible
	}

	log.Debug().
		Str("transaction_id", txn.ID).
		Str("status", res.Status).
		Int("reasons", len(res.IneligibleReasons)).
		Bool("write_off_recommended", res.WriteOffRecommended).
		Msg("eligibility evaluated")

	return res
}

// baseAmount prefers the local-currency amount when it is expressed in the
// bank's base currency and positive, else falls back to the transaction
// amount.
func (s *EligibilityService) baseAmount(txn *domain.Transaction) float64 {
	if txn.LocalCurrency == s.BaseCurrency && txn.LocalAmount > 0 {
		return txn.LocalAmount
	}
	return txn.Amount
}

func (s *EligibilityService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FormatAmount renders an amount with its currency for model context and
// customer messages.
func FormatAmount(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}
