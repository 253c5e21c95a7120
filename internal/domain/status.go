// Status types for the dispute and representment lifecycles.
//
// The upstream systems this service replaces kept status as free-form strings
// compared by equality. Here both lifecycles are closed string types with an
// explicit transition table; any transition not present in the table is
// rejected by the caller with a state-conflict error, never applied silently.
package domain

// DisputeStatus tracks where a transaction's dispute sits in its lifecycle.
// It lives on both Transaction (ledger view) and Dispute (case view).
type DisputeStatus string

// Dispute lifecycle states.
const (
	// DisputeNone is the zero state: no dispute opened.
	DisputeNone DisputeStatus = ""
	// DisputeOpen: the customer's chargeback has been filed with the network.
	DisputeOpen DisputeStatus = "open"
	// DisputeRepresentmentReceived: merchant counter-evidence arrived and the
	// case waits on a bank-side decision.
	DisputeRepresentmentReceived DisputeStatus = "representment_received"
	// DisputeAwaitingCustomerInfo: the bank sided with the customer but needs
	// more evidence from them before going back to the network.
	DisputeAwaitingCustomerInfo DisputeStatus = "awaiting_customer_info"
	// DisputeEvidenceSubmitted: the customer supplied the requested rebuttal
	// and a human reviewer has been queued.
	DisputeEvidenceSubmitted DisputeStatus = "evidence_submitted"
	// DisputeAcceptedReversalFailed: the bank conceded to the merchant but the
	// temporary-credit reversal write failed; the case stays flagged for
	// manual recovery instead of being silently closed.
	DisputeAcceptedReversalFailed DisputeStatus = "accepted_reversal_failed"
	// DisputeClosedLost: terminal; the bank conceded to the merchant.
	DisputeClosedLost DisputeStatus = "closed_lost"
	// DisputeMerchantWon: terminal; the customer's rebuttal was rejected and
	// the merchant keeps the funds.
	DisputeMerchantWon DisputeStatus = "merchant_won"
	// DisputeClosedWon: terminal; the network ruled for the customer.
	DisputeClosedWon DisputeStatus = "closed_won"
)

// RepresentmentStatus tracks a single representment row. Resolution states
// are terminal for that row.
type RepresentmentStatus string

// Representment lifecycle states.
const (
	RepresentmentReceived          RepresentmentStatus = "received"
	RepresentmentAcceptedByBank    RepresentmentStatus = "accepted_by_bank"
	RepresentmentAwaitingCustomer  RepresentmentStatus = "awaiting_customer_info"
	RepresentmentEvidenceSubmitted RepresentmentStatus = "evidence_submitted"
	RepresentmentEvidenceRejected  RepresentmentStatus = "customer_evidence_rejected"
)

// disputeTransitions is the closed set of legal dispute-status moves.
// Keyed by current state; values are the allowed next states.
var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeNone: {DisputeOpen},
	DisputeOpen: {DisputeRepresentmentReceived, DisputeClosedWon},
	DisputeRepresentmentReceived: {
		DisputeClosedLost,
		DisputeAcceptedReversalFailed,
		DisputeAwaitingCustomerInfo,
	},
	DisputeAwaitingCustomerInfo: {DisputeEvidenceSubmitted},
	DisputeEvidenceSubmitted: {
		DisputeClosedLost,
		DisputeAcceptedReversalFailed,
		DisputeMerchantWon,
	},
	// Manual recovery: a retried acceptance may complete the reversal.
	DisputeAcceptedReversalFailed: {DisputeClosedLost},
}

// CanTransition reports whether moving a dispute from one status to another
// is allowed by the lifecycle table.
func CanTransition(from, to DisputeStatus) bool {
	for _, next := range disputeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a dispute status admits no further transitions.
func (s DisputeStatus) Terminal() bool {
	return len(disputeTransitions[s]) == 0
}

// lifecycleStates lists every dispute status in lifecycle order, for derived
// views over the transition table.
var lifecycleStates = []DisputeStatus{
	DisputeNone,
	DisputeOpen,
	DisputeRepresentmentReceived,
	DisputeAwaitingCustomerInfo,
	DisputeEvidenceSubmitted,
	DisputeAcceptedReversalFailed,
	DisputeClosedLost,
	DisputeMerchantWon,
	DisputeClosedWon,
}

// AcceptableStatuses are the dispute states from which a bank operator may
// accept a representment. Accepting closes the case as lost, so these are
// exactly the states the table allows to move to DisputeClosedLost: the
// initial bank decision point, the post-rebuttal decision point, and the
// failed-reversal recovery state.
func AcceptableStatuses() []DisputeStatus {
	var out []DisputeStatus
	for _, s := range lifecycleStates {
		if CanTransition(s, DisputeClosedLost) {
			out = append(out, s)
		}
	}
	return out
}
