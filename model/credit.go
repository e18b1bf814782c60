package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the user's last-known credit balance. It is owned by the balance
// cache: only a successful verification or an explicit refresh may write it,
// and it is never decremented optimistically.
type Balance struct {
	Amount          int64     `json:"amount"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// CreditPackage is a purchasable bundle of credits. Packages are computed, not
// persisted; a synthetic exact-shortfall package is prepended when the user's
// balance does not cover a required amount.
type CreditPackage struct {
	Credits     int64           `json:"credits"`
	Price       decimal.Decimal `json:"price"`
	Popular     bool            `json:"popular"`
	IsShortfall bool            `json:"is_shortfall"`
}

// PurchaseSession identifies one checkout attempt with the external payment
// processor. It is created by the orchestrator and consumed once by the
// verification reconciler when the user returns from the redirect.
type PurchaseSession struct {
	SessionID    string `json:"session_id"`
	CreditAmount int64  `json:"credit_amount"`
	CheckoutURL  string `json:"checkout_url"`
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
)

// VerificationOutcome is the result of reconciling a purchase session. A given
// session transitions to verified or failed at most once per process; pending
// means another invocation already holds the attempt.
type VerificationOutcome struct {
	SessionID    string             `json:"session_id"`
	Status       VerificationStatus `json:"status"`
	CreditsAdded int64              `json:"credits_added,omitempty"`
	NewBalance   int64              `json:"new_balance,omitempty"`
}
