/*
Copyright 2025 PetPay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package petpay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	verifyTracer = otel.Tracer("petpay.verify")
)

// verificationRegistry holds the per-session attempt latch. The latch is set
// synchronously under the mutex before the verification call begins, so
// near-simultaneous invocations for the same session observe it already set
// and no-op. The mutex is never held across a suspension point.
type verificationRegistry struct {
	mu        sync.Mutex
	attempted map[string]bool
}

func newVerificationRegistry() *verificationRegistry {
	return &verificationRegistry{attempted: make(map[string]bool)}
}

// begin claims the attempt for a session. It returns false when another
// invocation already holds it.
func (r *verificationRegistry) begin(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempted[sessionID] {
		return false
	}
	r.attempted[sessionID] = true
	return true
}

// clear releases the attempt so a user-initiated retry can issue a new call.
// Called on failure only; a verified session stays latched for the life of
// the process.
func (r *verificationRegistry) clear(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempted, sessionID)
}

type verifyRequest struct {
	SessionID string `json:"session_id"`
}

type verifyResponse struct {
	CreditsAdded int64 `json:"credits_added"`
	NewBalance   int64 `json:"new_balance"`
}

// VerifyPurchase reconciles a completed checkout session with the backend,
// at most once per session identifier per process. The triggering event (a
// return from the payment redirect) may fire more than once; duplicates get
// a pending outcome without a second network call.
//
// On success the outcome is verified, the balance cache is updated with the
// returned balance, and the latch is never cleared. On failure the latch is
// cleared, because failure is assumed possibly transient while success must
// never be replayed. A single confirm call is made; there is no polling.
func (p *PetPay) VerifyPurchase(ctx context.Context, sessionID string) (*model.VerificationOutcome, error) {
	ctx, span := verifyTracer.Start(ctx, "VerifyPurchase")
	defer span.End()

	if sessionID == "" {
		err := apierror.NewStatusError(apierror.ErrInvalidInput, 0, "missing session identifier")
		span.RecordError(err)
		return &model.VerificationOutcome{Status: model.VerificationFailed}, err
	}

	if err := p.requireCredential(ctx); err != nil {
		span.RecordError(err)
		return &model.VerificationOutcome{SessionID: sessionID, Status: model.VerificationFailed}, err
	}

	if !p.attempts.begin(sessionID) {
		span.AddEvent("Verification already attempted", trace.WithAttributes(attribute.String("session.id", sessionID)))
		return &model.VerificationOutcome{SessionID: sessionID, Status: model.VerificationPending}, nil
	}

	var resp verifyResponse
	err := p.client.Do(ctx, http.MethodPost, "/api/credits/verify-purchase", &verifyRequest{SessionID: sessionID}, &resp)
	if err != nil {
		p.attempts.clear(sessionID)
		span.RecordError(err)
		return &model.VerificationOutcome{SessionID: sessionID, Status: model.VerificationFailed}, err
	}

	balance := &model.Balance{Amount: resp.NewBalance, LastRefreshedAt: time.Now()}
	if err := p.cache.Set(ctx, balanceCacheKey, balance, balanceCacheTTL); err != nil {
		// The purchase is confirmed; a cache write failure must not fail the
		// verification or release the latch.
		logrus.Warnf("verified purchase %s but could not cache balance: %v", sessionID, err)
	}

	span.AddEvent("Purchase verified", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int64("credits.added", resp.CreditsAdded),
	))
	return &model.VerificationOutcome{
		SessionID:    sessionID,
		Status:       model.VerificationVerified,
		CreditsAdded: resp.CreditsAdded,
		NewBalance:   resp.NewBalance,
	}, nil
}
