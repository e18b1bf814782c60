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
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pettales/petpay/config"
	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/model"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	creditTracer = otel.Tracer("petpay.credits")
)

const (
	balanceCacheKey = "petpay:balance"
	balanceCacheTTL = 15 * time.Minute
)

// standardPackageTiers are the fixed credit bundles shown in the purchase
// surface, before any synthetic shortfall package is prepended.
var standardPackageTiers = []struct {
	credits int64
	popular bool
}{
	{credits: 100, popular: false},
	{credits: 250, popular: false},
	{credits: 500, popular: true},
	{credits: 1000, popular: false},
	{credits: 2500, popular: false},
}

type balanceResponse struct {
	Amount int64 `json:"amount"`
}

// PurchaseRequest is the payload for creating a checkout session.
type PurchaseRequest struct {
	CreditAmount int64  `json:"credit_amount"`
	Context      string `json:"context"`
	Reference    string `json:"reference"`
}

// ValidatePurchaseRequest rejects non-positive and over-ceiling amounts
// before any network call is made.
func (r *PurchaseRequest) ValidatePurchaseRequest(maxAmount int64) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CreditAmount, validation.Required, validation.Min(int64(1)), validation.Max(maxAmount)),
	)
}

// RefreshBalance fetches the authoritative credit balance from the backend
// and writes it to the balance cache. It is one of the two permitted cache
// writers; a failed fetch leaves the cached value untouched.
func (p *PetPay) RefreshBalance(ctx context.Context) (*model.Balance, error) {
	ctx, span := creditTracer.Start(ctx, "RefreshBalance")
	defer span.End()

	if err := p.requireCredential(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var resp balanceResponse
	if err := p.client.Do(ctx, http.MethodGet, "/api/credits/balance", nil, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	balance := &model.Balance{Amount: resp.Amount, LastRefreshedAt: time.Now()}
	if err := p.cache.Set(ctx, balanceCacheKey, balance, balanceCacheTTL); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Balance refreshed", trace.WithAttributes(attribute.Int64("balance.amount", balance.Amount)))
	return balance, nil
}

// CachedBalance returns the last-known balance without blocking on a fresh
// fetch. Reads are stale-tolerant; only a cache miss falls through to the
// network.
func (p *PetPay) CachedBalance(ctx context.Context) (*model.Balance, error) {
	ctx, span := creditTracer.Start(ctx, "CachedBalance")
	defer span.End()

	var balance model.Balance
	if err := p.cache.Get(ctx, balanceCacheKey, &balance); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if balance.LastRefreshedAt.IsZero() {
		span.AddEvent("Cache miss, refreshing balance")
		return p.RefreshBalance(ctx)
	}
	return &balance, nil
}

// Packages computes the credit package catalog for a purchase surface. When
// requiredCredits exceeds currentBalance, a synthetic package covering the
// exact shortfall is prepended so the user can buy precisely what the pending
// action needs.
func (p *PetPay) Packages(requiredCredits, currentBalance int64) ([]model.CreditPackage, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	rate, err := decimal.NewFromString(cnf.Credit.PricePerCredit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid price per credit", err)
	}

	packages := make([]model.CreditPackage, 0, len(standardPackageTiers)+1)
	if shortfall := requiredCredits - currentBalance; requiredCredits > 0 && shortfall > 0 {
		packages = append(packages, model.CreditPackage{
			Credits:     shortfall,
			Price:       priceFor(rate, shortfall),
			IsShortfall: true,
		})
	}
	for _, tier := range standardPackageTiers {
		packages = append(packages, model.CreditPackage{
			Credits: tier.credits,
			Price:   priceFor(rate, tier.credits),
			Popular: tier.popular,
		})
	}
	return packages, nil
}

func priceFor(rate decimal.Decimal, credits int64) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(credits)).Round(2)
}

// CreatePurchaseSession creates a checkout session for the requested credit
// amount. On success the caller's only further responsibility is handing the
// browsing context to the returned checkout URL; the external processor runs
// its own verification flow from there.
//
// Failures are surfaced and never retried automatically. A failed call
// leaves the balance cache untouched.
func (p *PetPay) CreatePurchaseSession(ctx context.Context, creditAmount int64, purchaseContext string) (*model.PurchaseSession, error) {
	ctx, span := creditTracer.Start(ctx, "CreatePurchaseSession")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	req := &PurchaseRequest{
		CreditAmount: creditAmount,
		Context:      purchaseContext,
		Reference:    model.GenerateUUIDWithSuffix("purchase"),
	}
	if err := req.ValidatePurchaseRequest(cnf.Credit.MaxPurchaseAmount); err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid credit amount", err)
	}

	if err := p.requireCredential(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var session model.PurchaseSession
	if err := p.client.Do(ctx, http.MethodPost, "/api/credits/purchase", req, &session); err != nil {
		span.RecordError(err)
		return nil, err
	}
	session.CreditAmount = creditAmount
	span.AddEvent("Purchase session created", trace.WithAttributes(attribute.String("session.id", session.SessionID)))
	return &session, nil
}

// BeginCheckout creates a purchase session and hands the browsing context to
// the payment processor through the navigator collaborator.
func (p *PetPay) BeginCheckout(ctx context.Context, creditAmount int64, purchaseContext string) (*model.PurchaseSession, error) {
	ctx, span := creditTracer.Start(ctx, "BeginCheckout")
	defer span.End()

	session, err := p.CreatePurchaseSession(ctx, creditAmount, purchaseContext)
	if err != nil {
		return nil, err
	}
	if p.navigator != nil {
		if err := p.navigator.Redirect(ctx, session.CheckoutURL); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	return session, nil
}
