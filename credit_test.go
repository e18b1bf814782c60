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
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/pettales/petpay/config"
	"github.com/pettales/petpay/internal/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://api.pettales.test"

func newTestPetPay(t *testing.T, token string) *PetPay {
	t.Helper()
	config.MockConfig(&config.Configuration{
		ProjectName: "PetPay Test",
		API:         config.APIConfig{BaseURL: testBaseURL},
	})
	p, err := NewPetPay(StaticCredential(token))
	require.NoError(t, err)
	return p
}

func TestRefreshBalanceUpdatesCache(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	httpmock.RegisterResponder("GET", testBaseURL+"/api/credits/balance",
		httpmock.NewStringResponder(200, `{"success":true,"data":{"amount":730}}`))

	balance, err := p.RefreshBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(730), balance.Amount)
	assert.False(t, balance.LastRefreshedAt.IsZero())

	// The cached read must not issue a second request.
	cached, err := p.CachedBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(730), cached.Amount)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestRefreshBalanceFailureLeavesCacheUntouched(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	httpmock.RegisterResponder("GET", testBaseURL+"/api/credits/balance",
		httpmock.NewStringResponder(200, `{"success":true,"data":{"amount":300}}`))
	_, err := p.RefreshBalance(context.Background())
	require.NoError(t, err)

	httpmock.RegisterResponder("GET", testBaseURL+"/api/credits/balance",
		httpmock.NewStringResponder(500, `{"success":false,"message":"boom"}`))
	_, err = p.RefreshBalance(context.Background())
	require.Error(t, err)

	cached, err := p.CachedBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(300), cached.Amount)
}

func TestCreatePurchaseSession(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	httpmock.RegisterResponder("POST", testBaseURL+"/api/credits/purchase",
		httpmock.NewStringResponder(200, `{"success":true,"data":{"session_id":"cs_test_123","checkout_url":"https://pay.example.com/cs_test_123"}}`))

	session, err := p.CreatePurchaseSession(context.Background(), 500, "credit_modal")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.SessionID)
	assert.Equal(t, int64(500), session.CreditAmount)
	assert.Equal(t, "https://pay.example.com/cs_test_123", session.CheckoutURL)
}

func TestCreatePurchaseSessionRejectsNonPositiveAmount(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	for _, amount := range []int64{0, -5} {
		_, err := p.CreatePurchaseSession(context.Background(), amount, "credit_modal")
		require.Error(t, err)
		assert.Equal(t, apierror.ErrInvalidInput, apierror.CodeOf(err))
	}
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestCreatePurchaseSessionRejectsOverCeiling(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	_, err := p.CreatePurchaseSession(context.Background(), 100001, "credit_modal")
	require.Error(t, err)
	assert.Equal(t, apierror.ErrInvalidInput, apierror.CodeOf(err))
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestCreatePurchaseSessionUnauthenticated(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "")

	_, err := p.CreatePurchaseSession(context.Background(), 500, "credit_modal")
	require.Error(t, err)
	assert.Equal(t, apierror.ErrUnauthenticated, apierror.CodeOf(err))
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestCreatePurchaseSessionServerRejected(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	httpmock.RegisterResponder("POST", testBaseURL+"/api/credits/purchase",
		httpmock.NewStringResponder(200, `{"success":false,"message":"amount out of bounds"}`))

	_, err := p.CreatePurchaseSession(context.Background(), 500, "credit_modal")
	require.Error(t, err)
	assert.Equal(t, apierror.ErrServerRejected, apierror.CodeOf(err))
	assert.Contains(t, err.Error(), "amount out of bounds")
}

func TestPackagesShortfallListedFirst(t *testing.T) {
	p := newTestPetPay(t, "tok")

	packages, err := p.Packages(600, 200)
	require.NoError(t, err)
	require.NotEmpty(t, packages)

	assert.True(t, packages[0].IsShortfall)
	assert.Equal(t, int64(400), packages[0].Credits)
	// 400 credits at the default $0.05 per credit.
	assert.Equal(t, "20.00", packages[0].Price.StringFixed(2))

	for _, pkg := range packages[1:] {
		assert.False(t, pkg.IsShortfall)
	}
}

func TestPackagesNoShortfallWhenBalanceCovers(t *testing.T) {
	p := newTestPetPay(t, "tok")

	packages, err := p.Packages(600, 800)
	require.NoError(t, err)
	for _, pkg := range packages {
		assert.False(t, pkg.IsShortfall)
	}

	packages, err = p.Packages(0, 0)
	require.NoError(t, err)
	for _, pkg := range packages {
		assert.False(t, pkg.IsShortfall)
	}
}
