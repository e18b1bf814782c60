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
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPurchase(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	httpmock.RegisterResponder("POST", testBaseURL+"/api/credits/verify-purchase",
		httpmock.NewStringResponder(200, `{"success":true,"data":{"credits_added":500,"new_balance":730}}`))

	outcome, err := p.VerifyPurchase(context.Background(), "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, outcome.Status)
	assert.Equal(t, int64(500), outcome.CreditsAdded)
	assert.Equal(t, int64(730), outcome.NewBalance)
}

func TestVerifyPurchaseIssuesSingleCallUnderConcurrency(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	httpmock.RegisterResponder("POST", testBaseURL+"/api/credits/verify-purchase",
		func(req *http.Request) (*http.Response, error) {
			// Hold the response open so concurrent invocations overlap.
			time.Sleep(50 * time.Millisecond)
			return httpmock.NewStringResponse(200, `{"success":true,"data":{"credits_added":500,"new_balance":730}}`), nil
		})

	const workers = 8
	outcomes := make([]*model.VerificationOutcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := p.VerifyPurchase(context.Background(), "cs_race")
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	verified := 0
	for _, outcome := range outcomes {
		switch outcome.Status {
		case model.VerificationVerified:
			verified++
		case model.VerificationPending:
		default:
			t.Fatalf("unexpected outcome status %q", outcome.Status)
		}
	}
	assert.Equal(t, 1, verified)
}

func TestVerifyPurchaseSuccessLatchIsPermanent(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	httpmock.RegisterResponder("POST", testBaseURL+"/api/credits/verify-purchase",
		httpmock.NewStringResponder(200, `{"success":true,"data":{"credits_added":100,"new_balance":100}}`))

	outcome, err := p.VerifyPurchase(context.Background(), "cs_once")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, outcome.Status)

	// A verified session never re-verifies within the same process.
	outcome, err = p.VerifyPurchase(context.Background(), "cs_once")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationPending, outcome.Status)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestVerifyPurchaseFailureClearsLatch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	calls := 0
	httpmock.RegisterResponder("POST", testBaseURL+"/api/credits/verify-purchase",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(500, `{"success":false,"message":"temporary"}`), nil
			}
			return httpmock.NewStringResponse(200, `{"success":true,"data":{"credits_added":250,"new_balance":250}}`), nil
		})

	outcome, err := p.VerifyPurchase(context.Background(), "cs_retry")
	require.Error(t, err)
	assert.Equal(t, model.VerificationFailed, outcome.Status)

	// Failure released the latch, so a user-initiated retry issues a new call.
	outcome, err = p.VerifyPurchase(context.Background(), "cs_retry")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, outcome.Status)
	assert.Equal(t, 2, calls)
}

func TestVerifyPurchaseMissingSessionID(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	outcome, err := p.VerifyPurchase(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apierror.ErrInvalidInput, apierror.CodeOf(err))
	assert.Equal(t, model.VerificationFailed, outcome.Status)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestVerifyPurchaseUnauthenticated(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "")

	outcome, err := p.VerifyPurchase(context.Background(), "cs_test_123")
	require.Error(t, err)
	assert.Equal(t, apierror.ErrUnauthenticated, apierror.CodeOf(err))
	assert.Equal(t, model.VerificationFailed, outcome.Status)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestVerifyPurchaseUpdatesBalanceCache(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	p := newTestPetPay(t, "tok")

	httpmock.RegisterResponder("POST", testBaseURL+"/api/credits/verify-purchase",
		httpmock.NewStringResponder(200, `{"success":true,"data":{"credits_added":500,"new_balance":1200}}`))

	_, err := p.VerifyPurchase(context.Background(), "cs_cache")
	require.NoError(t, err)

	// The reconciler is a permitted cache writer; the cached read serves the
	// new balance without another fetch.
	cached, err := p.CachedBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1200), cached.Amount)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
