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
	"errors"
	"io"

	"github.com/pettales/petpay/cache"
	"github.com/pettales/petpay/config"
	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/request"
)

// CredentialProvider yields the authenticated user's session credential. An
// empty credential means no user is signed in.
type CredentialProvider = request.CredentialProvider

// Navigator performs the full-page checkout redirect. The external payment
// processor runs its own verification flow, so the hand-off must leave the
// application entirely rather than transition in-app.
type Navigator interface {
	Redirect(ctx context.Context, url string) error
}

// CharitySelector resolves the charity choice a gated download may require.
// Implementations return ErrSelectionCancelled when the user backs out.
type CharitySelector interface {
	SelectCharity(ctx context.Context, message string) (string, error)
}

// ArtifactSaver persists a downloaded artifact. An interactive implementation
// returns ErrSaveCancelled when the user dismisses the save surface; that is
// a deliberate abort, not a failure.
type ArtifactSaver interface {
	Save(ctx context.Context, filename string, body io.Reader) error
}

var (
	ErrSaveCancelled      = errors.New("save cancelled by user")
	ErrSelectionCancelled = errors.New("charity selection cancelled by user")
)

// PetPay is the client for the PetTales credit and delivery backend. It owns
// the balance cache, the verification attempt registry, and the collaborator
// hooks the sub-flows need.
type PetPay struct {
	client      *request.Client
	cache       cache.Cache
	credentials CredentialProvider
	navigator   Navigator
	charities   CharitySelector
	saver       ArtifactSaver
	fallback    ArtifactSaver
	attempts    *verificationRegistry
}

// NewPetPay initializes a new PetPay client from the loaded configuration.
//
// Parameters:
// - credentials CredentialProvider: The accessor for the signed-in user's session.
//
// Returns:
// - *PetPay: A pointer to the newly created client.
// - error: An error if configuration or cache initialization fails.
func NewPetPay(credentials CredentialProvider) (*PetPay, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	ca, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	newPetPay := &PetPay{
		client:      request.NewClient(configuration.API.BaseURL, credentials),
		cache:       ca,
		credentials: credentials,
		fallback:    &FileSaver{Dir: configuration.Download.Dir},
		attempts:    newVerificationRegistry(),
	}
	return newPetPay, nil
}

// SetNavigator installs the checkout-redirect collaborator.
func (p *PetPay) SetNavigator(n Navigator) {
	p.navigator = n
}

// SetCharitySelector installs the charity-selection collaborator.
func (p *PetPay) SetCharitySelector(s CharitySelector) {
	p.charities = s
}

// SetArtifactSaver installs the interactive save surface. When absent, or
// when it fails for a reason other than user cancellation, downloads fall
// back to the plain file saver.
func (p *PetPay) SetArtifactSaver(s ArtifactSaver) {
	p.saver = s
}

// requireCredential fails with UNAUTHENTICATED before any network call when
// no signed-in user is available.
func (p *PetPay) requireCredential(ctx context.Context) error {
	if p.credentials == nil {
		return apierror.NewStatusError(apierror.ErrUnauthenticated, 0, "no authenticated user")
	}
	token, err := p.credentials.Credential(ctx)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrUnauthenticated, "credential lookup failed", err)
	}
	if token == "" {
		return apierror.NewStatusError(apierror.ErrUnauthenticated, 0, "no authenticated user")
	}
	return nil
}
