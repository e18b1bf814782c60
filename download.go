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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/model"
	"github.com/pettales/petpay/request"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	downloadTracer = otel.Tracer("petpay.download")
)

var (
	filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9 _-]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

const maxFilenameBase = 50

// DownloadOptions carries the optional negotiation inputs: a guest
// post-purchase session identifier, an already-chosen charity, and the book
// title used for filename derivation.
type DownloadOptions struct {
	SessionID string
	CharityID string
	Title     string
}

// GenerateFilename derives a filesystem-safe filename from a book title.
// Characters outside [A-Za-z0-9 _-] are stripped, whitespace runs collapse to
// single underscores, the base is truncated to 50 characters, and the book ID
// is appended.
func GenerateFilename(title, bookID string) string {
	base := filenameUnsafe.ReplaceAllString(title, "")
	base = strings.TrimSpace(base)
	base = whitespaceRuns.ReplaceAllString(base, "_")
	if len(base) > maxFilenameBase {
		base = base[:maxFilenameBase]
	}
	if base == "" {
		base = "book"
	}
	return fmt.Sprintf("%s_%s.pdf", base, bookID)
}

// DownloadArtifact requests a book's PDF and drives whichever sub-flow the
// server's gating response requires.
//
// The response variant is discriminated by the declared content type, never
// by status code alone: the binary artifact and the negotiation metadata both
// arrive on 2xx. A payment-required or charity-required outcome is expected
// control flow, not an error; the caller retries after resolving it.
func (p *PetPay) DownloadArtifact(ctx context.Context, bookID string, opts DownloadOptions) (*model.DownloadNegotiation, error) {
	ctx, span := downloadTracer.Start(ctx, "DownloadArtifact")
	defer span.End()

	// Guests returning from checkout carry the session identifier in place
	// of a credential.
	if opts.SessionID == "" {
		if err := p.requireCredential(ctx); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	negotiation, err := p.negotiateDownload(ctx, bookID, opts, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Download negotiated", trace.WithAttributes(
		attribute.String("book.id", bookID),
		attribute.String("negotiation.kind", string(negotiation.Kind)),
	))
	return negotiation, nil
}

func (p *PetPay) negotiateDownload(ctx context.Context, bookID string, opts DownloadOptions, retried bool) (*model.DownloadNegotiation, error) {
	query := url.Values{}
	if opts.SessionID != "" {
		query.Set("session_id", opts.SessionID)
	}
	if opts.CharityID != "" {
		query.Set("charity_id", opts.CharityID)
	}

	resp, err := p.client.DoRaw(ctx, "/api/books/"+bookID+"/download-pdf", query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readErrorBody(resp, isJSON)
	}

	if isJSON {
		return p.handleGatedResponse(ctx, bookID, opts, resp.Body, retried)
	}

	filename := GenerateFilename(opts.Title, bookID)
	if err := p.saveArtifact(ctx, filename, resp.Body); err != nil {
		return nil, err
	}
	return &model.DownloadNegotiation{Kind: model.NegotiationBinary, Filename: filename}, nil
}

// handleGatedResponse decodes a negotiation payload and resolves the sub-flow
// it demands. The payload is never parsed as binary.
func (p *PetPay) handleGatedResponse(ctx context.Context, bookID string, opts DownloadOptions, body io.Reader, retried bool) (*model.DownloadNegotiation, error) {
	var envelope request.Envelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrNetwork, "malformed negotiation payload", err)
	}
	var gated model.GatedResponse
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &gated); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrNetwork, "malformed negotiation payload", err)
		}
	}

	switch {
	case gated.RequiresPayment:
		return &model.DownloadNegotiation{
			Kind:        model.NegotiationPaymentRequired,
			CheckoutURL: gated.CheckoutURL,
			IsGuest:     gated.IsGuest,
			Message:     gated.Message,
		}, nil
	case gated.CharityRequired:
		if p.charities == nil || retried {
			return &model.DownloadNegotiation{
				Kind:    model.NegotiationCharityRequired,
				Message: gated.Message,
			}, nil
		}
		charityID, err := p.charities.SelectCharity(ctx, gated.Message)
		if err != nil {
			if errors.Is(err, ErrSelectionCancelled) {
				return nil, apierror.NewAPIError(apierror.ErrDownloadCancelled, "charity selection cancelled", err)
			}
			return nil, err
		}
		opts.CharityID = charityID
		return p.negotiateDownload(ctx, bookID, opts, true)
	default:
		return nil, apierror.NewStatusError(apierror.ErrServerError, http.StatusOK, "unrecognized negotiation payload")
	}
}

// saveArtifact buffers the binary body and persists it. The interactive save
// surface is preferred; user cancellation there is a deliberate abort and
// must not fall back to a silent download. Any other interactive failure
// falls back to the plain file saver.
func (p *PetPay) saveArtifact(ctx context.Context, filename string, body io.Reader) error {
	artifact, err := io.ReadAll(body)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrNetwork, "reading artifact failed", err)
	}

	if p.saver != nil {
		err := p.saver.Save(ctx, filename, bytes.NewReader(artifact))
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrSaveCancelled) {
			return apierror.NewAPIError(apierror.ErrDownloadCancelled, "save cancelled", err)
		}
	}
	if err := p.fallback.Save(ctx, filename, bytes.NewReader(artifact)); err != nil {
		return pkgerrors.Wrap(err, "saving artifact")
	}
	return nil
}

func readErrorBody(resp *http.Response, isJSON bool) error {
	message := fmt.Sprintf("download failed with status %d", resp.StatusCode)
	if isJSON {
		var envelope request.Envelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Message != "" {
			message = envelope.Message
		}
	}
	return apierror.NewStatusError(apierror.ErrServerError, resp.StatusCode, message)
}

// FileSaver is the fallback persistence path: it stages the artifact in a
// temporary file and renames it into place. The staging file is removed on
// every failure path so no partial artifact is left behind.
type FileSaver struct {
	Dir string
}

func (s *FileSaver) Save(ctx context.Context, filename string, body io.Reader) error {
	tmp, err := os.CreateTemp(s.Dir, filename+".part-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, filename)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
