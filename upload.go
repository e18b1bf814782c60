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
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/internal/notification"
	"github.com/pettales/petpay/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	uploadTracer = otel.Tracer("petpay.upload")
)

// maxUploadBytes caps user image uploads at 5 MiB, matching the server-side
// limit so oversized files never leave the client.
const maxUploadBytes = 5 << 20

// ProgressFunc receives fractional transfer progress in [0,100]. Calls are
// strictly non-decreasing; consumers must tolerate zero calls (instant
// completion) and must not rely on a final 100 before the completion signal.
type ProgressFunc func(percent float64)

// ValidateUploadFile enforces the client-side constraints before any network
// call: an allowed image content type and a size of at most 5 MiB.
func ValidateUploadFile(file model.UploadFile) error {
	err := validation.Errors{
		"content_type": validation.Validate(file.ContentType,
			validation.Required,
			validation.In("image/jpeg", "image/jpg", "image/png"),
		),
		"size": validation.Validate(file.Size,
			validation.Required,
			validation.Max(int64(maxUploadBytes)),
		),
	}.Filter()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrValidation, "invalid upload file", err)
	}
	return nil
}

type uploadURLRequest struct {
	ContentType string `json:"content_type"`
}

type commitAvatarRequest struct {
	AvatarURL string `json:"avatar_url"`
}

// progressReader reports transfer progress as the storage PUT consumes the
// payload. Percentages only ever move forward.
type progressReader struct {
	reader  io.Reader
	total   int64
	read    int64
	lastPct float64
	report  ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 && r.report != nil && r.total > 0 {
		r.read += int64(n)
		pct := float64(r.read) * 100 / float64(r.total)
		if pct > 100 {
			pct = 100
		}
		if pct > r.lastPct {
			r.lastPct = pct
			r.report(pct)
		}
	}
	return n, err
}

// UploadAvatar runs the three-phase direct upload pipeline: acquire a
// short-lived write credential, stream the payload straight to storage, then
// commit the resulting location to the owning record. Each phase is
// independently failable and reported distinctly.
//
// Returns the committed public URL of the uploaded image.
func (p *PetPay) UploadAvatar(ctx context.Context, file model.UploadFile, progress ProgressFunc) (string, error) {
	ctx, span := uploadTracer.Start(ctx, "UploadAvatar")
	defer span.End()

	if err := ValidateUploadFile(file); err != nil {
		span.RecordError(err)
		return "", err
	}
	if err := p.requireCredential(ctx); err != nil {
		span.RecordError(err)
		return "", err
	}

	attemptID := model.GenerateUUIDWithSuffix("upload")
	span.SetAttributes(attribute.String("upload.attempt", attemptID))

	session, err := p.acquireUploadSession(ctx, file.ContentType)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.AddEvent("Upload credential acquired", trace.WithAttributes(attribute.String("upload.phase", string(model.PhaseAcquire))))

	if err := p.transferToStorage(ctx, session, file, progress); err != nil {
		span.RecordError(err)
		return "", err
	}
	span.AddEvent("Payload transferred", trace.WithAttributes(attribute.String("upload.phase", string(model.PhaseTransfer))))

	if err := p.commitAvatar(ctx, session.FinalURL); err != nil {
		span.RecordError(err)
		return "", err
	}
	span.AddEvent("Upload committed", trace.WithAttributes(attribute.String("upload.phase", string(model.PhaseCommit))))

	return session.FinalURL, nil
}

// acquireUploadSession requests the presigned write credential and the
// eventual public URL for the given content type.
func (p *PetPay) acquireUploadSession(ctx context.Context, contentType string) (*model.UploadSession, error) {
	var session model.UploadSession
	err := p.client.Do(ctx, http.MethodPost, "/api/user/avatar/upload-url", &uploadURLRequest{ContentType: contentType}, &session)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrCredential, "acquiring upload credential failed", err)
	}
	session.ContentType = contentType
	return &session, nil
}

// transferToStorage performs the direct binary write to the credential's
// target. A context cancellation mid-transfer surfaces as UPLOAD_ABORTED,
// distinct from a transport failure, so callers can stay quiet about
// user-initiated aborts.
func (p *PetPay) transferToStorage(ctx context.Context, session *model.UploadSession, file model.UploadFile, progress ProgressFunc) error {
	body := &progressReader{reader: file.Body, total: file.Size, report: progress}
	err := p.client.PutBinary(ctx, session.UploadURL, session.ContentType, body, file.Size)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return apierror.NewAPIError(apierror.ErrUploadAborted, "upload aborted", err)
	}
	return apierror.NewAPIError(apierror.ErrTransfer, "storage transfer failed", err)
}

// commitAvatar writes the final location back to the owning record. Failing
// here after a successful transfer leaves an orphaned object in storage and
// an un-updated record, so the error is a distinct warning-grade state: the
// user's upload succeeded but could not be saved.
func (p *PetPay) commitAvatar(ctx context.Context, finalURL string) error {
	err := p.client.Do(ctx, http.MethodPut, "/api/user/avatar", &commitAvatarRequest{AvatarURL: finalURL}, nil)
	if err != nil {
		warn := apierror.NewAPIError(apierror.ErrCommitFailedAfterUpload, "upload succeeded but could not be saved", err)
		notification.NotifyWarning(warn)
		return warn
	}
	return nil
}
