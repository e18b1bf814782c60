package apierror

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrNetwork         ErrorCode = "NETWORK_ERROR"
	ErrServerRejected  ErrorCode = "SERVER_REJECTED"
	ErrServerError     ErrorCode = "SERVER_ERROR"
	ErrCredential      ErrorCode = "CREDENTIAL_ERROR"
	ErrTransfer        ErrorCode = "TRANSFER_ERROR"

	// User-initiated aborts. Callers suppress error toasts for these.
	ErrDownloadCancelled ErrorCode = "DOWNLOAD_CANCELLED"
	ErrUploadAborted     ErrorCode = "UPLOAD_ABORTED"

	// Partial success: the object landed in storage but the owning record was
	// not updated. Surfaced as a warning, never as a plain failure.
	ErrCommitFailedAfterUpload ErrorCode = "COMMIT_FAILED_AFTER_UPLOAD"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil && !isUserInitiated(code) {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewStatusError builds an APIError carrying the HTTP status of a rejected
// response.
func NewStatusError(code ErrorCode, status int, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// CodeOf extracts the error code from err, or an empty code when err is not an
// APIError.
func CodeOf(err error) ErrorCode {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsUserInitiated reports whether err represents a deliberate cancellation
// rather than a failure.
func IsUserInitiated(err error) bool {
	return isUserInitiated(CodeOf(err))
}

func isUserInitiated(code ErrorCode) bool {
	return code == ErrDownloadCancelled || code == ErrUploadAborted
}
