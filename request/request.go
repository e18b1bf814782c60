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

package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pettales/petpay/internal/apierror"
	"github.com/pkg/errors"
)

// CredentialProvider yields the session credential attached to every backend
// call. An empty credential means no authenticated user.
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}

// Envelope is the uniform response wrapper used by every backend endpoint
// except the raw binary artifact and the direct storage PUT.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// ToJsonReq converts a Go object to a JSON-encoded HTTP request payload.
//
// Parameters:
// - payload interface{}: The data structure to be serialized into JSON.
//
// Returns:
// - *bytes.Buffer: The JSON-encoded payload wrapped in a bytes buffer.
// - error: An error if the JSON marshalling process fails.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, e := json.Marshal(payload)
	if e != nil {
		return nil, e
	}

	bytePayload := bytes.NewBuffer(c)
	return bytePayload, nil
}

// Call makes an HTTP request and decodes the JSON response body into the
// provided structure. It sets the request Content-Type to application/json.
func Call(req *http.Request, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{}

	resp, err := client.Do(req)
	if err != nil {
		return resp, err
	}

	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return resp, err
	}
	return resp, err
}

// Client is the credentialed HTTP client for the backend API. All enveloped
// endpoints go through Do; content-type-discriminated responses use DoRaw;
// the direct storage write uses PutBinary.
type Client struct {
	baseURL     string
	credentials CredentialProvider
}

func NewClient(baseURL string, credentials CredentialProvider) *Client {
	return &Client{baseURL: baseURL, credentials: credentials}
}

// Do issues an enveloped JSON request against the backend.
//
// Transport failures map to NETWORK_ERROR. A non-2xx response maps to
// SERVER_ERROR carrying the status and the envelope message when the body is
// JSON. A 2xx response with success=false maps to SERVER_REJECTED. On success
// the envelope's data field is unmarshalled into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := ToJsonReq(payload)
		if err != nil {
			return err
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.attachCredential(ctx, req); err != nil {
		return err
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrNetwork, "request failed", errors.Wrap(err, method+" "+path))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrNetwork, "reading response failed", err)
	}

	var envelope Envelope
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("request failed with status %d", resp.StatusCode)
		if decodeErr == nil && envelope.Message != "" {
			message = envelope.Message
		}
		return apierror.NewStatusError(apierror.ErrServerError, resp.StatusCode, message)
	}

	if decodeErr != nil {
		return apierror.NewAPIError(apierror.ErrNetwork, "malformed response body", decodeErr)
	}

	if !envelope.Success {
		message := envelope.Message
		if message == "" {
			message = "request rejected"
		}
		return apierror.NewStatusError(apierror.ErrServerRejected, resp.StatusCode, message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return apierror.NewAPIError(apierror.ErrNetwork, "malformed response data", err)
		}
	}
	return nil
}

// DoRaw issues a credentialed GET and returns the raw response so the caller
// can discriminate on the declared content type. The caller owns the body.
func (c *Client) DoRaw(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if err := c.attachCredential(ctx, req); err != nil {
		return nil, err
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrNetwork, "request failed", errors.Wrap(err, "GET "+path))
	}
	return resp, nil
}

// PutBinary writes a payload directly to a presigned storage URL. The
// credential is deliberately not attached: authorization is carried by the
// URL itself. Transport errors are returned unwrapped of taxonomy so the
// caller can distinguish a context cancellation from a transport failure.
func (c *Client) PutBinary(ctx context.Context, rawURL, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if size > 0 {
		req.ContentLength = size
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storage responded with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) attachCredential(ctx context.Context, req *http.Request) error {
	if c.credentials == nil {
		return nil
	}
	token, err := c.credentials.Credential(ctx)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrUnauthenticated, "credential lookup failed", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}
