// Package apiclient is the signed API client (C2): it builds JWT-signed
// requests against the remote project server, decodes typed JSON
// responses, returns raw file bodies, and classifies transport failures into
// the ApiError taxonomy. Built on github.com/imroc/req/v3, the same HTTP
// client library the reference client's syftsdk package uses for all of
// its own requests (see internal/syftsdk/sdk.go).
package apiclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

// Signer is the JWT-signing capability the client relies on; implemented
// by internal/signer.Signer. Kept as an interface here so internal/sync
// tests can inject a fake without constructing a real RSA key.
type Signer interface {
	Sign(payload map[string]any) (string, error)
}

const (
	jsonTimeout    = 30 * time.Second
	archiveTimeout = 5 * time.Minute
)

// Client is the signed API client. It is safe for concurrent use: the
// underlying req.Client is stateless with respect to any one call, and the
// signer is expected to be a thread-safe implementation.
type Client struct {
	http   *req.Client
	signer Signer
}

// New builds a Client against baseURL, signing every request's JWT payload
// with signer.
func New(baseURL string, signer Signer) *Client {
	c := req.C().
		SetBaseURL(baseURL).
		SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS13}).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetUserAgent("syncengine-client")

	return &Client{http: c, signer: signer}
}

// BodyKind selects how Request encodes an outgoing body.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyBinary
)

// RequestOpts parameterises a single signed request.
type RequestOpts struct {
	Method      string
	Path        string
	JWTPayload  map[string]any
	Body        any    // for BodyJSON: any marshalable value; for BodyBinary: []byte
	BodyKind    BodyKind
	ContentType string // for BodyBinary
	Encoding    string // e.g. "br"; for BodyBinary
	Signed      bool   // Signed=false skips JWT attachment (app/clientId)
}

// Request performs one signed HTTP call and decodes the JSON response into
// out (which may be nil to discard the body). It never retries implicitly
// (the "never-retry-silently" rule belongs to the caller); req's own
// transport-level retry count above covers transient connection resets
// only, not application-level failures.
func (c *Client) Request(ctx context.Context, opts RequestOpts, out any) error {
	timeout := jsonTimeout
	if opts.BodyKind == BodyBinary {
		timeout = archiveTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := c.http.R().SetContext(reqCtx)

	if opts.Signed {
		token, err := c.signer.Sign(opts.JWTPayload)
		if err != nil {
			return fmt.Errorf("apiclient: sign request: %w", err)
		}
		r.SetBearerAuthToken(token)
	}

	switch opts.BodyKind {
	case BodyJSON:
		r.SetBody(opts.Body)
		r.SetHeader("Content-Type", "application/json")
	case BodyBinary:
		body, _ := opts.Body.([]byte)
		r.SetBodyBytes(body)
		r.SetHeader("Content-Type", opts.ContentType)
		if opts.Encoding != "" {
			r.SetHeader("Content-Encoding", opts.Encoding)
		}
	}

	resp, err := r.Send(opts.Method, opts.Path)
	if err != nil {
		return NetworkError(err)
	}

	if resp.IsErrorState() {
		return classifyHTTPError(resp.GetStatusCode(), resp.Bytes())
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Bytes(), out); err != nil {
		return &ApiError{Kind: KindClientError, Status: resp.GetStatusCode(), Message: "decode response", Internal: err}
	}
	return nil
}

// RequestText performs a signed GET/POST and returns the raw response body,
// for endpoints like project/{id}/file that return file content as text.
func (c *Client) RequestText(ctx context.Context, opts RequestOpts) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, jsonTimeout)
	defer cancel()

	r := c.http.R().SetContext(reqCtx)
	if opts.Signed {
		token, err := c.signer.Sign(opts.JWTPayload)
		if err != nil {
			return nil, fmt.Errorf("apiclient: sign request: %w", err)
		}
		r.SetBearerAuthToken(token)
	}

	resp, err := r.Send(opts.Method, opts.Path)
	if err != nil {
		return nil, NetworkError(err)
	}
	if resp.IsErrorState() {
		return nil, classifyHTTPError(resp.GetStatusCode(), resp.Bytes())
	}
	return resp.Bytes(), nil
}

func classifyHTTPError(status int, body []byte) *ApiError {
	kind := KindClientError
	if status >= 500 {
		kind = KindServerError
	}
	return &ApiError{Kind: kind, Status: status, Message: string(body)}
}

// NetworkError wraps a transport-level failure (DNS, TLS, connection
// refused, timeout) as the noNetwork taxonomy member.
func NetworkError(err error) *ApiError {
	return &ApiError{Kind: KindNoNetwork, Message: err.Error(), Internal: err}
}

// IsTimeout reports whether err represents a deadline exceeded at the HTTP
// layer, surfaced so callers can give retry guidance without inspecting
// req-specific types.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
