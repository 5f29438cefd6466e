// Package authclient talks to the WellNest auth endpoints on behalf of the
// OTP flow controller.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/internal/otpflow"
)

const defaultTimeout = 15 * time.Second

// Client implements otpflow.AuthService over HTTP
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api/v1. httpClient may be nil.
func New(baseURL string, httpClient *http.Client, log logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

type identityBody struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type verifyBody struct {
	identityBody
	Code string `json:"code"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type verifyData struct {
	Token      string `json:"token"`
	Role       string `json:"role"`
	ResetToken string `json:"reset_token"`
}

func bodyFor(id otpflow.Identity) identityBody {
	if email := strings.TrimSpace(id.Email); email != "" {
		return identityBody{Email: email}
	}
	return identityBody{Phone: strings.TrimSpace(id.Phone)}
}

// VerifyOTP checks a code. Registration codes yield a session token and
// role; reset codes yield a one-time reset token in VerifyResult.Token.
func (c *Client) VerifyOTP(ctx context.Context, req otpflow.VerifyRequest) (*otpflow.VerifyResult, error) {
	path := "/auth/verify-otp"
	if req.Identity.Variant == otpflow.VariantPasswordReset {
		path = "/auth/verify-reset-otp"
	}

	env, err := c.post(ctx, path, verifyBody{identityBody: bodyFor(req.Identity), Code: req.Code})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return &otpflow.VerifyResult{Success: false, Message: env.Message}, nil
	}

	var data verifyData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to decode verify response: %w", err)
		}
	}
	token := data.Token
	if req.Identity.Variant == otpflow.VariantPasswordReset {
		token = data.ResetToken
	}
	return &otpflow.VerifyResult{
		Success: true,
		Token:   token,
		Role:    data.Role,
		Message: env.Message,
	}, nil
}

// RequestOTP asks the backend to send a fresh code for the identity's flow
func (c *Client) RequestOTP(ctx context.Context, identity otpflow.Identity) (*otpflow.RequestResult, error) {
	path := "/auth/resend-otp"
	if identity.Variant == otpflow.VariantPasswordReset {
		path = "/auth/forgot-password"
	}

	env, err := c.post(ctx, path, bodyFor(identity))
	if err != nil {
		return nil, err
	}
	return &otpflow.RequestResult{Success: env.Success, Message: env.Message}, nil
}

// post sends body as JSON. Client errors come back as an unsuccessful
// envelope; transport failures and 5xx responses are returned as errors.
func (c *Client) post(ctx context.Context, path string, body interface{}) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("auth request")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusInternalServerError {
		if decodeErr == nil && env.Message != "" {
			return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, env.Message)
		}
		return nil, fmt.Errorf("server error %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, decodeErr)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		env.Success = false
		if env.Message == "" {
			env.Message = http.StatusText(resp.StatusCode)
		}
	}
	return &env, nil
}
