package platformregistry

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/config"
)

// httpPlatformRegistry is the production PlatformRegistryPort, grounded on
// the request/response shape of internal/webhooks/retry.go's retryWebhook
// (net/http client, JSON body, backoff-on-failure) generalized from
// delivering outbound webhooks to calling the service-register's fixed
// endpoint set, and signing outbound requests with the HMAC primitive
// internal/webhooks/verification.go uses to check inbound ones.
type httpPlatformRegistry struct {
	baseURL    string
	authSecret string
	client     *http.Client
	retry      config.RetryConfig
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

// NewHTTPPlatformRegistry builds the HTTP adapter for cfg.ServiceInfoURL.
// Callers must not construct this when cfg.DNSLess() — there is no register
// to talk to in standalone mode.
func NewHTTPPlatformRegistry(cfg config.PlatformConfig) *httpPlatformRegistry {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "platform-registry",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &httpPlatformRegistry{
		baseURL:    cfg.ServiceInfoURL,
		authSecret: cfg.AuthSecret,
		client:     &http.Client{Timeout: cfg.Timeout},
		retry:      cfg.RetryConfig,
		breaker:    breaker,
	}
}

func (r *httpPlatformRegistry) ValidateUser(ctx context.Context, req ValidateUserRequest) (*ValidateUserResult, error) {
	body := map[string]any{
		"username":        req.Username,
		"invitationToken": req.InvitationToken,
		"uniqueFields":    req.UniqueFields,
		"core":            req.Core,
	}

	resp, err := r.do(ctx, http.MethodPost, "/users/validate", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return &ValidateUserResult{OK: true}, nil
	case http.StatusConflict:
		return nil, apierror.New(apierror.ItemAlreadyExists, "register reports a uniqueness collision").WithData(decodeData(resp.Body))
	case http.StatusBadRequest:
		return nil, apierror.New(apierror.InvalidInvitationToken, "register rejected the invitation token")
	default:
		return nil, unexpectedStatus(resp)
	}
}

func (r *httpPlatformRegistry) CheckUsername(ctx context.Context, username string) (bool, error) {
	resp, err := r.do(ctx, http.MethodGet, fmt.Sprintf("/users/%s/check-username", username), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, unexpectedStatus(resp)
	}

	var out struct {
		Reserved bool `json:"reserved"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, apierror.Unexpected("decoding check-username response", err)
	}
	return out.Reserved, nil
}

func (r *httpPlatformRegistry) CreateUser(ctx context.Context, payload CreateUserPayload) error {
	body := map[string]any{
		"username": payload.Username,
		"user":     fieldsToWire(payload.Fields),
	}

	resp, err := r.do(ctx, http.MethodPost, "/users", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return apierror.New(apierror.ItemAlreadyExists, "register rejected the create as a duplicate").WithData(decodeData(resp.Body))
	default:
		return unexpectedStatus(resp)
	}
}

func (r *httpPlatformRegistry) UpdateUser(ctx context.Context, req UpdateUserRequest) error {
	body := map[string]any{
		"username":       req.Username,
		"user":           fieldsToWire(req.Fields),
		"fieldsToDelete": req.FieldsToDelete,
	}

	resp, err := r.do(ctx, http.MethodPut, fmt.Sprintf("/users/%s", req.Username), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return apierror.New(apierror.ItemAlreadyExists, "register rejected the update as a duplicate").WithData(decodeData(resp.Body))
	default:
		return unexpectedStatus(resp)
	}
}

func (r *httpPlatformRegistry) DeleteUser(ctx context.Context, username string, onlyReg bool) error {
	path := fmt.Sprintf("/users/%s", username)
	if onlyReg {
		path += "?onlyReg=true"
	}

	resp, err := r.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus(resp)
	}
	return nil
}

// do issues one request through the circuit breaker with bounded retries on
// transport failures and 5xx responses, which propagate as unexpectedError
// once retries are exhausted (same backoff shape as eventstore's
// retryOnBusy, applied here to HTTP instead of SQLITE_BUSY).
func (r *httpPlatformRegistry) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, apierror.Unexpected("encoding register request", err)
		}
	}

	maxAttempts := r.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := r.retry.BaseDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := r.breaker.Execute(func() (*http.Response, error) {
			resp, err := r.send(ctx, method, path, encoded)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 {
				defer resp.Body.Close()
				return nil, fmt.Errorf("register responded %d", resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err

		log.Warn().Err(lastErr).Str("method", method).Str("path", path).Int("attempt", attempt+1).Msg("platform registry call failed, retrying")

		select {
		case <-ctx.Done():
			return nil, apierror.Unexpected("calling platform registry", ctx.Err())
		case <-time.After(delay * time.Duration(1<<attempt)):
		}
	}

	return nil, apierror.Unexpected("calling platform registry", lastErr)
}

func (r *httpPlatformRegistry) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.authSecret != "" {
		req.Header.Set("X-Corehub-Signature", signPayload(r.authSecret, body))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return resp, nil
}

// signPayload HMAC-signs an outbound request body, in the same
// "sha256=<hex>" shape internal/webhooks/verification.go parses for inbound
// signatures, so the register (and any test harness reusing that parser)
// can verify it with the identical primitive.
func signPayload(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

func fieldsToWire(fields map[string][]FieldUpdate) map[string][]map[string]any {
	wire := make(map[string][]map[string]any, len(fields))
	for field, updates := range fields {
		entries := make([]map[string]any, 0, len(updates))
		for _, u := range updates {
			entries = append(entries, map[string]any{
				"value":    u.Value,
				"isUnique": u.IsUnique,
				"isActive": u.IsActive,
				"creation": u.Creation,
			})
		}
		wire[field] = entries
	}
	return wire
}

func decodeData(body io.Reader) map[string]any {
	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil
	}
	return out.Data
}

func unexpectedStatus(resp *http.Response) error {
	return apierror.Unexpected(fmt.Sprintf("platform registry returned %d", resp.StatusCode), nil)
}
