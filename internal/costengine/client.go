// Package costengine is the HTTP client for the downstream cost-processing engine.
//
// Organization-scoped calls authenticate with the per-org key in X-Org-Key;
// administrative calls (onboarding, readiness, limits) use the root credential
// in X-Root-Key. Every call carries an explicit deadline: 5s for the readiness
// probe, 30s for mutating calls.
package costengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/costwise/keygate/internal/errs"
)

const (
	orgKeyHeader  = "X-Org-Key"
	rootKeyHeader = "X-Root-Key"

	// engine error code for "organization already onboarded and active"
	codeOrgActive = "organization_active"
)

// Config holds cost engine client settings.
type Config struct {
	BaseURL      string
	RootKey      string
	ProbeTimeout time.Duration
	CallTimeout  time.Duration
}

// Client talks to the cost engine over HTTP.
type Client struct {
	baseURL      string
	rootKey      string
	http         *http.Client
	probeTimeout time.Duration
	callTimeout  time.Duration
}

// New constructs a cost engine client.
func New(cfg Config) *Client {
	probe := cfg.ProbeTimeout
	if probe <= 0 {
		probe = 5 * time.Second
	}
	call := cfg.CallTimeout
	if call <= 0 {
		call = 30 * time.Second
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		rootKey:      cfg.RootKey,
		http:         &http.Client{},
		probeTimeout: probe,
		callTimeout:  call,
	}
}

// OnboardRequest is the engine onboarding payload.
type OnboardRequest struct {
	OrgSlug            string `json:"org_slug"`
	CompanyName        string `json:"company_name"`
	AdminEmail         string `json:"admin_email"`
	Plan               string `json:"plan"`
	Locale             string `json:"locale"`
	RegenerateIfExists bool   `json:"regenerate_if_exists"`
}

// OnboardResponse carries the key minted by the engine.
type OnboardResponse struct {
	OrgSlug string `json:"org_slug"`
	APIKey  string `json:"api_key"`
}

// Limits is the engine-vocabulary subscription limit payload.
type Limits struct {
	Plan         string `json:"plan"`
	Status       string `json:"status"`
	MonthlyQuota int64  `json:"monthly_quota"`
	Seats        int    `json:"seats"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rotateResponse struct {
	APIKey string `json:"api_key"`
}

type bootstrapStatus struct {
	Status string `json:"status"`
}

// Ready probes the engine bootstrap status. Onboarding before the engine
// reports "ready" is not meaningful, so callers treat a false result as terminal.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	var st bootstrapStatus
	err := c.do(ctx, c.probeTimeout, http.MethodGet, "/admin/v1/bootstrap/status", c.rootAuth, nil, &st)
	if err != nil {
		return false, err
	}
	return st.Status == "ready", nil
}

// CreateOrganization onboards an org and mints its API key. A 409 whose
// payload says the org is already active maps to errs.ErrAlreadyExists so the
// orchestrator can retry with RegenerateIfExists.
func (c *Client) CreateOrganization(ctx context.Context, req OnboardRequest) (*OnboardResponse, error) {
	var out OnboardResponse
	err := c.do(ctx, c.callTimeout, http.MethodPost, "/admin/v1/organizations", c.rootAuth, req, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateKey exchanges the current key for a fresh one, authenticating as the org.
func (c *Client) RotateKey(ctx context.Context, orgSlug, currentKey string) (string, error) {
	body := map[string]string{"org_slug": orgSlug}
	var out rotateResponse
	err := c.do(ctx, c.callTimeout, http.MethodPost, "/v1/keys/rotate", orgAuth(currentKey), body, &out)
	if err != nil {
		return "", err
	}
	return out.APIKey, nil
}

// UpdateLimits pushes subscription limits for an org (root credential).
func (c *Client) UpdateLimits(ctx context.Context, orgSlug string, lim Limits) error {
	path := "/admin/v1/organizations/" + orgSlug + "/limits"
	return c.do(ctx, c.callTimeout, http.MethodPut, path, c.rootAuth, lim, nil)
}

// VerifyKey checks that a key is still accepted by the engine, using the
// cheap locale probe.
func (c *Client) VerifyKey(ctx context.Context, key string) error {
	return c.do(ctx, c.probeTimeout, http.MethodGet, "/v1/locale", orgAuth(key), nil, nil)
}

type authFunc func(r *http.Request)

func (c *Client) rootAuth(r *http.Request) { r.Header.Set(rootKeyHeader, c.rootKey) }

func orgAuth(key string) authFunc {
	return func(r *http.Request) { r.Header.Set(orgKeyHeader, key) }
}

// do executes one engine call with its own deadline and maps transport and
// status failures onto the errs sentinels. Raw upstream bodies stay inside the
// wrapped error for server-side logs and never reach clients directly.
func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, auth authFunc, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w", method, path, errs.ErrEngineTimeout)
		}
		return fmt.Errorf("%s %s: %v: %w", method, path, err, errs.ErrEngineUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		return json.Unmarshal(raw, out)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, errs.ErrEngineAuth)
	case resp.StatusCode == http.StatusConflict:
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Code == codeOrgActive {
			return fmt.Errorf("%s %s: %s: %w", method, path, ae.Code, errs.ErrAlreadyExists)
		}
		return fmt.Errorf("%s %s: conflict: %s", method, path, string(raw))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, errs.ErrNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, errs.ErrEngineUnavailable)
	default:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
}
