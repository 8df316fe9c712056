package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

// Config holds checkout platform API settings.
type Config struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout time.Duration
}

// UnmarshalYAML accepts the timeout as a "30s" style string, which yaml.v2
// cannot decode into time.Duration directly.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Timeout string `yaml:"timeout"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	c.BaseURL = raw.BaseURL
	c.APIKey = raw.APIKey
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Client talks to the checkout platform's REST API. It normalizes vendor
// responses into tagged domain errors so the retry loop can reason about
// recoverability without inspecting HTTP details.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new platform API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// conflictBody is the platform's 409 response shape.
type conflictBody struct {
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	ExistingID string `json:"existing_id"`
	LookupURL  string `json:"lookup_url"`
}

var conflictTypes = map[string]domain.ConflictType{
	"email_exists":        domain.ConflictEmailExists,
	"domain_exists":       domain.ConflictDomainExists,
	"subdomain_exists":    domain.ConflictSubdomainExists,
	"organization_exists": domain.ConflictOrganizationExists,
}

// FetchResource performs a read-only GET of an existing resource. Used by
// conflict recovery; never creates anything.
func (c *Client) FetchResource(ctx context.Context, endpoint string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch resource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch resource: unexpected status %d", resp.StatusCode)
	}

	var resource map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&resource); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	return resource, nil
}

// CreateOrganization provisions a new organization.
func (c *Client) CreateOrganization(ctx context.Context, payload map[string]any) (*domain.Result, error) {
	return c.create(ctx, "create_organization", "/v1/organizations", payload)
}

// CreateUser provisions a new user within an organization.
func (c *Client) CreateUser(ctx context.Context, payload map[string]any) (*domain.Result, error) {
	return c.create(ctx, "create_user", "/v1/users", payload)
}

// CreateDomain provisions a new domain for an organization.
func (c *Client) CreateDomain(ctx context.Context, payload map[string]any) (*domain.Result, error) {
	return c.create(ctx, "create_domain", "/v1/domains", payload)
}

func (c *Client) create(ctx context.Context, op, path string, payload map[string]any) (*domain.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.SetupError{Op: op, Message: "marshal payload", Recoverable: false, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, &domain.SetupError{Op: op, Message: "create request", Recoverable: false, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures are transient from the caller's perspective.
		return nil, &domain.SetupError{Op: op, Message: "request failed", Recoverable: true, Err: err}
	}
	defer resp.Body.Close()

	return c.normalize(op, resp)
}

// normalize maps a vendor HTTP response onto the domain error taxonomy.
func (c *Client) normalize(op string, resp *http.Response) (*domain.Result, error) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var data map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return nil, &domain.SetupError{Op: op, Message: "decode response", Recoverable: false, Err: err}
		}
		res := &domain.Result{Data: data}
		if id, ok := data["id"].(string); ok {
			res.ResourceID = id
		}
		return res, nil

	case resp.StatusCode == http.StatusConflict:
		return nil, c.conflictError(op, resp.Body)

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &domain.SetupError{
			Op:          op,
			Message:     "rate limited",
			Recoverable: true,
			RetryAfter:  parseRetryAfter(resp.Header.Get("Retry-After")),
		}

	case resp.StatusCode >= 500:
		return nil, &domain.SetupError{
			Op:          op,
			Message:     fmt.Sprintf("server error (%d)", resp.StatusCode),
			Recoverable: true,
		}

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.SetupError{
			Op:          op,
			Message:     fmt.Sprintf("request rejected (%d): %s", resp.StatusCode, strings.TrimSpace(string(body))),
			Recoverable: false,
		}
	}
}

func (c *Client) conflictError(op string, body io.Reader) error {
	serr := &domain.SetupError{Op: op, Message: "resource conflict", Recoverable: true}

	var cb conflictBody
	if err := json.NewDecoder(body).Decode(&cb); err != nil {
		// No usable conflict metadata; still retryable, just not resolvable.
		return serr
	}

	if cb.Message != "" {
		serr.Message = cb.Message
	}

	conflictType, ok := conflictTypes[cb.ErrorCode]
	if !ok {
		conflictType = domain.ConflictOther
	}
	serr.Conflict = &domain.ConflictCause{
		Type:               conflictType,
		ExistingResourceID: cb.ExistingID,
		RetrievalEndpoint:  cb.LookupURL,
	}
	return serr
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func (c *Client) resolveURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
