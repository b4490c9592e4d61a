package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rosterly/rosterly/pkg/observability"
)

// DefaultTimeout bounds a single backend request
const DefaultTimeout = 20 * time.Second

// CredentialSource stores the access and refresh credentials. pkg/keystore
// provides the durable implementation.
type CredentialSource interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string) error
	ClearTokens() error
}

// Invalidator receives server-signaled cache invalidations. The permission
// cache implements it.
type Invalidator interface {
	Invalidate(orgID string)
}

// Config controls client behavior. Zero fields fall back to defaults.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// HTTPClient overrides the built-in instrumented client, mainly for tests
	HTTPClient *http.Client

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Client is the JSON HTTP client for the Rosterly backend.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	creds       CredentialSource
	invalidator Invalidator
	userAgent   string
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// orgPathPattern extracts the organization id embedded in a request path for
// server-signaled invalidations.
var orgPathPattern = regexp.MustCompile(`^/organizations/([^/]+)`)

// cacheSignal is the optional invalidation envelope mutating endpoints may
// include in a successful response body.
type cacheSignal struct {
	InvalidateCache bool   `json:"invalidate_cache"`
	AffectedUserID  wireID `json:"affected_user_id"`
}

// NewClient creates a backend client using the given credential source.
func NewClient(creds CredentialSource, config *Config) (*Client, error) {
	if config == nil || config.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		creds:     creds,
		userAgent: config.UserAgent,
		logger:    logger,
		metrics:   config.Metrics,
	}, nil
}

// SetInvalidator wires the permission cache for server-signaled invalidation.
// Set once during composition, before the client is used.
func (c *Client) SetInvalidator(inv Invalidator) {
	c.invalidator = inv
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body and decodes the response.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request and decodes the response.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do issues a request against the backend. On a 401 it attempts one silent
// token refresh and replays the request exactly once; on refresh failure the
// stored credentials are cleared and the original error is returned.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encoding request body: %w", err)
		}
	}
	return c.do(ctx, method, path, payload, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out interface{}, retried bool) error {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recordRequest(method, 0, start)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.recordRequest(method, resp.StatusCode, start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !retried {
		if refreshErr := c.refresh(ctx); refreshErr == nil {
			c.logger.Debug("token refreshed, replaying request")
			return c.do(ctx, method, path, payload, out, true)
		}
		// Refresh failed or no refresh token: clear credentials and surface
		// the original authentication failure.
		if clearErr := c.creds.ClearTokens(); clearErr != nil {
			c.logger.WithError(clearErr).Warn("failed to clear credentials")
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	c.handleCacheSignal(path, respBody)

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("api: decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("api: building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.creds.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// refresh exchanges the stored refresh token for a new access token.
func (c *Client) refresh(ctx context.Context) error {
	refreshToken := c.creds.RefreshToken()
	if refreshToken == "" {
		c.recordRefresh("skipped")
		return ErrNoRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return fmt.Errorf("api: encoding refresh request: %w", err)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + "/auth/refresh"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("api: building refresh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordRefresh("error")
		return fmt.Errorf("api: refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.recordRefresh("rejected")
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	var tokens struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		c.recordRefresh("error")
		return fmt.Errorf("api: decoding refresh response: %w", err)
	}
	if tokens.Token == "" {
		c.recordRefresh("error")
		return fmt.Errorf("api: refresh response contained no token")
	}

	newRefresh := tokens.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	if err := c.creds.SetTokens(tokens.Token, newRefresh); err != nil {
		c.recordRefresh("error")
		return fmt.Errorf("api: storing refreshed tokens: %w", err)
	}

	c.recordRefresh("ok")
	return nil
}

// handleCacheSignal forwards a server-requested permission invalidation for
// the organization embedded in the request path.
func (c *Client) handleCacheSignal(path string, respBody []byte) {
	if c.invalidator == nil || len(respBody) == 0 {
		return
	}
	var signal cacheSignal
	if err := json.Unmarshal(respBody, &signal); err != nil || !signal.InvalidateCache {
		return
	}
	match := orgPathPattern.FindStringSubmatch(path)
	if match == nil {
		c.logger.WithField("path", path).Warn("invalidate_cache signal without organization in path")
		return
	}
	c.logger.WithField("org_id", match[1]).Debug("server requested permission cache invalidation")
	c.invalidator.Invalidate(match[1])
}

func (c *Client) recordRequest(method string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (c *Client) recordRefresh(outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.TokenRefreshTotal.WithLabelValues(outcome).Inc()
}

// errorMessage extracts a human-readable message from an error response body.
func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}
