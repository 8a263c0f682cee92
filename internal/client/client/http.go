package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/dmitrijs2005/joboost/internal/logging"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Gateway root used when none is configured.
const DefaultBaseURL = "http://127.0.0.1:8001/api"

const maxErrorBody = 64 << 10

// TokenSource returns the bearer credential to attach to a request, or ""
// when there is no session.
type TokenSource func() string

// HTTPClient is the REST/JSON implementation of Client.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     logging.Logger

	mu             sync.RWMutex
	token          TokenSource
	onUnauthorized func(ctx context.Context)
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *HTTPClient) { c.token = ts }
}

// WithUnauthorizedHandler installs the hook fired on every 401 response.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *HTTPClient) { c.onUnauthorized = fn }
}

// NewHTTPClient creates a Gateway client rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetTokenSource replaces the credential source. Used when the session
// manager is built after the client.
func (c *HTTPClient) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ts
}

// OnUnauthorized replaces the 401 hook.
func (c *HTTPClient) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *HTTPClient) currentToken() string {
	c.mu.RLock()
	ts := c.token
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts()
}

func (c *HTTPClient) fireUnauthorized(ctx context.Context) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

// do sends an authenticated request and returns the body of a 2xx answer.
func (c *HTTPClient) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	return c.send(ctx, method, path, in, nil, true)
}

// send performs one round trip. The unauthorized hook only fires for
// requests that carried a bearer token.
func (c *HTTPClient) send(ctx context.Context, method, path string, in any, header http.Header, bearer bool) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(common.RequestIDHeader, reqID)
	if bearer {
		if tok := c.currentToken(); tok != "" {
			req.Header.Set(common.AuthorizationHeader, "Bearer "+tok)
		} else {
			bearer = false
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Debug(ctx, "gateway request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		out, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
		}
		return out, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := mapStatus(resp.StatusCode, raw)
	c.log.Debug(ctx, "gateway error response", "method", method, "path", path, "request_id", reqID, "status", resp.StatusCode)

	if bearer && resp.StatusCode == http.StatusUnauthorized {
		c.fireUnauthorized(ctx)
	}
	return nil, apiErr
}

// decode unmarshals the value under key, or the whole body when key is "".
func decode(body []byte, key string, out any) error {
	raw := body
	if key != "" {
		r := gjson.GetBytes(body, key)
		if !r.Exists() {
			return fmt.Errorf("decode response: missing %q", key)
		}
		raw = []byte(r.Raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// auth calls one of the session-opening endpoints. They are public, so no
// bearer token is sent.
func (c *HTTPClient) auth(ctx context.Context, method, path string, in any, header http.Header) (*AuthResponse, error) {
	body, err := c.send(ctx, method, path, in, header, false)
	if err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := decode(body, "", &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("decode response: empty token")
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	in := map[string]string{"email": email, "password": password}
	return c.auth(ctx, http.MethodPost, "/auth/login", in, nil)
}

func (c *HTTPClient) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	in := map[string]string{"name": name, "email": email, "password": password}
	return c.auth(ctx, http.MethodPost, "/auth/register", in, nil)
}

// ExchangeSession trades a delegated-login session id for a session.
func (c *HTTPClient) ExchangeSession(ctx context.Context, sessionID string) (*AuthResponse, error) {
	h := http.Header{}
	h.Set(common.SessionIDHeader, sessionID)
	return c.auth(ctx, http.MethodGet, "/auth/session", nil, h)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := decode(body, "", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil)
	return err
}

func (c *HTTPClient) ListApplications(ctx context.Context) ([]models.Application, error) {
	body, err := c.do(ctx, http.MethodGet, "/applications", nil)
	if err != nil {
		return nil, err
	}
	var out []models.Application
	if err := decode(body, "applications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	return c.application(ctx, http.MethodGet, "/applications/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) CreateApplication(ctx context.Context, fields models.ApplicationFields) (*models.Application, error) {
	return c.application(ctx, http.MethodPost, "/applications", fields)
}

func (c *HTTPClient) UpdateApplication(ctx context.Context, id string, fields models.ApplicationFields) (*models.Application, error) {
	return c.application(ctx, http.MethodPut, "/applications/"+url.PathEscape(id), fields)
}

func (c *HTTPClient) application(ctx context.Context, method, path string, in any) (*models.Application, error) {
	body, err := c.do(ctx, method, path, in)
	if err != nil {
		return nil, err
	}
	var a models.Application
	if err := decode(body, "application", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateApplicationStatus moves an application to another pipeline column.
// The Gateway takes the new status as a query parameter.
func (c *HTTPClient) UpdateApplicationStatus(ctx context.Context, id string, status models.Status) error {
	q := url.Values{"status": {string(status)}}
	_, err := c.do(ctx, http.MethodPatch, "/applications/"+url.PathEscape(id)+"/status?"+q.Encode(), nil)
	return err
}

func (c *HTTPClient) DeleteApplication(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/applications/"+url.PathEscape(id), nil)
	return err
}

func (c *HTTPClient) Stats(ctx context.Context) (*models.Stats, error) {
	body, err := c.do(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}
	var st models.Stats
	if err := decode(body, "stats", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// CreateCheckout opens a provider checkout for plan. The provider redirects
// back to originURL once the user is done.
func (c *HTTPClient) CreateCheckout(ctx context.Context, plan models.CheckoutPlan, originURL string) (*models.CheckoutSession, error) {
	in := map[string]string{"plan": string(plan), "origin_url": originURL}
	body, err := c.do(ctx, http.MethodPost, "/payments/checkout", in)
	if err != nil {
		return nil, err
	}
	var out models.CheckoutSession
	if err := decode(body, "", &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, errors.New("decode response: empty checkout url")
	}
	return &out, nil
}

func (c *HTTPClient) PaymentStatus(ctx context.Context, sessionID string) (*models.PaymentStatus, error) {
	body, err := c.do(ctx, http.MethodGet, "/payments/status/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("decode response: invalid json")
	}
	r := gjson.ParseBytes(body)
	return &models.PaymentStatus{
		PaymentStatus: r.Get("payment_status").String(),
		Status:        r.Get("status").String(),
		AmountTotal:   r.Get("amount_total").Int(),
		Currency:      r.Get("currency").String(),
	}, nil
}

var _ Client = (*HTTPClient)(nil)

// GetProfile returns the user's career profile, or nil when none was saved
// yet.
func (c *HTTPClient) GetProfile(ctx context.Context) (*models.Profile, error) {
	body, err := c.do(ctx, http.MethodGet, "/profile", nil)
	if err != nil {
		return nil, err
	}
	if r := gjson.GetBytes(body, "profile"); r.Exists() && r.Type == gjson.Null {
		return nil, nil
	}
	var p models.Profile
	if err := decode(body, "profile", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile creates or replaces the profile. The Gateway also marks
// onboarding as completed for the user.
func (c *HTTPClient) SaveProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	body, err := c.do(ctx, http.MethodPost, "/profile", p)
	if err != nil {
		return nil, err
	}
	var out models.Profile
	if err := decode(body, "profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateDocument asks the Gateway to write a CV or cover letter for an
// application. It consumes one credit of the matching kind.
func (c *HTTPClient) GenerateDocument(ctx context.Context, applicationID string, kind models.GenerationKind) (*models.Generation, error) {
	in := map[string]string{"application_id": applicationID, "generation_type": string(kind)}
	body, err := c.do(ctx, http.MethodPost, "/ai/generate", in)
	if err != nil {
		return nil, err
	}
	var out models.Generation
	if err := decode(body, "", &out); err != nil {
		return nil, err
	}
	if out.Kind == "" {
		out.Kind = kind
	}
	return &out, nil
}
