// Package client implements the authenticated Preventix API client. It
// attaches bearer credentials to every call and transparently recovers from
// expired-credential failures with a single refresh-and-retry, coalescing
// concurrent refreshes into one.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/pkg/metrics"
)

// Client performs HTTP calls against a Preventix backend. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	store   CredentialStore
	log     *slog.Logger
	refresh singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The replacement is used
// as-is; no metrics transport is installed around it.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger replaces the client's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the given base URL. Credentials are read from and
// written to the supplied store; pass an empty MemoryStore for unauthenticated
// use.
func New(baseURL string, store CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		log:     slog.Default().With(slog.String("component", "api_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Transport: NewMetricsTransport(nil)}
	}
	return c
}

// Do issues an authenticated request. A 401 response triggers at most one
// refresh-and-retry; every other failure propagates immediately. out may be
// nil (body discarded), *[]byte (raw body), or a pointer to a JSON target.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	creds, err := c.store.Load()
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	token := ""
	if creds != nil {
		token = creds.AccessToken
	}

	err = c.send(ctx, method, path, body, token, out)
	apiErr := asAPIError(err)
	if apiErr == nil || apiErr.Kind != KindAuthExpired {
		return err
	}

	if !creds.HasRefresh() {
		apiErr.Kind = KindAuthFinal
		return apiErr
	}

	c.log.Info("authentication rejected, attempting token refresh",
		slog.String("method", method),
		slog.String("path", path))

	refreshed, refreshErr := c.refreshCredentials(ctx)
	if refreshErr != nil {
		c.log.Warn("token refresh failed, clearing credentials",
			slog.String("error", refreshErr.Error()))
		if clearErr := c.store.Clear(); clearErr != nil {
			c.log.Error("failed to clear credentials", slog.String("error", clearErr.Error()))
		}
		return &APIError{
			Kind:       KindAuthFinal,
			StatusCode: apiErr.StatusCode,
			Detail:     apiErr.Detail,
			cause:      refreshErr,
		}
	}

	// Reissue exactly once with the fresh token. A second rejection is final.
	err = c.send(ctx, method, path, body, refreshed.AccessToken, out)
	if retryErr := asAPIError(err); retryErr != nil && retryErr.Kind == KindAuthExpired {
		if clearErr := c.store.Clear(); clearErr != nil {
			c.log.Error("failed to clear credentials", slog.String("error", clearErr.Error()))
		}
		retryErr.Kind = KindAuthFinal
		return retryErr
	}
	return err
}

// refreshCredentials exchanges the stored refresh token for fresh credentials.
// Concurrent callers share a single in-flight refresh; all of them observe the
// same outcome.
func (c *Client) refreshCredentials(ctx context.Context) (*Credentials, error) {
	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		creds, err := c.store.Load()
		if err != nil {
			return nil, err
		}
		if !creds.HasRefresh() {
			return nil, errors.New("no refresh credential available")
		}

		var tok api.TokenResponse
		req := api.RefreshRequest{RefreshToken: creds.RefreshToken}
		if err := c.send(ctx, http.MethodPost, "/auth/refresh", req, "", &tok); err != nil {
			metrics.TokenRefreshes.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.TokenRefreshes.WithLabelValues("success").Inc()

		next := credentialsFromToken(&tok)
		if next.User == nil {
			next.User = creds.User
		}
		if err := c.store.Save(next); err != nil {
			return nil, fmt.Errorf("failed to save refreshed credentials: %w", err)
		}
		c.log.Debug("token refreshed")
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credentials), nil
}

// Register creates an account and persists the returned credentials.
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error) {
	var tok api.TokenResponse
	if err := c.send(ctx, http.MethodPost, "/auth/register", req, "", &tok); err != nil {
		return nil, demoteAuthKind(err)
	}
	if err := c.store.Save(credentialsFromToken(&tok)); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return &tok, nil
}

// Login authenticates with email and password and persists the returned
// credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*api.TokenResponse, error) {
	req := api.LoginRequest{Email: email, Password: password}
	var tok api.TokenResponse
	if err := c.send(ctx, http.MethodPost, "/auth/login", req, "", &tok); err != nil {
		return nil, demoteAuthKind(err)
	}
	if err := c.store.Save(credentialsFromToken(&tok)); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return &tok, nil
}

// Logout clears stored credentials and the cached user snapshot. It never
// fails; clear errors are only logged.
func (c *Client) Logout() {
	if err := c.store.Clear(); err != nil {
		c.log.Error("failed to clear credentials on logout", slog.String("error", err.Error()))
	}
}

// CurrentUser returns the cached user snapshot from the credential store, or
// nil when not logged in.
func (c *Client) CurrentUser() *api.UserProfile {
	creds, err := c.store.Load()
	if err != nil || creds == nil {
		return nil
	}
	return creds.User
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*api.UserProfile, error) {
	var user api.UserProfile
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile updates the authenticated user's profile and refreshes the
// cached user snapshot.
func (c *Client) UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (*api.UserProfile, error) {
	var user api.UserProfile
	if err := c.Do(ctx, http.MethodPut, "/auth/me", req, &user); err != nil {
		return nil, err
	}
	if creds, err := c.store.Load(); err == nil {
		creds.User = &user
		if saveErr := c.store.Save(creds); saveErr != nil {
			c.log.Warn("failed to update cached user snapshot", slog.String("error", saveErr.Error()))
		}
	}
	return &user, nil
}

// Predict submits biometrics and returns the risk assessment.
func (c *Client) Predict(ctx context.Context, in api.HealthInput) (*api.PredictionResponse, error) {
	var res api.PredictionResponse
	if err := c.Do(ctx, http.MethodPost, "/predict", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RecentAssessments returns the user's newest assessments, newest first.
func (c *Client) RecentAssessments(ctx context.Context, limit int) ([]api.RecentAssessment, error) {
	path := "/assessments/recent"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []api.RecentAssessment
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssessmentReportPDF returns the rendered PDF report for a stored
// assessment.
func (c *Client) AssessmentReportPDF(ctx context.Context, id string) ([]byte, error) {
	var raw []byte
	if err := c.Do(ctx, http.MethodGet, "/assessments/"+id+"/pdf", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// PredictReportPDF submits biometrics and returns the rendered PDF report.
func (c *Client) PredictReportPDF(ctx context.Context, in api.HealthInput) ([]byte, error) {
	var raw []byte
	if err := c.Do(ctx, http.MethodPost, "/predict/current-pdf", in, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// send issues a single HTTP request with no recovery logic.
func (c *Client) send(ctx context.Context, method, path string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode >= 400 {
		var envelope api.ErrorResponse
		if jsonErr := json.Unmarshal(data, &envelope); jsonErr != nil {
			envelope = api.ErrorResponse{}
		}
		return classifyStatus(resp.StatusCode, &envelope)
	}

	switch target := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*target = data
		return nil
	default:
		if len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
}

// credentialsFromToken builds stored credentials from a token response. When
// the backend returns no distinct refresh token, the access token doubles as
// the refresh credential (single-token compatibility mode).
func credentialsFromToken(tok *api.TokenResponse) *Credentials {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = tok.AccessToken
	}
	user := tok.User
	return &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		User:         &user,
	}
}

// demoteAuthKind converts a 401 on an unauthenticated endpoint (wrong
// password, unknown account) to a plain client error so it is not mistaken
// for an expired session.
func demoteAuthKind(err error) error {
	if apiErr := asAPIError(err); apiErr != nil && apiErr.IsAuth() {
		apiErr.Kind = KindClient
	}
	return err
}

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
