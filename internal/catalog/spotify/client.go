package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chaptifyapp/chaptify/internal/errors"
	"github.com/chaptifyapp/chaptify/internal/ratelimit"
)

const (
	// Rate limit: shared across all concurrent pipeline runs.
	defaultRPS   = 2.0
	defaultBurst = 5

	// HTTP client settings
	defaultTimeout = 30 * time.Second

	// API settings
	defaultBaseURL     = "https://api.spotify.com/v1"
	defaultTokenURL    = "https://accounts.spotify.com/api/token"
	defaultSearchLimit = 10
	maxSearchLimit     = 50

	// Refresh the token slightly before the server-reported expiry.
	tokenExpirySlack = 30 * time.Second
)

// Client is a rate-limited Spotify Web API client.
// It is safe for concurrent use; the token cache is shared.
type Client struct {
	http     *http.Client
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
	creds    Credentials
	baseURL  string
	tokenURL string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a new Spotify client. The credentials are not exchanged
// until the first request (or an explicit Authenticate call).
func New(creds Credentials, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:  ratelimit.New(defaultRPS, defaultBurst),
		logger:   logger,
		creds:    creds,
		baseURL:  defaultBaseURL,
		tokenURL: defaultTokenURL,
		token:    creds.AccessToken,
	}
}

// SetRateLimit replaces the default request throttle. Call before the
// client is shared across goroutines.
func (c *Client) SetRateLimit(rps float64, burst int) {
	c.limiter = ratelimit.New(rps, burst)
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Authenticate eagerly performs the client-credentials token exchange,
// so configuration problems surface before any file is touched.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.bearerToken(ctx)
	return err
}

// bearerToken returns a valid access token, exchanging credentials when
// the cached one is missing or expired.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && (c.tokenExpiry.IsZero() || time.Now().Before(c.tokenExpiry)) {
		return c.token, nil
	}

	if c.creds.ClientID == "" || c.creds.ClientSecret == "" {
		return "", wrapError("authenticate", "", ErrUnauthorized.WithCause(fmt.Errorf("no client credentials to refresh token")))
	}

	if err := c.limiter.Wait(ctx, hostOf(c.tokenURL)); err != nil {
		return "", wrapError("authenticate", "", fmt.Errorf("rate limit wait: %w", err))
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", wrapError("authenticate", "", fmt.Errorf("create request: %w", err))
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.creds.ClientID + ":" + c.creds.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("spotify token exchange", "url", c.tokenURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", wrapError("authenticate", "", ErrTransport.WithCause(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapError("authenticate", "", ErrTransport.WithCause(err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", wrapError("authenticate", "", ErrUnauthorized.WithCause(fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, body)))
	}

	var tok rawTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", wrapError("authenticate", "", fmt.Errorf("parse token response: %w", err))
	}
	if tok.AccessToken == "" {
		return "", wrapError("authenticate", "", ErrUnauthorized.WithCause(fmt.Errorf("empty access token in response")))
	}

	c.token = tok.AccessToken
	if tok.ExpiresIn > 0 {
		c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpirySlack)
	} else {
		c.tokenExpiry = time.Time{}
	}

	return c.token, nil
}

// invalidateToken drops the cached token so the next request re-exchanges
// credentials. Called after a 401.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// doRequest executes a rate-limited GET against an API path.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return c.doURL(ctx, fullURL)
}

// doURL executes a rate-limited GET against an absolute URL (pagination
// "next" links are absolute). One token refresh is attempted on 401.
func (c *Client) doURL(ctx context.Context, fullURL string) ([]byte, error) {
	body, err := c.doURLOnce(ctx, fullURL)
	if err == nil || !isUnauthorized(err) {
		return body, err
	}

	// The token may simply have expired mid-run; mint a fresh one and
	// retry once before surfacing the failure.
	c.invalidateToken()
	if _, tokenErr := c.bearerToken(ctx); tokenErr != nil {
		return nil, err
	}
	return c.doURLOnce(ctx, fullURL)
}

func (c *Client) doURLOnce(ctx context.Context, fullURL string) ([]byte, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx, hostOf(fullURL)); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "chaptify/1.0")

	c.logger.Debug("spotify request", "url", fullURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ErrTransport.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrTransport.WithCause(err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
