package jira

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/helixdata/helix/pkg/connector/base"
	"github.com/helixdata/helix/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 64 << 20

// authorizer attaches credentials to an outgoing request.
type authorizer interface {
	apply(req *http.Request) error
}

type basicAuth struct {
	email string
	token string
}

func (a basicAuth) apply(req *http.Request) error {
	req.SetBasicAuth(a.email, a.token)
	return nil
}

type bearerAuth struct {
	source oauth2.TokenSource
}

func (a bearerAuth) apply(req *http.Request) error {
	tok, err := a.source.Token()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to obtain access token")
	}
	tok.SetAuthHeader(req)
	return nil
}

// Client issues authenticated GET requests against the site's two API
// surfaces. Transport failures, 5xx responses, and 429s surface as retryable
// typed errors and are retried internally; any other response is returned to
// the caller with its status and body for interpretation against the
// stream's descriptor.
type Client struct {
	cfg        *sourceConfig
	httpClient *http.Client
	auth       authorizer
	retry      *base.RetryPolicy
	logger     *zap.Logger
}

// NewClient builds a client for the configured site and auth scheme.
func NewClient(cfg *sourceConfig, retry *base.RetryPolicy, timeout time.Duration, logger *zap.Logger) *Client {
	var auth authorizer
	switch cfg.AuthType {
	case authTypeBearer:
		auth = bearerAuth{source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})}
	default:
		auth = basicAuth{email: cfg.Email, token: cfg.APIToken}
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		retry:      retry,
		logger:     logger,
	}
}

// Do performs one logical GET, retrying transient failures. On success the
// final status and body are returned even for 4xx responses, which the
// caller decides are fatal or benign.
func (c *Client) Do(ctx context.Context, flavor apiFlavor, path string, params url.Values) (int, []byte, error) {
	root := c.cfg.coreBaseURL()
	if flavor == flavorAgile {
		root = c.cfg.agileBaseURL()
	}
	endpoint := root + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var (
		status int
		body   []byte
	)
	err := c.retry.ExecuteWithCondition(ctx, func() error {
		s, b, err := c.doOnce(ctx, endpoint)
		if err != nil {
			return err
		}
		status, body = s, b
		return nil
	}, errors.IsRetryable)
	if err != nil {
		return 0, nil, err
	}
	return status, body, nil
}

func (c *Client) doOnce(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "helix-jira-source/1.0")
	if err := c.auth.apply(req); err != nil {
		return 0, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrorTypeConnection, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("rate limited", zap.String("url", endpoint), zap.String("retry_after", resp.Header.Get("Retry-After")))
		return 0, nil, errors.New(errors.ErrorTypeRateLimit, "rate limit exceeded")
	case resp.StatusCode >= 500:
		return 0, nil, errors.Newf(errors.ErrorTypeConnection, "server error %d", resp.StatusCode).
			WithDetail("url", endpoint)
	}
	return resp.StatusCode, body, nil
}
