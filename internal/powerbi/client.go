package powerbi

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
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public cloud Power BI REST endpoint.
const DefaultBaseURL = "https://api.powerbi.com/"

// Service is the contract the HTTP layer depends on.
type Service interface {
	GetReport(ctx context.Context, workspaceID, reportID uuid.UUID) (*ReportViewModel, error)
}

// ReportCache stores report metadata between requests. A miss is (nil, nil).
type ReportCache interface {
	GetReport(ctx context.Context, workspaceID, reportID uuid.UUID) (*Report, error)
	SetReport(ctx context.Context, workspaceID uuid.UUID, report *Report) error
}

// Recorder observes API calls, typically backed by Prometheus.
type Recorder interface {
	ObservePowerBI(operation string, status int, elapsed time.Duration)
}

// Options configures a Client. Only BaseURL is required to be valid; the
// zero value of every other field is usable.
type Options struct {
	BaseURL   string
	TokenType TokenType
	Timeout   time.Duration
	// Transport is wrapped with OpenTelemetry instrumentation.
	Transport http.RoundTripper
	// TokenSource is used when the call context carries none, e.g. for a
	// service principal.
	TokenSource oauth2.TokenSource
	Cache       ReportCache
	Recorder    Recorder
	Logger      *slog.Logger
}

// Client calls the Power BI REST API.
type Client struct {
	baseURL   string
	http      *http.Client
	tokenType TokenType
	fallback  oauth2.TokenSource
	cache     ReportCache
	recorder  Recorder
	validate  *validator.Validate
	logger    *slog.Logger
}

var _ Service = (*Client)(nil)

// NewClient creates a new Client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("powerbi: invalid base url %q: %w", opts.BaseURL, err)
	}
	if opts.TokenType == "" {
		opts.TokenType = TokenTypeEmbed
	}
	if opts.TokenType != TokenTypeEmbed && opts.TokenType != TokenTypeAad {
		return nil, fmt.Errorf("powerbi: unsupported token type %q", opts.TokenType)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		baseURL: opts.BaseURL,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport),
		},
		tokenType: opts.TokenType,
		fallback:  opts.TokenSource,
		cache:     opts.Cache,
		recorder:  opts.Recorder,
		validate:  validator.New(),
		logger:    opts.Logger,
	}, nil
}

// GetReport loads the report and an access token for embedding it.
func (c *Client) GetReport(ctx context.Context, workspaceID, reportID uuid.UUID) (*ReportViewModel, error) {
	ts, err := c.tokenSource(ctx)
	if err != nil {
		return nil, err
	}

	report, err := c.report(ctx, ts, workspaceID, reportID)
	if err != nil {
		return nil, err
	}

	vm := &ReportViewModel{
		ID:          report.ID,
		Name:        report.Name,
		EmbedURL:    report.EmbedURL,
		TokenType:   c.tokenType,
		WorkspaceID: workspaceID.String(),
	}

	switch c.tokenType {
	case TokenTypeAad:
		tok, err := ts.Token()
		if err != nil {
			return nil, fmt.Errorf("powerbi: acquire access token: %w", err)
		}
		vm.Token = tok.AccessToken
		vm.Expiration = tok.Expiry
	default:
		embed, err := c.GenerateToken(ctx, workspaceID, reportID)
		if err != nil {
			return nil, err
		}
		vm.Token = embed.Token
		vm.Expiration = embed.Expiration
	}

	return vm, nil
}

// Report fetches report metadata without consulting the cache.
func (c *Client) Report(ctx context.Context, workspaceID, reportID uuid.UUID) (*Report, error) {
	ts, err := c.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return c.fetchReport(ctx, ts, workspaceID, reportID)
}

// GenerateToken issues a view-only embed token for a single report.
func (c *Client) GenerateToken(ctx context.Context, workspaceID, reportID uuid.UUID) (*EmbedToken, error) {
	ts, err := c.tokenSource(ctx)
	if err != nil {
		return nil, err
	}

	var token EmbedToken
	body := generateTokenRequest{AccessLevel: "View"}
	err = c.do(ctx, ts, "generate_token", http.MethodPost, body, &token,
		"v1.0/myorg/groups", workspaceID.String(), "reports", reportID.String(), "GenerateToken")
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// cacheEnabled reports whether report metadata may come from the cache. In Aad
// mode the report GET is the only call that checks the user's access, so it
// is never skipped.
func (c *Client) cacheEnabled() bool {
	return c.cache != nil && c.tokenType == TokenTypeEmbed
}

func (c *Client) report(ctx context.Context, ts oauth2.TokenSource, workspaceID, reportID uuid.UUID) (*Report, error) {
	if c.cacheEnabled() {
		cached, err := c.cache.GetReport(ctx, workspaceID, reportID)
		if err != nil {
			c.logger.WarnContext(ctx, "Report cache lookup failed", "report_id", reportID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	report, err := c.fetchReport(ctx, ts, workspaceID, reportID)
	if err != nil {
		return nil, err
	}

	if c.cacheEnabled() {
		if err := c.cache.SetReport(ctx, workspaceID, report); err != nil {
			c.logger.WarnContext(ctx, "Report cache store failed", "report_id", reportID, "error", err)
		}
	}
	return report, nil
}

func (c *Client) fetchReport(ctx context.Context, ts oauth2.TokenSource, workspaceID, reportID uuid.UUID) (*Report, error) {
	var report Report
	err := c.do(ctx, ts, "get_report", http.MethodGet, nil, &report,
		"v1.0/myorg/groups", workspaceID.String(), "reports", reportID.String())
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if ts, ok := TokenSourceFromContext(ctx); ok {
		return ts, nil
	}
	if c.fallback != nil {
		return c.fallback, nil
	}
	return nil, ErrNoTokenSource
}

// do performs one authenticated JSON call and decodes the body into out.
func (c *Client) do(ctx context.Context, ts oauth2.TokenSource, operation, method string, in, out any, path ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return fmt.Errorf("powerbi: build url: %w", err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("powerbi: marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("powerbi: create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("powerbi: acquire access token: %w", err)
	}
	tok.SetAuthHeader(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(operation, 0, start)
		return fmt.Errorf("powerbi: %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()
	c.observe(operation, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("powerbi: decode %s response: %w", operation, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("powerbi: invalid %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) observe(operation string, status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObservePowerBI(operation, status, time.Since(start))
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("RequestId"),
	}

	var envelope errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	if apiErr.Code == "" && apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsAPIError reports whether err wraps an *APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
