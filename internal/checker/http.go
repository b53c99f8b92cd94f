package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	consts "github.com/khanhnv2901/walletscan/internal/shared/constants"
)

// HTTPClientOptions configures the outbound HTTP client.
type HTTPClientOptions struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Logger       *zap.Logger
}

// HTTPClient issues the scanner's outbound requests. Every call carries its own
// timeout and is never retried.
type HTTPClient struct {
	client       *resty.Client // follows redirects (document and script GETs)
	probe        *resty.Client // reports redirects as-is (liveness HEAD)
	maxBodyBytes int64
}

// NewHTTPClient builds a client from opts, filling in defaults.
func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = consts.DefaultRequestTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = consts.DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = consts.MaxDocumentBytes
	}

	return &HTTPClient{
		client:       newRestyClient(opts),
		probe:        newRestyClient(opts).SetRedirectPolicy(resty.RedirectPolicyFunc(stopAtFirstResponse)),
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

func newRestyClient(opts HTTPClientOptions) *resty.Client {
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent)
	if opts.Logger != nil {
		client.SetLogger(opts.Logger.Sugar())
	}
	return client
}

func stopAtFirstResponse(_ *http.Request, _ []*http.Request) error {
	return http.ErrUseLastResponse
}

// Head issues a HEAD request without following redirects and returns the status code.
func (c *HTTPClient) Head(ctx context.Context, target string) (int, error) {
	resp, err := c.probe.R().SetContext(ctx).Head(target)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// Get issues a GET request and returns the status code and body. The body is
// read only for 200 responses and is capped at the configured size.
func (c *HTTPClient) Get(ctx context.Context, target string) (int, string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(target)
	if resp != nil && resp.RawBody() != nil {
		defer resp.RawBody().Close()
	}
	if err != nil {
		return 0, "", err
	}

	if resp.StatusCode() != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.RawBody(), c.maxBodyBytes))
		return resp.StatusCode(), "", nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.RawBody(), c.maxBodyBytes))
	if err != nil {
		return resp.StatusCode(), "", fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode(), string(data), nil
}
