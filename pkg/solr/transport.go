package solr

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"mercator-hq/archivist/pkg/gateway"
	"mercator-hq/archivist/pkg/telemetry/tracing"
)

// Request is one call against the Solr HTTP API.
type Request struct {
	Method      string
	URL         string
	ContentType string

	// Body is sent for POST requests.
	Body io.Reader

	// Header holds extra request headers.
	Header map[string]string
}

// Response is the raw reply. StatusCode is 0 when the transport cannot
// observe it.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs Solr requests.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPConfig configures HTTPTransport.
type HTTPConfig struct {
	// Timeout bounds a whole request. Zero means no timeout.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

// HTTPTransport talks to Solr with net/http.
type HTTPTransport struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPTransport creates an HTTP transport.
func NewHTTPTransport(cfg HTTPConfig, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &HTTPTransport{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger.With("component", "solr"),
	}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	tracing.Inject(ctx, httpReq.Header)

	t.logger.Debug("sending request to solr", "method", method, "url", req.URL)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// CurlTransport runs curl with kerberos negotiation through the gateway.
type CurlTransport struct {
	Runner gateway.Runner

	// Auth is invoked before every request.
	Auth gateway.Authenticator

	logger *slog.Logger
}

// NewCurlTransport creates a curl transport.
func NewCurlTransport(runner gateway.Runner, auth gateway.Authenticator, logger *slog.Logger) *CurlTransport {
	if logger == nil {
		logger = slog.Default()
	}
	if auth == nil {
		auth = gateway.NoAuth{}
	}
	return &CurlTransport{
		Runner: runner,
		Auth:   auth,
		logger: logger.With("component", "solr"),
	}
}

// Command returns the curl invocation for req. The body, if any, is read
// from stdin.
func (t *CurlTransport) Command(req Request) gateway.Command {
	args := []string{"-sS", "-k", "--negotiate", "-u", ":"}
	if req.Method != "" && req.Method != http.MethodGet {
		args = append(args, "-X", req.Method)
	}
	if req.ContentType != "" {
		args = append(args, "-H", "Content-Type: "+req.ContentType)
	}
	names := make([]string, 0, len(req.Header))
	for k := range req.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		args = append(args, "-H", k+": "+req.Header[k])
	}
	if req.Body != nil {
		args = append(args, "--data-binary", "@-")
	}
	args = append(args, req.URL)

	return gateway.Command{Program: "curl", Args: args, Stdin: req.Body}
}

// Do implements Transport.
func (t *CurlTransport) Do(ctx context.Context, req Request) (*Response, error) {
	if err := t.Auth.Authenticate(ctx); err != nil {
		return nil, err
	}

	if trace := tracing.Headers(ctx); len(trace) > 0 {
		header := make(map[string]string, len(req.Header)+len(trace))
		for k, v := range req.Header {
			header[k] = v
		}
		for k, v := range trace {
			header[k] = v
		}
		req.Header = header
	}

	cmd := t.Command(req)
	t.logger.Debug("sending request to solr", "command", cmd.String())

	res, err := t.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &Response{Body: res.Stdout}, nil
}
