package analytics

import (
    "context"
    "errors"
    "fmt"
    "time"

    "SignalFusion/internal/service/metrics"
    xhttp "SignalFusion/pkg/http"
)

// HTTPServiceBase provides a DRY foundation for collaborator HTTP clients.
// It centralizes client construction, JSON requests and retry policy.
type HTTPServiceBase struct {
    source  string
    baseURL string
    client  *xhttp.Client
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL.
// source labels the upstream latency and error metrics.
func NewHTTPServiceBase(source, baseURL string, timeout time.Duration) *HTTPServiceBase {
    if timeout <= 0 {
        timeout = 3 * time.Second
    }
    return &HTTPServiceBase{
        source:  source,
        baseURL: baseURL,
        client:  xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("signalfusion/1.0")),
    }
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
    return b.do(ctx, &xhttp.RequestOptions{
        Method:  xhttp.MethodPost,
        URL:     b.baseURL + path,
        Headers: map[string]string{"Content-Type": "application/json"},
        Body:    payload,
    }, dest)
}

// GetJSON issues a GET to `path` with query params and decodes JSON into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
    return b.do(ctx, &xhttp.RequestOptions{
        Method:      xhttp.MethodGet,
        URL:         b.baseURL + path,
        Headers:     map[string]string{"Accept": "application/json"},
        QueryParams: query,
    }, dest)
}

// PostJSONWithRetry posts JSON with up to `attempts` tries for transient errors.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
    return retry(ctx, attempts, func() error { return b.PostJSON(ctx, path, payload, dest) })
}

// GetJSONWithRetry is GetJSON with the same retry policy as PostJSONWithRetry.
func (b *HTTPServiceBase) GetJSONWithRetry(ctx context.Context, path string, query map[string][]string, dest interface{}, attempts int) error {
    return retry(ctx, attempts, func() error { return b.GetJSON(ctx, path, query, dest) })
}

func (b *HTTPServiceBase) do(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
    if b.client == nil || b.baseURL == "" {
        return fmt.Errorf("%s http client not initialized", b.source)
    }
    start := time.Now()
    err := b.client.SendAndParse(ctx, opts, dest)
    metrics.Observe(b.source, start, err)
    if err != nil {
        return fmt.Errorf("%s %s: %w", opts.Method, opts.URL, err)
    }
    return nil
}

func retry(ctx context.Context, attempts int, fn func() error) error {
    if attempts < 1 {
        attempts = 1
    }
    var err error
    for i := 1; i <= attempts; i++ {
        if err = fn(); err == nil {
            return nil
        }
        var se *xhttp.StatusError
        if errors.As(err, &se) && !se.Retryable() {
            return err
        }
        if i == attempts {
            break
        }
        // linear backoff
        select {
        case <-time.After(time.Duration(i) * 50 * time.Millisecond):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return err
}
