package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"conductor/pkg/logging"
)

const subsystem = "Probe"

// Options tune an HTTP probe. Zero values pick the defaults.
type Options struct {
	// RetryMax is the number of retries within one Ready call.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Timeout bounds a single request.
	Timeout time.Duration
	// Insecure skips TLS verification, for self-signed test endpoints.
	Insecure bool
}

const (
	DefaultRetryMax     = 2
	DefaultRetryWaitMin = 100 * time.Millisecond
	DefaultRetryWaitMax = time.Second
	DefaultTimeout      = 5 * time.Second
)

// HTTP checks that an endpoint answers with a non-error status.
type HTTP struct {
	client *retryablehttp.Client
}

// NewHTTP creates an HTTP probe.
func NewHTTP(opts Options) *HTTP {
	if opts.RetryMax <= 0 {
		opts.RetryMax = DefaultRetryMax
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = DefaultRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = DefaultRetryWaitMax
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = opts.RetryWaitMin
	client.RetryWaitMax = opts.RetryWaitMax
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = leveledLogger{}
	// hand back the last response instead of a "giving up" error
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Insecure {
		if transport, ok := client.HTTPClient.Transport.(*http.Transport); ok {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
	}
	return &HTTP{client: client}
}

// Ready reports whether a GET of url succeeds with a status below 400.
// Connection failures count as not ready; only a malformed url is an error.
func (p *HTTP) Ready(ctx context.Context, url string) (bool, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("invalid probe url %s: %w", url, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logging.Debug(subsystem, "%s not reachable yet: %v", url, err)
		return false, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		logging.Debug(subsystem, "%s answered %d", url, resp.StatusCode)
		return false, nil
	}
	return true, nil
}

// leveledLogger routes retryablehttp logging into pkg/logging. Probe
// failures are expected while a service boots, so everything is debug.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	logging.Debug(subsystem, "%s %v", msg, keysAndValues)
}

func (leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug(subsystem, "%s %v", msg, keysAndValues)
}

func (leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	logging.Debug(subsystem, "%s %v", msg, keysAndValues)
}

func (leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	logging.Debug(subsystem, "%s %v", msg, keysAndValues)
}
