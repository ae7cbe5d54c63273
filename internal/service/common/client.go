//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/eve-utils/eveclient-downloader/internal/version"
)

// maxRedirects matches the net/http default; redirects are always followed.
const maxRedirects = 10

var (
	// ErrTransport is matched by every error returned from Client.Get.
	ErrTransport = errors.New("transport error")
	// ErrBadHTTPStatus is matched when the server answers with a non-200 status.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// errTooManyRedirects stops redirect loops.
	errTooManyRedirects = errors.New("too many redirects")
)

// Client fetches whole resources from the binaries host.
type Client struct {
	// http is the underlying client; its transport owns the pooled connections.
	http *http.Client
	// userAgent is sent with every request, redirects included.
	userAgent string
	// callTimeout bounds one Get, body included. Zero means no deadline.
	callTimeout time.Duration
	// limiter caps read throughput when set.
	limiter *rate.Limiter
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a timeout for a single request, body included.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithUserAgent overrides the identifying User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRateLimit caps body reads to bytesPerSecond. Non-positive values disable the cap.
func WithRateLimit(bytesPerSecond int) Option {
	return func(c *Client) {
		if bytesPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)
		}
	}
}

// NewClient returns a Client owning its own connection pool; release it with Close.
func NewClient(opts ...Option) *Client {
	client := &Client{
		http: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(), //nolint:forcetypeassert // Stdlib default.
		},
		userAgent: version.UserAgent(),
	}

	for _, opt := range opts {
		opt(client)
	}

	client.http.CheckRedirect = client.checkRedirect

	return client
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	if c == nil || c.http == nil {
		return nil
	}

	c.http.CloseIdleConnections()

	return nil
}

// Get downloads the full body of url.
// Every failure, including non-200 statuses, matches ErrTransport.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, url, err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	response, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s, %s: %w", ErrTransport, url, response.Status, ErrBadHTTPStatus)
	}

	var body io.Reader = response.Body
	if c.limiter != nil {
		body = &limitedReader{ctx: callCtx, reader: response.Body, limiter: c.limiter}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTransport, url, err)
	}

	return data, nil
}

// checkRedirect follows redirects and carries the identifying header along.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errTooManyRedirects
	}

	req.Header.Set("User-Agent", c.userAgent)

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// limitedReader throttles reads through a token bucket sized in bytes.
type limitedReader struct {
	ctx     context.Context //nolint:containedctx // Bound to a single request.
	reader  io.Reader
	limiter *rate.Limiter
}

func (r *limitedReader) Read(p []byte) (int, error) {
	if burst := r.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := r.reader.Read(p)
	if n > 0 {
		if werr := r.limiter.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}

	return n, err
}
