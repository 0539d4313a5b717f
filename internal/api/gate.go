package api

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Gate owns every outbound provider call. Rate-limit backoff lives here and nowhere else.
type Gate struct {
	apiKey     string
	client     *fasthttp.Client
	maxRetries int
	deadline   time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func() time.Duration
	logger     zerolog.Logger

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type GateOptions struct {
	APIKey     string
	MaxRetries int
	Deadline   time.Duration
	Client     *fasthttp.Client
}

type RateLimitInfo struct {
	AppLimit       string    `json:"app_limit"`
	AppCount       string    `json:"app_count"`
	MethodCount    string    `json:"method_count"`
	Throttled      int       `json:"throttled"`
	LastRetryAfter float64   `json:"last_retry_after_seconds"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewGate(opts GateOptions, logger zerolog.Logger) *Gate {
	client := opts.Client
	if client == nil {
		client = &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		}
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = constants.APIMaxRetries
	}
	if opts.Deadline <= 0 {
		opts.Deadline = constants.APICallDeadline
	}

	return &Gate{
		apiKey:     opts.APIKey,
		client:     client,
		maxRetries: opts.MaxRetries,
		deadline:   opts.Deadline,
		sleep:      sleepContext,
		jitter:     randomJitter,
		logger:     logger,
		rateLimit:  RateLimitInfo{UpdatedAt: time.Now()},
	}
}

func (g *Gate) GetRateLimitInfo() RateLimitInfo {
	g.rateLimitMu.RLock()
	defer g.rateLimitMu.RUnlock()
	return g.rateLimit
}

func (g *Gate) updateRateLimit(resp *fasthttp.Response, retryAfter time.Duration) {
	g.rateLimitMu.Lock()
	defer g.rateLimitMu.Unlock()

	if v := string(resp.Header.Peek("X-App-Rate-Limit")); v != "" {
		g.rateLimit.AppLimit = v
	}
	if v := string(resp.Header.Peek("X-App-Rate-Limit-Count")); v != "" {
		g.rateLimit.AppCount = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit-Count")); v != "" {
		g.rateLimit.MethodCount = v
	}
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		g.rateLimit.Throttled++
		g.rateLimit.LastRetryAfter = retryAfter.Seconds()
	}
	g.rateLimit.UpdatedAt = time.Now()
}

type attemptResult struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

func (g *Gate) do(url string, deadline time.Time) (attemptResult, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("X-Riot-Token", g.apiKey)
	}

	if err := g.client.DoDeadline(req, resp, deadline); err != nil {
		return attemptResult{}, err
	}

	retryAfter := parseRetryAfter(string(resp.Header.Peek("Retry-After")))
	g.updateRateLimit(resp, retryAfter)

	return attemptResult{
		status:     resp.StatusCode(),
		body:       append([]byte(nil), resp.Body()...),
		retryAfter: retryAfter,
	}, nil
}

// doRequest performs a GET through the gate and decodes the JSON body into T.
// 429 responses are retried up to the gate's attempt budget; the whole chain is bounded by the
// earlier of the context deadline and the gate deadline.
func doRequest[T any](ctx context.Context, g *Gate, url string) (*T, error) {
	deadline := time.Now().Add(g.deadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := g.do(url, deadline)
		if err != nil {
			return nil, errors.Wrap(err, "failed to call provider")
		}

		switch {
		case res.status >= 200 && res.status < 300:
			var result T
			if err := sonic.Unmarshal(res.body, &result); err != nil {
				return nil, errors.Wrap(err, "failed to decode provider response")
			}
			return &result, nil

		case res.status == fasthttp.StatusTooManyRequests:
			if attempt >= g.maxRetries {
				return nil, errors.Wrapf(domain.ErrRateLimitExceeded, "gave up after %d attempts", attempt)
			}
			delay := res.retryAfter
			if delay <= 0 {
				delay = g.jitter()
			}
			if time.Now().Add(delay).After(deadline) {
				return nil, errors.Wrapf(domain.ErrRateLimitExceeded, "retry in %s would pass the call deadline", delay)
			}

			g.logger.Warn().
				Int("attempt", attempt).
				Dur("retry_after", delay).
				Str("url", redactURL(url)).
				Msg("rate limited by provider, backing off")

			if err := g.sleep(ctx, delay); err != nil {
				return nil, err
			}

		default:
			return nil, &domain.RemoteRequestFailedError{
				Status: res.status,
				Body:   abbreviate(res.body),
			}
		}
	}
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func randomJitter() time.Duration {
	return constants.RateLimitJitterMin + time.Duration(rand.Int64N(int64(constants.RateLimitJitterSpan)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func abbreviate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= constants.ResponseBodyLogMax {
		return s
	}
	n := constants.ResponseBodyLogMax
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func redactURL(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
