// Package supabase talks to a hosted Supabase project: GoTrue for auth and
// PostgREST for the inscricoes and admins tables.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/postgrest-go"

	"inclusao/internal/backend"
	"inclusao/internal/sentinel"
)

const (
	msgUnreachable = "não foi possível contactar o servidor"
	msgTimeout     = "o servidor demorou demais para responder"
	msgUnexpected  = "resposta inesperada do servidor"

	restSchema = "public"
)

// Client wraps the GoTrue and PostgREST clients. Table requests run with the
// signed-in user's token from the context when present, else with the anon
// key.
type Client struct {
	auth    gotrue.Client
	restURL string
	anonKey string
	timeout time.Duration
	events  *backend.Broker
	now     func() time.Time
}

type Option func(*Client)

// WithHTTPClient sets the HTTP client used for auth calls (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.auth = c.auth.WithClient(*hc)
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func New(baseURL, anonKey string, timeout time.Duration, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	c := &Client{
		auth: gotrue.New("", anonKey).
			WithCustomGoTrueURL(base + "/auth/v1").
			WithClient(http.Client{Timeout: timeout}),
		restURL: base + "/rest/v1",
		anonKey: anonKey,
		timeout: timeout,
		events:  backend.NewBroker(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close ends every auth event subscription.
func (c *Client) Close() error {
	c.events.Close()
	return nil
}

// Health probes the auth service.
func (c *Client) Health(ctx context.Context) error {
	_, err := await(ctx, c.timeout, func() (struct{}, error) {
		_, err := c.auth.HealthCheck()
		return struct{}{}, err
	})
	if err != nil {
		return authError("health", err)
	}
	return nil
}

// rest builds a PostgREST client for one request. The library keeps headers
// on the client, so sharing one across users would leak tokens.
func (c *Client) rest(ctx context.Context) *postgrest.Client {
	token := backend.AccessToken(ctx)
	if token == "" {
		token = c.anonKey
	}
	return postgrest.NewClient(c.restURL, restSchema, map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + token,
	})
}

// await runs call on its own goroutine so ctx cancellation and the timeout
// are honoured; neither library accepts a context.
func await[T any](ctx context.Context, timeout time.Duration, call func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// transportError maps failures that never produced a response. It returns
// nil for anything else.
func transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return backend.NewError(op, msgTimeout, fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	var ue *url.Error
	if errors.Is(err, context.Canceled) || errors.As(err, &ue) {
		return backend.NewError(op, msgUnreachable, fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	return nil
}

// GoTrue reports non-2xx responses as "response status code N: <body>".
var authFailure = regexp.MustCompile(`(?s)^response status code (\d+)(?:: (.*))?$`)

// apiError is the GoTrue error body.
type apiError struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorName} {
		if s != "" {
			return s
		}
	}
	return ""
}

// authError turns a GoTrue failure into a backend.Error carrying the
// service's own message.
func authError(op string, err error) error {
	if te := transportError(op, err); te != nil {
		return te
	}
	m := authFailure.FindStringSubmatch(err.Error())
	if m == nil {
		return backend.NewError(op, msgUnexpected, fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	status, _ := strconv.Atoi(m[1])
	var ae apiError
	_ = json.Unmarshal([]byte(m[2]), &ae)
	msg := ae.text()
	if msg == "" {
		msg = fmt.Sprintf("%s (%d)", msgUnexpected, status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusBadRequest:
		return backend.NewError(op, msg, sentinel.ErrUnauthorized)
	case status == http.StatusConflict:
		return backend.NewError(op, msg, sentinel.ErrAlreadyUsed)
	case status == http.StatusNotFound:
		return backend.NewError(op, msg, sentinel.ErrNotFound)
	case status >= 500 || status == http.StatusTooManyRequests:
		return backend.NewError(op, msg, sentinel.ErrUnavailable)
	default:
		return backend.NewError(op, msg, sentinel.ErrInvalidInput)
	}
}

// PostgREST failures come back as "(code) message", where code is the
// Postgres SQLSTATE or a PGRST code.
var restFailure = regexp.MustCompile(`(?s)^\(([^)]*)\) (.*)$`)

func restError(op string, err error) error {
	if te := transportError(op, err); te != nil {
		return te
	}
	m := restFailure.FindStringSubmatch(err.Error())
	if m == nil {
		return backend.NewError(op, msgUnexpected, fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	code, msg := m[1], m[2]
	if msg == "" {
		msg = msgUnexpected
	}

	switch {
	case code == "23505":
		return backend.NewError(op, msg, sentinel.ErrAlreadyUsed)
	case strings.HasPrefix(code, "22") || strings.HasPrefix(code, "23"):
		return backend.NewError(op, msg, sentinel.ErrInvalidInput)
	case code == "42501" || strings.HasPrefix(code, "PGRST3"):
		return backend.NewError(op, msg, sentinel.ErrUnauthorized)
	case code == "PGRST116":
		return backend.NewError(op, msg, sentinel.ErrNotFound)
	case strings.HasPrefix(code, "PGRST1"):
		return backend.NewError(op, msg, sentinel.ErrInvalidInput)
	default:
		return backend.NewError(op, msg, sentinel.ErrUnavailable)
	}
}

func decode(op string, body []byte, dst any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return backend.NewError(op, "resposta inválida do servidor", fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	return nil
}
