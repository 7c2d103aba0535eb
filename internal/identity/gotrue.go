package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 64 << 10

// GoTrueClient speaks the GoTrue REST API. It is stateless; session
// persistence and events live in BrowserClient.
type GoTrueClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	verifier   *TokenVerifier
	clock      clockwork.Clock
	tracer     trace.Tracer
}

type GoTrueOption func(*GoTrueClient)

func WithTokenVerifier(v *TokenVerifier) GoTrueOption {
	return func(g *GoTrueClient) { g.verifier = v }
}

func WithGoTrueClock(c clockwork.Clock) GoTrueOption {
	return func(g *GoTrueClient) {
		if c != nil {
			g.clock = c
		}
	}
}

// NewGoTrueClient targets {serviceURL}/auth/v1 authenticated with the anon key.
func NewGoTrueClient(serviceURL, anonKey string, timeout time.Duration, opts ...GoTrueOption) *GoTrueClient {
	c := &GoTrueClient{
		baseURL: strings.TrimRight(serviceURL, "/") + "/auth/v1",
		apiKey:  anonKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		verifier: NewTokenVerifier(""),
		clock:    clockwork.NewRealClock(),
		tracer:   otel.Tracer("pointer/identity"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PasswordGrant exchanges email and password for a session.
func (c *GoTrueClient) PasswordGrant(ctx context.Context, creds Credentials) (*Session, error) {
	ctx, span := c.tracer.Start(ctx, "gotrue.token", trace.WithAttributes(attribute.String("grant_type", "password")))
	defer span.End()

	var sess Session
	q := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": creds.Email, "password": creds.Password}
	if err := c.do(ctx, http.MethodPost, "/token", q, "", body, &sess); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return c.normalize(&sess), nil
}

// RefreshGrant exchanges a refresh token for a new session. Refresh tokens
// are single use.
func (c *GoTrueClient) RefreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	ctx, span := c.tracer.Start(ctx, "gotrue.token", trace.WithAttributes(attribute.String("grant_type", "refresh_token")))
	defer span.End()

	var sess Session
	q := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/token", q, "", body, &sess); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return c.normalize(&sess), nil
}

// SignUp registers a user. When email confirmation is enabled GoTrue replies
// with the bare user and the returned Session is nil.
func (c *GoTrueClient) SignUp(ctx context.Context, creds Credentials, redirectTo string) (*AuthResponse, error) {
	ctx, span := c.tracer.Start(ctx, "gotrue.signup")
	defer span.End()

	var q url.Values
	if redirectTo != "" {
		q = url.Values{"redirect_to": {redirectTo}}
	}
	var raw struct {
		Session
		ID               string         `json:"id"`
		Email            string         `json:"email"`
		UserMetadata     map[string]any `json:"user_metadata"`
		CreatedAt        time.Time      `json:"created_at"`
		EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	}
	body := map[string]string{"email": creds.Email, "password": creds.Password}
	if err := c.do(ctx, http.MethodPost, "/signup", q, "", body, &raw); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	if raw.AccessToken != "" {
		sess := c.normalize(&raw.Session)
		return &AuthResponse{Session: sess, User: sess.User}, nil
	}
	user := &User{
		ID:               raw.ID,
		Email:            raw.Email,
		UserMetadata:     raw.UserMetadata,
		CreatedAt:        raw.CreatedAt,
		EmailConfirmedAt: raw.EmailConfirmedAt,
	}
	if user.ID == "" && raw.User != nil {
		user = raw.User
	}
	return &AuthResponse{User: user}, nil
}

// Logout revokes the refresh tokens behind accessToken.
func (c *GoTrueClient) Logout(ctx context.Context, accessToken string) error {
	ctx, span := c.tracer.Start(ctx, "gotrue.logout")
	defer span.End()

	if err := c.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil); err != nil {
		recordSpanError(span, err)
		return err
	}
	return nil
}

// Resend re-sends a confirmation email.
func (c *GoTrueClient) Resend(ctx context.Context, params ResendParams) error {
	ctx, span := c.tracer.Start(ctx, "gotrue.resend", trace.WithAttributes(attribute.String("type", params.Type)))
	defer span.End()

	if err := c.do(ctx, http.MethodPost, "/resend", nil, "", params, nil); err != nil {
		recordSpanError(span, err)
		return err
	}
	return nil
}

// normalize fills ExpiresAt when GoTrue only sent expires_in.
func (c *GoTrueClient) normalize(s *Session) *Session {
	if s.ExpiresAt != 0 {
		return s
	}
	if claims, err := c.verifier.Parse(s.AccessToken); err == nil && claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Unix()
		return s
	}
	if s.ExpiresIn > 0 {
		s.ExpiresAt = c.clock.Now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	return s
}

func (c *GoTrueClient) do(ctx context.Context, method, path string, query url.Values, bearer string, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeProviderError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gotrue response: %w", err)
	}
	return nil
}

func decodeProviderError(resp *http.Response) error {
	var payload struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &payload)

	msg := firstNonEmpty(payload.Msg, payload.Message, payload.ErrorDescription, payload.Error)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ProviderError{
		Status:  resp.StatusCode,
		Code:    firstNonEmpty(payload.ErrorCode, payload.Error),
		Message: msg,
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
