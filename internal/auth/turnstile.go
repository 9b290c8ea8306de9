// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/logging"
)

// BotVerifier checks a client-side CAPTCHA token.
type BotVerifier interface {
	// Verify returns nil when the token proves a human, or an error that
	// is (or wraps) ErrBotVerificationFailed.
	Verify(ctx context.Context, token, remoteIP string) error
}

// NoopBotVerifier accepts every token. Development only; config validation
// refuses it in production.
type NoopBotVerifier struct{}

// Verify implements BotVerifier.
func (NoopBotVerifier) Verify(context.Context, string, string) error { return nil }

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
	Action     string   `json:"action"`
}

// TurnstileVerifier calls the Cloudflare Turnstile siteverify endpoint.
// Outbound calls are throttled and pass through a circuit breaker; any
// failure to get an answer counts as a failed verification.
type TurnstileVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[*siteverifyResponse]
}

// NewTurnstileVerifier builds a verifier. A nil client gets one with the
// configured timeout.
func NewTurnstileVerifier(cfg *config.TurnstileConfig, client *http.Client) *TurnstileVerifier {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	breaker := gobreaker.NewCircuitBreaker[*siteverifyResponse](gobreaker.Settings{
		Name:        "turnstile-siteverify",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	})

	return &TurnstileVerifier{
		secret:    cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:   breaker,
	}
}

// Verify implements BotVerifier.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return newError(ErrBotVerificationFailed, errors.New("missing turnstile token"))
	}

	start := time.Now()
	if err := v.limiter.Wait(ctx); err != nil {
		RecordBotVerification("error", time.Since(start))
		return newError(ErrBotVerificationFailed, fmt.Errorf("turnstile throttle: %w", err))
	}

	resp, err := v.breaker.Execute(func() (*siteverifyResponse, error) {
		return v.call(ctx, token, remoteIP)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		RecordBotVerification("circuit_open", time.Since(start))
		return newError(ErrBotVerificationFailed, err)
	case err != nil:
		RecordBotVerification("error", time.Since(start))
		logging.Error().Err(err).Msg("Turnstile siteverify call failed")
		return newError(ErrBotVerificationFailed, err)
	case !resp.Success:
		RecordBotVerification("fail", time.Since(start))
		return newError(ErrBotVerificationFailed, fmt.Errorf("turnstile rejected token: %s", strings.Join(resp.ErrorCodes, ",")))
	}

	RecordBotVerification("pass", time.Since(start))
	return nil
}

// call performs one siteverify request. A well-formed negative answer is
// not an error, so it does not trip the breaker.
func (v *TurnstileVerifier) call(ctx context.Context, token, remoteIP string) (*siteverifyResponse, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" && remoteIP != UnknownIP {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siteverify returned status %d", res.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode siteverify response: %w", err)
	}
	return &out, nil
}

// NewBotVerifier returns the verifier for cfg.
func NewBotVerifier(cfg *config.TurnstileConfig) BotVerifier {
	if !cfg.Enabled {
		logging.Warn().Msg("Turnstile bot verification is disabled")
		return NoopBotVerifier{}
	}
	return NewTurnstileVerifier(cfg, nil)
}
