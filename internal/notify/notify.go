// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

/*
Package notify delivers transactional messages to customers: verification
emails, password reset emails, and mobile one-time passwords.

# Architecture

  - SMTPMailer: HTML email over a plain SMTP relay.
  - HTTPSMSSender: JSON POST to an external SMS gateway.
  - Breaker wrappers: both outbound channels sit behind a circuit breaker so
    a dead relay or gateway fails fast instead of tying up request handlers.

The breaker-wrapped types satisfy the auth package's Mailer and SMSSender
contracts.
*/
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// newBreaker builds a circuit breaker for an outbound delivery channel.
// It opens after five consecutive failures and probes again after 30s.
func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("delivery circuit breaker state change",
				slog.String("channel", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// BreakerMailer wraps a Mailer-shaped sender with a circuit breaker.
type BreakerMailer struct {
	inner   mailSender
	breaker *gobreaker.CircuitBreaker
}

type mailSender interface {
	SendVerificationEmail(context context.Context, toEmail, token string) error
	SendPasswordResetEmail(context context.Context, toEmail, token string) error
}

// NewBreakerMailer wraps the given mailer.
func NewBreakerMailer(inner mailSender, logger *slog.Logger) *BreakerMailer {
	return &BreakerMailer{inner: inner, breaker: newBreaker("smtp", logger)}
}

// SendVerificationEmail delivers through the breaker.
func (mailer *BreakerMailer) SendVerificationEmail(context context.Context, toEmail, token string) error {
	_, err := mailer.breaker.Execute(func() (any, error) {
		return nil, mailer.inner.SendVerificationEmail(context, toEmail, token)
	})
	return err
}

// SendPasswordResetEmail delivers through the breaker.
func (mailer *BreakerMailer) SendPasswordResetEmail(context context.Context, toEmail, token string) error {
	_, err := mailer.breaker.Execute(func() (any, error) {
		return nil, mailer.inner.SendPasswordResetEmail(context, toEmail, token)
	})
	return err
}

// BreakerSMSSender wraps an SMSSender-shaped sender with a circuit breaker.
type BreakerSMSSender struct {
	inner   otpSender
	breaker *gobreaker.CircuitBreaker
}

type otpSender interface {
	SendOTP(context context.Context, mobile, code string) error
}

// NewBreakerSMSSender wraps the given sender.
func NewBreakerSMSSender(inner otpSender, logger *slog.Logger) *BreakerSMSSender {
	return &BreakerSMSSender{inner: inner, breaker: newBreaker("sms", logger)}
}

// SendOTP delivers through the breaker.
func (sender *BreakerSMSSender) SendOTP(context context.Context, mobile, code string) error {
	_, err := sender.breaker.Execute(func() (any, error) {
		return nil, sender.inner.SendOTP(context, mobile, code)
	})
	return err
}
