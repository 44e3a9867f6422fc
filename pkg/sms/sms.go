// Package sms delivers short text messages to patient phones. Delivery is
// always best-effort: callers log failures and carry on.
package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/opd-queue/pkg/circuitbreaker"
	"github.com/jwalitptl/opd-queue/pkg/logger"
)

var ErrInvalidPhone = errors.New("phone number has no digits")

type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender writes messages to the log instead of a gateway.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, phone, message string) error {
	s.log.Info("sms sent", "to", phone, "message", message)
	return nil
}

type MailConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	GatewayDomain string
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailGatewaySender relays SMS through an email-to-SMS gateway, addressing
// <digits>@<gateway domain>.
type MailGatewaySender struct {
	dialer mailDialer
	from   string
	domain string
}

func NewMailGatewaySender(cfg MailConfig) *MailGatewaySender {
	return &MailGatewaySender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		domain: cfg.GatewayDomain,
	}
}

func (s *MailGatewaySender) Send(ctx context.Context, phone, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr, err := gatewayAddress(phone, s.domain)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", addr)
	m.SetHeader("Subject", "Hospital notification")
	m.SetBody("text/plain", message)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to relay sms to %s: %w", addr, err)
	}
	return nil
}

func gatewayAddress(phone, domain string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", ErrInvalidPhone
	}
	return b.String() + "@" + domain, nil
}

// BreakerSender short-circuits a failing gateway.
type BreakerSender struct {
	next Sender
	cb   *circuitbreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, cb *circuitbreaker.CircuitBreaker) *BreakerSender {
	return &BreakerSender{next: next, cb: cb}
}

func (s *BreakerSender) Send(ctx context.Context, phone, message string) error {
	return s.cb.Execute(func() error {
		return s.next.Send(ctx, phone, message)
	})
}
