package sms

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/opd-queue/pkg/circuitbreaker"
	"github.com/jwalitptl/opd-queue/pkg/logger"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestMailGatewaySenderAddressesGateway(t *testing.T) {
	d := &fakeDialer{}
	s := &MailGatewaySender{dialer: d, from: "desk@hospital.test", domain: "sms.example.net"}

	require.NoError(t, s.Send(context.Background(), "+91 98765-43210", "Your token number 4 is called."))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"919876543210@sms.example.net"}, d.sent[0].GetHeader("To"))

	var body strings.Builder
	_, err := d.sent[0].WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "Your token number 4 is called.")
}

func TestMailGatewaySenderRejectsEmptyPhone(t *testing.T) {
	s := &MailGatewaySender{dialer: &fakeDialer{}, domain: "sms.example.net"}
	assert.ErrorIs(t, s.Send(context.Background(), "n/a", "hello"), ErrInvalidPhone)
}

func TestMailGatewaySenderWrapsDialError(t *testing.T) {
	boom := errors.New("connection refused")
	s := &MailGatewaySender{dialer: &fakeDialer{err: boom}, domain: "sms.example.net"}
	assert.ErrorIs(t, s.Send(context.Background(), "12345", "hello"), boom)
}

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, string, string) error {
	f.calls++
	return errors.New("gateway down")
}

func TestBreakerSenderStopsCallingFailingGateway(t *testing.T) {
	next := &failingSender{}
	s := NewBreakerSender(next, circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name: "sms", MaxFailures: 2, Timeout: time.Minute,
	}))

	for i := 0; i < 5; i++ {
		assert.Error(t, s.Send(context.Background(), "123", "hi"))
	}
	assert.Equal(t, 2, next.calls)
}

func TestLogSenderNeverFails(t *testing.T) {
	s := NewLogSender(logger.NewLogger(&logger.Config{Output: io.Discard, JSON: true}))
	assert.NoError(t, s.Send(context.Background(), "123", "hi"))
}
