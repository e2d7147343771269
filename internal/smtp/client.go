// Package smtp implements the outbound SMTP relay session used to deliver
// site mail: a single synchronous STARTTLS submission with AUTH LOGIN.
package smtp

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/mail"
	wstls "github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/tls"
)

// Options configures a relay Sender. All values are injected; nothing is
// read from process-wide state.
type Options struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Sender     string
	HeloDomain string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// TLSConfig overrides the default client TLS configuration
	// (ServerName = Host, MinVersion TLS 1.2). Used by tests.
	TLSConfig *tls.Config
}

// Sender performs one-shot mail submissions through a fixed SMTP relay.
// Each Send is an independent session; a Sender may be used concurrently.
type Sender struct {
	opts   Options
	logger *slog.Logger
}

// NewSender creates a Sender for the given relay options.
func NewSender(opts Options) *Sender {
	if opts.HeloDomain == "" {
		opts.HeloDomain = "localhost"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Sender{opts: opts, logger: slog.Default()}
}

// Send attempts exactly one synchronous delivery of msg. The session is
// strict: each protocol step requires its expected reply code, any mismatch
// aborts immediately with a StepError carrying the step name and the raw
// server response, and there are no retries. The connection is closed on
// every exit path.
func (s *Sender) Send(ctx context.Context, msg *mail.Message) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))

	dialer := net.Dialer{Timeout: s.opts.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return transport(StepConnect, err)
	}

	c := newConn(nc, s.opts.ReadTimeout)
	defer c.close()

	reply, err := c.readReply(ctx)
	if err != nil {
		return transport(StepGreeting, err)
	}
	if reply.Code != 220 {
		return rejected(StepGreeting, reply)
	}

	// Pre-TLS EHLO. The response is only status-checked; its capability
	// list is discarded once the connection is upgraded (RFC 3207 §4.2).
	if _, err := c.cmd(ctx, "EHLO %s", s.opts.HeloDomain); err != nil {
		return transport(StepStartTLS, err)
	}

	reply, err = c.cmd(ctx, "STARTTLS")
	if err != nil {
		return transport(StepStartTLS, err)
	}
	if reply.Code != 220 {
		return rejected(StepStartTLS, reply)
	}

	tlsConfig := s.opts.TLSConfig
	if tlsConfig == nil {
		tlsConfig = wstls.ClientConfig(s.opts.Host, false)
	}
	if err := c.upgradeTLS(ctx, tlsConfig); err != nil {
		return transport(StepTLSHandshake, err)
	}

	reply, err = c.cmd(ctx, "EHLO %s", s.opts.HeloDomain)
	if err != nil {
		return transport(StepAuthMechanism, err)
	}
	if reply.Code != 250 || !advertisesAuthLogin(reply) {
		return rejected(StepAuthMechanism, reply)
	}

	reply, err = c.cmd(ctx, "AUTH LOGIN")
	if err != nil {
		return transport(StepAuthMechanism, err)
	}
	if reply.Code != 334 {
		return rejected(StepAuthMechanism, reply)
	}

	reply, err = c.cmd(ctx, "%s", base64.StdEncoding.EncodeToString([]byte(s.opts.Username)))
	if err != nil {
		return transport(StepAuthUsername, err)
	}
	if reply.Code != 334 {
		return rejected(StepAuthUsername, reply)
	}

	reply, err = c.cmd(ctx, "%s", base64.StdEncoding.EncodeToString([]byte(s.opts.Password)))
	if err != nil {
		return transport(StepAuthPassword, err)
	}
	if reply.Code != 235 {
		return rejected(StepAuthPassword, reply)
	}

	reply, err = c.cmd(ctx, "MAIL FROM:<%s>", s.opts.Sender)
	if err != nil {
		return transport(StepMailFrom, err)
	}
	if reply.Code != 250 {
		return rejected(StepMailFrom, reply)
	}

	reply, err = c.cmd(ctx, "RCPT TO:<%s>", msg.To)
	if err != nil {
		return transport(StepRcptTo, err)
	}
	if reply.Code != 250 {
		return rejected(StepRcptTo, reply)
	}

	reply, err = c.cmd(ctx, "DATA")
	if err != nil {
		return transport(StepData, err)
	}
	if reply.Code != 354 {
		return rejected(StepData, reply)
	}

	c.setStepDeadline(ctx)
	dw := c.dotWriter()
	if _, err := io.WriteString(dw, msg.Compose(s.opts.Sender)); err != nil {
		dw.Close()
		return transport(StepMessage, err)
	}
	if err := dw.Close(); err != nil {
		return transport(StepMessage, err)
	}

	reply, err = c.readReply(ctx)
	if err != nil {
		return transport(StepMessage, err)
	}
	if reply.Code != 250 {
		return rejected(StepMessage, reply)
	}

	// QUIT is best effort; the reply is read and discarded.
	if _, err := c.cmd(ctx, "QUIT"); err != nil {
		s.logger.Debug("relay QUIT failed", "error", err)
	}

	s.logger.Info("message delivered via relay",
		"relay", addr,
		"to", msg.To,
	)
	return nil
}

// advertisesAuthLogin reports whether the post-TLS EHLO response lists the
// LOGIN mechanism in an AUTH capability line.
func advertisesAuthLogin(reply Reply) bool {
	for _, line := range reply.Lines {
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "AUTH ") && strings.Contains(upper, "LOGIN") {
			return true
		}
	}
	return false
}
