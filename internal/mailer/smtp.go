package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// SMTPConfig configures the primary submission transport.
type SMTPConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	ConnectTimeout  time.Duration
	GreetingTimeout time.Duration
	ResponseTimeout time.Duration
	TLSSkipVerify   bool
}

// SMTPTransport submits mail over SMTP with STARTTLS (or implicit TLS on
// port 465) and PLAIN auth. Each Send opens its own connection.
type SMTPTransport struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPTransport creates the primary transport.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, now: time.Now}
}

// Name identifies the transport in logs and reports.
func (t *SMTPTransport) Name() string { return "smtp" }

// MissingConfig lists the settings Send cannot run without.
func (t *SMTPTransport) MissingConfig() []string {
	var missing []string
	if t.cfg.Host == "" {
		missing = append(missing, "smtp host")
	}
	if t.cfg.Username == "" {
		missing = append(missing, "smtp username")
	}
	if t.cfg.Password == "" {
		missing = append(missing, "smtp password")
	}
	return missing
}

// Send delivers env in one SMTP session.
func (t *SMTPTransport) Send(ctx context.Context, env *Envelope) error {
	raw, err := buildMIME(env, t.now())
	if err != nil {
		return t.fail(KindOther, "build message", err)
	}

	client, closeSession, err := t.open(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	if err := client.Mail(env.From); err != nil {
		return t.fail(classifySMTPReply(t.cause(ctx, err)), "MAIL FROM", err)
	}
	if err := client.Rcpt(env.To); err != nil {
		return t.fail(classifySMTPReply(t.cause(ctx, err)), "RCPT TO", err)
	}
	w, err := client.Data()
	if err != nil {
		return t.fail(classifySMTPReply(t.cause(ctx, err)), "DATA", err)
	}
	if _, err := w.Write(raw); err != nil {
		return t.fail(classifySMTPReply(t.cause(ctx, err)), "write", err)
	}
	if err := w.Close(); err != nil {
		return t.fail(classifySMTPReply(t.cause(ctx, err)), "DATA close", err)
	}
	// The message is accepted once DATA closes; a failed QUIT is not a delivery failure.
	_ = client.Quit()
	return nil
}

// Verify connects, negotiates TLS and authenticates without sending mail.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	client, closeSession, err := t.open(ctx)
	if err != nil {
		return err
	}
	defer closeSession()
	if err := client.Noop(); err != nil {
		return t.fail(classifySMTPReply(t.cause(ctx, err)), "NOOP", err)
	}
	_ = client.Quit()
	return nil
}

// open dials, reads the greeting, upgrades to TLS and authenticates.
// Every failure is a *DeliveryError classified at the step that failed.
func (t *SMTPTransport) open(ctx context.Context) (*smtp.Client, func(), error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	dialer := &net.Dialer{Timeout: t.cfg.ConnectTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, t.fail(classifyNetError(t.cause(ctx, err)), "connect to "+addr, err)
	}

	// Cancelling ctx tears the connection down so no step outlives the request.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	// One absolute deadline covers the banner and any implicit TLS
	// handshake; a second covers the rest of the session.
	setPhaseDeadline(conn, t.cfg.GreetingTimeout)
	var wire net.Conn = conn
	implicitTLS := t.cfg.Port == 465
	if implicitTLS {
		wire = tls.Client(conn, t.tlsConfig())
	}

	client, err := smtp.NewClient(wire, t.cfg.Host)
	if err != nil {
		stop()
		_ = conn.Close()
		return nil, nil, t.fail(classifyNetError(t.cause(ctx, err)), "greeting", err)
	}
	setPhaseDeadline(conn, t.cfg.ResponseTimeout)

	closeSession := func() {
		stop()
		_ = client.Close()
	}

	if !implicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(t.tlsConfig()); err != nil {
				closeSession()
				return nil, nil, t.fail(classifySMTPReply(t.cause(ctx, err)), "STARTTLS", err)
			}
		}
	}

	if err := client.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)); err != nil {
		closeSession()
		return nil, nil, t.fail(classifySMTPAuth(t.cause(ctx, err)), "AUTH", err)
	}

	return client, closeSession, nil
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         t.cfg.Host,
		InsecureSkipVerify: t.cfg.TLSSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
}

// cause prefers the context error when ctx ended, since a connection
// closed by cancellation otherwise surfaces as a generic I/O error.
func (t *SMTPTransport) cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(ctxErr, err)
	}
	return err
}

func (t *SMTPTransport) fail(kind ErrorKind, step string, err error) error {
	return &DeliveryError{Provider: t.Name(), Kind: kind, Err: fmt.Errorf("%s: %w", step, err)}
}

// setPhaseDeadline bounds all remaining I/O on conn to d from now. A
// zero d clears the deadline.
func setPhaseDeadline(conn net.Conn, d time.Duration) {
	if d <= 0 {
		_ = conn.SetDeadline(time.Time{})
		return
	}
	_ = conn.SetDeadline(time.Now().Add(d))
}
