package mailer

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP is a minimal scripted SMTP server on 127.0.0.1. It never
// advertises STARTTLS, so PLAIN auth relies on the localhost exemption.
type fakeSMTP struct {
	ln        net.Listener
	authReply string // overrides the 235 success reply
	stallAt   string // verb at which the server stops answering; "GREETING" stalls the banner
	trickleAt string // like stallAt, but keeps sending continuation lines

	mu       sync.Mutex
	commands []string
	messages []string
}

func startFakeSMTP(t *testing.T, s *fakeSMTP) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.ln = ln
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	if s.stallAt == "GREETING" {
		_, _ = io.Copy(io.Discard, conn)
		return
	}

	tp := textproto.NewConn(conn)
	if s.trickleAt == "GREETING" {
		trickle(tp, "220")
		return
	}
	_ = tp.PrintfLine("220 fake.local ESMTP ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		verb := strings.ToUpper(fields[0])

		s.mu.Lock()
		s.commands = append(s.commands, verb)
		s.mu.Unlock()

		if verb == s.stallAt {
			_, _ = io.Copy(io.Discard, conn)
			return
		}
		if verb == s.trickleAt {
			trickle(tp, "250")
			return
		}

		switch verb {
		case "EHLO":
			_ = tp.PrintfLine("250-fake.local")
			_ = tp.PrintfLine("250-AUTH PLAIN")
			_ = tp.PrintfLine("250 8BITMIME")
		case "AUTH":
			if s.authReply != "" {
				_ = tp.PrintfLine("%s", s.authReply)
			} else {
				_ = tp.PrintfLine("235 2.7.0 Authentication successful")
			}
		case "MAIL", "RCPT", "NOOP", "RSET":
			_ = tp.PrintfLine("250 2.0.0 OK")
		case "DATA":
			_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.messages = append(s.messages, strings.Join(lines, "\n"))
			s.mu.Unlock()
			_ = tp.PrintfLine("250 2.0.0 OK queued")
		case "QUIT":
			_ = tp.PrintfLine("221 2.0.0 Bye")
			return
		default:
			_ = tp.PrintfLine("502 5.5.2 Command not recognized")
		}
	}
}

// trickle sends multi-line continuations of code forever, so no single
// read ever waits long but the reply never completes.
func trickle(tp *textproto.Conn, code string) {
	for {
		if err := tp.PrintfLine("%s-still working", code); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *fakeSMTP) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func testSMTPConfig(port int) SMTPConfig {
	return SMTPConfig{
		Host:            "127.0.0.1",
		Port:            port,
		Username:        operator,
		Password:        "app-password",
		ConnectTimeout:  time.Second,
		GreetingTimeout: 200 * time.Millisecond,
		ResponseTimeout: 200 * time.Millisecond,
	}
}

func testEnvelope() *Envelope {
	return &Envelope{
		From:        operator,
		To:          operator,
		ReplyTo:     "ada@example.com",
		ReplyToName: "Ada",
		Subject:     "Portfolio Contact from Ada",
		Text:        "Name: Ada\nEmail: ada@example.com\nMessage: hi",
		HTML:        "<p><strong>Name:</strong> Ada</p>",
	}
}

func TestSMTPTransportSend(t *testing.T) {
	srv := startFakeSMTP(t, &fakeSMTP{})
	tr := NewSMTPTransport(testSMTPConfig(srv.port()))

	err := tr.Send(context.Background(), testEnvelope())
	require.NoError(t, err)

	msgs := srv.received()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "From: <me@example.dev>")
	assert.Contains(t, msgs[0], "To: <me@example.dev>")
	assert.Contains(t, msgs[0], `Reply-To: "Ada" <ada@example.com>`)
	assert.Contains(t, msgs[0], "Subject: Portfolio Contact from Ada")
	assert.Contains(t, msgs[0], "multipart/alternative")
	assert.Contains(t, msgs[0], "Name: Ada")
}

func TestSMTPTransportAuthRejected(t *testing.T) {
	srv := startFakeSMTP(t, &fakeSMTP{authReply: "535 5.7.8 Username and Password not accepted"})
	tr := NewSMTPTransport(testSMTPConfig(srv.port()))

	err := tr.Send(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.Equal(t, KindAuthFailure, KindOf(err))
	assert.Empty(t, srv.received())
}

func TestSMTPTransportGreetingTimeout(t *testing.T) {
	srv := startFakeSMTP(t, &fakeSMTP{stallAt: "GREETING"})
	tr := NewSMTPTransport(testSMTPConfig(srv.port()))

	start := time.Now()
	err := tr.Send(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPTransportResponseTimeout(t *testing.T) {
	srv := startFakeSMTP(t, &fakeSMTP{stallAt: "MAIL"})
	tr := NewSMTPTransport(testSMTPConfig(srv.port()))

	err := tr.Send(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestSMTPTransportTricklingGreetingIsBounded(t *testing.T) {
	srv := startFakeSMTP(t, &fakeSMTP{trickleAt: "GREETING"})
	tr := NewSMTPTransport(testSMTPConfig(srv.port()))

	start := time.Now()
	err := tr.Verify(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSMTPTransportTricklingResponseIsBounded(t *testing.T) {
	srv := startFakeSMTP(t, &fakeSMTP{trickleAt: "MAIL"})
	tr := NewSMTPTransport(testSMTPConfig(srv.port()))

	start := time.Now()
	err := tr.Send(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, srv.received())
}

func TestSMTPTransportConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	tr := NewSMTPTransport(testSMTPConfig(port))
	err = tr.Send(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.Equal(t, KindNetworkUnreachable, KindOf(err))

	var de *DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "smtp", de.Provider)
}

func TestSMTPTransportVerify(t *testing.T) {
	srv := startFakeSMTP(t, &fakeSMTP{})
	tr := NewSMTPTransport(testSMTPConfig(srv.port()))

	require.NoError(t, tr.Verify(context.Background()))
	assert.Empty(t, srv.received(), "verify must not send mail")
}

func TestSMTPTransportMissingConfig(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.gmail.com", Port: 587})
	assert.Equal(t, []string{"smtp username", "smtp password"}, tr.MissingConfig())
}

func TestDelivererFallsBackWhenSMTPTimesOut(t *testing.T) {
	srv := startFakeSMTP(t, &fakeSMTP{stallAt: "GREETING"})
	secondary := &fakeTransport{name: "mailgun"}

	d, err := NewDeliverer(operator, NewSMTPTransport(testSMTPConfig(srv.port())), secondary)
	require.NoError(t, err)

	out, err := d.Send(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Delivered: true, Transport: TransportSecondary}, out)
	assert.Equal(t, 1, secondary.calls)
}
