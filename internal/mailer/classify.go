package mailer

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"os"
	"syscall"
)

// classifyNetError maps connection-level failures. Anything it does not
// recognise is KindOther.
func classifyNetError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindNetworkUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return KindNetworkUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindNetworkUnreachable
	}
	return KindOther
}

// classifySMTPReply handles errors returned after the session is up.
// 530 means the server wants authentication we did not complete.
func classifySMTPReply(err error) ErrorKind {
	if k := classifyNetError(err); k != KindOther {
		return k
	}
	var perr *textproto.Error
	if errors.As(err, &perr) && perr.Code == 530 {
		return KindAuthFailure
	}
	return KindOther
}

// classifySMTPAuth handles errors from the AUTH exchange. A client-side
// refusal (PLAIN over an unencrypted link) is also a credential problem.
func classifySMTPAuth(err error) ErrorKind {
	if k := classifyNetError(err); k != KindOther {
		return k
	}
	var perr *textproto.Error
	if errors.As(err, &perr) {
		switch perr.Code {
		case 530, 534, 535, 538:
			return KindAuthFailure
		}
		return KindOther
	}
	return KindAuthFailure
}

// classifyHTTPStatus maps a provider API status code.
func classifyHTTPStatus(code int) ErrorKind {
	switch code {
	case 401, 403:
		return KindAuthFailure
	case 408, 504:
		return KindTimeout
	default:
		return KindOther
	}
}
