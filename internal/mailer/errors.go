package mailer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a transport failure.
type ErrorKind string

const (
	KindTimeout            ErrorKind = "timeout"
	KindAuthFailure        ErrorKind = "auth_failure"
	KindNetworkUnreachable ErrorKind = "network_unreachable"
	KindOther              ErrorKind = "other"
)

// UserMessage maps a failure kind to the text shown to the sender.
func UserMessage(kind ErrorKind) string {
	switch kind {
	case KindAuthFailure:
		return "authentication failed, check credentials"
	case KindNetworkUnreachable:
		return "could not reach mail server"
	case KindTimeout:
		return "delivery timed out"
	default:
		return "failed to send message"
	}
}

// DeliveryError is returned by every Transport.
type DeliveryError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// KindOf extracts the classification from err. Errors that did not come
// from a transport are KindOther.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DeliveryError
	if errors.As(err, &de) && de.Kind != "" {
		return de.Kind
	}
	return KindOther
}

// ConfigurationError reports that the primary transport cannot be used
// because required settings are missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "mail delivery is not configured: missing " + strings.Join(e.Missing, ", ")
}
