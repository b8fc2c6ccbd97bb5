package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/portfolio-api/internal/domain"
	"github.com/ignite/portfolio-api/internal/pkg/logger"
)

// Transport delivers one Envelope. Send and Verify return *DeliveryError
// on failure.
type Transport interface {
	Name() string
	Send(ctx context.Context, env *Envelope) error
	Verify(ctx context.Context) error
}

// configChecker is implemented by transports that can report missing
// credentials before any I/O.
type configChecker interface {
	MissingConfig() []string
}

// Deliverer sends contact messages through a primary transport with a
// one-hop timeout fallback to an optional secondary.
type Deliverer struct {
	operator  string
	primary   Transport
	secondary Transport
	renderer  *Renderer
}

// NewDeliverer wires the transports. secondary may be nil.
func NewDeliverer(operator string, primary, secondary Transport) (*Deliverer, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Deliverer{
		operator:  operator,
		primary:   primary,
		secondary: secondary,
		renderer:  renderer,
	}, nil
}

// HasSecondary reports whether a fallback transport is wired.
func (d *Deliverer) HasSecondary() bool { return d.secondary != nil }

func (d *Deliverer) missingConfig() []string {
	var missing []string
	if d.operator == "" {
		missing = append(missing, "operator address")
	}
	if d.primary == nil {
		return append(missing, "primary transport")
	}
	if cc, ok := d.primary.(configChecker); ok {
		missing = append(missing, cc.MissingConfig()...)
	}
	return missing
}

// Send delivers msg to the operator inbox.
//
// Input and configuration problems are returned as *domain.ValidationError
// and *ConfigurationError before any transport is touched. Delivery
// failures are not errors: they are reported in the Outcome.
func (d *Deliverer) Send(ctx context.Context, msg domain.ContactMessage) (Outcome, error) {
	if err := msg.Validate(); err != nil {
		return failed(""), err
	}
	if missing := d.missingConfig(); len(missing) > 0 {
		return failed(""), &ConfigurationError{Missing: missing}
	}

	env, err := d.renderer.Envelope(d.operator, msg)
	if err != nil {
		return failed(KindOther), fmt.Errorf("build envelope: %w", err)
	}

	start := time.Now()
	err = d.primary.Send(ctx, env)
	if err == nil {
		logger.Info("contact message delivered",
			"transport", TransportPrimary, "provider", d.primary.Name(),
			"sender_email", env.ReplyTo, "duration_ms", time.Since(start).Milliseconds())
		return delivered(TransportPrimary), nil
	}

	kind := KindOf(err)
	logger.Warn("primary mail transport failed",
		"provider", d.primary.Name(), "kind", kind, "error", err,
		"duration_ms", time.Since(start).Milliseconds())

	if kind != KindTimeout || d.secondary == nil {
		return failed(kind), nil
	}

	start = time.Now()
	err = d.secondary.Send(ctx, env)
	if err == nil {
		logger.Info("contact message delivered",
			"transport", TransportSecondary, "provider", d.secondary.Name(),
			"sender_email", env.ReplyTo, "duration_ms", time.Since(start).Milliseconds())
		return delivered(TransportSecondary), nil
	}

	kind = KindOf(err)
	logger.Error("secondary mail transport failed",
		"provider", d.secondary.Name(), "kind", kind, "error", err,
		"duration_ms", time.Since(start).Milliseconds())
	return failed(kind), nil
}

// TransportCheck is the self-test result for one transport.
type TransportCheck struct {
	Transport TransportUsed `json:"transport"`
	Provider  string        `json:"provider"`
	OK        bool          `json:"ok"`
	Kind      ErrorKind     `json:"error_kind,omitempty"`
	Detail    string        `json:"detail"`
	LatencyMS int64         `json:"latency_ms"`
}

// ConnectivityReport is returned by SelfTest.
type ConnectivityReport struct {
	Healthy   bool            `json:"healthy"`
	Primary   TransportCheck  `json:"primary"`
	Secondary *TransportCheck `json:"secondary,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}

// SelfTest verifies every configured transport without sending mail.
// Healthy is true only when all of them pass.
func (d *Deliverer) SelfTest(ctx context.Context) ConnectivityReport {
	report := ConnectivityReport{CheckedAt: time.Now().UTC()}

	if missing := d.missingConfig(); len(missing) > 0 {
		cfgErr := &ConfigurationError{Missing: missing}
		report.Primary = TransportCheck{Transport: TransportPrimary, Kind: KindOther, Detail: cfgErr.Error()}
		if d.primary != nil {
			report.Primary.Provider = d.primary.Name()
		}
	} else {
		report.Primary = verify(ctx, TransportPrimary, d.primary)
	}
	report.Healthy = report.Primary.OK

	if d.secondary != nil {
		check := verify(ctx, TransportSecondary, d.secondary)
		report.Secondary = &check
		report.Healthy = report.Healthy && check.OK
	}
	return report
}

func verify(ctx context.Context, role TransportUsed, t Transport) TransportCheck {
	start := time.Now()
	err := t.Verify(ctx)
	check := TransportCheck{
		Transport: role,
		Provider:  t.Name(),
		OK:        err == nil,
		Detail:    "connection and credentials verified",
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Kind = KindOf(err)
		check.Detail = UserMessage(check.Kind)
		var de *DeliveryError
		if errors.As(err, &de) {
			logger.Warn("mail transport self-test failed", "provider", de.Provider, "kind", de.Kind, "error", de.Err)
		}
	}
	return check
}
