package mailer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// MailgunConfig configures the Mailgun messages API.
type MailgunConfig struct {
	BaseURL string
	Domain  string
	APIKey  string
}

// MailgunTransport sends through the Mailgun HTTP API.
type MailgunTransport struct {
	cfg    MailgunConfig
	client HTTPDoer
}

// NewMailgunTransport creates a Mailgun transport. BaseURL defaults to
// the US region endpoint.
func NewMailgunTransport(cfg MailgunConfig, client HTTPDoer) *MailgunTransport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mailgun.net"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MailgunTransport{cfg: cfg, client: client}
}

func (t *MailgunTransport) Name() string { return "mailgun" }

func (t *MailgunTransport) Send(ctx context.Context, env *Envelope) error {
	form := url.Values{}
	form.Add("from", env.From)
	form.Add("to", env.To)
	form.Add("subject", env.Subject)
	form.Add("text", env.Text)
	form.Add("html", env.HTML)
	form.Add("h:Reply-To", env.ReplyToHeader())

	endpoint := fmt.Sprintf("%s/v3/%s/messages", t.cfg.BaseURL, url.PathEscape(t.cfg.Domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &DeliveryError{Provider: t.Name(), Kind: KindOther, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", t.cfg.APIKey)

	return doProviderRequest(t.client, t.Name(), req)
}

// Verify reads the sending domain, which needs a valid key.
func (t *MailgunTransport) Verify(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v3/domains/%s", t.cfg.BaseURL, url.PathEscape(t.cfg.Domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &DeliveryError{Provider: t.Name(), Kind: KindOther, Err: fmt.Errorf("create request: %w", err)}
	}
	req.SetBasicAuth("api", t.cfg.APIKey)
	return doProviderRequest(t.client, t.Name(), req)
}
