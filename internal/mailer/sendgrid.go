package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SendGridConfig configures the SendGrid v3 API.
type SendGridConfig struct {
	BaseURL string
	APIKey  string
}

// SendGridTransport sends through the SendGrid v3 mail/send endpoint.
type SendGridTransport struct {
	cfg    SendGridConfig
	client HTTPDoer
}

func NewSendGridTransport(cfg SendGridConfig, client HTTPDoer) *SendGridTransport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &SendGridTransport{cfg: cfg, client: client}
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMailSend struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	ReplyTo          *sgAddress          `json:"reply_to,omitempty"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (t *SendGridTransport) Send(ctx context.Context, env *Envelope) error {
	payload := sgMailSend{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: env.To}}}},
		From:             sgAddress{Email: env.From},
		ReplyTo:          &sgAddress{Email: env.ReplyTo, Name: env.ReplyToName},
		Subject:          env.Subject,
		// text/plain must precede text/html.
		Content: []sgContent{
			{Type: "text/plain", Value: env.Text},
			{Type: "text/html", Value: env.HTML},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Provider: t.Name(), Kind: KindOther, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Provider: t.Name(), Kind: KindOther, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	return doProviderRequest(t.client, t.Name(), req)
}

// Verify lists the key's scopes.
func (t *SendGridTransport) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"/v3/scopes", nil)
	if err != nil {
		return &DeliveryError{Provider: t.Name(), Kind: KindOther, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	return doProviderRequest(t.client, t.Name(), req)
}
