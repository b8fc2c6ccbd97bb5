package api

import (
	"net"
	"net/http"

	"github.com/ignite/portfolio-api/internal/domain"
	"github.com/ignite/portfolio-api/internal/mailer"
	"github.com/ignite/portfolio-api/internal/pkg/httputil"
)

const maxContactBody = 64 << 10

// contactFailure is the 500 body for an undelivered message.
type contactFailure struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Kind    mailer.ErrorKind `json:"kind"`
}

// SendMessage relays a contact-form submission to the site owner.
//
//	POST /send-message
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.ContactMessage
	if !httputil.Decode(w, r, &msg, maxContactBody) {
		return
	}

	// Rejected submissions do not count against the sender's budget.
	if err := msg.Validate(); err != nil {
		respondServiceError(w, err, "Failed to send message")
		return
	}

	if h.limiter != nil {
		if d := h.limiter.Allow(r.Context(), clientIP(r)); !d.Allowed {
			httputil.TooManyRequests(w, "Too many messages, try again later", d.RetryAfter)
			return
		}
	}

	outcome, err := h.mail.Send(r.Context(), msg)
	if err != nil {
		respondServiceError(w, err, "Failed to send message")
		return
	}
	if !outcome.Delivered {
		userMsg := mailer.UserMessage(outcome.Kind)
		httputil.JSON(w, http.StatusInternalServerError, contactFailure{
			Error:   userMsg,
			Message: userMsg,
			Kind:    outcome.Kind,
		})
		return
	}

	httputil.OK(w, map[string]any{
		"message":   "Message sent successfully",
		"transport": outcome.Transport,
	})
}

// TestEmail verifies every configured mail transport without sending.
//
//	GET /test-email
func (h *Handlers) TestEmail(w http.ResponseWriter, r *http.Request) {
	report := h.mail.SelfTest(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusInternalServerError
	}
	httputil.JSON(w, status, report)
}

// clientIP returns the caller address. RealIP middleware has already
// replaced RemoteAddr from proxy headers when present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
