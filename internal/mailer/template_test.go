package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/portfolio-api/internal/domain"
)

func TestRendererEnvelope(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	env, err := r.Envelope(operator, domain.ContactMessage{
		Name:    " Ada ",
		Email:   "ada@example.com",
		Message: "line one\nline two",
	})
	require.NoError(t, err)

	assert.Equal(t, operator, env.From)
	assert.Equal(t, operator, env.To)
	assert.Equal(t, "ada@example.com", env.ReplyTo)
	assert.Equal(t, `"Ada" <ada@example.com>`, env.ReplyToHeader())
	assert.Equal(t, "Portfolio Contact from Ada", env.Subject)
	assert.Equal(t, "Name: Ada\nEmail: ada@example.com\nMessage: line one\nline two", env.Text)
	assert.Contains(t, env.HTML, "<p><strong>Name:</strong> Ada</p>")
	assert.Contains(t, env.HTML, "line one<br>line two")
}

func TestRendererEscapesMarkupInHTMLBody(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	env, err := r.Envelope(operator, domain.ContactMessage{
		Name:    "<b>Eve</b>",
		Email:   "eve@example.com",
		Message: `<script>alert("x")</script>`,
	})
	require.NoError(t, err)

	assert.NotContains(t, env.HTML, "<script>")
	assert.Contains(t, env.HTML, "&lt;script&gt;")
	assert.Contains(t, env.HTML, "&lt;b&gt;Eve&lt;/b&gt;")
	// The plain-text part is not HTML and stays verbatim.
	assert.Contains(t, env.Text, `<script>alert("x")</script>`)
}

func TestRendererStripsHeaderBreaks(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	env, err := r.Envelope(operator, domain.ContactMessage{
		Name:    "Ada\r\nBcc: victim@example.com",
		Email:   "ada@example.com",
		Message: "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "Portfolio Contact from Ada Bcc: victim@example.com", env.Subject)
	assert.NotContains(t, env.ReplyToName, "\n")
}
