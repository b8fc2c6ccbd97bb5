package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// buildMIME renders env as an RFC 5322 multipart/alternative message.
func buildMIME(env *Envelope, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	boundary := "portfolio-" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, err
	}

	domain := "localhost"
	if i := strings.LastIndex(env.From, "@"); i >= 0 {
		domain = env.From[i+1:]
	}

	var hdr bytes.Buffer
	fmt.Fprintf(&hdr, "From: %s\r\n", (&mail.Address{Address: env.From}).String())
	fmt.Fprintf(&hdr, "To: %s\r\n", (&mail.Address{Address: env.To}).String())
	fmt.Fprintf(&hdr, "Reply-To: %s\r\n", env.ReplyToHeader())
	fmt.Fprintf(&hdr, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", env.Subject))
	fmt.Fprintf(&hdr, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&hdr, "Message-ID: <%s@%s>\r\n", uuid.New().String(), domain)
	hdr.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&hdr, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=\"utf-8\"", env.Text},
		{"text/html; charset=\"utf-8\"", env.HTML},
	} {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", part.contentType)
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		pw, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append(hdr.Bytes(), buf.Bytes()...), nil
}
