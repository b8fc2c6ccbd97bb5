package logger

import (
	"net/mail"
	"regexp"
	"strings"
)

// Fields whose keys contain one of these are always treated as addresses.
var addressKeys = []string{"email", "sender", "reply_to"}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
// A display name is dropped: "Ada <ada@example.com>" → "ad***@example.com"
func RedactEmail(email string) string {
	if addr, err := mail.ParseAddress(email); err == nil {
		email = addr.Address
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	for _, k := range addressKeys {
		if strings.Contains(key, k) {
			return RedactEmail(val)
		}
	}
	// Embedded addresses in free-text fields such as errors.
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
