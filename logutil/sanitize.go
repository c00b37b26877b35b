// Package logutil holds log sanitization helpers so secrets and personal
// data never reach log output verbatim.
package logutil

import (
	"log/slog"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g. "u***@***.com").
func SanitizedEmail(email string) string {
	username, domain, found := strings.Cut(email, "@")
	if !found {
		return "[invalid-email]"
	}

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// Redacted returns a slog attribute whose value is always hidden. Use it
// for challenge tokens, seeds, and code lists.
func Redacted(key string) slog.Attr {
	return slog.String(key, "[REDACTED]")
}

// TokenPreview keeps just enough of a token to correlate log lines without
// making the value replayable.
func TokenPreview(token string) string {
	if len(token) <= 8 {
		return "[short-token]"
	}
	return token[:8] + "..."
}
