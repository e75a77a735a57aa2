package redact

import "strings"

// RedactedValue is the fixed marker written in place of masked values.
const RedactedValue = "[REDACTED]"

// defaultSensitiveKeys is the shipped deny-list. Matching is case-insensitive
// substring, so "password" also covers "newPassword" and "password_hash".
var defaultSensitiveKeys = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"authorization",
	"apikey",
	"api_key",
	"api-key",
	"credential",
	"private_key",
	"privatekey",
	"client_secret",
	"clientsecret",
	"set-cookie",
	"cookie",
	"session",
	"ssn",
	"card_number",
	"cardnumber",
	"cvv",
}

// DefaultSensitiveKeys returns a copy of the shipped sensitive-key list.
func DefaultSensitiveKeys() []string {
	out := make([]string, len(defaultSensitiveKeys))
	copy(out, defaultSensitiveKeys)

	return out
}

// Matcher decides whether a map key refers to sensitive data.
type Matcher struct {
	patterns []string
}

// NewMatcher builds a Matcher from the given key patterns. Empty patterns are
// dropped; nil or empty input yields a matcher that matches nothing.
func NewMatcher(patterns []string) *Matcher {
	cleaned := make([]string, 0, len(patterns))

	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}

	return &Matcher{patterns: cleaned}
}

// NewDefaultMatcher builds a Matcher from the shipped sensitive-key list plus
// any extra patterns the host application configures.
func NewDefaultMatcher(extra ...string) *Matcher {
	return NewMatcher(append(DefaultSensitiveKeys(), extra...))
}

// Matches reports whether key case-insensitively contains any pattern.
func (m *Matcher) Matches(key string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	lower := strings.ToLower(key)

	for _, p := range m.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	return false
}
