package errclass

import "regexp"

// Driver-generated messages embed literal row data between backticks or
// quotes ("Unique constraint failed on `users_email_key` (value: 'a@b.c')").
// Sanitization replaces those spans with placeholders before the message
// reaches any log, span, or metric.
var (
	backtickSpan    = regexp.MustCompile("`[^`]*`")
	longSingleQuote = regexp.MustCompile(`'[^']{8,}'`)
	longDoubleQuote = regexp.MustCompile(`"[^"]{8,}"`)
)

// SanitizeMessage scrubs backtick-delimited substrings and quoted substrings
// of eight or more characters, leaving the surrounding diagnostic text intact.
func SanitizeMessage(msg string) string {
	if msg == "" {
		return msg
	}

	msg = backtickSpan.ReplaceAllString(msg, "`?`")
	msg = longSingleQuote.ReplaceAllString(msg, "'?'")
	msg = longDoubleQuote.ReplaceAllString(msg, `"?"`)

	return msg
}
