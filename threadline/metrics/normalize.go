package metrics

import (
	"regexp"
	"strings"
)

// maxLabelLength caps every label value. Anything longer is cut; the cap
// bounds label cardinality and collector memory regardless of input.
const maxLabelLength = 100

// routePlaceholder replaces identifier-shaped path segments.
const routePlaceholder = ":id"

// keyPlaceholder replaces identifier-shaped routing-key segments.
const keyPlaceholder = "*"

var (
	uuidShape = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	digitsRun = regexp.MustCompile(`^\d+$`)
	// Long numeric runs in routing keys (order ids, timestamps) delimited by
	// the usual separators.
	longDigits = regexp.MustCompile(`\d{5,}`)
)

// NormalizeRoute rewrites a request path into a bounded-cardinality route
// label: UUID-shaped and purely numeric segments become ":id", and the result
// is capped at maxLabelLength.
func NormalizeRoute(path string) string {
	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")

	for i, segment := range segments {
		if segment == "" {
			continue
		}

		if uuidShape.MatchString(segment) || digitsRun.MatchString(segment) {
			segments[i] = routePlaceholder
		}
	}

	return CapLabel(strings.Join(segments, "/"))
}

// NormalizeRoutingKey rewrites a broker routing key into a bounded-cardinality
// label: UUID-shaped substrings and 5+ digit runs between separators become
// "*", capped at maxLabelLength.
func NormalizeRoutingKey(key string) string {
	if key == "" {
		return key
	}

	key = uuidShape.ReplaceAllString(key, keyPlaceholder)

	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '.' || r == ':' || r == '-' || r == '_' || r == '/'
	})

	for _, part := range parts {
		if longDigits.MatchString(part) && digitsRun.MatchString(part) {
			key = strings.Replace(key, part, keyPlaceholder, 1)
		}
	}

	return CapLabel(key)
}

// CapLabel truncates a label value to maxLabelLength bytes.
func CapLabel(value string) string {
	if len(value) <= maxLabelLength {
		return value
	}

	return value[:maxLabelLength]
}
