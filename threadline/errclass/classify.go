// Package errclass assigns arbitrary failure values to a closed taxonomy and
// extracts a normalized, redacted record that feeds logs, span annotations,
// and error metrics consistently.
//
// Classification is structural: failure shapes are probed through small
// interfaces rather than concrete driver types, so the classifier is testable
// without any failure-producing library.
package errclass

import (
	"fmt"

	"github.com/threadline-io/lib-threadline/threadline/redact"
)

// Kind is one of the closed set of error categories.
type Kind string

const (
	KindHTTPClient   Kind = "http_client_error"
	KindDBConstraint Kind = "db_known_constraint_error"
	KindDBUnknown    Kind = "db_unknown_error"
	KindDBValidation Kind = "db_validation_error"
	KindGeneric      Kind = "generic"
)

// HTTPExchange is the normalized view of a failed HTTP client call.
type HTTPExchange struct {
	Method          string
	URL             string
	Status          int
	RequestHeaders  map[string]string
	ResponseHeaders map[string]string
	RequestBody     any
	ResponseBody    any
}

// HTTPExchanger is implemented by failures carrying an HTTP request/response
// pair (outbound client call errors).
type HTTPExchanger interface {
	HTTPExchange() HTTPExchange
}

// ConstraintDetail is the safe metadata subset extracted from a known
// database constraint violation. Literal row values are never carried.
type ConstraintDetail struct {
	Model      string
	Field      string
	Constraint string
}

// ConstraintFailure is implemented by driver errors with a stable error code
// and structured constraint metadata.
type ConstraintFailure interface {
	ConstraintCode() string
	ConstraintDetail() ConstraintDetail
}

// ValidationFailure marks database query-validation errors (malformed query
// arguments, schema mismatches).
type ValidationFailure interface {
	DBValidationFailure()
}

// DatabaseFailure marks database errors with no more specific shape.
type DatabaseFailure interface {
	DBFailure()
}

// Record is the classification result. It is derived per failure and never
// persisted beyond the log/span/metric calls that consume it.
type Record struct {
	Kind     Kind
	Message  string
	Detail   map[string]any
	Redacted bool
}

// Code returns the taxonomy-specific error code carried in Detail, or
// "unknown" when the record has none. Used as the error-metric code label.
func (r Record) Code() string {
	if code, ok := r.Detail["code"].(string); ok && code != "" {
		return code
	}

	if status, ok := r.Detail["status"].(int); ok && status != 0 {
		return fmt.Sprintf("%d", status)
	}

	return "unknown"
}

// Classifier turns opaque failure values into Records, applying the module's
// masking and truncation rules to extracted payloads.
type Classifier struct {
	masker       *redact.Matcher
	maxBodyBytes int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMasker sets the sensitive-key matcher used on extracted headers.
func WithMasker(m *redact.Matcher) Option {
	return func(c *Classifier) {
		if m != nil {
			c.masker = m
		}
	}
}

// WithMaxBodyBytes caps extracted HTTP bodies.
func WithMaxBodyBytes(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// NewClassifier creates a Classifier with the default matcher and body cap.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		masker:       redact.NewDefaultMatcher(),
		maxBodyBytes: redact.DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Classify inspects v and returns its taxonomy record. Shapes are probed in
// fixed priority order; the first match wins and unmatched input is Generic.
// Classify never panics, whatever v is.
func (c *Classifier) Classify(v any) Record {
	switch failure := v.(type) {
	case HTTPExchanger:
		return c.classifyHTTP(failure)
	case ConstraintFailure:
		return c.classifyConstraint(failure)
	case ValidationFailure:
		return Record{
			Kind:     KindDBValidation,
			Message:  SanitizeMessage(messageOf(v)),
			Detail:   map[string]any{},
			Redacted: true,
		}
	case DatabaseFailure:
		return Record{
			Kind:     KindDBUnknown,
			Message:  SanitizeMessage(messageOf(v)),
			Detail:   map[string]any{},
			Redacted: true,
		}
	default:
		return classifyGeneric(v)
	}
}

func (c *Classifier) classifyHTTP(failure HTTPExchanger) Record {
	exchange := failure.HTTPExchange()

	detail := map[string]any{
		"method": exchange.Method,
		"url":    exchange.URL,
		"status": exchange.Status,
	}

	if exchange.RequestHeaders != nil {
		detail["request_headers"] = c.masker.MaskStringMap(exchange.RequestHeaders)
	}

	if exchange.ResponseHeaders != nil {
		detail["response_headers"] = c.masker.MaskStringMap(exchange.ResponseHeaders)
	}

	if exchange.RequestBody != nil {
		detail["request_body"] = redact.Truncate(c.masker.Mask(exchange.RequestBody), c.maxBodyBytes)
	}

	if exchange.ResponseBody != nil {
		detail["response_body"] = redact.Truncate(c.masker.Mask(exchange.ResponseBody), c.maxBodyBytes)
	}

	return Record{
		Kind:     KindHTTPClient,
		Message:  fmt.Sprintf("http client call failed: %s %s -> %d", exchange.Method, exchange.URL, exchange.Status),
		Detail:   detail,
		Redacted: true,
	}
}

func (c *Classifier) classifyConstraint(failure ConstraintFailure) Record {
	meta := failure.ConstraintDetail()

	detail := map[string]any{
		"code": failure.ConstraintCode(),
	}

	if meta.Model != "" {
		detail["model"] = meta.Model
	}

	if meta.Field != "" {
		detail["field"] = meta.Field
	}

	if meta.Constraint != "" {
		detail["constraint"] = meta.Constraint
	}

	return Record{
		Kind:     KindDBConstraint,
		Message:  SanitizeMessage(messageOf(failure)),
		Detail:   detail,
		Redacted: true,
	}
}

func classifyGeneric(v any) Record {
	if err, ok := v.(error); ok {
		message := SanitizeMessage(err.Error())

		return Record{
			Kind:     KindGeneric,
			Message:  message,
			Detail:   map[string]any{"type": fmt.Sprintf("%T", err)},
			Redacted: message != err.Error(),
		}
	}

	message := fmt.Sprintf("%v", v)

	return Record{
		Kind:     KindGeneric,
		Message:  message,
		Detail:   map[string]any{"type": fmt.Sprintf("%T", v)},
		Redacted: false,
	}
}

func messageOf(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}

	return fmt.Sprintf("%v", v)
}
