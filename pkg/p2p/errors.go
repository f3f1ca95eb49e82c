package p2p

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind identifies the failure class of an API request.
type ErrorKind string

const (
	// ErrorKindGeneric covers failures no specific rule matches.
	ErrorKindGeneric ErrorKind = "generic"

	// ErrorKindNotFound means the entity does not exist.
	ErrorKindNotFound ErrorKind = "not_found"

	// ErrorKindSlugTaken means a create hit an existing slug or code.
	ErrorKindSlugTaken ErrorKind = "slug_taken"

	// ErrorKindUniqueConstraint means a write violated a database
	// uniqueness constraint.
	ErrorKindUniqueConstraint ErrorKind = "unique_constraint_violated"

	// ErrorKindEncodingMismatch means the payload carried an incompatible
	// character encoding.
	ErrorKindEncodingMismatch ErrorKind = "encoding_mismatch"

	// ErrorKindUnknownAttribute means the payload named a field the entity
	// does not have.
	ErrorKindUnknownAttribute ErrorKind = "unknown_attribute"

	// ErrorKindInvalidAccess means the payload carried a bad access
	// definition.
	ErrorKindInvalidAccess ErrorKind = "invalid_access_definition"

	// ErrorKindSearch means the search backend failed.
	ErrorKindSearch ErrorKind = "search_error"

	// ErrorKindForbidden means credentials were refused, usually by a
	// throttle. Retryable.
	ErrorKindForbidden ErrorKind = "forbidden"

	// ErrorKindTimeout means the server timed out internally. Retryable.
	ErrorKindTimeout ErrorKind = "timeout"
)

// RequestError is a classified API failure. It keeps the response body and
// request coordinates for diagnostics.
type RequestError struct {
	Kind       ErrorKind
	StatusCode int
	Method     string
	URL        string
	Body       string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("p2p: %s (%s %s returned %d)", e.Kind, e.Method, e.URL, e.StatusCode)
}

// Retryable reports whether retrying the request could succeed.
func (e *RequestError) Retryable() bool {
	return e.Kind == ErrorKindForbidden || e.Kind == ErrorKindTimeout
}

// classifierRule matches a response by status code and body substrings.
type classifierRule struct {
	kind       ErrorKind
	status     func(int) bool
	substrings []string
}

func statusIs(code int) func(int) bool {
	return func(s int) bool { return s == code }
}

func clientError(s int) bool { return s >= 400 && s < 500 }

func serverError(s int) bool { return s >= 500 }

// classifierRules is the status + body-substring table that maps raw
// responses to error kinds. The substrings are coupled to the upstream
// API's error wording; first match wins.
var classifierRules = []classifierRule{
	{kind: ErrorKindNotFound, status: statusIs(http.StatusNotFound)},
	{kind: ErrorKindForbidden, status: statusIs(http.StatusForbidden)},
	{kind: ErrorKindSlugTaken, status: clientError, substrings: []string{`"slug":["has already been taken"]`}},
	{kind: ErrorKindSlugTaken, status: clientError, substrings: []string{`"code":["has already been taken"]`}},
	{kind: ErrorKindUniqueConstraint, status: serverError, substrings: []string{"violates unique constraint"}},
	{kind: ErrorKindEncodingMismatch, status: serverError, substrings: []string{"incompatible character encodings"}},
	{kind: ErrorKindUnknownAttribute, status: serverError, substrings: []string{"unknown attribute"}},
	{kind: ErrorKindInvalidAccess, status: serverError, substrings: []string{"Invalid access definition"}},
	{kind: ErrorKindSearch, status: serverError, substrings: []string{"RSolr::Error"}},
	{kind: ErrorKindTimeout, status: serverError, substrings: []string{"execution expired"}},
	{kind: ErrorKindTimeout, status: serverError, substrings: []string{"Timeout"}},
}

// ClassifyKind maps a response status and body to an error kind. Statuses
// below 400 classify as generic; callers should not classify successes.
func ClassifyKind(statusCode int, body []byte) ErrorKind {
	text := string(body)

	for _, rule := range classifierRules {
		if !rule.status(statusCode) {
			continue
		}

		matched := true

		for _, sub := range rule.substrings {
			if !strings.Contains(text, sub) {
				matched = false

				break
			}
		}

		if matched {
			return rule.kind
		}
	}

	return ErrorKindGeneric
}

// Classify turns a failed response into a typed error. Returns nil for
// statuses below 400.
func Classify(method, url string, statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}

	return &RequestError{
		Kind:       ClassifyKind(statusCode, body),
		StatusCode: statusCode,
		Method:     method,
		URL:        url,
		Body:       string(body),
	}
}

// HasTimeoutSignature reports whether a server error body carries a
// timeout signature. Used by the transport to decide retries.
func HasTimeoutSignature(statusCode int, body []byte) bool {
	return serverError(statusCode) && ClassifyKind(statusCode, body) == ErrorKindTimeout
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return isKind(err, ErrorKindNotFound)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return isKind(err, ErrorKindForbidden)
}

// IsSlugTaken checks if the error is a slug collision.
func IsSlugTaken(err error) bool {
	return isKind(err, ErrorKindSlugTaken)
}

// IsTimeout checks if the error is a server-side timeout.
func IsTimeout(err error) bool {
	return isKind(err, ErrorKindTimeout)
}

// IsRetryable checks if retrying the failed request could succeed.
func IsRetryable(err error) bool {
	reqErr := &RequestError{}
	if errors.As(err, &reqErr) {
		return reqErr.Retryable()
	}

	return false
}

func isKind(err error, kind ErrorKind) bool {
	reqErr := &RequestError{}
	if errors.As(err, &reqErr) {
		return reqErr.Kind == kind
	}

	return false
}
