package p2p

import (
	"fmt"
	"regexp"
	"time"

	"github.com/araddon/dateparse"
)

// TimestampLayout is the wire format the API expects for timestamps.
const TimestampLayout = "2006-01-02T15:04:05Z"

var (
	fullTimestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}.\d{2}:\d{2}`)
	partialDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	runtimeTagPattern    = regexp.MustCompile(`</?runtime:[^>]*?>`)
)

// fullTimestampLayouts are tried in order for strings matching the full
// timestamp pattern. Timestamps without an offset are treated as UTC.
var fullTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// NormalizeResponse walks a decoded API response and fixes its values in
// place: ISO-8601 timestamp strings become time.Time in UTC, bare
// YYYY-MM-DD dates become midnight UTC, and the literal strings "null" and
// "Null" become nil. Strings that match neither pattern pass through
// untouched. Applying it twice is a no-op.
func NormalizeResponse(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return normalizeString(val)
	case Record:
		for k, item := range val {
			val[k] = NormalizeResponse(item)
		}

		return val
	case map[string]interface{}:
		for k, item := range val {
			val[k] = NormalizeResponse(item)
		}

		return val
	case []interface{}:
		for i, item := range val {
			val[i] = NormalizeResponse(item)
		}

		return val
	default:
		return v
	}
}

// NormalizeRequest walks a request payload and converts every time.Time
// into the API's wire format. Other values pass through untouched.
func NormalizeRequest(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return FormatTimestamp(val)
	case Record:
		for k, item := range val {
			val[k] = NormalizeRequest(item)
		}

		return val
	case map[string]interface{}:
		for k, item := range val {
			val[k] = NormalizeRequest(item)
		}

		return val
	case []interface{}:
		for i, item := range val {
			val[i] = NormalizeRequest(item)
		}

		return val
	default:
		return v
	}
}

// StripRuntimeTags removes runtime embed markup from a body string,
// leaving the wrapped content in place.
func StripRuntimeTags(body string) string {
	return runtimeTagPattern.ReplaceAllString(body, "")
}

// FormatTimestamp renders a time in the API's wire format, always UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp or partial date string from an API
// response. Full timestamps without an offset are assumed to be UTC; bare
// dates become midnight UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if fullTimestampPattern.MatchString(s) {
		for _, layout := range fullTimestampLayouts {
			t, err := time.ParseInLocation(layout, s, time.UTC)
			if err == nil {
				return t.UTC(), nil
			}
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}

	return t.UTC(), nil
}

func normalizeString(s string) interface{} {
	if s == "null" || s == "Null" {
		return nil
	}

	if fullTimestampPattern.MatchString(s) || partialDatePattern.MatchString(s) {
		t, err := ParseTimestamp(s)
		if err == nil {
			return t
		}
	}

	return s
}
