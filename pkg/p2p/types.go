package p2p

import (
	"strconv"
	"time"
)

// Record is a loosely-typed API entity. The Content Services API has no
// fixed schema for content items, collections, or sections, so records are
// plain maps with typed accessors for the fields the client relies on.
type Record map[string]interface{}

// Str returns the named field as a string, or "" if absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r[key].(string)

	return s
}

// Int returns the named field as an int64. JSON numbers decode as float64,
// so numeric fields are coerced. Returns 0 if the field is absent or not
// numeric.
func (r Record) Int(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float returns the named field as a float64. String fields holding a
// numeric value are coerced, matching the API's habit of returning numeric
// flags as strings.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// Time returns the named field as a time.Time. Normalized responses carry
// time.Time values directly; raw timestamp strings are parsed as a fallback.
func (r Record) Time(key string) (time.Time, bool) {
	switch v := r[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := ParseTimestamp(v)
		if err != nil {
			return time.Time{}, false
		}

		return t, true
	default:
		return time.Time{}, false
	}
}

// Record returns the named field as a nested Record, or nil.
func (r Record) Record(key string) Record {
	switch v := r[key].(type) {
	case Record:
		return v
	case map[string]interface{}:
		return Record(v)
	default:
		return nil
	}
}

// Records returns the named field as a list of records. Elements that are
// not objects are skipped. The returned records share storage with the
// underlying list.
func (r Record) Records(key string) []Record {
	list, ok := r[key].([]interface{})
	if !ok {
		return nil
	}

	records := make([]Record, 0, len(list))

	for _, item := range list {
		switch v := item.(type) {
		case Record:
			records = append(records, v)
		case map[string]interface{}:
			records = append(records, Record(v))
		}
	}

	return records
}

// Slug returns the record's slug.
func (r Record) Slug() string {
	return r.Str("slug")
}

// ID returns the record's numeric id.
func (r Record) ID() int64 {
	return r.Int("id")
}

// Code returns the record's code, used by collections.
func (r Record) Code() string {
	return r.Str("code")
}

// LastModified returns the record's last_modified_time.
func (r Record) LastModified() (time.Time, bool) {
	return r.Time("last_modified_time")
}

// RelatedItems returns the record's related_items list.
func (r Record) RelatedItems() []Record {
	return r.Records("related_items")
}

// Suppressed reports whether a collection layout item is suppressed. The
// API returns the flag as a number or a numeric string; any value above
// zero means suppressed.
func (r Record) Suppressed() bool {
	f, ok := r.Float("suppressed")

	return ok && f > 0
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}

	return Record(cloneValue(map[string]interface{}(r)).(map[string]interface{}))
}

// Merge returns a new record with the receiver's fields laid over the
// defaults. Neither input is modified.
func (r Record) Merge(defaults Record) Record {
	merged := defaults.Clone()
	if merged == nil {
		merged = Record{}
	}

	for k, v := range r {
		merged[k] = cloneValue(v)
	}

	return merged
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Record:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}

		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}
