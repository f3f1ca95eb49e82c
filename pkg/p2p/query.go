package p2p

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedQueryValue = errors.New("unsupported query parameter value")
)

// Params holds query parameters for an API call. The API uses a bracket
// notation for nested parameters:
//
//	Params{"filter": Params{"state": "live"}}  -> filter[state]=live
//	Params{"include": []string{"web_url"}}     -> include[]=web_url
//
// One level of nesting is supported, whose values may be scalars, scalar
// lists, or one more map of scalars. Deeper shapes are rejected.
type Params map[string]interface{}

// Encode renders the parameters as a query string. Keys are sorted at every
// level, so equal logical parameters always produce the same string. The
// encoded string doubles as the cache-key signature for the query.
func (p Params) Encode() (string, error) {
	if len(p) == 0 {
		return "", nil
	}

	pairs := make([]string, 0, len(p))

	for _, key := range sortedKeys(p) {
		encoded, err := encodeTopLevel(key, p[key])
		if err != nil {
			return "", err
		}

		pairs = append(pairs, encoded...)
	}

	return strings.Join(pairs, "&"), nil
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}

	return Params(cloneValue(map[string]interface{}(p)).(map[string]interface{}))
}

func encodeTopLevel(key string, value interface{}) ([]string, error) {
	if s, ok := encodeScalar(value); ok {
		return []string{key + "=" + s}, nil
	}

	if list, ok := scalarList(value); ok {
		pairs := make([]string, 0, len(list))
		for _, item := range list {
			pairs = append(pairs, key+"[]="+item)
		}

		return pairs, nil
	}

	if nested, ok := asMap(value); ok {
		return encodeNested(key, nested)
	}

	return nil, fmt.Errorf("%w: key %q", ErrUnsupportedQueryValue, key)
}

func encodeNested(key string, nested map[string]interface{}) ([]string, error) {
	var pairs []string

	for _, sub := range sortedKeys(nested) {
		value := nested[sub]

		if s, ok := encodeScalar(value); ok {
			pairs = append(pairs, fmt.Sprintf("%s[%s]=%s", key, sub, s))

			continue
		}

		if list, ok := scalarList(value); ok {
			for _, item := range list {
				pairs = append(pairs, fmt.Sprintf("%s[%s][]=%s", key, sub, item))
			}

			continue
		}

		if inner, ok := asMap(value); ok {
			for _, k := range sortedKeys(inner) {
				s, ok := encodeScalar(inner[k])
				if !ok {
					return nil, fmt.Errorf("%w: key %q nested too deeply", ErrUnsupportedQueryValue, key)
				}

				pairs = append(pairs, fmt.Sprintf("%s[%s][%s]=%s", key, sub, k, s))
			}

			continue
		}

		return nil, fmt.Errorf("%w: key %q", ErrUnsupportedQueryValue, key)
	}

	return pairs, nil
}

func encodeScalar(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return url.QueryEscape(v), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case time.Time:
		return url.QueryEscape(FormatTimestamp(v)), true
	default:
		return "", false
	}
}

func scalarList(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = url.QueryEscape(item)
		}

		return out, true
	case []int:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = strconv.Itoa(item)
		}

		return out, true
	case []int64:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = strconv.FormatInt(item, 10)
		}

		return out, true
	case []interface{}:
		out := make([]string, len(v))

		for i, item := range v {
			s, ok := encodeScalar(item)
			if !ok {
				return nil, false
			}

			out[i] = s
		}

		return out, true
	default:
		return nil, false
	}
}

func asMap(value interface{}) (map[string]interface{}, bool) {
	switch v := value.(type) {
	case Params:
		return v, true
	case Record:
		return v, true
	case map[string]interface{}:
		return v, true
	default:
		return nil, false
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
