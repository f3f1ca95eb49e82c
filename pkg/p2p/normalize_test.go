package p2p_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

func TestNormalizeResponse(t *testing.T) {
	t.Parallel()

	t.Run("timestamp strings become UTC times", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			value string
			want  time.Time
		}{
			{
				name:  "naive timestamp",
				value: "2011-06-22T09:00:00",
				want:  time.Date(2011, 6, 22, 9, 0, 0, 0, time.UTC),
			},
			{
				name:  "timestamp with offset",
				value: "2011-06-22T09:00:00-05:00",
				want:  time.Date(2011, 6, 22, 14, 0, 0, 0, time.UTC),
			},
			{
				name:  "space separated",
				value: "2011-06-22 09:00:00",
				want:  time.Date(2011, 6, 22, 9, 0, 0, 0, time.UTC),
			},
			{
				name:  "bare date becomes midnight",
				value: "2011-06-22",
				want:  time.Date(2011, 6, 22, 0, 0, 0, 0, time.UTC),
			},
		}

		for _, testCase := range tests {
			testCase := testCase
			t.Run(testCase.name, func(t *testing.T) {
				t.Parallel()

				got := p2p.NormalizeResponse(map[string]interface{}{"t": testCase.value})

				rec, ok := got.(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, testCase.want, rec["t"])
			})
		}
	})

	t.Run("null strings become nil", func(t *testing.T) {
		t.Parallel()

		got := p2p.NormalizeResponse(map[string]interface{}{"a": "null", "b": "Null"}).(map[string]interface{})

		assert.Nil(t, got["a"])
		assert.Nil(t, got["b"])
	})

	t.Run("other values pass through", func(t *testing.T) {
		t.Parallel()

		got := p2p.NormalizeResponse(map[string]interface{}{
			"title": "Test Story",
			"id":    float64(1234),
			"live":  true,
		}).(map[string]interface{})

		assert.Equal(t, "Test Story", got["title"])
		assert.Equal(t, float64(1234), got["id"])
		assert.Equal(t, true, got["live"])
	})

	t.Run("walks nested structures in place", func(t *testing.T) {
		t.Parallel()

		payload := map[string]interface{}{
			"content_item": map[string]interface{}{
				"last_modified_time": "2011-06-22T09:00:00",
			},
			"items": []interface{}{
				map[string]interface{}{"created_at": "2011-06-22"},
			},
		}

		p2p.NormalizeResponse(payload)

		inner := payload["content_item"].(map[string]interface{})
		assert.Equal(t, time.Date(2011, 6, 22, 9, 0, 0, 0, time.UTC), inner["last_modified_time"])

		item := payload["items"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, time.Date(2011, 6, 22, 0, 0, 0, 0, time.UTC), item["created_at"])
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		payload := map[string]interface{}{"t": "2011-06-22T09:00:00", "n": "null"}

		p2p.NormalizeResponse(payload)
		p2p.NormalizeResponse(payload)

		assert.Equal(t, time.Date(2011, 6, 22, 9, 0, 0, 0, time.UTC), payload["t"])
		assert.Nil(t, payload["n"])
	})
}

func TestNormalizeRequest(t *testing.T) {
	t.Parallel()

	chicago := time.FixedZone("CDT", -5*60*60)

	payload := map[string]interface{}{
		"content_item": map[string]interface{}{
			"last_modified_time": time.Date(2011, 6, 22, 9, 0, 0, 0, chicago),
			"title":              "Test Story",
		},
		"items": []interface{}{time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	p2p.NormalizeRequest(payload)

	inner := payload["content_item"].(map[string]interface{})
	assert.Equal(t, "2011-06-22T14:00:00Z", inner["last_modified_time"])
	assert.Equal(t, "Test Story", inner["title"])
	assert.Equal(t, "2011-01-01T00:00:00Z", payload["items"].([]interface{})[0])
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	chicago := time.FixedZone("CDT", -5*60*60)

	assert.Equal(t, "2011-06-22T14:00:00Z",
		p2p.FormatTimestamp(time.Date(2011, 6, 22, 9, 0, 0, 0, chicago)))
}

func TestStripRuntimeTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "self-closing embed",
			body: `before<runtime:include slug="chi-embed"/>after`,
			want: "beforeafter",
		},
		{
			name: "paired tags keep their content",
			body: `<runtime:topic id="7">Chicago</runtime:topic>`,
			want: "Chicago",
		},
		{
			name: "other markup passes through",
			body: "<p>a story</p>",
			want: "<p>a story</p>",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, p2p.StripRuntimeTags(testCase.body))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	t.Run("round trips the wire format", func(t *testing.T) {
		t.Parallel()

		original := time.Date(2011, 6, 22, 9, 0, 0, 0, time.UTC)

		parsed, err := p2p.ParseTimestamp(p2p.FormatTimestamp(original))
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("falls back to permissive parsing", func(t *testing.T) {
		t.Parallel()

		parsed, err := p2p.ParseTimestamp("06/22/2011 09:00:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2011, 6, 22, 9, 0, 0, 0, time.UTC), parsed)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()

		_, err := p2p.ParseTimestamp("not a time")
		require.Error(t, err)
	})
}
