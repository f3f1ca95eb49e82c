package p2pclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		expected string
	}{
		{
			name:     "bare host gets https",
			endpoint: "content-api.example.com",
			expected: "https://content-api.example.com",
		},
		{
			name:     "trailing slash is trimmed",
			endpoint: "https://content-api.example.com/",
			expected: "https://content-api.example.com",
		},
		{
			name:     "http is preserved",
			endpoint: "http://localhost:8080",
			expected: "http://localhost:8080",
		},
		{
			name:     "https is preserved",
			endpoint: "https://content-api.example.com",
			expected: "https://content-api.example.com",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, normalizeEndpoint(tc.endpoint))
		})
	}
}
