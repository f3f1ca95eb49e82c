package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	p2phttp "github.com/tribpub/p2p-go/internal/http"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

func fastRetry() p2phttp.Option {
	return p2phttp.WithRetryConfig(3, time.Millisecond, 5*time.Millisecond)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/content_items/chi-test.json", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "p2p-go/1.0", request.Header.Get("User-Agent"))

			response := map[string]string{"slug": "chi-test", "title": "Test"}
			_ = json.NewEncoder(writer).Encode(response)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token")

		req := &p2phttp.Request{
			Method: "GET",
			Path:   "/content_items/chi-test.json",
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "chi-test", result["slug"])
		assert.Equal(t, "Test", result["title"])
	})

	t.Run("request with query string", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "filter[state]=live&include[]=web_url", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token")

		resp, err := client.Get(context.Background(), "/content_items/search.json", "filter[state]=live&include[]=web_url")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body normalizes timestamps", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]interface{}

			_ = json.NewDecoder(request.Body).Decode(&body)
			item := body["content_item"].(map[string]interface{})
			assert.Equal(t, "chi-test", item["slug"])
			assert.Equal(t, "2011-06-22T09:00:00Z", item["last_modified_time"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token")

		resp, err := client.Post(context.Background(), "/content_items.json", "", map[string]interface{}{
			"content_item": map[string]interface{}{
				"slug":               "chi-test",
				"last_modified_time": time.Date(2011, 6, 22, 9, 0, 0, 0, time.UTC),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("custom headers pass through", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "Wed, 22 Jun 2011 09:00:00 GMT", request.Header.Get("If-Modified-Since"))
			writer.WriteHeader(http.StatusNotModified)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token")

		resp, err := client.Do(context.Background(), &p2phttp.Request{
			Method:  "GET",
			Path:    "/content_items/chi-test.json",
			Headers: map[string]string{"If-Modified-Since": "Wed, 22 Jun 2011 09:00:00 GMT"},
		})
		require.NoError(t, err)
		assert.Equal(t, 304, resp.StatusCode)
	})

	t.Run("not found classified", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"errors":["Not Found"]}`))
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token")

		resp, err := client.Get(context.Background(), "/content_items/missing.json", "")
		require.Error(t, err)
		assert.True(t, p2p.IsNotFound(err))

		// The response comes back alongside the error.
		require.NotNil(t, resp)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("slug collision classified", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = writer.Write([]byte(`{"slug":["has already been taken"]}`))
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token")

		_, err := client.Post(context.Background(), "/content_items.json", "", map[string]string{})
		require.Error(t, err)
		assert.True(t, p2p.IsSlugTaken(err))
	})

	t.Run("debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := p2phttp.NewClient(server.URL, "test-token",
			p2phttp.WithLogger(logger), p2phttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/content_items/chi-test.json", "")
		require.NoError(t, err)

		require.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
	})

	t.Run("custom user agent", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "newsapps/2.0", request.Header.Get("User-Agent"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token", p2phttp.WithUserAgent("newsapps/2.0"))

		_, err := client.Get(context.Background(), "/content_items/chi-test.json", "")
		require.NoError(t, err)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Retries(t *testing.T) {
	t.Parallel()
	t.Run("retries throttled forbidden responses", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) <= 2 {
				writer.WriteHeader(http.StatusForbidden)

				return
			}

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token", fastRetry())

		resp, err := client.Get(context.Background(), "/content_items/chi-test.json", "")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("exhausted forbidden retries classify as forbidden", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token", fastRetry())

		_, err := client.Get(context.Background(), "/content_items/chi-test.json", "")
		require.Error(t, err)
		assert.True(t, p2p.IsForbidden(err))
	})

	t.Run("retries server errors with a timeout signature", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) == 1 {
				writer.WriteHeader(http.StatusInternalServerError)
				_, _ = writer.Write([]byte(`{"errors":["execution expired"]}`))

				return
			}

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token", fastRetry())

		resp, err := client.Get(context.Background(), "/content_items/chi-test.json", "")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("does not retry plain server errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusInternalServerError)
			_, _ = writer.Write([]byte("boom"))
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := p2phttp.NewClient(server.URL, "test-token", fastRetry(), p2phttp.WithLogger(logger))

		resp, err := client.Get(context.Background(), "/content_items/chi-test.json", "")
		require.Error(t, err)
		assert.False(t, p2p.IsRetryable(err))
		assert.Equal(t, int32(1), attempts.Load())

		require.NotNil(t, resp)
		assert.Equal(t, 500, resp.StatusCode)

		// Unexpected server failures get logged at error level.
		require.Len(t, logger.logs, 1)
		assert.Equal(t, "unexpected server error", logger.logs[0]["msg"])
	})

	t.Run("classified server errors skip the error log", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusInternalServerError)
			_, _ = writer.Write([]byte(`ERROR: duplicate key value violates unique constraint`))
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := p2phttp.NewClient(server.URL, "test-token", fastRetry(), p2phttp.WithLogger(logger))

		_, err := client.Get(context.Background(), "/content_items/chi-test.json", "")
		require.Error(t, err)

		// A recognized business failure riding a 5xx is the caller's
		// problem, not an unexpected server error.
		assert.Empty(t, logger.logs)
	})

	t.Run("does not retry plain client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := p2phttp.NewClient(server.URL, "test-token", fastRetry())

		_, err := client.Get(context.Background(), "/content_items/chi-test.json", "")
		require.Error(t, err)
		assert.Equal(t, int32(1), attempts.Load())
	})
}

func TestClient_Helpers(t *testing.T) {
	t.Parallel()

	var lastMethod atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		lastMethod.Store(request.Method)
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := p2phttp.NewClient(server.URL, "test-token")
	ctx := context.Background()

	_, err := client.Put(ctx, "/content_items/chi-test.json", "", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "PUT", lastMethod.Load())

	_, err = client.Delete(ctx, "/content_items/chi-test.json")
	require.NoError(t, err)
	assert.Equal(t, "DELETE", lastMethod.Load())
}
