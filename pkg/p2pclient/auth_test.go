package p2pclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribpub/p2p-go/pkg/p2pclient"
)

func TestAuthenticate(t *testing.T) {
	t.Run("returns the authenticated user", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "editor", request.URL.Query().Get("username"))
			assert.Equal(t, "hunter2", request.URL.Query().Get("password"))

			writer.Header().Set("Content-Type", "application/json")
			_, _ = writer.Write([]byte(`{"p2p_user": {"username": "editor", "access_token": "new-token"}}`))
		}))
		t.Cleanup(server.Close)

		user, err := p2pclient.Authenticate(context.Background(), server.URL, "editor", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, "editor", user.Str("username"))
		assert.Equal(t, "new-token", user.Str("access_token"))
	})

	t.Run("rejects bad credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusForbidden)
		}))
		t.Cleanup(server.Close)

		_, err := p2pclient.Authenticate(context.Background(), server.URL, "editor", "wrong")
		assert.ErrorIs(t, err, p2pclient.ErrInvalidCredentials)
	})

	t.Run("reports other failures", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusBadGateway)
			_, _ = writer.Write([]byte("upstream down"))
		}))
		t.Cleanup(server.Close)

		_, err := p2pclient.Authenticate(context.Background(), server.URL, "editor", "hunter2")
		require.Error(t, err)
		assert.ErrorIs(t, err, p2pclient.ErrAuthRequestFailed)
		assert.Contains(t, err.Error(), "upstream down")
	})

	t.Run("requires a user record", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			_, _ = writer.Write([]byte(`{}`))
		}))
		t.Cleanup(server.Close)

		_, err := p2pclient.Authenticate(context.Background(), server.URL, "editor", "hunter2")
		assert.ErrorIs(t, err, p2pclient.ErrAuthRequestFailed)
	})

	t.Run("requires an auth URL", func(t *testing.T) {
		t.Setenv("P2P_AUTH_URL", "")

		_, err := p2pclient.Authenticate(context.Background(), "", "editor", "hunter2")
		assert.ErrorIs(t, err, p2pclient.ErrAuthURLRequired)
	})
}
