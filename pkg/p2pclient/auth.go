package p2pclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/tribpub/p2p-go/internal/constants"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// Static errors for err113 compliance.
var (
	ErrAuthURLRequired    = errors.New("auth URL is required (set P2P_AUTH_URL or pass it explicitly)")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrAuthRequestFailed  = errors.New("authentication request failed")
)

// Authenticate posts credentials to the login endpoint and returns the
// authenticated user record. An empty authURL falls back to the
// P2P_AUTH_URL environment variable.
func Authenticate(ctx context.Context, authURL, username, password string) (p2p.Record, error) {
	if authURL == "" {
		authURL = os.Getenv("P2P_AUTH_URL")
	}

	if authURL == "" {
		return nil, ErrAuthURLRequired
	}

	params := url.Values{
		"username": []string{username},
		"password": []string{password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating auth request: %w", err)
	}

	httpClient := &http.Client{Timeout: constants.ShortHTTPTimeout}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing auth request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading auth response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidCredentials
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrAuthRequestFailed, resp.StatusCode, string(body))
	}

	var raw map[string]interface{}

	err = json.Unmarshal(body, &raw)
	if err != nil {
		return nil, fmt.Errorf("parsing auth response: %w", err)
	}

	p2p.NormalizeResponse(raw)

	user := p2p.Record(raw).Record("p2p_user")
	if user == nil {
		return nil, fmt.Errorf("%w: missing p2p_user", ErrAuthRequestFailed)
	}

	return user, nil
}
