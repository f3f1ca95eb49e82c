// Package p2pclient provides the main entry point for creating Content
// Services API clients.
package p2pclient

import (
	"fmt"
	"os"
	"strings"

	"github.com/tribpub/p2p-go/internal/client"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// New creates a new Content Services API client.
func New(config *p2p.Config) (p2p.Client, error) {
	if config == nil {
		return nil, p2p.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, p2p.ErrBaseURLRequired
	}

	cfg := *config
	cfg.BaseURL = normalizeEndpoint(cfg.BaseURL)

	if cfg.ImageServicesURL != "" {
		cfg.ImageServicesURL = normalizeEndpoint(cfg.ImageServicesURL)
	}

	apiClient, err := client.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return apiClient, nil
}

// NewFromEnvironment creates a client from the P2P_API_URL, P2P_API_KEY,
// P2P_API_DEBUG, and P2P_IMAGE_SERVICES_URL environment variables.
func NewFromEnvironment() (p2p.Client, error) {
	baseURL := os.Getenv("P2P_API_URL")
	token := os.Getenv("P2P_API_KEY")

	if baseURL == "" || token == "" {
		return nil, p2p.ErrNoEnvironmentSettings
	}

	return New(&p2p.Config{
		BaseURL:          baseURL,
		AccessToken:      token,
		Debug:            os.Getenv("P2P_API_DEBUG") != "",
		ImageServicesURL: os.Getenv("P2P_IMAGE_SERVICES_URL"),
	})
}

// normalizeEndpoint trims a trailing slash and defaults the scheme to
// https.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}
