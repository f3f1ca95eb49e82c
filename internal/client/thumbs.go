package client

import (
	"context"
	"fmt"

	"github.com/tribpub/p2p-go/pkg/p2p"
)

// ThumbsClient implements p2p.ThumbsClient against the image services
// endpoint.
type ThumbsClient struct {
	c *Client
}

// NewThumbsClient creates a new thumbs client.
func NewThumbsClient(c *Client) *ThumbsClient {
	return &ThumbsClient{c: c}
}

// Get implements p2p.ThumbsClient.Get. Thumbs are cached by slug alone;
// the endpoint takes no query parameters.
func (tc *ThumbsClient) Get(ctx context.Context, slug string, forceUpdate bool) (p2p.Record, error) {
	if tc.c.images == nil {
		return nil, p2p.ErrImageServicesNotConfigured
	}

	if !forceUpdate {
		if cached, hit := tc.c.store.Get(ctx, p2p.EntityThumb, slug, ""); hit {
			return cached, nil
		}
	}

	resp, err := tc.c.images.Get(ctx, "/photos/turbine/"+slug+".json", "")
	if err != nil {
		return nil, fmt.Errorf("getting thumb: %w", err)
	}

	thumb, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing thumb: %w", err)
	}

	err = tc.c.store.Save(ctx, p2p.EntityThumb, slug, "", thumb)
	if err != nil {
		return nil, err
	}

	return thumb, nil
}
