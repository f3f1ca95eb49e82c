package client

import (
	"context"
	"fmt"

	"github.com/tribpub/p2p-go/pkg/p2p"
)

// SectionsClient implements p2p.SectionsClient.
type SectionsClient struct {
	c *Client
}

// NewSectionsClient creates a new sections client.
func NewSectionsClient(c *Client) *SectionsClient {
	return &SectionsClient{c: c}
}

// Get implements p2p.SectionsClient.Get.
func (sc *SectionsClient) Get(ctx context.Context, path string, opts *p2p.GetOptions) (p2p.Record, error) {
	if opts == nil {
		opts = &p2p.GetOptions{}
	}

	query := opts.Query
	if query == nil {
		query = p2p.Params{
			"section_path":           path,
			"product_affiliate_code": sc.c.defaults.productAffiliateCode,
			"include":                "default_section_path_collections",
		}
	}

	return sc.fetch(ctx, p2p.EntitySection, "/sections/show_collections.json", path, query, opts.ForceUpdate)
}

// GetConfigs implements p2p.SectionsClient.GetConfigs.
func (sc *SectionsClient) GetConfigs(ctx context.Context, path string, opts *p2p.GetOptions) (p2p.Record, error) {
	if opts == nil {
		opts = &p2p.GetOptions{}
	}

	query := opts.Query
	if query == nil {
		query = p2p.Params{
			"section_path":           path,
			"product_affiliate_code": sc.c.defaults.productAffiliateCode,
			"webapp_name":            sc.c.defaults.webappName,
		}
	}

	return sc.fetch(ctx, p2p.EntitySectionConfig, "/sections/show_configs.json", path, query, opts.ForceUpdate)
}

// fetch retrieves a section endpoint response, cache first. Sections are
// keyed by path; the whole response body is the cached record.
func (sc *SectionsClient) fetch(ctx context.Context, entity, apiPath, path string, query p2p.Params, forceUpdate bool) (p2p.Record, error) {
	signature, err := query.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding section query: %w", err)
	}

	if !forceUpdate {
		if cached, hit := sc.c.store.Get(ctx, entity, path, signature); hit {
			return cached, nil
		}
	}

	resp, err := sc.c.api.Get(ctx, apiPath, signature)
	if err != nil {
		return nil, fmt.Errorf("getting section: %w", err)
	}

	section, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing section: %w", err)
	}

	err = sc.c.store.Save(ctx, entity, path, signature, section)
	if err != nil {
		return nil, err
	}

	return section, nil
}

// GetFancy implements p2p.SectionsClient.GetFancy. The section config is
// the base record; every collection the section references is expanded
// through the fancy collection fetch.
func (sc *SectionsClient) GetFancy(ctx context.Context, path string, forceUpdate bool) (p2p.Record, error) {
	section, err := sc.Get(ctx, path, &p2p.GetOptions{ForceUpdate: forceUpdate})
	if err != nil {
		return nil, err
	}

	config, err := sc.GetConfigs(ctx, path, &p2p.GetOptions{ForceUpdate: forceUpdate})
	if err != nil {
		return nil, err
	}

	refs := section.Record("results").Records("default_section_path_collections")
	collections := make([]interface{}, 0, len(refs))

	for _, ref := range refs {
		expanded, err := sc.c.collections.GetFancy(ctx, ref.Code(), &p2p.FancyCollectionOptions{
			ForceUpdate: forceUpdate,
		})
		if err != nil {
			return nil, err
		}

		collections = append(collections, map[string]interface{}{
			"collection_type_code": ref.Str("collection_type_code"),
			"name":                 ref.Str("name"),
			"collection":           map[string]interface{}(expanded),
		})
	}

	fancy := config.Record("results").Record("section_config")
	if fancy == nil {
		return nil, fmt.Errorf("%w: missing section_config", ErrMalformedResponse)
	}

	fancy["collections"] = collections
	fancy["path"] = path

	return fancy, nil
}
