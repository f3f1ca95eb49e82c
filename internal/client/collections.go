package client

import (
	"context"
	"fmt"
	"time"

	"github.com/tribpub/p2p-go/internal/constants"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// CollectionsClient implements p2p.CollectionsClient.
type CollectionsClient struct {
	c *Client
}

// NewCollectionsClient creates a new collections client.
func NewCollectionsClient(c *Client) *CollectionsClient {
	return &CollectionsClient{c: c}
}

// Get implements p2p.CollectionsClient.Get.
func (cc *CollectionsClient) Get(ctx context.Context, code string, opts *p2p.GetOptions) (p2p.Record, error) {
	if opts == nil {
		opts = &p2p.GetOptions{}
	}

	query := opts.Query
	if query == nil {
		query = p2p.Params{"filter": cc.c.defaults.filter}
	}

	signature, err := query.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding collection query: %w", err)
	}

	if !opts.ForceUpdate {
		if cached, hit := cc.c.store.Get(ctx, p2p.EntityCollection, code, signature); hit {
			return cached, nil
		}
	}

	resp, err := cc.c.api.Get(ctx, "/collections/"+code+".json", signature)
	if err != nil {
		return nil, fmt.Errorf("getting collection: %w", err)
	}

	body, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing collection: %w", err)
	}

	collection := body.Record("collection")
	if collection == nil {
		return nil, fmt.Errorf("%w: missing collection", ErrMalformedResponse)
	}

	err = cc.c.store.Save(ctx, p2p.EntityCollection, code, signature, collection)
	if err != nil {
		return nil, err
	}

	return collection, nil
}

// Create implements p2p.CollectionsClient.Create.
func (cc *CollectionsClient) Create(ctx context.Context, data p2p.Record) (p2p.Record, error) {
	code := data.Code()

	query, err := idQuery(code)
	if err != nil {
		return nil, err
	}

	lastModified, ok := data["last_modified_time"]
	if !ok {
		lastModified = time.Now().UTC()
	}

	collectionType := data.Str("collection_type_code")
	if collectionType == "" {
		collectionType = "misc"
	}

	affiliate := data.Str("product_affiliate_code")
	if affiliate == "" {
		affiliate = cc.c.defaults.productAffiliateCode
	}

	payload := map[string]interface{}{
		"collection": map[string]interface{}{
			"code":                 code,
			"name":                 data.Str("name"),
			"collection_type_code": collectionType,
			"last_modified_time":   lastModified,
			"sequence":             999,
		},
		"product_affiliate_code": affiliate,
		"section_path":           data.Str("section_path"),
	}

	resp, err := cc.c.api.Post(ctx, "/collections.json", query, payload)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	body, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing create response: %w", err)
	}

	collection := body.Record("collection")
	if collection == nil {
		return nil, fmt.Errorf("%w: missing collection", ErrMalformedResponse)
	}

	return collection, nil
}

// Delete implements p2p.CollectionsClient.Delete.
func (cc *CollectionsClient) Delete(ctx context.Context, code string) error {
	_, err := cc.c.api.Delete(ctx, "/collections/"+code+".json")
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	return cc.evict(ctx, code)
}

// GetLayout implements p2p.CollectionsClient.GetLayout. The layout
// response does not carry the collection code, so the requested code is
// stamped on before caching; a cached layout round-trips identically.
func (cc *CollectionsClient) GetLayout(ctx context.Context, code string, opts *p2p.GetOptions) (p2p.Record, error) {
	if opts == nil {
		opts = &p2p.GetOptions{}
	}

	query := opts.Query
	if query == nil {
		query = p2p.Params{
			"include": "items",
			"filter":  cc.c.defaults.filter,
		}
	}

	signature, err := query.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding layout query: %w", err)
	}

	if !opts.ForceUpdate {
		if cached, hit := cc.c.store.Get(ctx, p2p.EntityCollectionLayout, code, signature); hit {
			return cached, nil
		}
	}

	resp, err := cc.c.api.Get(ctx, "/current_collections/"+code+".json", signature)
	if err != nil {
		return nil, fmt.Errorf("getting collection layout: %w", err)
	}

	body, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing collection layout: %w", err)
	}

	layout := body.Record("collection_layout")
	if layout == nil {
		return nil, fmt.Errorf("%w: missing collection_layout", ErrMalformedResponse)
	}

	layout["code"] = code

	err = cc.c.store.Save(ctx, p2p.EntityCollectionLayout, code, signature, layout)
	if err != nil {
		return nil, err
	}

	return layout, nil
}

// Push implements p2p.CollectionsClient.Push.
func (cc *CollectionsClient) Push(ctx context.Context, code string, itemSlugs []string) (p2p.Record, error) {
	return cc.mutate(ctx, "/collections/prepend.json", code, map[string]interface{}{
		"items": itemSlugs,
	})
}

// InsertPosition implements p2p.CollectionsClient.InsertPosition.
func (cc *CollectionsClient) InsertPosition(ctx context.Context, code, slug string) (p2p.Record, error) {
	return cc.mutate(ctx, "/collections/insert.json", code, map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"slug": slug, "position": 1},
		},
	})
}

// Suppress implements p2p.CollectionsClient.Suppress.
func (cc *CollectionsClient) Suppress(ctx context.Context, code string, itemSlugs, affiliates []string) (p2p.Record, error) {
	if len(affiliates) == 0 {
		affiliates = []string{cc.c.defaults.productAffiliateCode}
	}

	items := make([]interface{}, len(itemSlugs))
	for i, slug := range itemSlugs {
		items[i] = map[string]interface{}{
			"slug":       slug,
			"affiliates": affiliates,
		}
	}

	return cc.mutate(ctx, "/collections/suppress.json", code, map[string]interface{}{
		"items": items,
	})
}

// RemoveItems implements p2p.CollectionsClient.RemoveItems.
func (cc *CollectionsClient) RemoveItems(ctx context.Context, code string, itemSlugs, affiliates []string) (p2p.Record, error) {
	if len(affiliates) == 0 {
		affiliates = []string{cc.c.defaults.productAffiliateCode}
	}

	items := make([]interface{}, len(itemSlugs))
	for i, slug := range itemSlugs {
		items[i] = map[string]interface{}{
			"slug":       slug,
			"affiliates": affiliates,
		}
	}

	return cc.mutate(ctx, "/collections/remove_items.json", code, map[string]interface{}{
		"items": items,
	})
}

// mutate performs a layout mutation and evicts the collection's cache
// entries.
func (cc *CollectionsClient) mutate(ctx context.Context, path, code string, payload map[string]interface{}) (p2p.Record, error) {
	query, err := idQuery(code)
	if err != nil {
		return nil, err
	}

	resp, err := cc.c.api.Put(ctx, path, query, payload)
	if err != nil {
		return nil, fmt.Errorf("updating collection: %w", err)
	}

	err = cc.evict(ctx, code)
	if err != nil {
		return nil, err
	}

	return decodeRecord(resp)
}

func (cc *CollectionsClient) evict(ctx context.Context, code string) error {
	err := cc.c.store.Remove(ctx, p2p.EntityCollection, code)
	if err != nil {
		return err
	}

	return cc.c.store.Remove(ctx, p2p.EntityCollectionLayout, code)
}

// GetFancy implements p2p.CollectionsClient.GetFancy.
func (cc *CollectionsClient) GetFancy(ctx context.Context, code string, opts *p2p.FancyCollectionOptions) (p2p.Record, error) {
	if opts == nil {
		opts = &p2p.FancyCollectionOptions{}
	}

	layoutOpts := &p2p.GetOptions{Query: opts.CollectionQuery, ForceUpdate: opts.ForceUpdate}

	layout, err := cc.GetLayout(ctx, code, layoutOpts)
	if err != nil {
		return nil, err
	}

	if opts.WithCollection {
		collection, err := cc.Get(ctx, code, layoutOpts)
		if err != nil {
			return nil, err
		}

		layout["collection"] = map[string]interface{}(collection)
	}

	items := layout.Records("items")

	limit := opts.LimitItems
	if limit == 0 {
		limit = constants.DefaultFancyItemLimit
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	kept := make([]interface{}, 0, len(items))
	ids := make([]int64, 0, len(items))

	for _, item := range items {
		if !opts.IncludeSuppressed && item.Suppressed() {
			continue
		}

		kept = append(kept, map[string]interface{}(item))
		ids = append(ids, item.Int("contentitem_id"))
	}

	layout["items"] = kept

	members, err := cc.c.contentItems.GetMulti(ctx, ids, &p2p.GetOptions{
		Query:       opts.ItemQuery,
		ForceUpdate: opts.ForceUpdate,
	})
	if err != nil {
		return nil, err
	}

	for _, raw := range kept {
		item := p2p.Record(raw.(map[string]interface{}))

		for _, member := range members {
			if member != nil && item.Int("contentitem_id") == member.ID() {
				item["content_item"] = map[string]interface{}(member)

				break
			}
		}
	}

	return layout, nil
}
