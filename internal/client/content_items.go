package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/tribpub/p2p-go/internal/constants"
	"github.com/tribpub/p2p-go/internal/http"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// ContentItemsClient implements p2p.ContentItemsClient.
type ContentItemsClient struct {
	c *Client
}

// NewContentItemsClient creates a new content items client.
func NewContentItemsClient(c *Client) *ContentItemsClient {
	return &ContentItemsClient{c: c}
}

// Get implements p2p.ContentItemsClient.Get.
func (ci *ContentItemsClient) Get(ctx context.Context, slug string, opts *p2p.GetOptions) (p2p.Record, error) {
	if opts == nil {
		opts = &p2p.GetOptions{}
	}

	query := opts.Query
	if query == nil {
		query = ci.c.defaults.contentItemQuery
	}

	signature, err := query.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding content item query: %w", err)
	}

	cached, hit := ci.c.store.GetContentItem(ctx, slug, signature)
	if hit && !opts.ForceUpdate {
		return cached, nil
	}

	req := &http.Request{
		Method: "GET",
		Path:   "/content_items/" + slug + ".json",
		Query:  signature,
	}

	if hit {
		req.Headers = map[string]string{"If-Modified-Since": ifModifiedSinceValue(cached)}
	}

	resp, err := ci.c.api.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("getting content item: %w", err)
	}

	if resp.StatusCode == statusNotModified {
		return cached, nil
	}

	body, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing content item: %w", err)
	}

	item := body.Record("content_item")
	if item == nil {
		return nil, fmt.Errorf("%w: missing content_item", ErrMalformedResponse)
	}

	err = ci.c.store.SaveContentItem(ctx, item, signature)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// GetMulti implements p2p.ContentItemsClient.GetMulti. Cache misses are
// batched through the multi-item endpoint, 25 ids per request, and the
// per-item statuses are demultiplexed back to the input order.
func (ci *ContentItemsClient) GetMulti(ctx context.Context, ids []int64, opts *p2p.GetOptions) ([]p2p.Record, error) {
	if opts == nil {
		opts = &p2p.GetOptions{}
	}

	query := opts.Query
	if query == nil {
		query = ci.c.defaults.contentItemQuery
	}

	signature, err := query.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding content item query: %w", err)
	}

	ret := make([]p2p.Record, len(ids))

	var (
		pending    []interface{}
		pendingIdx []int
	)

	for i, id := range ids {
		cached, hit := ci.c.store.GetContentItemByID(ctx, id, signature)
		if hit {
			ret[i] = cached

			if !opts.ForceUpdate {
				continue
			}
		}

		pending = append(pending, map[string]interface{}{
			"id":                id,
			"if_modified_since": ifModifiedSinceValue(cached),
		})
		pendingIdx = append(pendingIdx, i)
	}

	if len(pending) == 0 {
		return ret, nil
	}

	results, err := ci.fetchMulti(ctx, query, pending)
	if err != nil {
		return nil, err
	}

	if len(results) != len(pendingIdx) {
		return nil, fmt.Errorf("%w: got %d results for %d ids",
			ErrMultiItemOrderMismatch, len(results), len(pendingIdx))
	}

	for j, entry := range results {
		idx := pendingIdx[j]

		if entry.Int("id") != ids[idx] {
			return nil, fmt.Errorf("%w: id %d at position %d",
				ErrMultiItemOrderMismatch, entry.Int("id"), j)
		}

		switch entry.Int("status") {
		case statusOK:
			item := entry.Record("body").Record("content_item")
			if item == nil {
				return nil, fmt.Errorf("%w: missing content_item for id %d",
					ErrMalformedResponse, ids[idx])
			}

			ret[idx] = item

			err = ci.c.store.SaveContentItem(ctx, item, signature)
			if err != nil {
				return nil, err
			}
		case statusNotModified:
			// Cached copy stands.
		case statusNotFound:
			ret[idx] = nil

			_ = ci.c.store.RemoveContentItemByID(ctx, ids[idx])
		default:
			return nil, fmt.Errorf("%w: %d fetching id %d",
				ErrUnexpectedItemStatus, entry.Int("status"), ids[idx])
		}
	}

	return ret, nil
}

// fetchMulti posts id batches to the multi-item endpoint and concatenates
// the per-item results.
func (ci *ContentItemsClient) fetchMulti(ctx context.Context, query p2p.Params, pending []interface{}) ([]p2p.Record, error) {
	var results []p2p.Record

	for start := 0; start < len(pending); start += constants.MultiItemBatchSize {
		end := start + constants.MultiItemBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		payload := map[string]interface{}(query.Clone())
		if payload == nil {
			payload = map[string]interface{}{}
		}

		payload["content_items"] = pending[start:end]

		resp, err := ci.c.api.Post(ctx, "/content_items/multi.json", "", payload)
		if err != nil {
			return nil, fmt.Errorf("getting content items: %w", err)
		}

		batch, err := decodeRecordList(resp)
		if err != nil {
			return nil, fmt.Errorf("parsing multi-item response: %w", err)
		}

		results = append(results, batch...)
	}

	return results, nil
}

// Create implements p2p.ContentItemsClient.Create.
func (ci *ContentItemsClient) Create(ctx context.Context, item p2p.Record) (p2p.Record, error) {
	merged := item.Merge(ci.c.defaults.contentItemValues)
	ci.stripBody(merged)

	resp, err := ci.c.api.Post(ctx, "/content_items.json", "", map[string]interface{}{
		"content_item": map[string]interface{}(merged),
	})
	if err != nil {
		return nil, fmt.Errorf("creating content item: %w", err)
	}

	body, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing create response: %w", err)
	}

	if created := body.Record("content_item"); created != nil {
		return created, nil
	}

	return body, nil
}

// Update implements p2p.ContentItemsClient.Update. The item's own slug
// addresses the API call and is stripped from the payload.
func (ci *ContentItemsClient) Update(ctx context.Context, item p2p.Record) (p2p.Record, error) {
	slug := item.Slug()
	if slug == "" {
		return nil, p2p.ErrMissingSlug
	}

	payload := item.Clone()
	delete(payload, "slug")

	return ci.update(ctx, slug, payload)
}

// UpdateSlug implements p2p.ContentItemsClient.UpdateSlug. The payload
// keeps any slug it carries, which renames the item.
func (ci *ContentItemsClient) UpdateSlug(ctx context.Context, slug string, item p2p.Record) (p2p.Record, error) {
	return ci.update(ctx, slug, item.Clone())
}

func (ci *ContentItemsClient) update(ctx context.Context, slug string, payload p2p.Record) (p2p.Record, error) {
	ci.stripBody(payload)

	resp, err := ci.c.api.Put(ctx, "/content_items/"+slug+".json", "", map[string]interface{}{
		"content_item": map[string]interface{}(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("updating content item: %w", err)
	}

	err = ci.c.store.RemoveContentItem(ctx, slug)
	if err != nil {
		return nil, err
	}

	body, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing update response: %w", err)
	}

	return body, nil
}

// stripBody removes runtime embed markup from a payload's body field when
// the client is configured to do so. The payload is always a copy owned by
// this client, never the caller's record.
func (ci *ContentItemsClient) stripBody(payload p2p.Record) {
	if !ci.c.defaults.stripEmbeddedTags {
		return
	}

	if body, ok := payload["body"].(string); ok {
		payload["body"] = p2p.StripRuntimeTags(body)
	}
}

// CreateOrUpdate implements p2p.ContentItemsClient.CreateOrUpdate.
func (ci *ContentItemsClient) CreateOrUpdate(ctx context.Context, item p2p.Record) (p2p.Record, bool, error) {
	updated, err := ci.Update(ctx, item)
	if err == nil {
		return updated, false, nil
	}

	if !p2p.IsNotFound(err) {
		return nil, false, err
	}

	created, err := ci.Create(ctx, item)
	if err != nil {
		return nil, false, err
	}

	return created, true, nil
}

// Delete implements p2p.ContentItemsClient.Delete.
func (ci *ContentItemsClient) Delete(ctx context.Context, slug string) (bool, error) {
	resp, err := ci.c.api.Delete(ctx, "/content_items/"+slug+".json")
	if err != nil {
		return false, fmt.Errorf("deleting content item: %w", err)
	}

	err = ci.c.store.RemoveContentItem(ctx, slug)
	if err != nil {
		return false, err
	}

	return strings.Contains(string(resp.Body), "destroyed successfully"), nil
}

// Junk implements p2p.ContentItemsClient.Junk.
func (ci *ContentItemsClient) Junk(ctx context.Context, slug string) (p2p.Record, error) {
	return ci.Update(ctx, p2p.Record{
		"slug":                    slug,
		"content_item_state_code": "junk",
	})
}

// Search implements p2p.ContentItemsClient.Search.
func (ci *ContentItemsClient) Search(ctx context.Context, params p2p.Params) (p2p.Record, error) {
	query, err := params.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding search query: %w", err)
	}

	resp, err := ci.c.api.Get(ctx, "/content_items/search.json", query)
	if err != nil {
		return nil, fmt.Errorf("searching content items: %w", err)
	}

	body, err := decodeRecord(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	return body, nil
}

// AddTopics implements p2p.ContentItemsClient.AddTopics.
func (ci *ContentItemsClient) AddTopics(ctx context.Context, slug string, topicIDs []int64) error {
	return ci.updateTopics(ctx, slug, "add_topic_ids", topicIDs)
}

// RemoveTopics implements p2p.ContentItemsClient.RemoveTopics.
func (ci *ContentItemsClient) RemoveTopics(ctx context.Context, slug string, topicIDs []int64) error {
	return ci.updateTopics(ctx, slug, "remove_topic_ids", topicIDs)
}

func (ci *ContentItemsClient) updateTopics(ctx context.Context, slug, field string, topicIDs []int64) error {
	_, err := ci.c.api.Put(ctx, "/content_items/"+slug+".json", "", map[string]interface{}{
		field: topicIDs,
	})
	if err != nil {
		return fmt.Errorf("updating content item topics: %w", err)
	}

	return ci.c.store.RemoveContentItem(ctx, slug)
}

// PushRelated implements p2p.ContentItemsClient.PushRelated.
func (ci *ContentItemsClient) PushRelated(ctx context.Context, slug string, relatedSlugs []string) (p2p.Record, error) {
	query, err := idQuery(slug)
	if err != nil {
		return nil, err
	}

	resp, err := ci.c.api.Put(ctx, "/content_items/prepend.json", query, map[string]interface{}{
		"items": relatedSlugs,
	})
	if err != nil {
		return nil, fmt.Errorf("prepending related items: %w", err)
	}

	err = ci.c.store.RemoveContentItem(ctx, slug)
	if err != nil {
		return nil, err
	}

	return decodeRecord(resp)
}

// InsertRelated implements p2p.ContentItemsClient.InsertRelated.
func (ci *ContentItemsClient) InsertRelated(ctx context.Context, slug string, relatedSlugs []string, position int) (p2p.Record, error) {
	query, err := idQuery(slug)
	if err != nil {
		return nil, err
	}

	items := make([]interface{}, len(relatedSlugs))
	for i, related := range relatedSlugs {
		items[i] = map[string]interface{}{
			"slug":     related,
			"position": position + i,
		}
	}

	resp, err := ci.c.api.Put(ctx, "/content_items/insert.json", query, map[string]interface{}{
		"items": items,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting related items: %w", err)
	}

	err = ci.c.store.RemoveContentItem(ctx, slug)
	if err != nil {
		return nil, err
	}

	return decodeRecord(resp)
}

// AppendRelated implements p2p.ContentItemsClient.AppendRelated. The
// current related items list determines the insert position.
func (ci *ContentItemsClient) AppendRelated(ctx context.Context, slug string, relatedSlugs []string) (p2p.Record, error) {
	item, err := ci.Get(ctx, slug, nil)
	if err != nil {
		return nil, err
	}

	return ci.InsertRelated(ctx, slug, relatedSlugs, len(item.RelatedItems())+1)
}

// GetFancy implements p2p.ContentItemsClient.GetFancy.
func (ci *ContentItemsClient) GetFancy(ctx context.Context, slug string, opts *p2p.FancyItemOptions) (p2p.Record, error) {
	if opts == nil {
		opts = &p2p.FancyItemOptions{}
	}

	query := opts.Query
	if query == nil {
		query = ci.c.defaults.contentItemQuery.Clone()
		query["include"] = appendInclude(query["include"], "related_items")
	}

	relatedQuery := opts.RelatedQuery
	if relatedQuery == nil {
		relatedQuery = ci.c.defaults.contentItemQuery
	}

	item, err := ci.Get(ctx, slug, &p2p.GetOptions{Query: query, ForceUpdate: opts.ForceUpdate})
	if err != nil {
		return nil, err
	}

	stubs := item.RelatedItems()

	ids := make([]int64, 0, len(stubs))
	for _, stub := range stubs {
		ids = append(ids, stub.Int("relatedcontentitem_id"))
	}

	related, err := ci.GetMulti(ctx, ids, &p2p.GetOptions{Query: relatedQuery, ForceUpdate: opts.ForceUpdate})
	if err != nil {
		return nil, err
	}

	for _, stub := range stubs {
		stub["content_item"] = nil

		for _, rel := range related {
			if rel != nil && stub.Int("relatedcontentitem_id") == rel.ID() {
				stub["content_item"] = map[string]interface{}(rel)

				break
			}
		}
	}

	return item, nil
}

// appendInclude adds a value to an include list if it is not already
// there, tolerating both string and list forms.
func appendInclude(include interface{}, value string) interface{} {
	switch list := include.(type) {
	case []string:
		for _, item := range list {
			if item == value {
				return list
			}
		}

		return append(list, value)
	case []interface{}:
		for _, item := range list {
			if item == value {
				return list
			}
		}

		return append(list, value)
	case string:
		if list == value {
			return list
		}

		return []string{list, value}
	case nil:
		return []string{value}
	default:
		return include
	}
}
