package p2p

import (
	"context"
	"errors"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired             = errors.New("config is required")
	ErrBaseURLRequired            = errors.New("base URL is required")
	ErrAccessTokenRequired        = errors.New("access token is required")
	ErrImageServicesNotConfigured = errors.New("image services URL is not configured")
	ErrMissingSlug                = errors.New("content item has no slug")
	ErrNoEnvironmentSettings      = errors.New("P2P_API_URL and P2P_API_KEY must be set")
)

// Default affiliate identity used when the config leaves them empty.
const (
	DefaultProductAffiliateCode = "chinews"
	DefaultSourceCode           = "chicagotribune"
	DefaultWebappName           = "tRibbit"
)

// ContentItemsClient works with content items.
type ContentItemsClient interface {
	// Get fetches a single content item by slug, cache first. With
	// opts.ForceUpdate the fetch is conditional on the cached copy's
	// last modified time; a 304 keeps the cached copy.
	Get(ctx context.Context, slug string, opts *GetOptions) (Record, error)

	// GetMulti fetches content items by numeric id, cache first, batching
	// misses through the multi-item endpoint. The result is positional:
	// it has one element per requested id, nil where the item is gone.
	GetMulti(ctx context.Context, ids []int64, opts *GetOptions) ([]Record, error)

	// Create creates a content item, merging the configured content item
	// defaults under the given fields.
	Create(ctx context.Context, item Record) (Record, error)

	// Update updates a content item addressed by the item's own slug.
	Update(ctx context.Context, item Record) (Record, error)

	// UpdateSlug updates the content item addressed by slug, keeping any
	// slug inside item in the payload. Sending a different slug in the
	// payload renames the item.
	UpdateSlug(ctx context.Context, slug string, item Record) (Record, error)

	// CreateOrUpdate updates the item, falling back to create when the
	// item does not exist. The bool reports whether a create happened.
	CreateOrUpdate(ctx context.Context, item Record) (Record, bool, error)

	// Delete destroys a content item. The bool reports whether the server
	// confirmed the destruction.
	Delete(ctx context.Context, slug string) (bool, error)

	// Junk moves a content item to the junk state.
	Junk(ctx context.Context, slug string) (Record, error)

	// Search queries the content item search endpoint.
	Search(ctx context.Context, params Params) (Record, error)

	// AddTopics attaches topics to a content item.
	AddTopics(ctx context.Context, slug string, topicIDs []int64) error

	// RemoveTopics detaches topics from a content item.
	RemoveTopics(ctx context.Context, slug string, topicIDs []int64) error

	// PushRelated prepends slugs to a content item's related items list.
	PushRelated(ctx context.Context, slug string, relatedSlugs []string) (Record, error)

	// InsertRelated inserts slugs into the related items list starting at
	// the given 1-based position.
	InsertRelated(ctx context.Context, slug string, relatedSlugs []string, position int) (Record, error)

	// AppendRelated appends slugs to the end of the related items list.
	AppendRelated(ctx context.Context, slug string, relatedSlugs []string) (Record, error)

	// GetFancy fetches a content item and embeds the full record of every
	// related item into its stub under "content_item".
	GetFancy(ctx context.Context, slug string, opts *FancyItemOptions) (Record, error)
}

// CollectionsClient works with collections and their layouts.
type CollectionsClient interface {
	// Get fetches collection metadata by code, cache first.
	Get(ctx context.Context, code string, opts *GetOptions) (Record, error)

	// Create creates a collection. data must carry "code", "name", and
	// "section_path"; type, sequence, and affiliate are defaulted.
	Create(ctx context.Context, data Record) (Record, error)

	// Delete deletes a collection and evicts its cache entries.
	Delete(ctx context.Context, code string) error

	// GetLayout fetches the current collection layout. The response lacks
	// the collection code, so the layout is stamped with the requested
	// code before caching.
	GetLayout(ctx context.Context, code string, opts *GetOptions) (Record, error)

	// Push prepends content item slugs onto the top of the collection.
	Push(ctx context.Context, code string, itemSlugs []string) (Record, error)

	// InsertPosition inserts a content item slug at the top position.
	InsertPosition(ctx context.Context, code, slug string) (Record, error)

	// Suppress suppresses content item slugs in the collection for the
	// given affiliates. Empty affiliates means the configured affiliate.
	Suppress(ctx context.Context, code string, itemSlugs, affiliates []string) (Record, error)

	// RemoveItems removes content item slugs from the collection for the
	// given affiliates. Empty affiliates means the configured affiliate.
	RemoveItems(ctx context.Context, code string, itemSlugs, affiliates []string) (Record, error)

	// GetFancy fetches the layout, optionally the collection metadata,
	// filters suppressed members, and embeds the full record of every
	// member under "content_item".
	GetFancy(ctx context.Context, code string, opts *FancyCollectionOptions) (Record, error)
}

// SectionsClient works with site sections.
type SectionsClient interface {
	// Get fetches the collections attached to a section path.
	Get(ctx context.Context, path string, opts *GetOptions) (Record, error)

	// GetConfigs fetches the webapp configuration for a section path.
	GetConfigs(ctx context.Context, path string, opts *GetOptions) (Record, error)

	// GetFancy combines the section config with every referenced
	// collection expanded through CollectionsClient.GetFancy.
	GetFancy(ctx context.Context, path string, forceUpdate bool) (Record, error)
}

// ThumbsClient works with the image services endpoint.
type ThumbsClient interface {
	// Get fetches thumbnail display data for a slug.
	Get(ctx context.Context, slug string, forceUpdate bool) (Record, error)
}

// Client is the Content Services API client surface.
type Client interface {
	ContentItems() ContentItemsClient
	Collections() CollectionsClient
	Sections() SectionsClient
	Thumbs() ThumbsClient

	// Cache exposes the entity cache store for eviction and stats.
	Cache() *Store
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// GetOptions tunes a single-entity fetch.
type GetOptions struct {
	// Query overrides the default query for this entity type. The encoded
	// query is part of the cache key, so different queries cache
	// separately.
	Query Params

	// ForceUpdate refreshes the cached copy from the API.
	ForceUpdate bool
}

// FancyItemOptions tunes a composite content item fetch.
type FancyItemOptions struct {
	// Query overrides the query for the item itself.
	Query Params

	// RelatedQuery overrides the query for the related item fetches.
	RelatedQuery Params

	ForceUpdate bool
}

// FancyCollectionOptions tunes a composite collection fetch.
type FancyCollectionOptions struct {
	// WithCollection also fetches collection metadata onto the layout.
	WithCollection bool

	// LimitItems caps the number of layout items expanded. Zero means the
	// default cap; negative disables the cap.
	LimitItems int

	// ItemQuery overrides the query for the member content item fetches.
	ItemQuery Params

	// CollectionQuery overrides the query for the layout and collection
	// fetches.
	CollectionQuery Params

	// IncludeSuppressed keeps suppressed members in the result.
	IncludeSuppressed bool

	ForceUpdate bool
}

// Config represents client configuration for building a p2p.Client.
//
// The only required fields are BaseURL and AccessToken. Everything else
// has a default: affiliate identity falls back to the Chicago affiliate
// constants, the filter and query defaults are derived from the affiliate,
// and a nil Cache disables caching.
type Config struct {
	// BaseURL: base URL of the Content Services API.
	// p2pclient.New normalizes this value by trimming a trailing slash and
	// adding "https://" if no scheme is present.
	BaseURL string

	// AccessToken: bearer token for the API.
	AccessToken string

	// ImageServicesURL: optional base URL of the image services API.
	// Thumbs() fails without it.
	ImageServicesURL string

	// ProductAffiliateCode: affiliate identity sent in default filters and
	// content item defaults.
	ProductAffiliateCode string

	// SourceCode: source identity for created content items.
	SourceCode string

	// WebappName: webapp identity for section config fetches.
	WebappName string

	// DefaultFilter: filter applied when an operation's query carries no
	// explicit filter. Derived from the affiliate when nil.
	DefaultFilter Params

	// DefaultContentItemQuery: query applied to content item fetches with
	// no explicit query. Derived from the affiliate when nil.
	DefaultContentItemQuery Params

	// ContentItemDefaults: fields merged under every created content item.
	// Derived from the affiliate and source when nil.
	ContentItemDefaults Record

	// StripEmbeddedTags: strips runtime embed markup from content item
	// bodies before create and update calls. The markup is preserved by
	// default.
	StripEmbeddedTags bool

	// Cache: cache backend. Nil disables caching.
	Cache Cache

	// Debug: enables verbose HTTP request/response logging when a Logger
	// is provided.
	Debug bool

	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger

	// UserAgent: overrides the default User-Agent header.
	UserAgent string

	// HTTPTimeout: per-request timeout of the underlying HTTP client.
	HTTPTimeout time.Duration

	// RetryMax: maximum number of retries for retryable failures. If 0, a
	// default is used.
	RetryMax int

	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration

	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
}

// DefaultFilter returns the filter applied when a query carries none:
// live items belonging to the affiliate.
func DefaultFilter(productAffiliateCode string) Params {
	return Params{
		"product_affiliate": productAffiliateCode,
		"state":             "live",
	}
}

// DefaultContentItemQuery returns the default query for content item
// fetches.
func DefaultContentItemQuery(productAffiliateCode string) Params {
	return Params{
		"include": []string{
			"web_url",
			"section",
			"related_items",
			"content_topics",
			"embedded_items",
		},
		"filter": DefaultFilter(productAffiliateCode),
	}
}

// DefaultContentItemValues returns the fields merged under every created
// content item.
func DefaultContentItemValues(productAffiliateCode, sourceCode string) Record {
	return Record{
		"content_item_type_code":  "blurb",
		"product_affiliate_code":  productAffiliateCode,
		"source_code":             sourceCode,
		"content_item_state_code": "live",
	}
}
