// Package client implements the p2p.Client interface over the HTTP
// transport, with one resource client per entity family.
package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tribpub/p2p-go/internal/constants"
	"github.com/tribpub/p2p-go/internal/http"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// Static errors for err113 compliance.
var (
	ErrMalformedResponse      = errors.New("malformed API response")
	ErrUnexpectedItemStatus   = errors.New("unexpected status in multi-item response")
	ErrMultiItemOrderMismatch = errors.New("multi-item response out of order")
)

// Client implements the p2p.Client interface.
type Client struct {
	api    *http.Client
	images *http.Client
	store  *p2p.Store
	logger p2p.Logger

	defaults clientDefaults

	contentItems p2p.ContentItemsClient
	collections  p2p.CollectionsClient
	sections     p2p.SectionsClient
	thumbs       p2p.ThumbsClient
}

// clientDefaults holds the resolved per-affiliate defaults applied when an
// operation is called without an explicit query.
type clientDefaults struct {
	productAffiliateCode string
	sourceCode           string
	webappName           string
	filter               p2p.Params
	contentItemQuery     p2p.Params
	contentItemValues    p2p.Record
	stripEmbeddedTags    bool
}

// New creates a new Content Services API client.
func New(config *p2p.Config) (*Client, error) {
	if config == nil {
		return nil, p2p.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, p2p.ErrBaseURLRequired
	}

	if config.AccessToken == "" {
		return nil, p2p.ErrAccessTokenRequired
	}

	httpOpts := buildHTTPOptions(config)
	api := http.NewClient(config.BaseURL, config.AccessToken, httpOpts...)

	var images *http.Client
	if config.ImageServicesURL != "" {
		images = http.NewClient(config.ImageServicesURL, config.AccessToken, httpOpts...)
	}

	client := &Client{
		api:      api,
		images:   images,
		store:    p2p.NewStore(config.Cache),
		logger:   config.Logger,
		defaults: resolveDefaults(config),
	}

	client.contentItems = NewContentItemsClient(client)
	client.collections = NewCollectionsClient(client)
	client.sections = NewSectionsClient(client)
	client.thumbs = NewThumbsClient(client)

	return client, nil
}

// buildHTTPOptions builds HTTP client options from config.
func buildHTTPOptions(config *p2p.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(&loggerAdapter{logger: config.Logger}))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// resolveDefaults fills in the affiliate identity and the derived query
// defaults the config leaves empty.
func resolveDefaults(config *p2p.Config) clientDefaults {
	defaults := clientDefaults{
		productAffiliateCode: config.ProductAffiliateCode,
		sourceCode:           config.SourceCode,
		webappName:           config.WebappName,
		filter:               config.DefaultFilter,
		contentItemQuery:     config.DefaultContentItemQuery,
		contentItemValues:    config.ContentItemDefaults,
		stripEmbeddedTags:    config.StripEmbeddedTags,
	}

	if defaults.productAffiliateCode == "" {
		defaults.productAffiliateCode = p2p.DefaultProductAffiliateCode
	}

	if defaults.sourceCode == "" {
		defaults.sourceCode = p2p.DefaultSourceCode
	}

	if defaults.webappName == "" {
		defaults.webappName = p2p.DefaultWebappName
	}

	if defaults.filter == nil {
		defaults.filter = p2p.DefaultFilter(defaults.productAffiliateCode)
	}

	if defaults.contentItemQuery == nil {
		defaults.contentItemQuery = p2p.DefaultContentItemQuery(defaults.productAffiliateCode)
	}

	if defaults.contentItemValues == nil {
		defaults.contentItemValues = p2p.DefaultContentItemValues(
			defaults.productAffiliateCode, defaults.sourceCode)
	}

	return defaults
}

// ContentItems implements p2p.Client.ContentItems.
func (c *Client) ContentItems() p2p.ContentItemsClient {
	return c.contentItems
}

// Collections implements p2p.Client.Collections.
func (c *Client) Collections() p2p.CollectionsClient {
	return c.collections
}

// Sections implements p2p.Client.Sections.
func (c *Client) Sections() p2p.SectionsClient {
	return c.sections
}

// Thumbs implements p2p.Client.Thumbs.
func (c *Client) Thumbs() p2p.ThumbsClient {
	return c.thumbs
}

// Cache implements p2p.Client.Cache.
func (c *Client) Cache() *p2p.Store {
	return c.store
}

// decodeRecord parses a response body into a normalized record, stamping
// the ETag header onto it when present.
func decodeRecord(resp *http.Response) (p2p.Record, error) {
	if len(resp.Body) == 0 {
		return p2p.Record{}, nil
	}

	var raw map[string]interface{}

	err := json.Unmarshal(resp.Body, &raw)
	if err != nil {
		return nil, fmt.Errorf("parsing response body: %w", err)
	}

	p2p.NormalizeResponse(raw)

	rec := p2p.Record(raw)
	if etag := resp.Headers.Get("ETag"); etag != "" {
		rec["etag"] = etag
	}

	return rec, nil
}

// decodeRecordList parses a response body holding a JSON list of objects.
func decodeRecordList(resp *http.Response) ([]p2p.Record, error) {
	var raw []interface{}

	err := json.Unmarshal(resp.Body, &raw)
	if err != nil {
		return nil, fmt.Errorf("parsing response list: %w", err)
	}

	p2p.NormalizeResponse(raw)

	records := make([]p2p.Record, 0, len(raw))

	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: non-object list element", ErrMalformedResponse)
		}

		records = append(records, p2p.Record(obj))
	}

	return records, nil
}

// ifModifiedSinceValue renders the conditional fetch header for a cached
// record. Records without a last modified time get a floor far in the
// past so the server always responds with content.
func ifModifiedSinceValue(cached p2p.Record) string {
	if cached != nil {
		if t, ok := cached.LastModified(); ok {
			return t.UTC().Format(nethttpTimeFormat)
		}
	}

	return defaultIfModifiedSince
}

const (
	nethttpTimeFormat      = "Mon, 02 Jan 2006 15:04:05 GMT"
	defaultIfModifiedSince = "Sat, 01 Jan 2000 00:00:00 GMT"

	// Per-item statuses in the multi-item response envelope.
	statusOK          = 200
	statusNotModified = 304
	statusNotFound    = 404
)

// idQuery renders the "?id=..." query used by the mutation endpoints.
func idQuery(id string) (string, error) {
	query, err := p2p.Params{"id": id}.Encode()
	if err != nil {
		return "", fmt.Errorf("encoding id query: %w", err)
	}

	return query, nil
}

// loggerAdapter adapts p2p.Logger to http.Logger.
type loggerAdapter struct {
	logger p2p.Logger
}

func (l *loggerAdapter) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, fields)
}

func (l *loggerAdapter) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, fields)
}

func (l *loggerAdapter) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, fields)
}

func (l *loggerAdapter) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, fields)
}
