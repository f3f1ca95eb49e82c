// Package p2p provides types, interfaces, and helpers for working with the
// Content Services API.
//
// # Overview
//
// The p2p package defines the Record and Params types, the interfaces for
// resource-oriented clients (ContentItemsClient, CollectionsClient,
// SectionsClient, ThumbsClient), the cache Store, and the notification
// listener. A concrete implementation of these clients is provided by the
// p2pclient package, which wires configuration, transport, caching, and
// retry behavior. Most consumers should import p2pclient to construct a
// client and then interact with the resource client interfaces exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/tribpub/p2p-go/pkg/p2p"
//	  "github.com/tribpub/p2p-go/pkg/p2pclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := p2pclient.New(&p2p.Config{
//	    BaseURL:     "https://content-api.example.com",
//	    AccessToken: "token",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  item, err := cli.ContentItems().Get(ctx, "chi-example-story", nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = item
//	}
//
// # Records and queries
//
// API payloads are schemaless; Record wraps a decoded JSON object and
// provides typed accessors (Str, Int, Time, Record, Records). Params
// expresses query parameters, including nested filters and include lists,
// and encodes them deterministically:
//
//	query := p2p.Params{
//	  "include": []string{"web_url", "section"},
//	  "filter":  p2p.Params{"product_affiliate": "chinews", "state": "live"},
//	}
//	item, err := cli.ContentItems().Get(ctx, slug, &p2p.GetOptions{Query: query})
//
// # Errors
//
// API errors are represented by RequestError, which classifies responses
// into kinds such as not-found, slug-taken, and forbidden. Helpers such as
// IsNotFound, IsSlugTaken, and IsRetryable make it easy to branch on common
// cases.
//
// # Caching
//
// Fetched entities are cached in a Store keyed by entity type, identity,
// and query signature. The Cache abstraction is pluggable; an in-memory
// backend and a NATS JetStream key-value backend are provided, and
// cache-backed reads support conditional revalidation via ForceUpdate.
// InvalidatingHandler connects the notification listener to the Store so
// upstream edits evict stale entries.
package p2p
