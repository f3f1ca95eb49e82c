package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 5

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Batching limits.
const (
	// MultiItemBatchSize is the maximum number of content items the
	// /content_items/multi.json endpoint accepts per request.
	MultiItemBatchSize = 25

	// DefaultFancyItemLimit is the default item cap for composite
	// collection fetches.
	DefaultFancyItemLimit = 25
)

// Cache sizing.
const (
	// DefaultCacheSize is the default maximum entry count for the
	// in-memory cache.
	DefaultCacheSize = 1000
)
