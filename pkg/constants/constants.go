// Package constants provides shared constants used throughout the catalogsync codebase.
// This includes batch sizes, protocol limits, retry settings and file permissions
// that must stay consistent between the importers.
package constants

import "time"

// Batching and protocol limits
const (
	// DefaultBatchSize is the number of records reconciled per batch
	DefaultBatchSize = 30

	// DefaultURLLimit is the maximum URL length the store accepts, in bytes
	DefaultURLLimit = 8192

	// DefaultChunkConcurrency is the number of parallel "fetch by sku" queries
	DefaultChunkConcurrency = 30

	// DefaultAttributeFanOut bounds the variants filtered or resolved in parallel
	DefaultAttributeFanOut = 5

	// MaxUpdateActions is the largest number of actions sent in one update request
	MaxUpdateActions = 500

	// DefaultPerPage is the page size used for product projection queries
	DefaultPerPage = 200

	// MaxSlugLength is the maximum length of a generated slug
	MaxSlugLength = 256
)

// Retry constants
const (
	// ConflictAttempts is the attempt ceiling for product updates on version conflicts
	ConflictAttempts = 5

	// PriceConflictAttempts is the attempt ceiling for price updates on version conflicts
	PriceConflictAttempts = 10

	// RetryDelay is the pause between two attempts
	RetryDelay = 100 * time.Millisecond
)

// Reporting constants
const (
	// DefaultErrorLimit is the number of failures persisted to disk; 0 means unlimited
	DefaultErrorLimit = 30

	// DefaultErrorDir is the directory error reports are written to
	DefaultErrorDir = "errors"

	// DefaultLanguage is the locale used to match product discounts by name
	DefaultLanguage = "en"
)

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for requests to the store
	DefaultHTTPTimeout = 30 * time.Second

	// ShutdownTimeout bounds graceful shutdown of the CLI
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// SupportedLocales are the locales a new localized enum label is copied into.
var SupportedLocales = []string{"en", "de", "fr", "it", "es"}
