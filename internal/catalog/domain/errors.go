package domain

import "errors"

var (
	// ErrUnknownSourceType is returned for a source type with no adapter
	ErrUnknownSourceType = errors.New("unknown source type")

	// ErrSourceNotFound is returned when a configured source id does not exist
	ErrSourceNotFound = errors.New("source not found")

	// ErrLibraryNotFound is returned when a source has no such library
	ErrLibraryNotFound = errors.New("library not found")

	// ErrItemNotFound is returned when a catalog item is not found
	ErrItemNotFound = errors.New("item not found")

	// ErrMissingItemID is a per-item error for metadata with no provider id
	ErrMissingItemID = errors.New("metadata has no provider item id")

	// ErrMissingTitle is a per-item error for metadata with no title
	ErrMissingTitle = errors.New("metadata has no title")

	// ErrBatchNotStarted is returned by ForceSave/EndBatch outside a batch
	ErrBatchNotStarted = errors.New("no batch in progress")

	// ErrScanInProgress is returned when a source already has a running scan
	ErrScanInProgress = errors.New("scan already in progress")
)
