package domain

import "errors"

// Error taxonomy for the enrichment pipeline. Handlers classify with
// errors.Is; none of these is fatal to the process.
var (
	// ErrFetchTimeout means the page did not respond within the fetch budget.
	ErrFetchTimeout = errors.New("fetch timeout")

	// ErrFetchNetwork means the transport failed before a response arrived.
	ErrFetchNetwork = errors.New("fetch network error")

	// ErrParse means the fetched document could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrLookupMiss means a folder or record lookup found nothing.
	ErrLookupMiss = errors.New("lookup miss")

	// ErrStoreWrite means a persistence write failed.
	ErrStoreWrite = errors.New("store write error")
)
