package store

import "errors"

// Sentinel error kinds, checked with errors.Is by callers, matching the
// teacher's own errors.Is(err, sql.ErrNoRows) idiom rather than a bespoke
// error-code type.
var (
	// ErrNotFound is returned when an entity looked up by id does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidQuery is returned when a search query or write request is
	// structurally invalid: a malformed FTS5 expression, an empty child
	// set for a condensed summary, or a leaf range overlapping an
	// existing leaf in the same session.
	ErrInvalidQuery = errors.New("store: invalid query")

	// ErrInvalidID is returned when a caller-supplied id string cannot be
	// parsed into the id space it claims to address.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrAlreadyCondensed is returned when CreateCondensedSummary observes
	// that one of its proposed children already has a parent edge,
	// signalling an overlapping condensation race (see §5 ordering
	// guarantees).
	ErrAlreadyCondensed = errors.New("store: child summary already condensed")
)
