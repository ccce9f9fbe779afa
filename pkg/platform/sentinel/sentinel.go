package sentinel

import "errors"

// Sentinel errors for registry storage facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about entries, not validation failures:
// - ErrNotFound: key is not present in the table
// - ErrDuplicateKey: key is already present and cannot be inserted again
// - ErrHasDependents: parent entry still has child records referencing it
// - ErrOutOfRange: row index beyond the bounds of a child or list collection
// - ErrUnavailable: backing resource (cache, snapshot store) unreachable
//
// Authorization failures are reported by the service layer, not here.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrHasDependents = errors.New("has dependents")
	ErrOutOfRange    = errors.New("out of range")
	ErrUnavailable   = errors.New("unavailable")
)
