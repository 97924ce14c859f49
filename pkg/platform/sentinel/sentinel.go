package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The transport and store layers
// return these (optionally wrapped) so the sync service can translate them
// into user-facing state without inspecting HTTP details.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store or on the server
// - ErrUnauthenticated: the session token is missing or expired
// - ErrMigrated: the server retired this endpoint mid-migration
// - ErrUnavailable: network or server failure, worth retrying
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMigrated        = errors.New("endpoint migrated")
	ErrUnavailable     = errors.New("unavailable")
)
