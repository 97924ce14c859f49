// Package transport defines the request client the tag sync layer consumes.
//
// The sync service only ever sees this interface; header management, auth
// token refresh, and transport-level retries belong to whichever
// implementation the host application injects. A default net/http backed
// Client is provided for development and tests.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Doer is the generic request client the sync layer is built against.
// Paths are service-relative ("/tags", "/tags/{id}/privacy"); body is
// marshaled to JSON by the implementation when non-nil.
type Doer interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string, body any) (*Response, error)
	Put(ctx context.Context, path string, body any) (*Response, error)
	Patch(ctx context.Context, path string, body any) (*Response, error)
}

// Response is a decoded server reply. Body holds the raw JSON payload so the
// normalizer can cope with the several historical shapes the backend emits.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Error codes reported by transport implementations. Implementations should
// classify failures structurally so callers never have to parse HTTP details
// or response prose.
const (
	CodeUnauthenticated  = "unauthenticated"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeBadRequest       = "bad_request"
	CodeEndpointMigrated = "endpoint_migrated"
	CodeUnavailable      = "unavailable"
)

// Error is a structured transport failure. Message carries the server's own
// wording where one was given, suitable for surfacing verbatim to the user
// for validation and conflict failures.
type Error struct {
	Status  int
	Code    string
	Message string
	Body    json.RawMessage
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// CodeOf extracts the structured code from err, or "" when err is not a
// transport error.
func CodeOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
