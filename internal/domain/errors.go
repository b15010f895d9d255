// Package domain provides shared domain-level sentinel errors.
//
// The remote work-management API does not report failures consistently:
// the same condition may arrive as a transport status, an API error code
// or only a message string. Everything that leaves the adapter layer is
// mapped onto this closed set so call sites dispatch with errors.Is.
package domain

import "errors"

// ErrNotFound indicates the remote resource is absent (404) or gone (410).
// Read paths treat this as a normal outcome, not a failure.
var ErrNotFound = errors.New("remote resource not found or gone")

// ErrConflict indicates an optimistic-concurrency failure: the etag the
// caller presented no longer matches the resource's current version.
// The caller must re-fetch and retry; nothing in this service retries
// a stale write on its own.
var ErrConflict = errors.New("conflict: etag does not match current version")

// ErrPermissionDenied indicates the token was accepted but the granted
// scopes do not cover the operation. Not retryable; an administrator
// has to grant the missing permission.
var ErrPermissionDenied = errors.New("permission denied by remote service")

// ErrUnauthenticated indicates the bearer token was rejected outright.
var ErrUnauthenticated = errors.New("remote service rejected credentials")

// ErrRateLimited indicates the remote service throttled the request.
var ErrRateLimited = errors.New("rate limited by remote service")

// ErrUnknownRemote covers transport failures and anything the classifier
// could not place. Safe to retry with fresh state.
var ErrUnknownRemote = errors.New("unclassified remote failure")

// ErrAuthentication indicates token issuance itself failed (invalid
// client, bad secret, tenant misconfiguration, unreachable endpoint).
var ErrAuthentication = errors.New("token issuance failed")

// ErrIntegrationNotConfigured indicates no usable credentials exist for
// the tenant and no system-wide default application is configured.
var ErrIntegrationNotConfigured = errors.New("integration not configured for tenant")

// ErrValidation indicates a request failed local validation before any
// remote call was made.
var ErrValidation = errors.New("validation failed")
