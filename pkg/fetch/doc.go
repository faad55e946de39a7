// Package fetch downloads images over plain HTTP.
//
// Client.Get returns the body of a successful response. Failures are typed
// network errors from pkg/errors carrying the HTTP status, so callers and the
// retry package can tell a missing image (404) from a throttled or failing
// host (429, 5xx).
package fetch
