// Package paperless wraps the Paperless-NGX REST API with typed shapes for
// upload, task polling, document fetch, listing, search, and tag mutation.
//
// "Not found" responses on task and document lookups are tagged results, not
// raw errors: a reaped task signals consumption finished, and a missing
// document may simply not be committed yet. Callers branch on those states
// instead of matching error strings.
package paperless
