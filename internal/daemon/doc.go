// Package daemon composes the docwatch runtime: the Paperless and enrichment
// clients, the tracking loop, the inbox watcher, and the single-instance
// lock.
package daemon
