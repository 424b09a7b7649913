// Package tracker drives uploaded submissions through the document
// lifecycle: upload task, index visibility, content extraction, optional AI
// enrichment. Every tracked submission terminates in exactly one
// notification, even when upstream services stall.
package tracker
