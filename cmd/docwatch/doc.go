// Command docwatch uploads documents to a Paperless-NGX instance and tracks
// each submission through consumption, indexing, and optional AI enrichment.
package main
