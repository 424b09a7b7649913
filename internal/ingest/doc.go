// Package ingest watches a local inbox directory and submits settled files
// for upload and tracking.
package ingest
