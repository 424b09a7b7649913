// Package aiscan triggers and polls a Paperless-AI compatible enrichment
// service. An unconfigured client is a valid, disabled integration; the
// tracker treats that as "feature off" rather than a failure.
package aiscan
