// Package store persists best-effort snapshots of in-flight submissions in
// SQLite.
//
// The snapshot exists for crash awareness and staleness cleanup, not for
// resuming execution: after a restart the tracker starts with an empty
// registry and the Audit pass logs and prunes whatever the previous process
// left behind. The single snapshot row carries a TTL so abandoned state ages
// out on its own.
package store
