package tracker

import (
	"fmt"
	"sort"
	"sync"

	"docwatch/internal/services/paperless"
)

// Registry is the single source of truth for in-flight submissions. The
// scheduler is the only reader during ticks; the mutex exists because hosts
// may register new submissions from a concurrent context (CLI command, ingest
// watcher) while the loop runs.
type Registry struct {
	mu    sync.Mutex
	items map[string]*Item
}

// NewRegistry creates an empty registry. A fresh process always starts empty:
// persisted snapshot records cannot be trusted as live items after a restart.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Item)}
}

// Register inserts the item under its submission ID. When an immediate status
// probe taken right after upload already reports success with a resolved
// document ID, the item starts directly in the indexing state, skipping the
// wasted uploading stage.
func (r *Registry) Register(item *Item, immediateHint *paperless.TaskStatus) error {
	if item == nil || item.SubmissionID == "" {
		return fmt.Errorf("register: submission id required")
	}
	if immediateHint != nil && immediateHint.State == paperless.TaskSuccess && immediateHint.DocumentID != 0 {
		item.setDocumentID(immediateHint.DocumentID)
		item.State = StateIndexing
		item.Attempts = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.SubmissionID]; exists {
		return fmt.Errorf("register: submission %q already tracked", item.SubmissionID)
	}
	r.items[item.SubmissionID] = item
	return nil
}

// Remove deletes the entry and reports whether it existed.
func (r *Registry) Remove(submissionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[submissionID]; !ok {
		return false
	}
	delete(r.items, submissionID)
	return true
}

// Get returns the tracked item for the submission ID.
func (r *Registry) Get(submissionID string) (*Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[submissionID]
	return item, ok
}

// All returns a stable snapshot of submission IDs so callers can iterate
// safely while handlers delete entries mid-pass.
func (r *Registry) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked submissions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Clear drops all tracked items.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]*Item)
}
