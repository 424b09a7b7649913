package tracker

import (
	"fmt"
	"strings"
	"time"
)

// State represents the lifecycle stage of a tracked submission.
type State string

const (
	StateUploading          State = "uploading"
	StateAwaitingVisibility State = "awaiting_visibility"
	StateIndexing           State = "indexing"
	StateEnrichmentTrigger  State = "enrichment_trigger"
	StateAwaitingEnrichment State = "awaiting_enrichment"
	StateCompleted          State = "completed"
)

var allStates = []State{
	StateUploading,
	StateAwaitingVisibility,
	StateIndexing,
	StateEnrichmentTrigger,
	StateAwaitingEnrichment,
	StateCompleted,
}

var stateOrdinal = func() map[State]int {
	ordinals := make(map[State]int, len(allStates))
	for i, state := range allStates {
		ordinals[state] = i
	}
	return ordinals
}()

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateOrdinal[normalized]
	return normalized, ok
}

// EnrichmentResult captures the AI-added metadata once confirmed. Set at most
// once; immutable after.
type EnrichmentResult struct {
	DocumentID     int64
	Title          string
	Tags           []string
	Correspondent  string
	DocumentType   string
	ContentPreview string
}

// Item is one in-flight submission. The Registry exclusively owns mutation;
// state handlers receive a reference and mutate in place from the scheduler's
// single execution context.
type Item struct {
	SubmissionID  string
	OwnerID       string
	DestinationID string
	DisplayName   string
	SubmittedAt   time.Time
	MatchingToken string

	State      State
	DocumentID int64
	Enriched   bool
	Enrichment *EnrichmentResult

	// Attempts counts ticks spent in the current state; reset on every
	// transition. MaxUploadAttempts is the absolute ceiling guarding the
	// uploading state: an upload task that never finishes must not block
	// forever.
	Attempts          int
	MaxUploadAttempts int
}

// NewItem creates a tracked item in the initial uploading state.
func NewItem(submissionID, ownerID, destinationID, displayName, matchingToken string) *Item {
	return &Item{
		SubmissionID:  submissionID,
		OwnerID:       ownerID,
		DestinationID: destinationID,
		DisplayName:   displayName,
		SubmittedAt:   time.Now().UTC(),
		MatchingToken: matchingToken,
		State:         StateUploading,
	}
}

// transition advances the lifecycle. States only move forward in the defined
// sequence or jump directly to completed; Attempts resets so every cap is a
// per-state budget.
func (i *Item) transition(next State) error {
	if next == i.State {
		return nil
	}
	if next != StateCompleted && stateOrdinal[next] < stateOrdinal[i.State] {
		return fmt.Errorf("illegal state transition %s -> %s", i.State, next)
	}
	i.State = next
	i.Attempts = 0
	return nil
}

// setDocumentID records the resolved upstream document. Set at most once and
// never cleared.
func (i *Item) setDocumentID(id int64) {
	if i.DocumentID == 0 && id != 0 {
		i.DocumentID = id
	}
}

// setEnrichment records the confirmed AI metadata exactly once.
func (i *Item) setEnrichment(result *EnrichmentResult) {
	if i.Enrichment == nil && result != nil {
		i.Enrichment = result
		i.Enriched = true
	}
}
