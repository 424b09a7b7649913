package testsupport

import (
	"testing"

	"docwatch/internal/config"
	"docwatch/internal/store"
)

// MustOpenStore opens a snapshot store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}
