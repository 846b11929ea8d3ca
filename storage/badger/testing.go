package badger

import "testing"

// NewMemoryRepositories opens an in-memory repository set for tests and
// registers cleanup on t.
func NewMemoryRepositories(t *testing.T) *Repositories {
	t.Helper()
	repos, err := OpenRepositories("", true)
	if err != nil {
		t.Fatalf("open in-memory repositories: %v", err)
	}
	t.Cleanup(func() {
		if err := repos.Close(); err != nil {
			t.Errorf("close repositories: %v", err)
		}
	})
	return repos
}
