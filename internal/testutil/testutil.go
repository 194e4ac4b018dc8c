// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/sse"
	"github.com/starford/berkana/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "berkana-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteFiles seeds the vault with path/content pairs.
func WriteFiles(t *testing.T, store storage.Provider, files map[string]string) {
	t.Helper()
	for path, content := range files {
		if err := store.Write(path, []byte(content)); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}
}

// Recorder is a publisher that keeps every event type it sees.
type Recorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *Recorder) Publish(ev sse.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) PublishDocumentEvent(kind, path string) {
	r.Publish(sse.Event{Type: "document." + kind, Data: map[string]string{"path": path}})
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// Has reports whether an event of type typ has been recorded.
func (r *Recorder) Has(typ string) bool {
	return slices.Contains(r.Types(), typ)
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
