package index

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/berkana/internal/storage"
)

// watcherTestEnv sets up a vault, its storage provider and a database.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
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

// startWatch runs Watch until the test ends and records change callbacks.
func startWatch(t *testing.T, root string, store storage.Provider, db *DB) func() []string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var mu sync.Mutex
	var changes []string
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
			mu.Lock()
			changes = append(changes, kind+":"+path)
			mu.Unlock()
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(changes)
	}
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	changes := startWatch(t, root, store, db)

	_ = os.WriteFile(filepath.Join(root, "new.md"), []byte("# New\n\ntext"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		d, err := db.GetDocument("new.md")
		return err == nil && d.Title == "New" && d.BlockCount == 2
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return slices.Contains(changes(), "created:new.md")
	}, "expected created:new.md callback")
}

func TestWatcher_IgnoresNonDocuments(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	changes := startWatch(t, root, store, db)

	_ = os.WriteFile(filepath.Join(root, "notes.txt"), []byte("text"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "marker.md"), []byte("# Marker"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return slices.Contains(changes(), "created:marker.md")
	}, "marker document not indexed")
	for _, c := range changes() {
		if c == "created:notes.txt" || c == "updated:notes.txt" {
			t.Errorf("non-document reported: %s", c)
		}
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	startWatch(t, root, store, db)

	sub := filepath.Join(root, "subdir")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(sub, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("subdir/deep.md")
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	_ = store.Write("del.md", []byte("# Delete Me"))
	if _, err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("del.md"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	changes := startWatch(t, root, store, db)
	_ = os.Remove(filepath.Join(root, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.md")
		return cs == "" && slices.Contains(changes(), "deleted:del.md")
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	_ = store.Write("old.md", []byte("# Rename"))
	if _, err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	startWatch(t, root, store, db)
	_ = os.Rename(filepath.Join(root, "old.md"), filepath.Join(root, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.md")
		newCS, _ := db.GetChecksum("renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
