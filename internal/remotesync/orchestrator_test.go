package remotesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/cache"
	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/remote"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
)

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, docs DocumentStore, c cache.Cache, mods ...func(*Config)) *Orchestrator {
	t.Helper()
	cfg := Config{
		RequestTimeout: 2 * time.Second,
		SyncInterval:   -1,
		Logger:         logger.Nop(),
		Now:            func() time.Time { return fixedNow },
	}
	for _, mod := range mods {
		mod(&cfg)
	}
	st := state.New(state.WithClock(func() time.Time { return fixedNow }))
	o := New(cfg, st, docs, c)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func initialize(t *testing.T, o *Orchestrator) <-chan Status {
	t.Helper()
	ch, err := o.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return ch
}

// waitIdle blocks until no push is running or queued.
func waitIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		o.mu.Lock()
		busy := o.pushing || o.pending
		o.mu.Unlock()
		if !busy {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("push did not finish in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func nextStatus(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("status channel closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no status received")
	}
	return Status{}
}

func addBookmark(title, url string) func(*state.Store) error {
	return func(s *state.Store) error {
		_, err := s.AddBookmark(domain.Bookmark{Title: title, URL: url})
		return err
	}
}

func remoteBookmarks(t *testing.T, fr *fakeRemote) []domain.Bookmark {
	t.Helper()
	d, ok := fr.doc(domain.BookmarksDocument)
	if !ok {
		t.Fatal("bookmarks.json was never written")
	}
	var out []domain.Bookmark
	if err := json.Unmarshal(d.content, &out); err != nil {
		t.Fatalf("remote bookmarks.json is not valid JSON: %v", err)
	}
	return out
}

func assertCacheMatchesStore(t *testing.T, c cache.Cache, o *Orchestrator) {
	t.Helper()
	cached, found, err := c.Load(context.Background())
	if err != nil || !found {
		t.Fatalf("cache Load() = found %v, err %v", found, err)
	}
	if want := o.Store().Snapshot(); !reflect.DeepEqual(cached, want) {
		t.Errorf("cache = %+v, want %+v", cached, want)
	}
}

func TestInitializeEmptyRemote(t *testing.T) {
	fr := newFakeRemote()
	o := newTestOrchestrator(t, fr, cache.NewMemory())

	ch := initialize(t, o)

	if s := nextStatus(t, ch); s.State != Connecting {
		t.Errorf("first status = %v, want connecting", s.State)
	}
	if s := nextStatus(t, ch); s.State != Connected {
		t.Errorf("second status = %v, want connected", s.State)
	}

	st := o.Status()
	if st.State != Connected || st.LastError != "" || len(st.Warnings) != 0 {
		t.Errorf("Status() = %+v, want clean connected", st)
	}
	if !st.LastSyncAt.Equal(fixedNow) {
		t.Errorf("LastSyncAt = %v, want %v", st.LastSyncAt, fixedNow)
	}
	if snap := o.Store().Snapshot(); !snap.IsEmpty() {
		t.Errorf("store = %+v, want empty", snap)
	}
	if fr.totalWrites() != 0 {
		t.Errorf("writes during load = %d, want 0", fr.totalWrites())
	}
}

func TestInitializeLoadsDocuments(t *testing.T) {
	fr := newFakeRemote()
	fr.put(domain.BookmarksDocument, `[{"id":"1","title":"GitHub","url":"https://github.com","tags":["Code","code"],"dateAdded":"2024-01-01","folderId":"gone"}]`)
	fr.put(domain.FoldersDocument, `[{"id":"2","name":"Work","color":"#EF4444","dateCreated":"2024-01-01"}]`)
	c := cache.NewMemory()
	o := newTestOrchestrator(t, fr, c)

	initialize(t, o)

	snap := o.Store().Snapshot()
	if len(snap.Bookmarks) != 1 || snap.Bookmarks[0].FolderID != domain.DefaultFolderID {
		t.Errorf("bookmarks = %+v, want one bookmark in the default folder", snap.Bookmarks)
	}
	if !reflect.DeepEqual(snap.Bookmarks[0].Tags, []string{"code"}) {
		t.Errorf("tags = %v, want [code]", snap.Bookmarks[0].Tags)
	}
	if len(snap.Notes) != 0 {
		t.Errorf("notes = %+v, want empty", snap.Notes)
	}

	st := o.Status()
	if st.State != Connected {
		t.Fatalf("state = %v, want connected", st.State)
	}
	if _, ok := st.Versions[domain.NotesDocument]; ok {
		t.Error("missing notes.json must not have a version")
	}
	fd, _ := fr.doc(domain.FoldersDocument)
	if st.Versions[domain.FoldersDocument] != fd.version {
		t.Errorf("folders version = %q, want %q", st.Versions[domain.FoldersDocument], fd.version)
	}
	assertCacheMatchesStore(t, c, o)
}

func TestInitializeMalformedDocument(t *testing.T) {
	fr := newFakeRemote()
	fr.put(domain.BookmarksDocument, `[{"id":"1","title":"A","url":"https://a.test","dateAdded":"2024-01-01","folderId":"general"}]`)
	fr.put(domain.NotesDocument, `{broken`)
	o := newTestOrchestrator(t, fr, cache.NewMemory())

	initialize(t, o)

	st := o.Status()
	if st.State != Connected {
		t.Fatalf("state = %v, want connected", st.State)
	}
	if len(st.Warnings) != 1 || !strings.Contains(st.Warnings[0], domain.NotesDocument) {
		t.Errorf("Warnings = %v, want one about notes.json", st.Warnings)
	}
	snap := o.Store().Snapshot()
	if len(snap.Bookmarks) != 1 || len(snap.Notes) != 0 {
		t.Errorf("store = %+v, want bookmarks kept and notes reset", snap)
	}

	// the next push overwrites the malformed document
	_, err := o.Mutate(func(s *state.Store) error {
		_, err := s.AddNote(domain.Note{Title: "fresh"})
		return err
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	waitIdle(t, o)

	st = o.Status()
	if st.State != Connected || len(st.Warnings) != 0 {
		t.Errorf("after push Status() = %+v, want connected without warnings", st)
	}
	d, _ := fr.doc(domain.NotesDocument)
	if !strings.Contains(string(d.content), "fresh") {
		t.Errorf("notes.json = %s, want the new note", d.content)
	}
}

func TestInitializeFallsBackToCache(t *testing.T) {
	tests := []struct {
		name       string
		probeErr   error
		fetchErr   error
		authFailed bool
	}{
		{name: "network failure on probe", probeErr: fmt.Errorf("probe: %w", remote.ErrNetwork)},
		{name: "auth failure on probe", probeErr: &remote.HTTPError{StatusCode: 401, Path: "/repos/o/r"}, authFailed: true},
		{name: "network failure on load", fetchErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := newFakeRemote()
			fr.probeErr = tt.probeErr
			if tt.fetchErr != nil {
				fr.fetchErr[domain.FoldersDocument] = tt.fetchErr
			}
			fr.put(domain.BookmarksDocument, `[]`)

			c := cache.NewMemory()
			cached := domain.Snapshot{
				Bookmarks: []domain.Bookmark{{ID: "5", Title: "Cached", URL: "https://cached.test", Tags: []string{}, DateAdded: "2024-01-10", FolderID: domain.DefaultFolderID}},
				Notes:     []domain.Note{},
				Folders:   []domain.Folder{domain.DefaultFolder("2024-01-10")},
			}
			if err := c.Save(context.Background(), cached); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			o := newTestOrchestrator(t, fr, c)

			initialize(t, o)

			st := o.Status()
			if st.State != Error {
				t.Errorf("state = %v, want error", st.State)
			}
			if st.AuthFailed != tt.authFailed {
				t.Errorf("AuthFailed = %v, want %v", st.AuthFailed, tt.authFailed)
			}
			if st.LastError == "" {
				t.Error("LastError is empty")
			}
			if got := o.Store().Snapshot(); !reflect.DeepEqual(got, cached) {
				t.Errorf("store = %+v, want cached %+v", got, cached)
			}
		})
	}
}

func TestInitializeMisuse(t *testing.T) {
	o := newTestOrchestrator(t, newFakeRemote(), cache.NewMemory())

	if _, err := o.Mutate(addBookmark("X", "https://x.test")); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Mutate() before Initialize error = %v, want ErrNotInitialized", err)
	}
	if o.SyncNow() {
		t.Error("SyncNow() before Initialize = true")
	}

	initialize(t, o)
	if _, err := o.Initialize(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestMutateAddsBookmarkAndPushes(t *testing.T) {
	fr := newFakeRemote()
	c := cache.NewMemory()
	o := newTestOrchestrator(t, fr, c)
	initialize(t, o)

	snap, err := o.Mutate(addBookmark("X", "https://x.test"))
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if len(snap.Bookmarks) != 1 || snap.Bookmarks[0].FolderID != domain.DefaultFolderID {
		t.Fatalf("Mutate() bookmarks = %+v, want one in %q", snap.Bookmarks, domain.DefaultFolderID)
	}
	waitIdle(t, o)

	for _, name := range domain.Documents {
		if n := fr.writeCount(name); n != 1 {
			t.Errorf("%s written %d times, want 1", name, n)
		}
	}
	if got := remoteBookmarks(t, fr); len(got) != 1 || got[0].Title != "X" {
		t.Errorf("remote bookmarks = %+v", got)
	}
	if st := o.Status(); st.State != Connected {
		t.Errorf("state = %v, want connected", st.State)
	}
	assertCacheMatchesStore(t, c, o)
}

func TestMutateErrorDoesNotPush(t *testing.T) {
	fr := newFakeRemote()
	o := newTestOrchestrator(t, fr, cache.NewMemory())
	initialize(t, o)

	_, err := o.Mutate(func(s *state.Store) error {
		_, err := s.AddBookmark(domain.Bookmark{Title: "no url"})
		return err
	})
	if !errors.Is(err, state.ErrInvalid) {
		t.Fatalf("Mutate() error = %v, want ErrInvalid", err)
	}
	waitIdle(t, o)
	if fr.totalWrites() != 0 {
		t.Errorf("writes = %d, want 0", fr.totalWrites())
	}
}

func TestConflictRetrySucceeds(t *testing.T) {
	fr := newFakeRemote()
	o := newTestOrchestrator(t, fr, cache.NewMemory())
	initialize(t, o)
	fr.failWrites(domain.FoldersDocument, fmt.Errorf("write: %w", remote.ErrConflict))

	if _, err := o.Mutate(addBookmark("X", "https://x.test")); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	waitIdle(t, o)

	st := o.Status()
	if st.State != Connected {
		t.Fatalf("state = %v (%s), want connected", st.State, st.LastError)
	}
	if n := fr.writeCount(domain.FoldersDocument); n != 2 {
		t.Errorf("folders.json written %d times, want 2", n)
	}
	d, _ := fr.doc(domain.FoldersDocument)
	if st.Versions[domain.FoldersDocument] != d.version {
		t.Errorf("folders version = %q, want %q", st.Versions[domain.FoldersDocument], d.version)
	}
}

func TestConflictTwiceEndsInError(t *testing.T) {
	fr := newFakeRemote()
	c := cache.NewMemory()
	o := newTestOrchestrator(t, fr, c)
	initialize(t, o)
	conflict := &remote.HTTPError{StatusCode: 409, Path: "folders.json"}
	fr.failWrites(domain.FoldersDocument, conflict, conflict)

	want, err := o.Mutate(addBookmark("X", "https://x.test"))
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	waitIdle(t, o)

	st := o.Status()
	if st.State != Error || st.AuthFailed {
		t.Fatalf("Status() = %+v, want a non-auth error", st)
	}
	if got := o.Store().Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("store changed by failed push: %+v", got)
	}
	assertCacheMatchesStore(t, c, o)

	// a network-class error is retried through a probe on the next trigger
	probes := fr.probes.Load()
	if !o.SyncNow() {
		t.Fatal("SyncNow() = false")
	}
	waitIdle(t, o)
	if got := fr.probes.Load(); got != probes+1 {
		t.Errorf("probes = %d, want %d", got, probes+1)
	}
	if st := o.Status(); st.State != Connected {
		t.Errorf("state = %v, want connected", st.State)
	}
}

func TestAuthFailureShortCircuits(t *testing.T) {
	fr := newFakeRemote()
	c := cache.NewMemory()
	o := newTestOrchestrator(t, fr, c)
	initialize(t, o)
	fr.failWrites(domain.BookmarksDocument, fmt.Errorf("write: %w", remote.ErrAuth))

	want, err := o.Mutate(addBookmark("X", "https://x.test"))
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	waitIdle(t, o)

	st := o.Status()
	if st.State != Error || !st.AuthFailed {
		t.Fatalf("Status() = %+v, want auth error", st)
	}
	if got := o.Store().Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("store changed by failed push: %+v", got)
	}
	assertCacheMatchesStore(t, c, o)

	writes, fetches, probes := fr.totalWrites(), fr.fetches.Load(), fr.probes.Load()
	if _, err := o.Mutate(addBookmark("Y", "https://y.test")); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	waitIdle(t, o)

	if fr.totalWrites() != writes || fr.fetches.Load() != fetches || fr.probes.Load() != probes {
		t.Error("push after auth failure reached the remote store")
	}
	if st := o.Status(); st.State != Error {
		t.Errorf("state = %v, want error", st.State)
	}
	assertCacheMatchesStore(t, c, o)

	if err := o.Reconfigure(remote.Credentials{}); err == nil {
		t.Error("Reconfigure() with invalid credentials error = nil")
	}
	if err := o.Reconfigure(remote.Credentials{Token: "new", Repository: "o/r"}); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}
	waitIdle(t, o)

	st = o.Status()
	if st.State != Connected || st.AuthFailed {
		t.Fatalf("Status() after Reconfigure = %+v, want connected", st)
	}
	if fr.probes.Load() != probes+1 {
		t.Errorf("probes = %d, want %d", fr.probes.Load(), probes+1)
	}
	if got := remoteBookmarks(t, fr); len(got) != 2 {
		t.Errorf("remote bookmarks = %+v, want both local bookmarks", got)
	}
}

func TestNetworkFailureRecovery(t *testing.T) {
	fr := newFakeRemote()
	c := cache.NewMemory()
	o := newTestOrchestrator(t, fr, c)
	initialize(t, o)
	fr.failWrites(domain.NotesDocument, fmt.Errorf("write: %w", remote.ErrNetwork))

	if _, err := o.Mutate(addBookmark("X", "https://x.test")); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	waitIdle(t, o)

	if st := o.Status(); st.State != Error || st.AuthFailed {
		t.Fatalf("Status() = %+v, want network error", st)
	}
	assertCacheMatchesStore(t, c, o)

	// still down: the probe fails and nothing is written
	fr.setProbeErr(remote.ErrNetwork)
	writes := fr.totalWrites()
	o.SyncNow()
	waitIdle(t, o)
	if st := o.Status(); st.State != Error {
		t.Errorf("state = %v, want error while probe fails", st.State)
	}
	if fr.totalWrites() != writes {
		t.Error("push wrote while the probe was failing")
	}

	fr.setProbeErr(nil)
	o.SyncNow()
	waitIdle(t, o)
	st := o.Status()
	if st.State != Connected || st.LastError != "" {
		t.Errorf("Status() = %+v, want connected", st)
	}
	assertCacheMatchesStore(t, c, o)
}

func TestRecoveryAfterStartupFallback(t *testing.T) {
	tests := []struct {
		name        string
		offlineEdit bool
		wantTitles  []string
		wantWrites  bool
	}{
		{name: "remote copy replaces the store", wantTitles: []string{"Remote"}},
		{name: "offline edits win", offlineEdit: true, wantTitles: []string{"Local"}, wantWrites: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := newFakeRemote()
			fr.put(domain.BookmarksDocument, `[{"id":"1","title":"Remote","url":"https://remote.test","tags":[],"dateAdded":"2024-01-01","folderId":"default"}]`)
			before, _ := fr.doc(domain.BookmarksDocument)
			fr.setProbeErr(fmt.Errorf("dial: %w", remote.ErrNetwork))

			c := cache.NewMemory()
			o := newTestOrchestrator(t, fr, c)
			initialize(t, o)

			if st := o.Status(); st.State != Error {
				t.Fatalf("state = %v, want error", st.State)
			}
			if got := o.Store().Snapshot().Bookmarks; len(got) != 0 {
				t.Fatalf("store bookmarks = %+v, want none", got)
			}

			if tt.offlineEdit {
				if _, err := o.Mutate(addBookmark("Local", "https://local.test")); err != nil {
					t.Fatalf("Mutate() error = %v", err)
				}
				waitIdle(t, o)
			}

			fr.setProbeErr(nil)
			o.RequestPush(TriggerTimer)
			waitIdle(t, o)

			st := o.Status()
			if st.State != Connected || st.LastError != "" {
				t.Fatalf("Status() = %+v, want connected", st)
			}

			var titles []string
			for _, b := range o.Store().Snapshot().Bookmarks {
				titles = append(titles, b.Title)
			}
			if !reflect.DeepEqual(titles, tt.wantTitles) {
				t.Errorf("store titles = %v, want %v", titles, tt.wantTitles)
			}

			if tt.wantWrites {
				got := remoteBookmarks(t, fr)
				if len(got) != 1 || got[0].Title != "Local" {
					t.Errorf("remote bookmarks = %+v, want the offline edit", got)
				}
			} else {
				if n := fr.totalWrites(); n != 0 {
					t.Errorf("writes = %d, want 0", n)
				}
				after, _ := fr.doc(domain.BookmarksDocument)
				if !reflect.DeepEqual(after, before) {
					t.Errorf("remote bookmarks.json changed to %s", after.content)
				}
				if st.Versions[domain.BookmarksDocument] != before.version {
					t.Errorf("bookmarks version = %q, want %q", st.Versions[domain.BookmarksDocument], before.version)
				}
			}
			assertCacheMatchesStore(t, c, o)
		})
	}
}

func TestRecoveryLoadFailureKeepsRetrying(t *testing.T) {
	fr := newFakeRemote()
	fr.put(domain.BookmarksDocument, `[]`)
	fr.setProbeErr(fmt.Errorf("dial: %w", remote.ErrNetwork))
	o := newTestOrchestrator(t, fr, cache.NewMemory())
	initialize(t, o)

	fr.setProbeErr(nil)
	fr.mu.Lock()
	fr.fetchErr[domain.NotesDocument] = fmt.Errorf("fetch: %w", remote.ErrNetwork)
	fr.mu.Unlock()
	o.RequestPush(TriggerTimer)
	waitIdle(t, o)

	if st := o.Status(); st.State != Error {
		t.Fatalf("state = %v, want error while the load fails", st.State)
	}
	if n := fr.totalWrites(); n != 0 {
		t.Fatalf("writes = %d, want 0 before the remote documents are read", n)
	}

	fr.mu.Lock()
	delete(fr.fetchErr, domain.NotesDocument)
	fr.mu.Unlock()
	o.RequestPush(TriggerTimer)
	waitIdle(t, o)

	if st := o.Status(); st.State != Connected {
		t.Errorf("state = %v, want connected", st.State)
	}
	if n := fr.totalWrites(); n != 0 {
		t.Errorf("writes = %d, want 0", n)
	}
}

func TestRequestTimeoutIsNetworkFailure(t *testing.T) {
	fr := newFakeRemote()
	gate := make(chan struct{})
	fr.gate = gate
	t.Cleanup(func() { close(gate) })

	o := newTestOrchestrator(t, fr, cache.NewMemory(), func(c *Config) {
		c.RequestTimeout = 30 * time.Millisecond
	})
	initialize(t, o)

	if _, err := o.Mutate(addBookmark("X", "https://x.test")); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	waitIdle(t, o)

	st := o.Status()
	if st.State != Error || st.AuthFailed {
		t.Errorf("Status() = %+v, want network error", st)
	}
}

func TestPushesCoalesceWhileInFlight(t *testing.T) {
	fr := newFakeRemote()
	gate := make(chan struct{})
	fr.gate = gate
	o := newTestOrchestrator(t, fr, cache.NewMemory())
	initialize(t, o)

	if _, err := o.Mutate(addBookmark("A", "https://a.test")); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	select {
	case <-fr.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first push never reached the remote store")
	}

	for _, title := range []string{"B", "C"} {
		if _, err := o.Mutate(addBookmark(title, "https://"+strings.ToLower(title)+".test")); err != nil {
			t.Fatalf("Mutate() error = %v", err)
		}
	}
	if o.SyncNow() {
		t.Error("SyncNow() during a push = true, want skipped")
	}
	close(gate)
	waitIdle(t, o)

	if n := fr.writeCount(domain.BookmarksDocument); n != 2 {
		t.Errorf("bookmarks.json written %d times, want 2", n)
	}
	if got := remoteBookmarks(t, fr); len(got) != 3 {
		t.Errorf("remote bookmarks = %d, want 3", len(got))
	}
	if fr.maxActive.Load() != 1 {
		t.Errorf("max concurrent writes = %d, want 1", fr.maxActive.Load())
	}
}

func TestConcurrentTriggersNeverOverlap(t *testing.T) {
	fr := newFakeRemote()
	fr.delay = time.Millisecond
	o := newTestOrchestrator(t, fr, cache.NewMemory())
	initialize(t, o)

	const n = 16
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.Mutate(addBookmark(fmt.Sprintf("B%d", i), fmt.Sprintf("https://b%d.test", i))); err != nil {
				t.Errorf("Mutate() error = %v", err)
			}
			o.SyncNow()
			o.RequestPush(TriggerTimer)
		}()
	}
	wg.Wait()
	waitIdle(t, o)

	if fr.maxActive.Load() != 1 {
		t.Errorf("max concurrent writes = %d, want 1", fr.maxActive.Load())
	}
	if got := remoteBookmarks(t, fr); len(got) != n {
		t.Errorf("remote bookmarks = %d, want %d", len(got), n)
	}
	if st := o.Status(); st.State != Connected {
		t.Errorf("state = %v, want connected", st.State)
	}
}

func TestBackgroundTimerPushes(t *testing.T) {
	fr := newFakeRemote()
	o := newTestOrchestrator(t, fr, cache.NewMemory(), func(c *Config) {
		c.SyncInterval = 10 * time.Millisecond
	})
	initialize(t, o)

	deadline := time.Now().Add(2 * time.Second)
	for fr.writeCount(domain.BookmarksDocument) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timer never pushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	fr := newFakeRemote()
	o := newTestOrchestrator(t, fr, cache.NewMemory())
	ch := initialize(t, o)

	if err := o.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var last Status
	for s := range ch {
		last = s
	}
	if last.State != Disconnected {
		t.Errorf("last status = %v, want disconnected", last.State)
	}
	if _, err := o.Mutate(addBookmark("X", "https://x.test")); !errors.Is(err, ErrClosed) {
		t.Errorf("Mutate() after Close error = %v, want ErrClosed", err)
	}
	if o.RequestPush(TriggerManual) {
		t.Error("RequestPush() after Close = true")
	}
	if err := o.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	o := newTestOrchestrator(t, newFakeRemote(), cache.NewMemory())
	ch, cancel := o.Subscribe()

	initialize(t, o)
	if s := nextStatus(t, ch); s.State != Connecting {
		t.Errorf("first status = %v, want connecting", s.State)
	}

	cancel()
	cancel()
	for range ch {
	}
}

func TestReconfigureUnsupported(t *testing.T) {
	docs := struct{ DocumentStore }{newFakeRemote()}
	o := newTestOrchestrator(t, docs, cache.NewMemory())
	if err := o.Reconfigure(remote.Credentials{Repository: "o/r"}); !errors.Is(err, ErrReconfigureUnsupported) {
		t.Errorf("Reconfigure() error = %v, want ErrReconfigureUnsupported", err)
	}
}

func TestStateText(t *testing.T) {
	data, err := json.Marshal(Status{State: Syncing})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"state":"syncing"}` {
		t.Errorf("Marshal() = %s", data)
	}
}
