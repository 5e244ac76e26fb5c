package remotesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/remote"
)

type fakeDoc struct {
	content []byte
	version string
}

// fakeRemote is an in-memory DocumentStore with optimistic concurrency.
type fakeRemote struct {
	mu        sync.Mutex
	docs      map[string]fakeDoc
	seq       int
	probeErr  error
	fetchErr  map[string]error
	writeErrs map[string][]error
	writes    []string
	creds     remote.Credentials

	probes  atomic.Int32
	fetches atomic.Int32

	// gate, when set, blocks every Write until it is closed.
	gate    chan struct{}
	started chan string
	delay   time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs:      map[string]fakeDoc{},
		fetchErr:  map[string]error{},
		writeErrs: map[string][]error{},
		started:   make(chan string, 256),
	}
}

func (f *fakeRemote) Probe(context.Context) error {
	f.probes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeErr
}

func (f *fakeRemote) Fetch(_ context.Context, name string) (remote.Document, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErr[name]; err != nil {
		return remote.Document{}, err
	}
	d, ok := f.docs[name]
	if !ok {
		return remote.Document{}, fmt.Errorf("fetch %s: %w", name, remote.ErrNotFound)
	}
	return remote.Document{Name: name, Content: append([]byte(nil), d.content...), Version: d.version}, nil
}

func (f *fakeRemote) Write(ctx context.Context, name string, content []byte, token string) (string, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.maxActive.Load()
		if n <= peak || f.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	select {
	case f.started <- name:
	default:
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, name)
	if errs := f.writeErrs[name]; len(errs) > 0 {
		f.writeErrs[name] = errs[1:]
		if errs[0] != nil {
			return "", errs[0]
		}
	}

	cur, exists := f.docs[name]
	if (exists && cur.version != token) || (!exists && token != "") {
		return "", fmt.Errorf("write %s: %w", name, remote.ErrConflict)
	}
	f.seq++
	v := fmt.Sprintf("v%d", f.seq)
	f.docs[name] = fakeDoc{content: append([]byte(nil), content...), version: v}
	return v, nil
}

func (f *fakeRemote) SetCredentials(creds remote.Credentials) error {
	if creds.Repository == "" {
		return errors.New("repository is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds = creds
	return nil
}

func (f *fakeRemote) put(name, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.docs[name] = fakeDoc{content: []byte(content), version: fmt.Sprintf("v%d", f.seq)}
}

func (f *fakeRemote) doc(name string) (fakeDoc, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[name]
	return d, ok
}

func (f *fakeRemote) setProbeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErr = err
}

func (f *fakeRemote) failWrites(name string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErrs[name] = append(f.writeErrs[name], errs...)
}

func (f *fakeRemote) writeCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.writes {
		if w == name {
			n++
		}
	}
	return n
}

func (f *fakeRemote) totalWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}
