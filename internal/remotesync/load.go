package remotesync

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/remote"
)

// connect probes the remote side and loads it into the store. On failure
// the store is loaded from the cache instead and the state becomes Error.
func (o *Orchestrator) connect(ctx context.Context) {
	if err := o.probe(ctx); err != nil {
		o.fallBackToCache(ctx, err)
		return
	}

	snap, versions, warnings, err := o.loadAll(ctx)
	if err != nil {
		o.fallBackToCache(ctx, err)
		return
	}

	o.store.Replace(snap)
	o.saveCache(ctx, o.store.Snapshot())

	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = true
	o.status.Versions = versions
	o.status.Warnings = warnings
	o.status.LastSyncAt = o.now()
	o.status.LastError = ""
	o.setStateLocked(Connected, "initial load completed")
	o.logger.Info("loaded remote documents",
		logger.Int("bookmarks", len(snap.Bookmarks)),
		logger.Int("notes", len(snap.Notes)),
		logger.Int("folders", len(snap.Folders)))
}

func (o *Orchestrator) probe(ctx context.Context) error {
	ctx, cancel := o.callContext(ctx)
	defer cancel()
	if err := o.remote.Probe(ctx); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}

type fetchResult struct {
	doc remote.Document
	err error
}

// loadAll fetches the three documents in parallel. A missing document is
// an empty collection and an undecodable one is reset to empty with a
// warning; neither affects the other documents. Any other failure fails
// the whole load.
func (o *Orchestrator) loadAll(ctx context.Context) (domain.Snapshot, map[string]string, []string, error) {
	results := make([]fetchResult, len(domain.Documents))

	var wg sync.WaitGroup
	for i, name := range domain.Documents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := o.callContext(ctx)
			defer cancel()
			doc, err := o.remote.Fetch(cctx, name)
			results[i] = fetchResult{doc: doc, err: err}
		}()
	}
	wg.Wait()

	snap := domain.Snapshot{}.Clone()
	versions := make(map[string]string, len(domain.Documents))
	var warnings []string

	for i, name := range domain.Documents {
		r := results[i]
		if r.err == nil {
			r.err = snap.DecodeDocument(name, r.doc.Content)
			if r.err != nil {
				r.err = fmt.Errorf("%w: %v", remote.ErrSerialization, r.err)
			}
		}

		switch remote.Classify(r.err) {
		case nil:
		case remote.ErrNotFound:
			o.logger.Info("remote document missing, starting empty", logger.String("document", name))
		case remote.ErrSerialization:
			_ = snap.DecodeDocument(name, nil)
			warnings = append(warnings, fmt.Sprintf("%s could not be decoded and was reset to empty", name))
			o.logger.Warn("malformed remote document reset to empty",
				logger.String("document", name),
				logger.Error(r.err))
		default:
			return domain.Snapshot{}, nil, nil, fmt.Errorf("load %s: %w", name, r.err)
		}

		if r.doc.Version != "" {
			versions[name] = r.doc.Version
		}
	}
	return snap, versions, warnings, nil
}

// fallBackToCache enters degraded mode: the cache becomes the source of
// the store until the remote side answers again.
func (o *Orchestrator) fallBackToCache(ctx context.Context, cause error) {
	o.logger.Warn("remote unavailable, loading local cache", logger.Error(cause))

	if o.cache != nil {
		cctx, cancel := o.callContext(ctx)
		snap, found, err := o.cache.Load(cctx)
		cancel()
		switch {
		case err != nil:
			o.logger.Error("failed to read local cache", logger.Error(err))
		case !found:
			o.logger.Info("local cache is empty")
		default:
			o.store.Replace(snap)
			o.logger.Info("loaded local cache",
				logger.Int("bookmarks", len(snap.Bookmarks)),
				logger.Int("notes", len(snap.Notes)),
				logger.Int("folders", len(snap.Folders)))
		}
	}

	rev := o.store.Revision()
	o.mu.Lock()
	o.fallbackRevision = rev
	o.mu.Unlock()

	o.markFailed(cause)
}

// recoverLoad reads the remote documents the first time the remote side
// answers after a startup fallback. Without offline edits the remote
// copy replaces the store and nothing needs pushing. With offline edits
// the local state wins and push is true.
func (o *Orchestrator) recoverLoad(ctx context.Context) (push bool, err error) {
	snap, versions, warnings, err := o.loadAll(ctx)
	if err != nil {
		return false, err
	}

	o.mu.Lock()
	rev := o.fallbackRevision
	o.mu.Unlock()

	if !o.store.ReplaceIfRevision(snap, rev) {
		o.mu.Lock()
		o.loaded = true
		maps.Copy(o.status.Versions, versions)
		o.mu.Unlock()
		o.logger.Warn("local changes made while disconnected replace the remote documents")
		return true, nil
	}

	o.saveCache(ctx, o.store.Snapshot())

	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = true
	maps.Copy(o.status.Versions, versions)
	o.status.Warnings = warnings
	o.status.LastSyncAt = o.now()
	o.status.LastError = ""
	o.setStateLocked(Connected, "remote loaded after recovery")
	o.logger.Info("loaded remote documents after recovery",
		logger.Int("bookmarks", len(snap.Bookmarks)),
		logger.Int("notes", len(snap.Notes)),
		logger.Int("folders", len(snap.Folders)))
	return false, nil
}

// markFailed moves to Error. An authentication failure short-circuits
// every later push until Reconfigure; anything else is retried through a
// probe on the next trigger.
func (o *Orchestrator) markFailed(cause error) {
	kind := remote.Classify(cause)

	o.mu.Lock()
	defer o.mu.Unlock()
	if kind == remote.ErrAuth {
		o.authFailed = true
		o.status.AuthFailed = true
	} else {
		o.needsProbe = true
	}
	o.status.LastError = cause.Error()
	o.setStateLocked(Error, kind.Error())
}
