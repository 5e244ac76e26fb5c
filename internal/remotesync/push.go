package remotesync

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/remote"
)

// runPushes runs one push cycle, then at most one follow-up per batch of
// coalesced triggers, and releases the push flag.
func (o *Orchestrator) runPushes(trigger Trigger) {
	defer o.pushes.Done()
	ctx := context.Background()

	for {
		o.pushCycle(ctx, trigger)

		o.mu.Lock()
		if o.pending && !o.closed {
			o.pending = false
			o.mu.Unlock()
			trigger = TriggerMutation
			continue
		}
		o.pushing = false
		o.mu.Unlock()
		return
	}
}

// pushCycle writes the current collections to the three documents.
func (o *Orchestrator) pushCycle(ctx context.Context, trigger Trigger) {
	o.mu.Lock()
	authFailed, needsProbe := o.authFailed, o.needsProbe
	o.mu.Unlock()

	if authFailed {
		o.logger.Debug("push short-circuited until credentials change",
			logger.String("trigger", trigger.String()))
		o.saveCache(ctx, o.store.Snapshot())
		o.mu.Lock()
		o.setStateLocked(Error, "credentials rejected")
		o.mu.Unlock()
		return
	}

	if needsProbe {
		o.mu.Lock()
		o.setStateLocked(Connecting, "retry after failure")
		o.mu.Unlock()
		if err := o.probe(ctx); err != nil {
			o.pushFailed(ctx, err)
			return
		}
		o.mu.Lock()
		o.needsProbe = false
		o.mu.Unlock()
	}

	o.mu.Lock()
	loaded := o.loaded
	o.mu.Unlock()
	if !loaded {
		push, err := o.recoverLoad(ctx)
		if err != nil {
			o.pushFailed(ctx, err)
			return
		}
		if !push {
			return
		}
	}

	o.mu.Lock()
	o.setStateLocked(Syncing, trigger.String())
	o.mu.Unlock()

	snap := o.store.Snapshot()
	versions := make(map[string]string, len(domain.Documents))
	for _, name := range domain.Documents {
		content, err := snap.EncodeDocument(name)
		if err != nil {
			o.pushFailed(ctx, err)
			return
		}
		token, err := o.pushDocument(ctx, name, content)
		if err != nil {
			o.pushFailed(ctx, err)
			return
		}
		versions[name] = token
	}

	o.saveCache(ctx, snap)

	o.mu.Lock()
	defer o.mu.Unlock()
	maps.Copy(o.status.Versions, versions)
	o.status.LastSyncAt = o.now()
	o.status.LastError = ""
	o.status.Warnings = nil
	o.setStateLocked(Connected, "push completed")
}

// pushDocument reads the version token and writes with it. A conflict is
// retried once with a freshly read token; a second conflict is reported
// as a network failure for this cycle.
func (o *Orchestrator) pushDocument(ctx context.Context, name string, content []byte) (string, error) {
	for attempt := 1; ; attempt++ {
		token, err := o.fetchVersion(ctx, name)
		if err != nil {
			return "", err
		}

		cctx, cancel := o.callContext(ctx)
		newToken, err := o.remote.Write(cctx, name, content, token)
		cancel()
		if err == nil {
			return newToken, nil
		}
		if !errors.Is(err, remote.ErrConflict) {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if attempt >= 2 {
			return "", fmt.Errorf("%w: write %s: conflict persisted after refetch: %v", remote.ErrNetwork, name, err)
		}
		o.logger.Warn("version conflict, refetching token", logger.String("document", name))
	}
}

func (o *Orchestrator) fetchVersion(ctx context.Context, name string) (string, error) {
	ctx, cancel := o.callContext(ctx)
	defer cancel()

	doc, err := o.remote.Fetch(ctx, name)
	switch {
	case err == nil:
		return doc.Version, nil
	case errors.Is(err, remote.ErrNotFound):
		return "", nil
	case errors.Is(err, remote.ErrSerialization):
		// the malformed content is about to be replaced
		return doc.Version, nil
	default:
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}
}

// pushFailed writes the current collections to the cache and enters Error.
func (o *Orchestrator) pushFailed(ctx context.Context, err error) {
	o.logger.Error("push failed", logger.Error(err))
	o.saveCache(ctx, o.store.Snapshot())
	o.markFailed(err)
}
