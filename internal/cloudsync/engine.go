package cloudsync

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"ion-mining-dashboard/internal/store"
)

const (
	// debounceDelay coalesces rapid Save calls per key into one write.
	debounceDelay = 500 * time.Millisecond

	// suppressWindow keeps self-triggered change detection quiet for a
	// short moment after the engine itself writes local state.
	suppressWindow = 100 * time.Millisecond
)

// Engine mirrors the fixed namespace set between the local store and
// the remote per-user document collection without write/read feedback
// loops. One Engine per process; single logical writer per key.
type Engine struct {
	mu sync.Mutex

	ctx     context.Context
	store   *store.Store
	remote  RemoteStore
	auth    AuthProvider
	resolve ConflictPolicy

	debounce  map[string]*time.Timer
	pending   map[string]string
	listeners map[string]func()
	syncing   bool
}

func NewEngine(ctx context.Context, s *store.Store, remote RemoteStore, auth AuthProvider) *Engine {
	return &Engine{
		ctx:       ctx,
		store:     s,
		remote:    remote,
		auth:      auth,
		resolve:   LastWriterWins,
		debounce:  make(map[string]*time.Timer),
		pending:   make(map[string]string),
		listeners: make(map[string]func()),
	}
}

// SetConflictPolicy swaps the resolution policy applied to incoming
// remote changes. Defaults to LastWriterWins.
func (e *Engine) SetConflictPolicy(policy ConflictPolicy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolve = policy
}

// Save schedules a debounced remote write for one key. Repeated calls
// inside the debounce window collapse into a single write carrying the
// latest value. No-op when signed out or the key is unknown.
func (e *Engine) Save(key, data string) {
	uid := e.auth.CurrentUser()
	if uid == "" {
		return
	}
	if _, ok := SyncKeys[key]; !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending[key] = data
	if t, ok := e.debounce[key]; ok {
		t.Stop()
	}
	e.debounce[key] = time.AfterFunc(debounceDelay, func() {
		e.flush(key)
	})
}

// flush performs the deferred remote write with the latest value for
// the key. Failures are logged, not retried; the next mutation's Save
// re-attempts naturally.
func (e *Engine) flush(key string) {
	e.mu.Lock()
	data, ok := e.pending[key]
	delete(e.pending, key)
	delete(e.debounce, key)
	uid := e.auth.CurrentUser()
	e.mu.Unlock()

	if !ok || uid == "" {
		return
	}

	if err := e.remote.Set(e.ctx, uid, key, data); err != nil {
		log.Printf("⚠️ [Sync] Write failed for %s: %v\n", key, err)
	}
}

// Listen subscribes to remote changes for one key and mirrors accepted
// changes into the local store before invoking onRemoteChange with the
// new value. Re-listening on a key first tears down the previous
// subscription. Skipped snapshots: the initial one, locally-pending
// writes, anything arriving inside the suppression window, and payloads
// identical to current local content.
func (e *Engine) Listen(key string, onRemoteChange func(data string)) {
	uid := e.auth.CurrentUser()
	if uid == "" {
		return
	}
	localNS, ok := SyncKeys[key]
	if !ok {
		return
	}

	e.mu.Lock()
	if stop, ok := e.listeners[key]; ok {
		stop()
		delete(e.listeners, key)
	}
	e.mu.Unlock()

	isFirst := true
	stop, err := e.remote.Listen(e.ctx, uid, key, func(snap Snapshot) {
		if isFirst {
			isFirst = false
			return
		}
		if snap.PendingWrite || !snap.Exists {
			return
		}

		e.mu.Lock()
		if e.syncing {
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()

		local, localAt, _, err := e.store.GetRecord(localNS)
		if err != nil {
			log.Printf("⚠️ [Sync] Local read failed for %s: %v\n", key, err)
			return
		}
		if sameDocument(local, snap.Data) {
			return
		}

		winner := e.resolve(
			Record{Data: local, UpdatedAt: localAt},
			Record{Data: snap.Data, UpdatedAt: snap.UpdatedAt},
		)
		if winner.Data == local {
			return
		}

		e.beginSyncWindow()
		if err := e.store.Put(localNS, snap.Data); err != nil {
			log.Printf("⚠️ [Sync] Local write failed for %s: %v\n", key, err)
			return
		}
		if onRemoteChange != nil {
			onRemoteChange(snap.Data)
		}
	})
	if err != nil {
		log.Printf("⚠️ [Sync] Listen failed for %s: %v\n", key, err)
		return
	}

	e.mu.Lock()
	e.listeners[key] = stop
	e.mu.Unlock()
}

// PullAll fetches every remote document for the user and overwrites
// local records unconditionally; the remote side is authoritative right
// after sign-in. An empty remote collection completes with count 0.
func (e *Engine) PullAll(onComplete func(countPulled int)) {
	uid := e.auth.CurrentUser()
	if uid == "" {
		return
	}

	snapshots, err := e.remote.GetAll(e.ctx, uid)
	if err != nil {
		log.Printf("⚠️ [Sync] Pull all failed: %v\n", err)
		if onComplete != nil {
			onComplete(0)
		}
		return
	}

	e.beginSyncWindow()

	pulled := 0
	for key, snap := range snapshots {
		localNS, ok := SyncKeys[key]
		if !ok || !snap.Exists || snap.Data == "" {
			continue
		}
		if err := e.store.Put(localNS, snap.Data); err != nil {
			log.Printf("⚠️ [Sync] Local write failed for %s: %v\n", key, err)
			continue
		}
		pulled++
	}

	if onComplete != nil {
		onComplete(pulled)
	}
}

// PushAll pushes every local namespaced record that exists through the
// debounced Save path, used when local data predates the cloud account.
func (e *Engine) PushAll() {
	for key, localNS := range SyncKeys {
		body, ok, err := e.store.Get(localNS)
		if err != nil || !ok || body == "" {
			continue
		}
		e.Save(key, body)
	}
}

// StopAll tears down every active subscription. Safe to call when none
// exist. Pending debounced writes are left to their timers; a write
// still pending at process exit is lost, matching the source system's
// page-close behavior (open question, deliberately not fixed).
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, stop := range e.listeners {
		stop()
		delete(e.listeners, key)
	}
}

// IsSyncing reports whether a self-triggered-change suppression window
// is currently active.
func (e *Engine) IsSyncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

func (e *Engine) beginSyncWindow() {
	e.mu.Lock()
	e.syncing = true
	e.mu.Unlock()
	time.AfterFunc(suppressWindow, func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	})
}

// sameDocument compares two document bodies, normalizing JSON so that
// formatting or key order differences between the local encoder and the
// remote store do not defeat the idempotence check. Non-JSON bodies
// (the raw currency string) fall back to byte equality.
func sameDocument(local, remote string) bool {
	if local == remote {
		return true
	}
	var a, b interface{}
	if json.Unmarshal([]byte(local), &a) != nil || json.Unmarshal([]byte(remote), &b) != nil {
		return false
	}
	na, err1 := json.Marshal(a)
	nb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(na) == string(nb)
}
