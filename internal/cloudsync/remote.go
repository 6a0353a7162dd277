package cloudsync

import (
	"context"
	"time"
)

// Snapshot is one delivered state of a remote document.
type Snapshot struct {
	Key       string
	Exists    bool
	Data      string // JSON document body, or a raw string for currency
	UpdatedAt time.Time

	// PendingWrite marks a snapshot that reflects a locally-pending
	// write rather than server-confirmed state. Such snapshots must
	// never be treated as remote changes.
	PendingWrite bool
}

// RemoteStore is the per-user remote document collection: point set
// with merge, full collection get, and change subscription. Documents
// live under one key per namespace.
type RemoteStore interface {
	Set(ctx context.Context, uid, key, data string) error
	GetAll(ctx context.Context, uid string) (map[string]Snapshot, error)

	// Listen subscribes to changes for one key. The first delivered
	// snapshot reflects current state, then incremental updates follow.
	// The returned stop function tears the subscription down and is
	// safe to call more than once.
	Listen(ctx context.Context, uid, key string, fn func(Snapshot)) (stop func(), err error)
}

// AuthProvider exposes the current user identity and auth transitions.
type AuthProvider interface {
	// CurrentUser returns the signed-in user id, or "" when signed out.
	CurrentUser() string
	OnAuthChange(fn func(uid string))
}

// Record pairs a document body with its authoritative timestamp, for
// conflict resolution.
type Record struct {
	Data      string
	UpdatedAt time.Time
}

// ConflictPolicy picks the winner between the local record and an
// incoming remote record. Returning the remote record overwrites local
// state; returning the local record drops the remote change.
type ConflictPolicy func(local, remote Record) Record

// LastWriterWins keeps whichever record carries the newer timestamp,
// wholesale. Concurrent edits inside a document are not merged; this is
// the accepted policy for the dashboard's append-only logs and settings
// objects.
func LastWriterWins(local, remote Record) Record {
	if remote.UpdatedAt.After(local.UpdatedAt) {
		return remote
	}
	return local
}
