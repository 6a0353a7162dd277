package cloudsync

import (
	"context"
	"encoding/json"
	"log"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore backs RemoteStore with a Firestore collection laid out
// as users/{uid}/data/{key}, matching the web dashboard.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firestore client")
	}
	return &FirestoreStore{client: client}, nil
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

func (f *FirestoreStore) docRef(uid, key string) *firestore.DocumentRef {
	return f.client.Collection("users").Doc(uid).Collection("data").Doc(key)
}

// Set writes one document with merge semantics and a server-assigned
// timestamp. JSON bodies are stored structured; non-JSON bodies (the
// raw currency string) are stored as strings.
func (f *FirestoreStore) Set(ctx context.Context, uid, key, data string) error {
	payload := map[string]interface{}{
		"data":      decodeBody(data),
		"updatedAt": firestore.ServerTimestamp,
	}
	_, err := f.docRef(uid, key).Set(ctx, payload, firestore.MergeAll)
	if err != nil {
		return errors.Wrapf(err, "firestore set %s", key)
	}
	return nil
}

// GetAll fetches every document in the user's data collection. A user
// with no cloud data yields an empty map, not an error.
func (f *FirestoreStore) GetAll(ctx context.Context, uid string) (map[string]Snapshot, error) {
	snapshots := make(map[string]Snapshot)

	iter := f.client.Collection("users").Doc(uid).Collection("data").Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "firestore get all")
		}
		snapshots[doc.Ref.ID] = toSnapshot(doc.Ref.ID, doc)
	}
	return snapshots, nil
}

// Listen subscribes to one document. The Go Firestore client delivers
// server-confirmed snapshots only, so PendingWrite is always false
// here; the flag exists for stores that do latency compensation.
func (f *FirestoreStore) Listen(ctx context.Context, uid, key string, fn func(Snapshot)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	snapIter := f.docRef(uid, key).Snapshots(ctx)

	go func() {
		defer snapIter.Stop()
		for {
			doc, err := snapIter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("⚠️ [Sync] Snapshot stream for %s ended: %v\n", key, err)
				}
				return
			}
			fn(toSnapshot(key, doc))
		}
	}()

	return cancel, nil
}

func toSnapshot(key string, doc *firestore.DocumentSnapshot) Snapshot {
	snap := Snapshot{Key: key, Exists: doc.Exists()}
	if !snap.Exists {
		return snap
	}

	snap.UpdatedAt = doc.UpdateTime

	// The server-assigned updatedAt field tracks doc.UpdateTime; the
	// latter is authoritative for conflict resolution.
	fields := doc.Data()
	if raw, ok := fields["data"]; ok {
		if body, ok := encodeBody(raw); ok {
			snap.Data = body
		}
	}
	return snap
}

func decodeBody(data string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return data
	}
	return v
}

func encodeBody(v interface{}) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}
