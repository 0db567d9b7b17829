// Package docstore defines the document store every client coordinates
// through: keyed documents, plain last-write-wins updates, and push
// subscriptions that deliver a full snapshot after every mutation. There is
// no compare-and-swap and no versioning; concurrent writers can drop each
// other's updates, and callers are expected to live with that.
package docstore

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("docstore: record not found")

// Snapshot is one delivery to a subscriber. Exists is false when the
// document has been deleted (or never existed); Data is nil in that case.
// Subscribers must treat Data as read-only.
type Snapshot struct {
	Code   string
	Exists bool
	Data   map[string]any
}

// UnsubscribeFunc tears down one subscription. Safe to call more than once.
type UnsubscribeFunc func()

type Store interface {
	// Create stores data under a generated id and returns it.
	Create(ctx context.Context, data map[string]any) (string, error)

	// Set writes the full document, creating it if absent.
	Set(ctx context.Context, code string, data map[string]any) error

	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, code string) (map[string]any, error)

	// Update writes the given fields into an existing document. Field names
	// may use dotted paths ("votes.A"). ErrNotFound if the document is gone.
	Update(ctx context.Context, code string, fields map[string]any) error

	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, code string) error

	// ListAll returns every document keyed by code.
	ListAll(ctx context.Context) (map[string]map[string]any, error)

	// Subscribe registers fn for snapshots of one document. The current
	// state is delivered immediately, then one snapshot per mutation,
	// including the subscriber's own writes. A missing document delivers
	// Exists=false rather than an error.
	Subscribe(ctx context.Context, code string, fn func(Snapshot)) (UnsubscribeFunc, error)
}

// ApplyFields merges a partial update into a document, interpreting dotted
// paths as nested map writes. Intermediate maps are created as needed; a
// non-map intermediate value is overwritten, which is what a last-write-wins
// store does.
func ApplyFields(doc map[string]any, fields map[string]any) {
	for name, value := range fields {
		parts := strings.Split(name, ".")
		target := doc
		for _, part := range parts[:len(parts)-1] {
			next, ok := target[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				target[part] = next
			}
			target = next
		}
		target[parts[len(parts)-1]] = value
	}
}

// DeepCopy clones a JSON-shaped value so stored documents and delivered
// snapshots never alias caller memory.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = DeepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = DeepCopy(e)
		}
		return out
	default:
		return v
	}
}

func CopyDoc(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	return DeepCopy(doc).(map[string]any)
}
