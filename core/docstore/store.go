// Package docstore defines a small document database contract: collections of JSON-like documents with point reads,
// merge writes, simple queries and multi-document atomic transactions.
package docstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound       = errors.New("document not found")
	ErrConflict       = errors.New("transaction conflict")
	ErrReadAfterWrite = errors.New("transaction reads must happen before writes")
	ErrInvalidPath    = errors.New("collection and document id are required")

	// MaxTxAttempts is the number of times a transaction function runs before giving up on conflicts.
	MaxTxAttempts = 5
)

type (
	// Data is the content of a document. Values are JSON-like: string, json.Number, bool, nil,
	// []interface{} and map[string]interface{}. Times are stored as RFC 3339 strings.
	Data map[string]interface{}

	Document struct {
		Collection string
		ID         string
		Data       Data
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	SetOption func(*SetOptions)

	SetOptions struct {
		Merge bool
	}

	// TxFunc is run by Store.RunTransaction; it may be run several times when other writers interfere.
	TxFunc func(ctx context.Context, tx Tx) error

	Tx interface {
		Get(ctx context.Context, collection, id string) (Document, error)
		Set(ctx context.Context, collection, id string, data Data, opts ...SetOption) error
		Delete(ctx context.Context, collection, id string) error
	}

	Store interface {
		// Get returns ErrNotFound when the document does not exist.
		Get(ctx context.Context, collection, id string) (Document, error)
		// Set creates or replaces a document; with Merge, top-level fields are merged into the existing ones.
		Set(ctx context.Context, collection, id string, data Data, opts ...SetOption) error
		// Add creates a document with a generated id.
		Add(ctx context.Context, collection string, data Data) (string, error)
		// Update merges data into an existing document; ErrNotFound if it does not exist.
		Update(ctx context.Context, collection, id string, data Data) error
		Delete(ctx context.Context, collection, id string) error
		Query(ctx context.Context, collection string, q Query) ([]Document, error)
		// RunTransaction runs fn atomically: either all its writes are applied or none.
		// Conflicting concurrent writes make fn run again, up to MaxTxAttempts times.
		RunTransaction(ctx context.Context, fn TxFunc) error
	}
)

// Merge makes Set merge the given fields into the existing document instead of replacing it.
func Merge() SetOption {
	return func(o *SetOptions) { o.Merge = true }
}

func ApplySetOptions(opts []SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CheckPath validates a document address.
func CheckPath(collection, id string) error {
	if collection == "" || id == "" {
		return ErrInvalidPath
	}
	return nil
}

// RetryOnConflict runs fn until it succeeds, fails with anything other than ErrConflict,
// or `attempts` runs were made.
func RetryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(); !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return errors.Wrapf(err, "giving up after %d attempts", attempts)
}
