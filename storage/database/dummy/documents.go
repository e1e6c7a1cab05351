package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iannini25/auxiliosindico-web/core/docstore"
)

type documentStore struct {
	db *docTable
}

var _ docstore.Store = (*documentStore)(nil) // interface compliance check

func NewDocumentStore(db *DB) docstore.Store {
	return &documentStore{db: db.docs}
}

// caller must hold the lock
func (t *docTable) write(key docKey, data docstore.Data, merge bool, now time.Time) error {
	var existing docstore.Data
	rec, ok := t.table[key]
	if ok && merge {
		existing = rec.data
	}
	normalized, err := docstore.Normalize(docstore.Apply(existing, data, merge, now))
	if err != nil {
		return err
	}

	t.seq++
	if !ok {
		rec = &docRecord{createdAt: now}
		t.table[key] = rec
	}
	rec.data = normalized
	rec.version = t.seq
	rec.updatedAt = now
	return nil
}

// caller must hold the lock
func (t *docTable) get(key docKey) (docstore.Document, int64, bool) {
	rec, ok := t.table[key]
	if !ok {
		return docstore.Document{}, 0, false
	}
	// documents are handed out as copies
	data, _ := docstore.Normalize(rec.data)
	return docstore.Document{
		Collection: key.collection,
		ID:         key.id,
		Data:       data,
		CreatedAt:  rec.createdAt,
		UpdatedAt:  rec.updatedAt,
	}, rec.version, true
}

func (s *documentStore) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.CheckPath(collection, id); err != nil {
		return docstore.Document{}, err
	}
	s.db.RLock()
	defer s.db.RUnlock()

	doc, _, ok := s.db.get(docKey{collection, id})
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return doc, nil
}

func (s *documentStore) Set(_ context.Context, collection, id string, data docstore.Data, opts ...docstore.SetOption) error {
	if err := docstore.CheckPath(collection, id); err != nil {
		return err
	}
	s.db.Lock()
	defer s.db.Unlock()
	return s.db.write(docKey{collection, id}, data, docstore.ApplySetOptions(opts).Merge, NowFunc().UTC())
}

func (s *documentStore) Add(ctx context.Context, collection string, data docstore.Data) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *documentStore) Update(_ context.Context, collection, id string, data docstore.Data) error {
	if err := docstore.CheckPath(collection, id); err != nil {
		return err
	}
	s.db.Lock()
	defer s.db.Unlock()

	key := docKey{collection, id}
	if _, ok := s.db.table[key]; !ok {
		return docstore.ErrNotFound
	}
	return s.db.write(key, data, true, NowFunc().UTC())
}

func (s *documentStore) Delete(_ context.Context, collection, id string) error {
	if err := docstore.CheckPath(collection, id); err != nil {
		return err
	}
	s.db.Lock()
	defer s.db.Unlock()
	delete(s.db.table, docKey{collection, id})
	return nil
}

func (s *documentStore) Query(_ context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	docs := make([]docstore.Document, 0)
	for key := range s.db.table {
		if key.collection != collection {
			continue
		}
		doc, _, _ := s.db.get(key)
		docs = append(docs, doc)
	}
	return q.Apply(docs), nil
}

func (s *documentStore) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	return docstore.RetryOnConflict(ctx, docstore.MaxTxAttempts, func() error {
		t := &transaction{db: s.db, reads: make(map[docKey]int64)}
		if err := fn(ctx, t); err != nil {
			return err
		}
		return t.commit()
	})
}

type (
	txWrite struct {
		key    docKey
		data   docstore.Data
		merge  bool
		delete bool
	}

	// transaction records the version of every document it reads; commit fails with
	// docstore.ErrConflict if any of them changed in the meantime.
	transaction struct {
		db     *docTable
		reads  map[docKey]int64 // 0: absent
		writes []txWrite
	}
)

var _ docstore.Tx = (*transaction)(nil)

func (t *transaction) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.CheckPath(collection, id); err != nil {
		return docstore.Document{}, err
	}
	if len(t.writes) > 0 {
		return docstore.Document{}, docstore.ErrReadAfterWrite
	}
	t.db.RLock()
	defer t.db.RUnlock()

	key := docKey{collection, id}
	doc, version, ok := t.db.get(key)
	t.reads[key] = version
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return doc, nil
}

func (t *transaction) Set(_ context.Context, collection, id string, data docstore.Data, opts ...docstore.SetOption) error {
	if err := docstore.CheckPath(collection, id); err != nil {
		return err
	}
	t.writes = append(t.writes, txWrite{key: docKey{collection, id}, data: data, merge: docstore.ApplySetOptions(opts).Merge})
	return nil
}

func (t *transaction) Delete(_ context.Context, collection, id string) error {
	if err := docstore.CheckPath(collection, id); err != nil {
		return err
	}
	t.writes = append(t.writes, txWrite{key: docKey{collection, id}, delete: true})
	return nil
}

func (t *transaction) commit() error {
	t.db.Lock()
	defer t.db.Unlock()

	for key, version := range t.reads {
		var curr int64
		if rec, ok := t.db.table[key]; ok {
			curr = rec.version
		}
		if curr != version {
			return docstore.ErrConflict
		}
	}

	// validate every write before applying any of them
	now := NowFunc().UTC()
	for _, w := range t.writes {
		if w.delete {
			continue
		}
		if _, err := docstore.Encode(docstore.Resolve(w.data, now)); err != nil {
			return err
		}
	}
	for _, w := range t.writes {
		if w.delete {
			delete(t.db.table, w.key)
			continue
		}
		if err := t.db.write(w.key, w.data, w.merge, now); err != nil {
			return err
		}
	}
	return nil
}
