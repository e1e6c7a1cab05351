package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core/docstore"
)

var NowFunc = time.Now // mockable

const selectDocument = `SELECT collection, id, data, version, created_at, updated_at FROM documents`

type (
	docRow struct {
		Collection string `db:"collection"`
		ID         string `db:"id"`
		Data       string `db:"data"`
		Version    int64  `db:"version"`
		CreatedAt  int64  `db:"created_at"` // unix nanoseconds, UTC
		UpdatedAt  int64  `db:"updated_at"`
	}

	docKey struct {
		collection string
		id         string
	}

	// documentStore keeps documents as JSON in a single table. Every row carries a version;
	// writes check it so that transactions conflicting with a concurrent writer are retried.
	documentStore struct {
		db *sqlx.DB
	}
)

var _ docstore.Store = (*documentStore)(nil) // interface compliance check

func NewDocumentStore(db *sqlx.DB) docstore.Store {
	return &documentStore{db: db}
}

func (r docRow) document() (docstore.Document, error) {
	data, err := docstore.Decode([]byte(r.Data))
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{
		Collection: r.Collection,
		ID:         r.ID,
		Data:       data,
		CreatedAt:  time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:  time.Unix(0, r.UpdatedAt).UTC(),
	}, nil
}

func nextVersion(prev int64, now time.Time) int64 {
	if v := now.UnixNano(); v > prev {
		return v
	}
	return prev + 1
}

func (s *documentStore) forUpdate() string {
	if s.db.DriverName() == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

// getRow returns sql.ErrNoRows when the document does not exist.
func (s *documentStore) getRow(ctx context.Context, q sqlx.QueryerContext, key docKey, lock bool) (docRow, error) {
	query := selectDocument + ` WHERE collection = ? AND id = ?`
	if lock {
		query += s.forUpdate()
	}
	var row docRow
	err := sqlx.GetContext(ctx, q, &row, s.db.Rebind(query), key.collection, key.id)
	return row, err
}

// put writes one document inside tx. When expected is set, the current version must match it (0: absent).
// It returns the new version of the document.
func (s *documentStore) put(
	ctx context.Context,
	tx *sqlx.Tx,
	key docKey,
	data docstore.Data,
	merge, mustExist bool,
	expected *int64,
) (int64, error) {
	row, err := s.getRow(ctx, tx, key, true)
	found := err == nil
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.Wrap(err, "reading document")
	}

	var curr int64
	if found {
		curr = row.Version
	}
	if expected != nil && *expected != curr {
		return 0, docstore.ErrConflict
	}
	if mustExist && !found {
		return 0, docstore.ErrNotFound
	}

	var existing docstore.Data
	if found && merge {
		if existing, err = docstore.Decode([]byte(row.Data)); err != nil {
			return 0, err
		}
	}
	now := NowFunc().UTC()
	encoded, err := docstore.Encode(docstore.Apply(existing, data, merge, now))
	if err != nil {
		return 0, err
	}
	version := nextVersion(curr, now)

	var res sql.Result
	if found {
		res, err = tx.ExecContext(ctx, s.db.Rebind(
			`UPDATE documents SET data = ?, version = ?, updated_at = ? WHERE collection = ? AND id = ? AND version = ?`),
			string(encoded), version, now.UnixNano(), key.collection, key.id, curr)
	} else {
		res, err = tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO documents (collection, id, data, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (collection, id) DO NOTHING`),
			key.collection, key.id, string(encoded), version, now.UnixNano(), now.UnixNano())
	}
	if err != nil {
		return 0, errors.Wrap(err, "writing document")
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, errors.Wrap(err, "writing document")
	} else if n == 0 {
		return 0, docstore.ErrConflict
	}
	return version, nil
}

func (s *documentStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (s *documentStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.CheckPath(collection, id); err != nil {
		return docstore.Document{}, err
	}
	row, err := s.getRow(ctx, s.db, docKey{collection, id}, false)
	if err != nil {
		if err == sql.ErrNoRows {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, errors.Wrap(err, "selecting document")
	}
	return row.document()
}

func (s *documentStore) write(ctx context.Context, key docKey, data docstore.Data, merge, mustExist bool) error {
	if err := docstore.CheckPath(key.collection, key.id); err != nil {
		return err
	}
	return docstore.RetryOnConflict(ctx, docstore.MaxTxAttempts, func() error {
		return s.withTx(ctx, func(tx *sqlx.Tx) error {
			_, err := s.put(ctx, tx, key, data, merge, mustExist, nil)
			return err
		})
	})
}

func (s *documentStore) Set(ctx context.Context, collection, id string, data docstore.Data, opts ...docstore.SetOption) error {
	return s.write(ctx, docKey{collection, id}, data, docstore.ApplySetOptions(opts).Merge, false)
}

func (s *documentStore) Add(ctx context.Context, collection string, data docstore.Data) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *documentStore) Update(ctx context.Context, collection, id string, data docstore.Data) error {
	return s.write(ctx, docKey{collection, id}, data, true, true)
}

func (s *documentStore) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.CheckPath(collection, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`), collection, id)
	return errors.Wrap(err, "deleting document")
}

func (s *documentStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	var rows []docRow
	query := s.db.Rebind(selectDocument + ` WHERE collection = ? ORDER BY created_at, id`)
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, collection); err != nil {
		return nil, errors.Wrap(err, "selecting documents")
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, r := range rows {
		doc, err := r.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return q.Apply(docs), nil
}

func (s *documentStore) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	return docstore.RetryOnConflict(ctx, docstore.MaxTxAttempts, func() error {
		t := &transaction{store: s, reads: make(map[docKey]int64)}
		if err := fn(ctx, t); err != nil {
			return err
		}
		return t.commit(ctx)
	})
}

type (
	txWrite struct {
		key    docKey
		data   docstore.Data
		merge  bool
		delete bool
	}

	// transaction reads outside of any SQL transaction, then applies its writes in one,
	// checking the versions it read.
	transaction struct {
		store  *documentStore
		reads  map[docKey]int64 // 0: absent
		writes []txWrite
	}
)

var _ docstore.Tx = (*transaction)(nil)

func (t *transaction) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.CheckPath(collection, id); err != nil {
		return docstore.Document{}, err
	}
	if len(t.writes) > 0 {
		return docstore.Document{}, docstore.ErrReadAfterWrite
	}

	key := docKey{collection, id}
	row, err := t.store.getRow(ctx, t.store.db, key, false)
	if err != nil {
		if err == sql.ErrNoRows {
			t.reads[key] = 0
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, errors.Wrap(err, "selecting document")
	}
	t.reads[key] = row.Version
	return row.document()
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

func (t *transaction) commit(ctx context.Context) error {
	return t.store.withTx(ctx, func(tx *sqlx.Tx) error {
		versions := make(map[docKey]int64, len(t.reads))
		for k, v := range t.reads {
			versions[k] = v
		}
		written := make(map[docKey]bool, len(t.writes))

		for _, w := range t.writes {
			var expected *int64
			if v, ok := versions[w.key]; ok {
				expected = &v
			}

			if w.delete {
				if err := t.delete(ctx, tx, w.key, expected); err != nil {
					return err
				}
				versions[w.key] = 0
			} else {
				v, err := t.store.put(ctx, tx, w.key, w.data, w.merge, false, expected)
				if err != nil {
					return err
				}
				versions[w.key] = v
			}
			written[w.key] = true
		}

		// documents only read must still be at the version we saw
		for key, version := range t.reads {
			if written[key] {
				continue
			}
			row, err := t.store.getRow(ctx, tx, key, true)
			var curr int64
			switch {
			case err == nil:
				curr = row.Version
			case err != sql.ErrNoRows:
				return errors.Wrap(err, "checking document version")
			}
			if curr != version {
				return docstore.ErrConflict
			}
		}
		return nil
	})
}

func (t *transaction) delete(ctx context.Context, tx *sqlx.Tx, key docKey, expected *int64) error {
	if expected == nil {
		_, err := tx.ExecContext(ctx, t.store.db.Rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`),
			key.collection, key.id)
		return errors.Wrap(err, "deleting document")
	}

	row, err := t.store.getRow(ctx, tx, key, true)
	var curr int64
	switch {
	case err == nil:
		curr = row.Version
	case err != sql.ErrNoRows:
		return errors.Wrap(err, "checking document version")
	}
	if curr != *expected {
		return docstore.ErrConflict
	}
	if curr == 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx, t.store.db.Rebind(`DELETE FROM documents WHERE collection = ? AND id = ? AND version = ?`),
		key.collection, key.id, curr)
	return errors.Wrap(err, "deleting document")
}
