package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
	"github.com/iannini25/auxiliosindico-web/core/identity"
	"github.com/iannini25/auxiliosindico-web/storage/database"
	dummydb "github.com/iannini25/auxiliosindico-web/storage/database/dummy"
)

// PrepareDB opens a migrated in-memory sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(core.NewTestConfig())
	require.NoError(t, err, "opening database")
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db), "migrating database")
	return db
}

// OpenDummyDB returns the in-memory backends.
func OpenDummyDB(t *testing.T) (docstore.Store, identity.AccountRepository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return dummydb.NewDocumentStore(db), dummydb.NewAccountRepository(db)
}

// UseDummyClock makes the in-memory store stamp writes with now until the test ends.
func UseDummyClock(t *testing.T, now func() time.Time) {
	t.Helper()
	orig := dummydb.NowFunc
	dummydb.NowFunc = now
	t.Cleanup(func() { dummydb.NowFunc = orig })
}

// Clock returns a clock that moves forward by step on every reading, starting at start.
func Clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

// NewValidate returns a validator with the core validators and translations registered.
func NewValidate() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate, translator
}

// CreateAccount stores an account directly, bypassing the secret policy of identity.Client.
func CreateAccount(t *testing.T, repo identity.AccountRepository, email, secret string) identity.Account {
	t.Helper()
	acc := identity.Account{ID: email + "-id", Email: email}
	require.NoError(t, acc.SetSecret(secret))
	acc, err := repo.CreateAccount(context.Background(), acc)
	require.NoError(t, err, "creating account")
	return acc
}

// SetDoc writes a document or fails the test.
func SetDoc(t *testing.T, store docstore.Store, collection, id string, data docstore.Data) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), collection, id, data))
}

// GetDoc reads a document or fails the test.
func GetDoc(t *testing.T, store docstore.Store, collection, id string) docstore.Document {
	t.Helper()
	doc, err := store.Get(context.Background(), collection, id)
	require.NoError(t, err, "getting %s/%s", collection, id)
	return doc
}

// Logger records messages, for assertions on logged-and-swallowed errors.
type Logger struct {
	mu   sync.Mutex
	Msgs []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(msg string) {
	l.mu.Lock()
	l.Msgs = append(l.Msgs, msg)
	l.mu.Unlock()
}

func (l *Logger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Msgs...)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log(msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log(msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log(msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log(msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log(msg) }
