package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/iannini25/auxiliosindico-web/core/identity"
)

const pgUniqueViolation = "23505"

type (
	accountRow struct {
		ID         string `db:"id"`
		Email      string `db:"email"`
		SecretHash string `db:"secret_hash"`
		CreatedAt  int64  `db:"created_at"` // unix nanoseconds, UTC
	}

	accountRepository struct {
		db *sqlx.DB
	}
)

var _ identity.AccountRepository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) identity.AccountRepository {
	return &accountRepository{db: db}
}

func (r accountRow) account() identity.Account {
	return identity.Account{
		ID:         r.ID,
		Email:      r.Email,
		SecretHash: []byte(r.SecretHash),
		CreatedAt:  time.Unix(0, r.CreatedAt).UTC(),
	}
}

// isUniqueViolation reports whether err is a unique constraint failure, for both supported engines.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc identity.Account) (identity.Account, error) {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(
		`INSERT INTO accounts (id, email, secret_hash, created_at) VALUES (?, ?, ?, ?)`),
		acc.ID, acc.Email, string(acc.SecretHash), acc.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return identity.Account{}, identity.ErrEmailExists
		}
		return identity.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo *accountRepository) get(ctx context.Context, where string, arg interface{}) (identity.Account, error) {
	var row accountRow
	query := repo.db.Rebind(`SELECT id, email, secret_hash, created_at FROM accounts WHERE ` + where + ` = ?`)
	if err := sqlx.GetContext(ctx, repo.db, &row, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return identity.Account{}, identity.ErrAccountNotFound
		}
		return identity.Account{}, errors.Wrap(err, "selecting account")
	}
	return row.account(), nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (identity.Account, error) {
	return repo.get(ctx, "id", id)
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (identity.Account, error) {
	return repo.get(ctx, "email", email)
}

func (repo *accountRepository) DeleteAccount(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting account")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting account")
	} else if n == 0 {
		return identity.ErrAccountNotFound
	}
	return nil
}
