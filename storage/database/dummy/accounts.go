package dummydb

import (
	"context"

	"github.com/iannini25/auxiliosindico-web/core/identity"
)

type accountRepository struct {
	db *accountTable
}

var _ identity.AccountRepository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) identity.AccountRepository {
	return &accountRepository{db: db.accounts}
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc identity.Account) (identity.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.table {
		if a.Email == acc.Email {
			return identity.Account{}, identity.ErrEmailExists
		}
	}
	stored := acc
	repo.db.table[acc.ID] = &stored
	return acc, nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, id string) (identity.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acc, ok := repo.db.table[id]; ok {
		return *acc, nil
	}
	return identity.Account{}, identity.ErrAccountNotFound
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, email string) (identity.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acc := range repo.db.table {
		if acc.Email == email {
			return *acc, nil
		}
	}
	return identity.Account{}, identity.ErrAccountNotFound
}

func (repo *accountRepository) DeleteAccount(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return identity.ErrAccountNotFound
	}
	delete(repo.db.table, id)
	return nil
}
