// Package dummydb is an in-memory storage backend, used in tests and for local runs without a database.
package dummydb

import (
	"sync"
	"time"

	"github.com/iannini25/auxiliosindico-web/core/docstore"
	"github.com/iannini25/auxiliosindico-web/core/identity"
)

var NowFunc = time.Now // mockable

type (
	DB struct {
		docs     *docTable
		accounts *accountTable
	}

	docKey struct {
		collection string
		id         string
	}

	docRecord struct {
		data      docstore.Data
		version   int64
		createdAt time.Time
		updatedAt time.Time
	}

	docTable struct {
		sync.RWMutex
		table map[docKey]*docRecord
		seq   int64 // last version handed out
	}

	accountTable struct {
		sync.RWMutex
		table map[string]*identity.Account // {id: account}
	}
)

func Open() (*DB, error) {
	db := &DB{
		docs:     &docTable{table: make(map[docKey]*docRecord)},
		accounts: &accountTable{table: make(map[string]*identity.Account)},
	}
	return db, nil
}
