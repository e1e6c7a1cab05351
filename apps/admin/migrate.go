package main

import (
	"context"

	"github.com/iannini25/auxiliosindico-web/storage/database"
)

var gooseRunFunc = database.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(context.Background(), args[0], cli.db, args[1:]...)
}
