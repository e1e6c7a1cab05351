package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/board"
	"github.com/iannini25/auxiliosindico-web/core/residency"
	emailsvc "github.com/iannini25/auxiliosindico-web/services/email"
	logsvc "github.com/iannini25/auxiliosindico-web/services/logger"
	"github.com/iannini25/auxiliosindico-web/storage/database"
	sqlxrepos "github.com/iannini25/auxiliosindico-web/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	rollbarLogger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	rollbarLogger.Enable(!conf.Debug)
	logger = rollbarLogger

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	// set up services
	store := sqlxrepos.NewDocumentStore(db)
	validate := validator.New()
	mailSvc := emailsvc.NewConsoleService(conf, logger) // no emails are sent from here

	// start CLI
	cli := commandLine{
		db:          db,
		residentSvc: residency.NewService(store, mailSvc, logger, validate, conf),
		boardSvc:    board.NewService(store, logger, validate),
		seedTasks:   conf.Board.SeedTasks,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
