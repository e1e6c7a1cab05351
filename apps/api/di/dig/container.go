package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/iannini25/auxiliosindico-web/apps/api/echo"
	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/board"
	"github.com/iannini25/auxiliosindico-web/core/complaint"
	"github.com/iannini25/auxiliosindico-web/core/identity"
	"github.com/iannini25/auxiliosindico-web/core/residency"
	"github.com/iannini25/auxiliosindico-web/core/suggestion"
	emailsvc "github.com/iannini25/auxiliosindico-web/services/email"
	logsvc "github.com/iannini25/auxiliosindico-web/services/logger"
	"github.com/iannini25/auxiliosindico-web/storage/database"
	sqlxrepos "github.com/iannini25/auxiliosindico-web/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Translator    ut.Translator
	NewAuth       identity.Factory
	ResidencySvc  *residency.Service
	BoardSvc      *board.Service
	SuggestionSvc *suggestion.Service
	ComplaintSvc  *complaint.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Translator:    p.Translator,
		NewAuth:       p.NewAuth,
		ResidencySvc:  p.ResidencySvc,
		BoardSvc:      p.BoardSvc,
		SuggestionSvc: p.SuggestionSvc,
		ComplaintSvc:  p.ComplaintSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewDocumentStore))
	must(c.Provide(sqlxrepos.NewAccountRepository))
	must(c.Provide(identity.NewFactory))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(residency.NewService))
	must(c.Provide(board.NewService))
	must(c.Provide(suggestion.NewService))
	must(c.Provide(complaint.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
