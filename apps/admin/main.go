package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
	logsvc "github.com/trezcool/classbook/services/logger"
	"github.com/trezcool/classbook/storage/database"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	storage, err := database.OpenStorage(conf)
	if err != nil {
		logger.Fatal("setting up database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:     storage.SQL,
		accSvc: account.NewService(storage.Accounts, nil, validate, access.AuthorizeAccountWrite),
	}
	err = cli.run(os.Args)
	if cErr := storage.Close(); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
