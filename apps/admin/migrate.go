package main

import (
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	appfs "github.com/trezcool/classbook/fs"
	"github.com/trezcool/classbook/storage/database"
)

var gooseRunFunc = goose.Run // mockable

var errNoSQLDatabase = errors.New("migrations only apply to the postgres engine")

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	return gooseRunFunc(args[0], cli.db, database.MigrationsDir, args[1:]...)
}
