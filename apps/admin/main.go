package main

import (
	"os"

	"github.com/trezcool/masomo-notify/apps/shared"
	"github.com/trezcool/masomo-notify/core"
	emailsvc "github.com/trezcool/masomo-notify/services/email"
	logsvc "github.com/trezcool/masomo-notify/services/logger"
	"github.com/trezcool/masomo-notify/storage/database"
)

const timeFormat = "2006-01-02 15:04:05"

var logger core.Logger

func main() {
	conf := core.NewConfig()
	rollbarLogger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), conf)
	logger = rollbarLogger
	defer rollbarLogger.Flush()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()

	mailer, err := emailsvc.New(conf)
	errAndDie(err)
	app, err := shared.New(conf, logger, db, mailer)
	errAndDie(err)

	// start CLI
	cli := commandLine{app: app, out: os.Stdout}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		rollbarLogger.Flush()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal("admin setup failed", err)
	}
}
