package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/jawher/mow.cli"

	"github.com/trezcool/masomo-notify/apps/shared"
	"github.com/trezcool/masomo-notify/core"
	emailsvc "github.com/trezcool/masomo-notify/services/email"
	logsvc "github.com/trezcool/masomo-notify/services/logger"
	"github.com/trezcool/masomo-notify/storage/database"
)

const (
	appName        = "digestd"
	appDescription = "Emails users the digest of what changed in the resources they subscribed to."
	shutdownGrace  = 30 * time.Second
)

func main() {
	conf := core.NewConfig()
	rollbarLogger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), conf)
	defer rollbarLogger.Flush()

	app := cli.App(appName, appDescription)
	migrate := app.Bool(cli.BoolOpt{
		Name:   "migrate",
		Value:  false,
		Desc:   "Apply the database migrations before starting",
		EnvVar: "DIGEST_MIGRATE",
	})

	setup := func() (*shared.App, func()) {
		if err := database.CreateIfNotExist(conf); err != nil {
			rollbarLogger.Fatal("creating database", err)
		}
		db, err := database.Open(conf)
		if err != nil {
			rollbarLogger.Fatal("opening database", err)
		}
		if *migrate {
			if err := database.Migrate(db, "up"); err != nil {
				rollbarLogger.Fatal("migrating database", err)
			}
		}
		mailer, err := emailsvc.New(conf)
		if err != nil {
			rollbarLogger.Fatal("setting up email", err)
		}
		a, err := shared.New(conf, rollbarLogger, db, mailer)
		if err != nil {
			rollbarLogger.Fatal("setting up app", err)
		}
		return a, func() { _ = db.Close() }
	}

	app.Command("run", "Run the digest batch on schedule until interrupted", func(cmd *cli.Cmd) {
		schedule := cmd.String(cli.StringOpt{
			Name:   "schedule",
			Value:  conf.Digest.Schedule,
			Desc:   "Cron schedule of the digest batch (UTC)",
			EnvVar: "DIGEST_SCHEDULE",
		})
		cmd.Action = func() {
			a, closeDB := setup()
			defer closeDB()
			if err := serve(a, *schedule); err != nil && !core.IsShutdown(err) {
				rollbarLogger.Error("digestd stopped", err)
				cli.Exit(1)
			}
		}
	})

	app.Command("once", "Run the digest batch now and exit", func(cmd *cli.Cmd) {
		identity := cmd.Int(cli.IntOpt{
			Name:  "identity",
			Value: 0,
			Desc:  "Only email this user",
		})
		cmd.Action = func() {
			a, closeDB := setup()
			defer closeDB()
			if *identity != 0 {
				fmt.Printf("identity %d: %s\n", *identity, a.Batch.RunIdentity(context.Background(), int64(*identity)))
				return
			}
			report, err := a.Batch.Run(context.Background())
			fmt.Printf("%d identities: %d sent, %d empty, %d skipped, %d failed\n",
				report.Identities, report.Sent, report.Empty, report.Skipped, report.Failed)
			if err != nil {
				rollbarLogger.Error("digest batch failed", err)
				cli.Exit(1)
			}
		}
	})

	if err := app.Run(os.Args); err != nil {
		rollbarLogger.Fatal("digestd", err)
	}
}

// serve runs the scheduler until SIGINT or SIGTERM.
func serve(a *shared.App, schedule string) error {
	s, err := newScheduler(schedule, a.Batch, a.Log)
	if err != nil {
		return err
	}
	s.start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown

	a.Log.Info("digestd shutting down", map[string]interface{}{"signal": sig.String()})
	s.stop(shutdownGrace)
	return core.NewShutdownError("received " + sig.String())
}
