// Package shared wires the notification engine for the command line apps.
package shared

import (
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/calendar"
	"github.com/trezcool/masomo-notify/core/folder"
	"github.com/trezcool/masomo-notify/core/forum"
	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/core/preference"
	"github.com/trezcool/masomo-notify/core/user"
	sqlxrepos "github.com/trezcool/masomo-notify/storage/database/sqlx"
)

// App holds the services of the engine, built once at startup.
type App struct {
	Conf        *core.Config
	Log         core.Logger
	DB          *sqlx.DB
	Translators *core.Translators

	Users          *user.Service
	Notifications  *notification.Service
	Feed           *notification.LiveFeed
	Producer       *notification.Producer
	Registry       *notification.Registry
	Digester       *notification.Digester
	Batch          *notification.Batch
	AutoSubscriber *calendar.AutoSubscriber

	Contexts  *sqlxrepos.ContextNameRepository
	Forums    *sqlxrepos.ForumRepository
	Calendars *sqlxrepos.CalendarRepository
}

// NewTranslators returns the translators with the messages of every package registered.
func NewTranslators(conf *core.Config) (*core.Translators, error) {
	trans := core.NewTranslators(conf.Digest.DefaultLocale)
	for _, msgs := range []core.Messages{notification.Messages, folder.Messages, forum.Messages, calendar.Messages} {
		if err := trans.Register(msgs); err != nil {
			return nil, err
		}
	}
	return trans, nil
}

func New(conf *core.Config, logger core.Logger, db *sqlx.DB, mailer core.EmailService) (*App, error) {
	trans, err := NewTranslators(conf)
	if err != nil {
		return nil, errors.Wrap(err, "loading translations")
	}

	pubs := sqlxrepos.NewPublisherRepository(db)
	subs := sqlxrepos.NewSubscriberRepository(db)
	app := &App{
		Conf:        conf,
		Log:         logger,
		DB:          db,
		Translators: trans,
		Users:       user.NewService(sqlxrepos.NewUserRepository(db), trans),
		Feed:        notification.NewLiveFeed(),
		Contexts:    sqlxrepos.NewContextNameRepository(db),
		Forums:      sqlxrepos.NewForumRepository(db),
		Calendars:   sqlxrepos.NewCalendarRepository(db),
	}
	app.Notifications = notification.NewService(pubs, subs, trans, logger)
	app.Producer = notification.NewProducer(app.Notifications, app.Feed)
	app.AutoSubscriber = calendar.NewAutoSubscriber(app.Notifications, preference.NewStore(sqlxrepos.NewPreferenceRepository(db)))

	titles := notification.Titles{Names: app.Contexts}
	app.Registry = notification.NewRegistry(map[string]notification.Handler{
		folder.ResourceType:   folder.NewHandler(os.DirFS(conf.Folders.Root), titles, conf.FrontendBaseURL),
		forum.ResourceType:    forum.NewHandler(app.Forums, titles, conf.FrontendBaseURL),
		calendar.ResourceType: calendar.NewHandler(app.Calendars, titles, conf.FrontendBaseURL),
	})

	opts := []notification.DigesterOption{notification.WithHandlerTimeout(conf.Digest.HandlerTimeout)}
	if conf.Digest.CacheSize > 0 {
		cache, err := notification.NewLRUCache(conf.Digest.CacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "creating digest cache")
		}
		opts = append(opts, notification.WithCache(cache))
	}
	app.Digester = notification.NewDigester(pubs, app.Registry, trans, logger, opts...)
	app.Batch = notification.NewBatch(subs, app.Notifications, app.Digester, app.Users, mailer, logger, notification.BatchConfig{
		AppName: conf.AppName,
		BaseURL: conf.FrontendBaseURL,
		Workers: conf.Digest.Workers,
	})
	return app, nil
}
