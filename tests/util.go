package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/core/user"
	logsvc "github.com/trezcool/masomo-notify/services/logger"
	"github.com/trezcool/masomo-notify/storage/database"
)

// NewConfig returns a test configuration backed by an in-memory sqlite database.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:         "Masomo",
		Env:             "TEST",
		TestMode:        true,
		FrontendBaseURL: "https://masomo.test",
		Database:        core.DatabaseConfig{Engine: database.EngineSqlite, Name: ":memory:"},
		Email:           core.EmailConfig{Backend: "console"},
		Digest: core.DigestConfig{
			Workers:        4,
			HandlerTimeout: time.Second,
			CacheSize:      128,
			DefaultLocale:  core.LocaleEnglish,
		},
	}
}

// NewLogger returns a logger that discards everything.
func NewLogger() *logsvc.RollbarLogger {
	std := logrus.New()
	std.SetOutput(io.Discard)
	return logsvc.NewRollbarLogger(std, NewConfig())
}

// NewTranslators returns english-default translators with the notification messages registered.
func NewTranslators(t *testing.T) *core.Translators {
	trans := core.NewTranslators(core.LocaleEnglish)
	if err := trans.Register(notification.Messages); err != nil {
		t.Fatalf("registering messages: %v", err)
	}
	return trans
}

// OpenDB opens a migrated in-memory sqlite database, closed at the end of the test.
func OpenDB(t *testing.T) *sqlx.DB {
	db, err := database.OpenSqlite(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("migrating database: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, repo user.Repository, id int64, name, email, locale string, isActive bool) user.User {
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Locale:    locale,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func Subscribe(t *testing.T, svc *notification.Service, identityID int64, sc notification.SubscriptionContext, data notification.PublisherData) notification.Subscriber {
	sub, err := svc.Subscribe(context.Background(), identityID, sc, data)
	if err != nil {
		t.Fatalf("subscribe() failed: %v", err)
	}
	return sub
}
