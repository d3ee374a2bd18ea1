package database

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/juju/clock"
	"github.com/juju/retry"
	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite driver (local & tests)

	"github.com/trezcool/masomo-notify/core"
)

// Supported engines
const (
	EnginePostgres = "postgres"
	EngineSqlite   = "sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	sqlx.BindDriver(EngineSqlite, sqlx.QUESTION)
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	if conf.Database.Engine == EngineSqlite {
		return openSqlite(dbName)
	}

	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(conf.Database.Engine, u.String())
}

func openSqlite(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(EngineSqlite, dsn)
	if err != nil {
		return nil, err
	}
	// ":memory:" databases only live within their connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}
	return db, nil
}

// Open opens the application database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	return db, nil
}

// OpenSqlite opens a sqlite database; dsn ":memory:" gives a private in-memory database.
func OpenSqlite(dsn string) (*sqlx.DB, error) {
	return openSqlite(dsn)
}

// ping waits for the database to be ready, doubling the delay between attempts.
func ping(ctx context.Context, db *sqlx.DB) error {
	err := retry.Call(retry.CallArgs{
		Func:        func() error { return db.PingContext(ctx) },
		Attempts:    10,
		Delay:       100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		BackoffFunc: retry.DoubleDelay,
		Clock:       clock.WallClock,
		Stop:        ctx.Done(),
	})
	if err != nil {
		return errors.Wrap(retry.LastError(err), "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, q string, args ...interface{}) (bool, error) {
	var found bool
	if err := db.QueryRowx(db.Rebind(q), args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = ?)", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = ?)", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application user and database (postgres only).
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != EnginePostgres {
		return nil
	}

	// connect as admin
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(context.Background(), db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(appDB, conf)
}

func gooseDialect(db *sqlx.DB) string {
	if db.DriverName() == EngineSqlite {
		return "sqlite3"
	}
	return "postgres"
}

// Migrate runs a goose command ("up", "down", "status", "version", "redo", "reset"...) with the embedded migrations.
func Migrate(db *sqlx.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(gooseDialect(db)); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err := goose.Run(command, db.DB, "migrations", args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
