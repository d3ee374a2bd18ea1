package logsvc

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/user"
)

// RollbarLogger reports to Rollbar (when enabled) and always logs locally through logrus.
type RollbarLogger struct {
	std *logrus.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewStdLogger returns the local logrus logger: text for DEV/TEST, JSON elsewhere.
func NewStdLogger(conf *core.Config) *logrus.Logger {
	std := logrus.New()
	std.SetOutput(os.Stderr)
	if conf.Debug {
		std.SetLevel(logrus.DebugLevel)
	}
	if conf.Env != "DEV" && conf.Env != "TEST" {
		std.SetFormatter(&logrus.JSONFormatter{})
	}
	return std
}

func NewRollbarLogger(std *logrus.Logger, conf *core.Config) *RollbarLogger {
	host, _ := os.Hostname()
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Flush waits for pending Rollbar reports.
func (l RollbarLogger) Flush() {
	rollbar.Wait()
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set the User concerned
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(strconv.FormatInt(usr.ID, 10), usr.Name, usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) entry(args []interface{}) *logrus.Entry {
	entry := logrus.NewEntry(l.std)
	var extra []interface{}
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			entry = entry.WithError(a)
		case map[string]interface{}:
			entry = entry.WithFields(logrus.Fields(a))
		case user.User:
			entry = entry.WithField("user", a.ID)
		default:
			extra = append(extra, arg)
		}
	}
	if len(extra) > 0 {
		entry = entry.WithField("extra", fmt.Sprint(extra...))
	}
	return entry
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.entry(args).Debug(msg)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.entry(args).Info(msg)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.entry(args).Warn(msg)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.entry(args).Error(msg)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.entry(args).Fatal(msg)
}
