package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/gymhub/contentdesk/core"
)

// RollbarLogger reports to Rollbar and writes every entry to a zap sink.
type RollbarLogger struct {
	sink core.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(sink core.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{sink: sink}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns args into rollbar's inputs: msg, error and one extras map. The acting gym is the person.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	e := parseArgs(args)
	if e.scope != nil && e.scope.GymID != "" {
		role := "member"
		if e.scope.Admin {
			role = "admin"
		}
		rollbar.SetPerson(e.scope.GymID, role, "")
	} else {
		rollbar.ClearPerson()
	}

	out := []interface{}{msg}
	if e.err != nil {
		out = append(out, e.err)
	}
	if len(e.extras) > 0 {
		out = append(out, e.extras)
	}
	return out
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.sink.Debug(msg, args...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.sink.Info(msg, args...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.sink.Warn(msg, args...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.sink.Error(msg, args...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.sink.Fatal(msg, args...)
}
