package logsvc

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gymhub/contentdesk/core"
)

// entry is a log call's args sorted out.
type entry struct {
	err    error
	scope  *core.Scope
	extras map[string]interface{}
}

// parseArgs sorts out args. Loose strings are read as key/value pairs.
func parseArgs(args []interface{}) entry {
	var e entry
	addExtra := func(k string, v interface{}) {
		if e.extras == nil {
			e.extras = make(map[string]interface{})
		}
		e.extras[k] = v
	}

	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case error:
			if e.err == nil {
				e.err = v
			} else {
				addExtra(fmt.Sprintf("error_%d", i), v.Error())
			}
		case core.Scope:
			if e.scope == nil {
				s := v
				e.scope = &s
			}
		case map[string]interface{}:
			for k, val := range v {
				addExtra(k, val)
			}
		case string:
			if i+1 < len(args) {
				addExtra(v, args[i+1])
				i++
			} else {
				addExtra("detail", v)
			}
		default:
			addExtra(fmt.Sprintf("arg_%d", i), v)
		}
	}
	return e
}

func (e entry) fields() []interface{} {
	kvs := make([]interface{}, 0, 2*len(e.extras)+4)
	if e.err != nil {
		kvs = append(kvs, zap.Error(e.err))
	}
	if e.scope != nil {
		kvs = append(kvs, "gym_id", e.scope.GymID, "admin", e.scope.Admin)
	}
	for k, v := range e.extras {
		kvs = append(kvs, k, v)
	}
	return kvs
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*zapLogger)(nil)

// NewZapLogger adapts l to core.Logger.
func NewZapLogger(l *zap.Logger) core.Logger {
	return &zapLogger{sugar: l.Sugar()}
}

// NewZap builds the process logger: JSON in production, console otherwise.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToUpper(conf.Env) {
	case "PROD", "QA":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if conf.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("app", conf.AppName), zap.String("build", conf.Build)), nil
}

func (l *zapLogger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, parseArgs(args).fields()...)
}

func (l *zapLogger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, parseArgs(args).fields()...)
}

func (l *zapLogger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, parseArgs(args).fields()...)
}

func (l *zapLogger) Error(msg string, args ...interface{}) {
	l.sugar.Errorw(msg, parseArgs(args).fields()...)
}

func (l *zapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, parseArgs(args).fields()...)
}
