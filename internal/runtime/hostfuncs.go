package runtime

import (
	"context"
	"log/slog"
	"path"

	"github.com/risor-io/risor/object"
)

// makeBasenameFn creates "basename" over slash-separated specifiers.
//
// basename(specifier) → string
func makeBasenameFn() *object.Builtin {
	return object.NewBuiltin("basename", func(ctx context.Context, args ...object.Object) object.Object {
		s, errObj := stringArg("basename", args)
		if errObj != nil {
			return errObj
		}
		return object.NewString(path.Base(s))
	})
}

// makeDirnameFn creates "dirname".
//
// dirname(specifier) → string
func makeDirnameFn() *object.Builtin {
	return object.NewBuiltin("dirname", func(ctx context.Context, args ...object.Object) object.Object {
		s, errObj := stringArg("dirname", args)
		if errObj != nil {
			return errObj
		}
		return object.NewString(path.Dir(s))
	})
}

func stringArg(name string, args []object.Object) (string, object.Object) {
	if len(args) != 1 {
		return "", object.NewArgsError(name, 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return "", object.Errorf("%s: expected string, got %s", name, args[0].Type())
	}
	return s.Value(), nil
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "script")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "script")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "script")
}
