package log

import (
	"log/slog"
	"time"
)

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func StepID[T ~string](id T) slog.Attr {
	return slog.String("step_id", string(id))
}

func Capability[T ~string](name T) slog.Attr {
	return slog.String("capability", string(name))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Flow(name string) slog.Attr {
	return slog.String("flow", name)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func Route(path string) slog.Attr {
	return slog.String("route", path)
}

func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

func Elapsed(d time.Duration) slog.Attr {
	return slog.Duration("elapsed", d)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
