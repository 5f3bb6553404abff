package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from attrs.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups the non-nil errors under "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records err under "error". A nil error yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Experiment(name string) slog.Attr {
	return slog.String("experiment", name)
}

func Goal(name string) slog.Attr {
	return slog.String("goal", name)
}

// Session records a session id under "session_id". Only a prefix is kept.
func Session(id string) slog.Attr {
	if len(id) > 8 {
		id = id[:8]
	}
	return slog.String("session_id", id)
}

func Store(kind string) slog.Attr {
	return slog.String("store", kind)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
