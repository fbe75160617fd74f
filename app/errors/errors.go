package errors

import (
	"errors"
	"log/slog"
	"sort"
)

// Log logs an error using the default slog logger, extracting metadata if it's
// a StructuredError.
func Log(err error) {
	slog.Error(err.Error(), Attrs(err)...)
}

// Attrs returns the slog key/value pairs for the metadata and cause of err, or
// nil if err is not a StructuredError. Keys are sorted, with the cause first.
func Attrs(err error) []any {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		return nil
	}

	args := make([]any, 0, len(serr.metadata)*2+2)

	cause := serr.metadata["cause"]
	if c := serr.Cause(); c != nil {
		cause = c
	}
	if cause != nil {
		args = append(args, "cause", cause)
	}

	keys := make([]string, 0, len(serr.metadata))
	for k := range serr.metadata {
		if k != "cause" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, k, serr.metadata[k])
	}

	return args
}
