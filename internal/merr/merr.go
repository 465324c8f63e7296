// Package merr extends the builtin error with embedded annotations (see
// mctx) and a captured stacktrace. As with the standard library, errors.Is
// and errors.As should be used to inspect wrapped errors.
package merr

import (
	"errors"
	"strings"

	"github.com/redikeep/redikeep/internal/mctx"
)

// Error wraps an error with an Annotation and the stacktrace captured at the
// point Wrap or New was called.
type Error struct {
	Err        error
	Ann        mctx.Annotation
	Stacktrace Stacktrace
}

// Error implements the error interface. The message includes the wrapped
// error's text followed by its annotations and a one-line stacktrace
// summary.
func (e Error) Error() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(e.Err.Error()))

	for _, kv := range e.Ann.StringSlice() {
		sb.WriteString("\n\t* ")
		sb.WriteString(kv[0])
		sb.WriteString(": ")
		sb.WriteString(kv[1])
	}
	if line := e.Stacktrace.String(); line != "" {
		sb.WriteString("\n\t* line: ")
		sb.WriteString(line)
	}
	return sb.String()
}

// Unwrap implements the interface assumed by errors.Is/errors.As.
func (e Error) Unwrap() error {
	return e.Err
}

// WrapSkip is like Wrap but allows skipping extra stack frames when capturing
// the stacktrace, for helpers which themselves wrap Wrap.
func WrapSkip(err error, ann mctx.Annotation, skip int) error {
	if err == nil {
		return nil
	}

	var e Error
	if errors.As(err, &e) {
		e.Ann = mctx.Merge(e.Ann, ann)
		return e
	}

	return Error{
		Err:        err,
		Ann:        ann,
		Stacktrace: newStacktrace(skip + 1),
	}
}

// Wrap returns err embedded in an Error carrying ann and a stacktrace. If err
// is already an Error then ann is merged into its existing annotations
// instead of adding another layer. Wrapping nil returns nil.
func Wrap(err error, ann mctx.Annotation) error {
	return WrapSkip(err, ann, 1)
}

// New is a shortcut for Wrap(errors.New(msg), ann).
func New(msg string, ann mctx.Annotation) error {
	return WrapSkip(errors.New(msg), ann, 1)
}
