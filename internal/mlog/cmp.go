package mlog

import (
	"github.com/redikeep/redikeep/internal/mcmp"
)

type cmpKey int

// SetLogger sets l as the Logger for cmp. Descendant Components pick it up
// via From unless they (or an ancestor closer to them) have their own Logger
// set.
func SetLogger(cmp *mcmp.Component, l *Logger) {
	cmp.SetValue(cmpKey(0), l)
}

// DefaultLogger is returned by From when no Logger has been set on the given
// Component or any of its ancestors.
var DefaultLogger = NewLogger()

// From returns the Logger set (via SetLogger) on cmp or its nearest
// ancestor, with cmp's Path appended as its namespace. If none was ever set,
// DefaultLogger is used as the base.
func From(cmp *mcmp.Component) *Logger {
	base := DefaultLogger
	if l, ok := cmp.InheritedValue(cmpKey(0)); ok {
		base = l.(*Logger)
	}

	l := base
	for _, name := range cmp.Path() {
		l = l.WithNamespace(name)
	}
	return l
}
