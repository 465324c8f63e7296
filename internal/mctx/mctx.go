// Package mctx provides a small annotation type used to attach structured
// key/value context to log messages and wrapped errors (see mlog and merr).
package mctx

import (
	"fmt"
	"sort"
)

// Annotation is a set of key/value pairs describing the runtime context
// around a log message or error, e.g. a connection's remote address or a
// replica's assigned id. It is a plain map and keeps no insertion order;
// StringSlice gives a key-sorted view.
type Annotation map[string]interface{}

// Annotated builds an Annotation from alternating key/value arguments. It
// panics if an odd number of arguments is given.
func Annotated(kvs ...interface{}) Annotation {
	if len(kvs)%2 != 0 {
		panic("mctx.Annotated called with an odd number of arguments")
	}
	ann := make(Annotation, len(kvs)/2)
	for i := 0; i < len(kvs); i += 2 {
		k := fmt.Sprint(kvs[i])
		ann[k] = kvs[i+1]
	}
	return ann
}

// Merge returns a new Annotation containing the union of all given
// Annotations. Where keys overlap, later Annotations take precedence.
func Merge(anns ...Annotation) Annotation {
	out := make(Annotation)
	for _, ann := range anns {
		for k, v := range ann {
			out[k] = v
		}
	}
	return out
}

// StringSlice formats the Annotation as sorted key/value string tuples,
// suitable for deterministic log output.
func (a Annotation) StringSlice() [][2]string {
	out := make([][2]string, 0, len(a))
	for k, v := range a {
		out = append(out, [2]string{k, fmt.Sprint(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
