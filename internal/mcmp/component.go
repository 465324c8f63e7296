// Package mcmp implements a tree of named Components, each carrying its own
// key/value namespace. Configuration parameters (mcfg), loggers (mlog) and
// lifecycle hooks (mrun) are registered against a *Component rather than
// package-level globals, so that they can all be scoped consistently by path.
package mcmp

import (
	"fmt"
	"sync"
)

// Component describes one named node of a program's component tree. The
// zero value, or new(Component), is a valid root Component.
//
// Methods on Component are safe for concurrent use.
type Component struct {
	l sync.RWMutex

	name     string
	path     []string
	parent   *Component
	children []*Component

	kv map[interface{}]interface{}
}

// Child returns a new child Component of the receiver with the given name.
// The child does not inherit any key/value pairs set on the receiver. It
// panics if a child of that name already exists.
func (c *Component) Child(name string) *Component {
	c.l.Lock()
	defer c.l.Unlock()

	for _, ch := range c.children {
		if ch.name == name {
			panic(fmt.Sprintf("mcmp: child %q already exists under %q", name, c.path))
		}
	}

	path := make([]string, len(c.path), len(c.path)+1)
	copy(path, c.path)
	path = append(path, name)

	child := &Component{name: name, path: path, parent: c}
	c.children = append(c.children, child)
	return child
}

// Children returns the direct children of the receiver, in the order they
// were created.
func (c *Component) Children() []*Component {
	c.l.RLock()
	defer c.l.RUnlock()
	out := make([]*Component, len(c.children))
	copy(out, c.children)
	return out
}

// Path returns the sequence of names from the root Component down to the
// receiver.
func (c *Component) Path() []string {
	c.l.RLock()
	defer c.l.RUnlock()
	out := make([]string, len(c.path))
	copy(out, c.path)
	return out
}

// Name returns the last element of Path, or the empty string for the root.
func (c *Component) Name() string {
	c.l.RLock()
	defer c.l.RUnlock()
	if len(c.path) == 0 {
		return ""
	}
	return c.path[len(c.path)-1]
}

// SetValue sets key to value on the receiver, overwriting any previous value.
func (c *Component) SetValue(key, value interface{}) {
	c.l.Lock()
	defer c.l.Unlock()
	if c.kv == nil {
		c.kv = make(map[interface{}]interface{}, 1)
	}
	c.kv[key] = value
}

// Value returns the value set for key on the receiver specifically (it does
// not look at ancestors), or nil if none was set.
func (c *Component) Value(key interface{}) interface{} {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.kv[key]
}

// InheritedValue returns the value set for key on the receiver, or if none
// was set there, the nearest ancestor which has one. The bool return
// indicates whether any value was found at all.
func (c *Component) InheritedValue(key interface{}) (interface{}, bool) {
	c.l.RLock()
	v, ok := c.kv[key]
	parent := c.parent
	c.l.RUnlock()

	if ok {
		return v, true
	} else if parent == nil {
		return nil, false
	}
	return parent.InheritedValue(key)
}
