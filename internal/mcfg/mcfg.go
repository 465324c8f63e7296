// Package mcfg implements typed configuration parameters registered against
// an mcmp.Component, and filled from external Sources (command-line flags,
// environment variables).
package mcfg

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/redikeep/redikeep/internal/mcmp"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/merr"
)

// Param is a configuration parameter which can be populated by Populate. A
// Param with name "addr" registered on a Component with Path
// []string{"server"} is settable on the CLI via "--server-addr".
type Param struct {
	Component *mcmp.Component
	Name      string
	Usage     string
	IsBool    bool
	Required  bool

	// Into is unmarshaled into via encoding/json. Its pointed-to value also
	// determines the Param's default.
	Into interface{}
}

// FullName joins the Param's Component path and Name the way SourceCLI
// expects them on the command line.
func (p Param) FullName() string {
	return strings.Join(append(append([]string{}, p.Component.Path()...), p.Name), "-")
}

type paramKey int

func paramsKey() paramKey { return paramKey(0) }

// String registers a string Param on cmp and returns a pointer which will
// hold its value after Populate is called.
func String(cmp *mcmp.Component, name string, opts ...ParamOpt) *string {
	into := new(string)
	add(cmp, Param{Name: name, Into: into}, opts...)
	return into
}

// Int registers an integer Param on cmp and returns a pointer which will
// hold its value after Populate is called.
func Int(cmp *mcmp.Component, name string, opts ...ParamOpt) *int {
	into := new(int)
	add(cmp, Param{Name: name, Into: into}, opts...)
	return into
}

// Bool registers a boolean flag Param on cmp and returns a pointer which
// will hold its value after Populate is called.
func Bool(cmp *mcmp.Component, name string, opts ...ParamOpt) *bool {
	into := new(bool)
	add(cmp, Param{Name: name, IsBool: true, Into: into}, opts...)
	return into
}

// ParamOpt adjusts a Param's fields before it's registered.
type ParamOpt func(*Param)

// ParamUsage sets a Param's usage string.
func ParamUsage(usage string) ParamOpt {
	return func(p *Param) { p.Usage = usage }
}

// ParamRequired marks a Param as required; Populate errors if no Source
// supplies a value for it.
func ParamRequired() ParamOpt {
	return func(p *Param) { p.Required = true }
}

// ParamDefaultString sets the default value of a string Param created by
// String.
func ParamDefaultString(s string) ParamOpt {
	return func(p *Param) { *(p.Into.(*string)) = s }
}

// ParamDefaultInt sets the default value of an int Param created by Int.
func ParamDefaultInt(i int) ParamOpt {
	return func(p *Param) { *(p.Into.(*int)) = i }
}

func add(cmp *mcmp.Component, p Param, opts ...ParamOpt) {
	p.Component = cmp
	p.Name = strings.ToLower(p.Name)
	for _, opt := range opts {
		opt(&p)
	}

	params, _ := cmp.Value(paramsKey()).([]Param)
	params = append(params, p)
	cmp.SetValue(paramsKey(), params)
}

func localParams(cmp *mcmp.Component) []Param {
	params, _ := cmp.Value(paramsKey()).([]Param)
	return params
}

// CollectParams gathers all Params registered (via String/Int/Bool) on cmp
// and all of its descendants, sorted by Path then Name.
func CollectParams(cmp *mcmp.Component) []Param {
	var params []Param
	var visit func(*mcmp.Component)
	visit = func(c *mcmp.Component) {
		params = append(params, localParams(c)...)
		for _, child := range c.Children() {
			visit(child)
		}
	}
	visit(cmp)

	sort.SliceStable(params, func(i, j int) bool {
		pi, pj := strings.Join(params[i].Component.Path(), "/"), strings.Join(params[j].Component.Path(), "/")
		if pi != pj {
			return pi < pj
		}
		return params[i].Name < params[j].Name
	})
	return params
}

// ParamValue is a raw value a Source has parsed for a Param, matched up by
// Path and Name during Populate.
type ParamValue struct {
	Path  []string
	Name  string
	Value json.RawMessage
}

// Source supplies ParamValues for Populate to apply to the Params
// registered on a Component tree.
type Source interface {
	Parse(cmp *mcmp.Component) ([]ParamValue, error)
}

func paramValueKey(path []string, name string) string {
	return strings.Join(path, "/") + "#" + name
}

// Populate fills every Param registered on cmp or its descendants using src.
// Later-supplied values (for Sources composed with MultiSource) take
// precedence on conflict. Populate returns an error if a Required Param is
// left unset.
func Populate(cmp *mcmp.Component, src Source) error {
	params := CollectParams(cmp)
	pM := make(map[string]Param, len(params))
	for _, p := range params {
		pM[paramValueKey(p.Component.Path(), p.Name)] = p
	}

	pvs, err := src.Parse(cmp)
	if err != nil {
		return merr.Wrap(err, mctx.Annotated("component", "mcfg"))
	}

	seen := make(map[string]bool, len(pvs))
	for _, pv := range pvs {
		key := paramValueKey(pv.Path, pv.Name)
		p, ok := pM[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(pv.Value, p.Into); err != nil {
			return merr.Wrap(err, mctx.Annotated("param", p.FullName()))
		}
		seen[key] = true
	}

	for key, p := range pM {
		if p.Required && !seen[key] {
			return merr.New("required parameter is not set", mctx.Annotated("param", p.FullName()))
		}
	}

	return nil
}
