package mcfg

import (
	"os"
	"strings"

	"github.com/redikeep/redikeep/internal/mcmp"
)

// SourceEnv is a Source which parses a process's environment variables.
// Each Param is settable via "<PATH_JOINED_BY_UNDERSCORE>_<NAME>", upper-
// cased, with a configurable Prefix (e.g. "REDIKEEP_PORT").
type SourceEnv struct {
	Prefix string
	Getenv func(string) (string, bool)
}

func (env SourceEnv) getenv(key string) (string, bool) {
	if env.Getenv != nil {
		return env.Getenv(key)
	}
	return os.LookupEnv(key)
}

func (env SourceEnv) envName(p Param) string {
	full := strings.ReplaceAll(p.FullName(), "-", "_")
	full = strings.ToUpper(full)
	if env.Prefix == "" {
		return full
	}
	return strings.ToUpper(env.Prefix) + "_" + full
}

// Parse implements the Source interface.
func (env SourceEnv) Parse(cmp *mcmp.Component) ([]ParamValue, error) {
	params := CollectParams(cmp)

	var pvs []ParamValue
	for _, p := range params {
		val, ok := env.getenv(env.envName(p))
		if !ok {
			continue
		}

		raw, err := marshalCLIValue(p, val)
		if err != nil {
			return nil, err
		}

		pvs = append(pvs, ParamValue{
			Path:  p.Component.Path(),
			Name:  p.Name,
			Value: raw,
		})
	}

	return pvs, nil
}

// MultiSource composes multiple Sources, with later Sources' values taking
// precedence over earlier ones for the same Param.
type MultiSource []Source

// Parse implements the Source interface.
func (ms MultiSource) Parse(cmp *mcmp.Component) ([]ParamValue, error) {
	var all []ParamValue
	for _, src := range ms {
		pvs, err := src.Parse(cmp)
		if err != nil {
			return nil, err
		}
		all = append(all, pvs...)
	}
	return all, nil
}
