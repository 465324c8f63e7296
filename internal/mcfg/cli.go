package mcfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redikeep/redikeep/internal/mcmp"
)

// SourceCLI is a Source which parses a process's command-line arguments.
// Each Param is settable via "--<path-joined-by-dashes>-<name> <value>" (or
// "--name=value"); boolean Params (IsBool) take no value and default to
// true when present.
type SourceCLI struct {
	Args []string
}

// Parse implements the Source interface.
func (cli SourceCLI) Parse(cmp *mcmp.Component) ([]ParamValue, error) {
	params := CollectParams(cmp)
	byFullName := make(map[string]Param, len(params))
	for _, p := range params {
		byFullName[p.FullName()] = p
	}

	var pvs []ParamValue
	args := cli.Args
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument %q, expected a flag beginning with --", arg)
		}
		arg = strings.TrimPrefix(arg, "--")

		name, val, hasVal := strings.Cut(arg, "=")
		p, ok := byFullName[name]
		if !ok {
			return nil, fmt.Errorf("unknown flag --%s", name)
		}

		if p.IsBool {
			if !hasVal {
				val = "true"
			}
		} else if !hasVal {
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("flag --%s requires a value", name)
			}
			val = args[i]
		}

		raw, err := marshalCLIValue(p, val)
		if err != nil {
			return nil, fmt.Errorf("parsing value for --%s: %w", name, err)
		}

		pvs = append(pvs, ParamValue{
			Path:  p.Component.Path(),
			Name:  p.Name,
			Value: raw,
		})
	}

	return pvs, nil
}

func marshalCLIValue(p Param, val string) (json.RawMessage, error) {
	switch p.Into.(type) {
	case *string:
		return json.Marshal(val)
	case *bool:
		return json.Marshal(val == "true")
	default:
		return json.RawMessage(val), nil
	}
}
