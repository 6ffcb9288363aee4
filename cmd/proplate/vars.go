package proplate

import (
	"strings"

	"github.com/yumet023/proplate/pkg/errors"
)

// parseVars turns repeated --var name=value flags into request overrides.
// Values stay strings; the manifest decides their kind.
func parseVars(pairs []string) (map[string]interface{}, error) {
	vars := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.Newf(errors.ErrInvalidInput, MsgErrVarFormat, pair)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.Newf(errors.ErrInvalidInput, MsgErrVarEmpty, pair)
		}
		if _, seen := vars[name]; seen {
			return nil, errors.Newf(errors.ErrInvalidInput, MsgErrVarRepeated, name).
				WithDetail("variable", name)
		}
		vars[name] = value
	}
	return vars, nil
}
