package manifest

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"path"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/types"
)

// FileNames lists the accepted manifest names in lookup order
var FileNames = []string{"proplate.yaml", "proplate.yml", "meta.json"}

// AuxDirName is a helper directory templates may ship; it is never emitted
const AuxDirName = ".proplate_aux_utils"

// IsReserved reports whether a slash-separated path relative to the template
// root names a manifest, the helper directory or the root .git directory
func IsReserved(rel string) bool {
	if rel == ".git" || rel == AuxDirName {
		return true
	}
	for _, name := range FileNames {
		if rel == name {
			return true
		}
	}
	return false
}

// Options tune Parse and Load
type Options struct {
	// Version is the running proplate version checked against requires.
	// Empty or non-semver versions skip the check.
	Version string
}

// Find returns the name of the manifest at the root of fsys
func Find(fsys fs.FS) (string, error) {
	for _, name := range FileNames {
		info, err := fs.Stat(fsys, name)
		if err == nil && !info.IsDir() {
			return name, nil
		}
		if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return "", errors.IO(err, "stat", name)
		}
	}
	return "", errors.Newf(errors.ErrManifestInvalid,
		"no manifest found (looked for %s)", strings.Join(FileNames, ", "))
}

// Load finds, reads and parses the manifest at the root of fsys.
// It returns the manifest file name alongside.
func Load(fsys fs.FS, opts Options) (*Manifest, string, error) {
	name, err := Find(fsys)
	if err != nil {
		return nil, "", err
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, "", errors.IO(err, "read", name)
	}
	m, err := Parse(data, name, opts)
	if err != nil {
		return nil, "", err
	}
	return m, name, nil
}

// Parse decodes and validates a manifest. name selects the syntax: files
// ending in .json are read as JSON with comments, everything else as YAML.
func Parse(data []byte, name string, opts Options) (*Manifest, error) {
	logger := logging.GetLogger("manifest")

	raw, err := decodeRaw(data, name)
	if err != nil {
		return nil, err
	}
	raw = normalize(raw)

	issues, err := checkSchema(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "manifest schema unavailable")
	}
	if len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, issue := range issues {
			msgs[i] = issue.String()
		}
		return nil, invalid(name, msgs)
	}

	var m Manifest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &m,
		TagName:     "yaml",
		ErrorUnused: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to create manifest decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "manifest %s is invalid", name)
	}

	for i := range m.Variables {
		if m.Variables[i].Kind == "" {
			m.Variables[i].Kind = types.KindString
		}
	}

	if problems := check(&m, opts); len(problems) > 0 {
		return nil, invalid(name, problems)
	}

	logger.Debug().
		Str("id", m.ID).
		Str("file", name).
		Int("variables", len(m.Variables)).
		Int("rules", len(m.Rules)).
		Int("hooks", len(m.Hooks)).
		Msg("Manifest loaded")
	return &m, nil
}

func decodeRaw(data []byte, name string) (interface{}, error) {
	var raw interface{}
	if strings.EqualFold(path.Ext(name), ".json") {
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "manifest %s is not valid JSON", name)
		}
		if err := json.Unmarshal(std, &raw); err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "manifest %s is not valid JSON", name)
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "manifest %s is not valid YAML", name)
	}
	return raw, nil
}

func invalid(name string, problems []string) *errors.ProplateError {
	return errors.Newf(errors.ErrManifestInvalid, "manifest %s is invalid: %s",
		name, strings.Join(problems, "; ")).
		WithDetail("file", name).
		WithDetail("issues", problems)
}

// Marshal renders m as YAML that Parse reads back into an equal manifest
func Marshal(m *Manifest) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to marshal manifest")
	}
	return data, nil
}
