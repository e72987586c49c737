package config

import (
	"fmt"
	"path/filepath"
	"strings"

	koanf "github.com/knadh/koanf/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/allenai/datamap-go/internal/model"
)

// PipelineConfig is the opaque configuration tree backing the map command.
// Its shape (a pipeline list of named steps with free-form options) is
// owned by that command and its processor constructors, not by this
// package: LoadPipelineConfig only handles source format and produces an
// untyped tree for callers to interrogate with jsonpath-style accessors.
// The discrete-partition and range-partition commands take their settings
// from flags only and do not load a config file.
type PipelineConfig struct {
	k *koanf.Koanf
}

// LoadPipelineConfig reads a YAML or JSON config file (selected by
// extension: ".yaml"/".yml" or ".json") into an opaque tree. A ConfigError
// is returned for an unrecognized extension, a missing file, or malformed
// content.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, model.NewConfigError(
			fmt.Sprintf("unrecognized config extension %q (expected .yaml, .yml or .json)", filepath.Ext(path)),
			nil,
		)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, model.NewConfigError(fmt.Sprintf("loading config %s", path), err)
	}

	return &PipelineConfig{k: k}, nil
}

// Steps returns the raw "pipeline" list as a slice of opaque maps, each one
// a single processor step with at least a "name" key and free-form options.
// Returns a ConfigError if "pipeline" is absent or not a list.
func (c *PipelineConfig) Steps() ([]map[string]any, error) {
	raw := c.k.Get("pipeline")
	if raw == nil {
		return nil, model.NewConfigError(`config is missing required top-level key "pipeline"`, nil)
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, model.NewConfigError(`"pipeline" must be a list of step objects`, nil)
	}

	steps := make([]map[string]any, 0, len(list))
	for i, item := range list {
		step, ok := item.(map[string]any)
		if !ok {
			return nil, model.NewConfigError(fmt.Sprintf("pipeline step %d is not an object", i), nil)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Raw returns the full opaque configuration tree, for callers that need
// keys outside the pipeline-of-steps convention.
func (c *PipelineConfig) Raw() map[string]any {
	return c.k.Raw()
}

// StepName returns the "name" field of a step, identifying which registered
// processor constructor to invoke. Returns a ConfigError if absent or not a
// string.
func StepName(step map[string]any) (string, error) {
	raw, ok := step["name"]
	if !ok {
		return "", model.NewConfigError(`pipeline step is missing required key "name"`, nil)
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return "", model.NewConfigError(`pipeline step "name" must be a non-empty string`, nil)
	}
	return name, nil
}

// StepLabel returns a step's optional "step" label, used for per-step
// statistics naming in map's report (spec §4.6). Falls back to name when
// absent.
func StepLabel(step map[string]any, name string) string {
	raw, ok := step["step"]
	if !ok {
		return name
	}
	if s, ok := raw.(string); ok && s != "" {
		return s
	}
	return name
}

// StepOptions returns a step's "kwargs" sub-tree (or an empty map if
// absent), with textField injected under the "text_field" key whenever the
// step doesn't already set one explicitly. This implements spec §6's
// pipeline-wide default: "text_field: <path> (default text)" applies to
// every step unless a step overrides it in its own kwargs.
func StepOptions(step map[string]any, textField string) (map[string]any, error) {
	opts := map[string]any{}
	if raw, ok := step["kwargs"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, model.NewConfigError(`pipeline step "kwargs" must be an object`, nil)
		}
		for k, v := range m {
			opts[k] = v
		}
	}
	if _, ok := opts["text_field"]; !ok {
		opts["text_field"] = textField
	}
	return opts, nil
}

// TextField returns the top-level "text_field" default (spec §4's Pipeline
// data model: "an optional per-step label" plus a pipeline-wide
// `text_field` path defaulting to "text").
func (c *PipelineConfig) TextField() string {
	if v, ok := c.k.Get("text_field").(string); ok && v != "" {
		return v
	}
	return "text"
}

// ValidateTopLevelKeys rejects any top-level config key not in allowed, per
// spec §6: "Unknown keys at top level are a config error." It must be
// called before Steps()/TextField() are trusted, so a typo'd top-level key
// (e.g. "pipline" instead of "pipeline") fails before any writer opens
// rather than being silently ignored in favor of Steps()'s own "missing
// pipeline" error.
func (c *PipelineConfig) ValidateTopLevelKeys(allowed ...string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = struct{}{}
	}
	for k := range c.k.Raw() {
		if _, ok := allowedSet[k]; !ok {
			return model.NewConfigError(fmt.Sprintf("unknown top-level config key %q", k), nil)
		}
	}
	return nil
}
