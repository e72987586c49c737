package processors

import (
	"fmt"

	"github.com/allenai/datamap-go/internal/model"
)

// configErr builds a ConfigError naming the offending processor and option.
func configErr(processor, msg string) error {
	return model.NewConfigError(fmt.Sprintf("%s: %s", processor, msg), nil)
}

func requireString(opts map[string]any, processor, key string) (string, error) {
	v, ok := opts[key]
	if !ok {
		return "", configErr(processor, fmt.Sprintf("missing required option %q", key))
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", configErr(processor, fmt.Sprintf("option %q must be a non-empty string", key))
	}
	return s, nil
}

func optString(opts map[string]any, key, def string) string {
	v, ok := opts[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func requireFloat(opts map[string]any, processor, key string) (float64, error) {
	v, ok := opts[key]
	if !ok {
		return 0, configErr(processor, fmt.Sprintf("missing required option %q", key))
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, configErr(processor, fmt.Sprintf("option %q must be a number", key))
	}
	return f, nil
}

func optFloat(opts map[string]any, key string, def float64) float64 {
	v, ok := opts[key]
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return f
}

func optFloatPtr(opts map[string]any, key string) *float64 {
	v, ok := opts[key]
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func optInt(opts map[string]any, key string, def int) int {
	return int(optFloat(opts, key, float64(def)))
}

func optBool(opts map[string]any, key string, def bool) bool {
	v, ok := opts[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func optStringSlice(opts map[string]any, key string) []string {
	v, ok := opts[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// alwaysAllowedOpts are kwargs every processor's options map may carry
// regardless of whether that particular processor reads them. text_field
// is injected into every pipeline step's kwargs by
// internal/config.StepOptions (spec §6's pipeline-wide text_field default),
// so a processor that has no notion of a text field (subsample, add_id,
// rename_modifier, ...) must not reject it as an unknown option.
var alwaysAllowedOpts = map[string]struct{}{
	"text_field": {},
}

// checkUnknownOpts rejects any key in opts that is neither in known nor in
// alwaysAllowedOpts, surfacing spec §4.5/§6's requirement that unknown
// processor options are a ConfigError raised before any writer opens (e.g.
// a typo like "uper" instead of "upper" must fail construction, not be
// silently ignored).
func checkUnknownOpts(opts map[string]any, processor string, known ...string) error {
	allowed := make(map[string]struct{}, len(known))
	for _, k := range known {
		allowed[k] = struct{}{}
	}
	for k := range opts {
		if _, ok := allowed[k]; ok {
			continue
		}
		if _, ok := alwaysAllowedOpts[k]; ok {
			continue
		}
		return configErr(processor, fmt.Sprintf("unknown option %q", k))
	}
	return nil
}
