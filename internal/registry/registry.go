// Package registry holds the process-wide, read-only-after-init mapping
// from a processor name to its Constructor. Grounded on the teacher's
// Ignorer/CompositeIgnorer pattern in internal/discovery (small interfaces,
// constructor functions returning (T, error)), generalized here to a name
// keyed table built once at init time, per the "avoid mutable singletons"
// guidance carried into SPEC_FULL.md.
package registry

import (
	"fmt"
	"sort"

	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/processors"
)

var catalogue = map[string]processors.Constructor{}

// register adds name to the catalogue. It panics on a duplicate name:
// duplicate registration is a programming error caught at init time, not a
// runtime condition callers need to handle.
func register(name string, ctor processors.Constructor) {
	if _, exists := catalogue[name]; exists {
		panic(fmt.Sprintf("registry: duplicate processor name %q", name))
	}
	catalogue[name] = ctor
}

// Construct builds the named processor from opts. An unknown name or a
// constructor error both surface as a ConfigError naming the offending
// processor, per spec §4.5.
func Construct(name string, opts map[string]any) (processors.Processor, error) {
	ctor, ok := catalogue[name]
	if !ok {
		return nil, model.NewConfigError(fmt.Sprintf("unknown processor %q", name), nil)
	}
	return ctor(opts)
}

// Names returns every registered processor name, sorted, for diagnostics
// and help text.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a registered processor.
func Has(name string) bool {
	_, ok := catalogue[name]
	return ok
}
