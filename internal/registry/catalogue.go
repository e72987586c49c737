package registry

import "github.com/allenai/datamap-go/internal/processors"

func init() {
	for name, ctor := range processors.Catalogue() {
		register(name, ctor)
	}
}
