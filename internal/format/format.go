// Package format provides a unit-format registry mapping file extensions
// to the decoders that turn a unit into model types.
package format

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/phobologic/japicheck/internal/model"
)

// Format holds the configuration of a supported unit format.
type Format struct {
	Name       string
	Extensions []string

	// Decode turns one unit into the types it declares. It must be safe for
	// concurrent use.
	Decode func(ctx context.Context, data []byte) ([]*model.Type, error)
}

// Formats maps format names to their configuration.
// Populated by init() functions in per-format files.
var Formats = map[string]*Format{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]*Format
var extensionOnce sync.Once

func getExtensionMap() map[string]*Format {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]*Format)
		for _, f := range Formats {
			for _, ext := range f.Extensions {
				extensionMap[ext] = f
			}
		}
	})
	return extensionMap
}

// ForExtension returns the format for a file extension, or nil if
// unsupported. Matching ignores case.
func ForExtension(ext string) *Format {
	return getExtensionMap()[strings.ToLower(ext)]
}

// Lookup returns the format registered under name.
func Lookup(name string) (*Format, bool) {
	f, ok := Formats[strings.ToLower(name)]
	return f, ok
}

// Names returns the registered format names, sorted.
func Names() []string {
	names := make([]string, 0, len(Formats))
	for n := range Formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
