package format

import "github.com/phobologic/japicheck/internal/javasrc"

func init() {
	Formats["java"] = &Format{
		Name:       "java",
		Extensions: []string{".java"},
		Decode:     javasrc.DecodeContext,
	}
}
