package format

import (
	"context"

	"github.com/phobologic/japicheck/internal/classfile"
	"github.com/phobologic/japicheck/internal/model"
)

func init() {
	Formats["class"] = &Format{
		Name:       "class",
		Extensions: []string{".class"},
		Decode:     decodeClass,
	}
}

func decodeClass(_ context.Context, data []byte) ([]*model.Type, error) {
	t, err := classfile.Decode(data)
	if err != nil {
		return nil, err
	}
	return []*model.Type{t}, nil
}
