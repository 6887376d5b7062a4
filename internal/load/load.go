// Package load turns an artifact into a model registry: it scans the
// artifact's units, decodes them in parallel and merges the results in scan
// order.
package load

import (
	"context"
	"errors"
	"path"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/japicheck/internal/archive"
	"github.com/phobologic/japicheck/internal/model"
)

// Options configures a load.
type Options struct {
	Scan archive.Options
	// Workers bounds concurrent decodes. Zero means runtime.NumCPU().
	Workers int
	Logger  zerolog.Logger
}

// Stats summarises a load.
type Stats struct {
	Units      int
	Types      int
	Duplicates int
}

type slot struct {
	path  string
	types []*model.Type
}

// Artifact scans and decodes the artifact at path. Any scan or decode
// failure aborts the load; no partial registry is returned.
func Artifact(ctx context.Context, artifact string, opts Options) (*model.Registry, Stats, error) {
	var stats Stats
	seq, err := archive.Scan(artifact, opts.Scan)
	if err != nil {
		return nil, stats, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// Each decode writes only its own slot; slots keeps scan order.
	var slots []*slot
	var scanErr error
	for u, err := range seq {
		if err != nil {
			scanErr = err
			break
		}
		if gctx.Err() != nil {
			break
		}
		s := &slot{path: u.Path}
		slots = append(slots, s)
		g.Go(func() error {
			types, err := u.Format.Decode(gctx, u.Data)
			if err != nil {
				return model.WithPath(err, u.Path)
			}
			if u.Format.Name == "java" {
				for _, t := range types {
					if t.SourceFile() == "" {
						t.SetSourceFile(path.Base(u.Path))
					}
				}
			}
			s.types = types
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if scanErr != nil {
		return nil, stats, scanErr
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	reg := model.NewRegistry()
	for _, s := range slots {
		stats.Units++
		for _, t := range s.types {
			if err := reg.Add(t); err != nil {
				if !errors.Is(err, model.ErrDuplicateType) {
					return nil, stats, err
				}
				stats.Duplicates++
				opts.Logger.Warn().
					Str("artifact", artifact).
					Str("unit", s.path).
					Str("type", t.DisplayName()).
					Msg("duplicate type ignored, first definition wins")
				continue
			}
			stats.Types++
		}
	}
	reg.Link()

	opts.Logger.Debug().
		Str("artifact", artifact).
		Int("units", stats.Units).
		Int("types", stats.Types).
		Int("duplicates", stats.Duplicates).
		Msg("artifact loaded")
	return reg, stats, nil
}
