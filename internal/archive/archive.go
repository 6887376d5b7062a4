// Package archive enumerates the compiled units of an artifact: a zip-family
// archive (jar, war, ear, zip) or a directory tree.
package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zip"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/japicheck/internal/format"
)

var (
	// ErrArtifactUnreadable reports an artifact path that is missing, is
	// neither a directory nor an archive, or cannot be read.
	ErrArtifactUnreadable = errors.New("artifact unreadable")

	// ErrScanConsumed is yielded when a scan sequence is iterated twice.
	ErrScanConsumed = errors.New("archive: scan already consumed")
)

// IgnoreFile is the name of the per-directory exclusion file honoured at the
// root of directory artifacts.
const IgnoreFile = ".japicheckignore"

const defaultMaxUnitSize = 64 << 20 // 64 MiB

// Unit is one compiled unit found in an artifact.
type Unit struct {
	Path   string // slash-separated, relative to the artifact root
	Format *format.Format
	Data   []byte
}

// Options controls which units a scan yields.
type Options struct {
	// Formats restricts the unit formats by name. Empty means all
	// registered formats.
	Formats []string
	// Exclude holds gitignore-syntax patterns matched against unit paths.
	Exclude []string
	// MaxUnitSize bounds a single unit. Zero means 64 MiB.
	MaxUnitSize int64
}

var skipDirs = map[string]struct{}{
	".git": {},
	".hg":  {},
	".svn": {},
}

// Scan validates the artifact at path and returns a lazy sequence over its
// units. The sequence walks the artifact once; a second iteration yields
// ErrScanConsumed. Iteration stops at the first error.
func Scan(artifact string, opts Options) (iter.Seq2[Unit, error], error) {
	info, err := os.Stat(artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactUnreadable, artifact, err)
	}

	formats, err := resolveFormats(opts.Formats)
	if err != nil {
		return nil, err
	}
	s := &scanner{root: artifact, opts: opts, formats: formats}
	if s.opts.MaxUnitSize <= 0 {
		s.opts.MaxUnitSize = defaultMaxUnitSize
	}

	var walk func(yield func(Unit, error) bool)
	switch {
	case info.IsDir():
		patterns := append([]string(nil), opts.Exclude...)
		local, err := readIgnoreFile(filepath.Join(artifact, IgnoreFile))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArtifactUnreadable, artifact, err)
		}
		s.ignore = ignore.CompileIgnoreLines(append(patterns, local...)...)
		walk = s.walkDir
	case info.Mode().IsRegular():
		zr, err := zip.OpenReader(artifact)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: not a directory or archive: %w", ErrArtifactUnreadable, artifact, err)
		}
		zr.Close()
		s.ignore = ignore.CompileIgnoreLines(opts.Exclude...)
		walk = s.walkZip
	default:
		return nil, fmt.Errorf("%w: %s: not a directory or archive", ErrArtifactUnreadable, artifact)
	}

	var consumed atomic.Bool
	return func(yield func(Unit, error) bool) {
		if consumed.Swap(true) {
			yield(Unit{}, ErrScanConsumed)
			return
		}
		walk(yield)
	}, nil
}

func resolveFormats(names []string) (map[*format.Format]bool, error) {
	out := map[*format.Format]bool{}
	if len(names) == 0 {
		for _, f := range format.Formats {
			out[f] = true
		}
		return out, nil
	}
	for _, n := range names {
		f, ok := format.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown unit format %q (known: %s)", n, strings.Join(format.Names(), ", "))
		}
		out[f] = true
	}
	return out, nil
}

func readIgnoreFile(p string) ([]string, error) {
	fh, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var lines []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

type scanner struct {
	root    string
	opts    Options
	formats map[*format.Format]bool
	ignore  *ignore.GitIgnore
}

// accept returns the format of a unit path, or nil when the path is not a
// unit this scan yields.
func (s *scanner) accept(rel string) *format.Format {
	if strings.HasPrefix(rel, "META-INF/versions/") {
		return nil
	}
	base := path.Base(rel)
	if strings.HasPrefix(base, "module-info.") || strings.HasPrefix(base, "package-info.") {
		return nil
	}
	f := format.ForExtension(path.Ext(base))
	if f == nil || !s.formats[f] {
		return nil
	}
	if s.ignore != nil && s.ignore.MatchesPath(rel) {
		return nil
	}
	return f
}

func (s *scanner) walkDir(yield func(Unit, error) bool) {
	err := filepath.WalkDir(s.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && p != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		f := s.accept(rel)
		if f == nil {
			return nil
		}

		data, err := s.readFile(p)
		if err != nil {
			return err
		}
		if !yield(Unit{Path: rel, Format: f, Data: data}, nil) {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		yield(Unit{}, fmt.Errorf("%w: %s: %w", ErrArtifactUnreadable, s.root, err))
	}
}

func (s *scanner) readFile(p string) ([]byte, error) {
	fh, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return s.readLimited(fh)
}

func (s *scanner) walkZip(yield func(Unit, error) bool) {
	zr, err := zip.OpenReader(s.root)
	if err != nil {
		yield(Unit{}, fmt.Errorf("%w: %s: %w", ErrArtifactUnreadable, s.root, err))
		return
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := strings.TrimPrefix(zf.Name, "/")
		f := s.accept(name)
		if f == nil {
			continue
		}
		data, err := s.readEntry(zf)
		if err != nil {
			yield(Unit{}, fmt.Errorf("%w: %s!%s: %w", ErrArtifactUnreadable, s.root, name, err))
			return
		}
		if !yield(Unit{Path: name, Format: f, Data: data}, nil) {
			return
		}
	}
}

func (s *scanner) readEntry(zf *zip.File) ([]byte, error) {
	if zf.UncompressedSize64 > uint64(s.opts.MaxUnitSize) {
		return nil, fmt.Errorf("unit is %d bytes, limit %d", zf.UncompressedSize64, s.opts.MaxUnitSize)
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return s.readLimited(rc)
}

func (s *scanner) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.opts.MaxUnitSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.opts.MaxUnitSize {
		return nil, fmt.Errorf("unit exceeds %d bytes", s.opts.MaxUnitSize)
	}
	return data, nil
}
