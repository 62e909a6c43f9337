// Package source discovers plain-text documents under a directory and decodes
// them to UTF-8, trying a fixed list of legacy encodings in order.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
)

const (
	DefaultMaxFileSize = 10 * 1024 * 1024

	ReasonTooLarge    = "file exceeds size limit"
	ReasonUnreadable  = "file could not be read"
	ReasonUndecodable = "no configured encoding could decode file"
)

// DefaultEncodings is the fallback order used when none is configured.
var DefaultEncodings = []string{"utf-8", "windows-1251", "koi8-r", "iso-8859-1"}

var charmaps = map[string]encoding.Encoding{
	"windows-1251": charmap.Windows1251,
	"koi8-r":       charmap.KOI8R,
	"iso-8859-1":   charmap.ISO8859_1,
}

// Options controls which files are read and how.
type Options struct {
	Extensions  []string
	MaxFileSize int64
	Encodings   []string
	Recursive   bool
}

func DefaultOptions() Options {
	return Options{
		Extensions:  []string{".txt"},
		MaxFileSize: DefaultMaxFileSize,
		Encodings:   DefaultEncodings,
		Recursive:   true,
	}
}

// File is one decoded document. ID is the slash-separated path relative to
// the walked root.
type File struct {
	ID   string
	Text string
}

type decoder struct {
	name string
	enc  encoding.Encoding
}

// Source walks directories. It is safe for concurrent use.
type Source struct {
	opts     Options
	decoders []decoder
	observer observe.Observer
}

func New(opts Options, obs observe.Observer) (*Source, error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".txt"}
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if len(opts.Encodings) == 0 {
		opts.Encodings = DefaultEncodings
	}
	decoders := make([]decoder, 0, len(opts.Encodings))
	for _, name := range opts.Encodings {
		name = strings.ToLower(name)
		if name == "utf-8" {
			decoders = append(decoders, decoder{name: name})
			continue
		}
		enc, ok := charmaps[name]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"unsupported encoding %q", name)
		}
		decoders = append(decoders, decoder{name: name, enc: enc})
	}
	return &Source{
		opts:     opts,
		decoders: decoders,
		observer: observe.OrNop(obs),
	}, nil
}

// Walk calls fn for every readable document under root in lexical path
// order. Skipped files are reported to the observer and do not stop the walk.
// An error returned by fn, or cancellation of ctx, aborts the walk.
func (s *Source) Walk(ctx context.Context, root string, fn func(File) error) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.NotFoundf("directory %s does not exist", root)
		}
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"%s is not a directory", root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return fmt.Errorf("walking %s: %w", root, walkErr)
			}
			s.observer.FileSkipped(path, ReasonUnreadable, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !s.opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.matchesExtension(path) {
			return nil
		}
		file, ok := s.readFile(root, path, d)
		if !ok {
			return nil
		}
		return fn(file)
	})
}

// Collect returns every document under root.
func (s *Source) Collect(ctx context.Context, root string) ([]File, error) {
	var files []File
	err := s.Walk(ctx, root, func(f File) error {
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Source) readFile(root, path string, d fs.DirEntry) (File, bool) {
	info, err := d.Info()
	if err != nil {
		s.observer.FileSkipped(path, ReasonUnreadable, err)
		return File{}, false
	}
	if info.Size() > s.opts.MaxFileSize {
		s.observer.FileSkipped(path, ReasonTooLarge, nil)
		return File{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.observer.FileSkipped(path, ReasonUnreadable, err)
		return File{}, false
	}
	text, ok := s.decode(data)
	if !ok {
		s.observer.FileSkipped(path, ReasonUndecodable, nil)
		return File{}, false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return File{ID: filepath.ToSlash(rel), Text: text}, true
}

func (s *Source) matchesExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range s.opts.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// decode tries each configured encoding in order. A single-byte charset is
// rejected when it maps any input byte to the replacement character.
func (s *Source) decode(data []byte) (string, bool) {
	for _, d := range s.decoders {
		if d.enc == nil {
			if utf8.Valid(data) {
				return strings.TrimPrefix(string(data), "\ufeff"), true
			}
			continue
		}
		out, err := d.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if strings.ContainsRune(string(out), utf8.RuneError) {
			continue
		}
		return string(out), true
	}
	return "", false
}
