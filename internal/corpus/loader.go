package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	errEmptyFile   = errors.New("empty file")
	errInvalidUTF8 = errors.New("invalid utf-8")
)

// LoadStats counts the outcome of a Load.
type LoadStats struct {
	Loaded  int
	Skipped int
}

// Loader reads a directory tree of .txt passages.
type Loader struct {
	norm    *normalizer.Normalizer
	workers int
	logger  *slog.Logger
}

// NewLoader creates a Loader. workers <= 0 uses GOMAXPROCS.
func NewLoader(norm *normalizer.Normalizer, workers int) *Loader {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Loader{
		norm:    norm,
		workers: workers,
		logger:  slog.Default().With("component", "corpus-loader"),
	}
}

// Load walks root and returns its documents sorted by year descending, then
// by relative path. Unreadable, non-UTF-8 and blank files are skipped. A
// missing root is created and yields an empty corpus.
func (l *Loader) Load(root string) ([]*Document, error) {
	docs, _, err := l.LoadWithStats(root)
	return docs, err
}

// LoadWithStats is Load that also reports how many files were skipped.
func (l *Loader) LoadWithStats(root string) ([]*Document, LoadStats, error) {
	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, LoadStats{}, fmt.Errorf("creating corpus root %s: %w", root, err)
		}
		l.logger.Info("corpus root created", "root", root)
		return []*Document{}, LoadStats{}, nil
	case err != nil:
		return nil, LoadStats{}, fmt.Errorf("stat corpus root %s: %w", root, err)
	case !info.IsDir():
		return nil, LoadStats{}, fmt.Errorf("corpus root %s is not a directory", root)
	}

	paths, skipped := l.listTextFiles(root)

	slots := make([]*Document, len(paths))
	var g errgroup.Group
	g.SetLimit(l.workers)
	for i, rel := range paths {
		g.Go(func() error {
			doc, err := l.loadFile(root, rel)
			if err != nil {
				l.logger.Warn("skipping passage", "path", rel, "error", err)
				return nil
			}
			slots[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]*Document, 0, len(slots))
	for _, d := range slots {
		if d == nil {
			skipped++
			continue
		}
		docs = append(docs, d)
	}
	sortDocuments(docs)

	stats := LoadStats{Loaded: len(docs), Skipped: skipped}
	l.logger.Info("corpus loaded", "root", root, "documents", stats.Loaded, "skipped", stats.Skipped)
	return docs, stats, nil
}

// listTextFiles returns slash-separated paths relative to root, in lexical
// order. Directories that cannot be read are counted and skipped.
func (l *Loader) listTextFiles(root string) ([]string, int) {
	var paths []string
	skipped := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			skipped++
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPassageFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			skipped++
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	return paths, skipped
}

func (l *Loader) loadFile(root, rel string) (*Document, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errInvalidUTF8
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, errEmptyFile
	}
	name := filepath.Base(filepath.FromSlash(rel))
	return &Document{
		Title:    name,
		Path:     rel,
		Year:     ExtractYear(name),
		Category: categoryFor(rel),
		Content:  content,
		Lemmas:   l.norm.Normalize(content),
	}, nil
}

// IsPassageFile reports whether name is a plain-text passage.
func IsPassageFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}

// categoryFor classifies a slash-separated path relative to the root. Files
// in a subdirectory take the top-level directory name verbatim.
func categoryFor(rel string) string {
	if dir, _, nested := strings.Cut(rel, "/"); nested {
		return dir
	}
	return ClassifyFilename(rel)
}

func sortDocuments(docs []*Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Year != docs[j].Year {
			return docs[i].Year > docs[j].Year
		}
		return docs[i].Path < docs[j].Path
	})
}

// Load is a convenience wrapper around NewLoader(norm, 0).Load(root).
func Load(root string, norm *normalizer.Normalizer) ([]*Document, error) {
	return NewLoader(norm, 0).Load(root)
}
