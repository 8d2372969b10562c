package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	layercfg "github.com/goliatone/go-layercfg"
)

// Failure records a manifest that could not be loaded.
type Failure struct {
	Path string
	Err  error
}

// Result is the outcome of one scan. Failed manifests are skipped and listed
// in Failures; the catalog holds every manifest that loaded.
type Result struct {
	Catalog  *layercfg.Catalog
	Failures []Failure
}

// Err joins the failures, or returns nil when every manifest loaded.
func (r Result) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithLogger sets the logger used for skipped directories and manifests.
func WithLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency bounds the number of manifests parsed at once.
func WithConcurrency(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.limit = n
		}
	}
}

// Scanner loads layer manifests from search paths.
type Scanner struct {
	logger *slog.Logger
	limit  int
}

// NewScanner returns a scanner that parses up to GOMAXPROCS manifests at once.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		logger: slog.New(slog.DiscardHandler),
		limit:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type manifestJob struct {
	path  string
	entry int
	layer *layercfg.Layer
	err   error
}

// Scan loads every *.json manifest directly inside each path. Directories that
// do not exist are skipped. Each path becomes one catalog source; within a
// type, earlier paths get the higher priority. Only context cancellation and
// catalog construction errors are returned as errors.
func (s *Scanner) Scan(ctx context.Context, paths ...SearchPath) (Result, error) {
	var jobs []*manifestJob
	entries := make([]layercfg.CatalogEntry, len(paths))
	perType := map[layercfg.LayerType]int{}
	for i, sp := range paths {
		source := layercfg.NewSource(sp.Dir, sp.Type)
		source.Priority -= perType[sp.Type]
		perType[sp.Type]++
		entries[i].Source = source

		files, err := manifestFiles(sp.Dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Debug("search path missing", slog.String("dir", sp.Dir))
				continue
			}
			return Result{}, &layercfg.IOError{Op: "list", Path: sp.Dir, Err: err}
		}
		for _, file := range files {
			jobs = append(jobs, &manifestJob{path: file, entry: i})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			job.layer, job.err = layercfg.LoadManifest(job.path, paths[job.entry].Type)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("discovery: scan: %w", err)
	}

	var result Result
	for _, job := range jobs {
		if job.err != nil {
			s.logger.Warn("skipping layer manifest",
				slog.String("path", job.path),
				slog.Any("error", job.err))
			result.Failures = append(result.Failures, Failure{Path: job.path, Err: job.err})
			continue
		}
		entries[job.entry].Layers = append(entries[job.entry].Layers, job.layer)
	}

	catalog, err := layercfg.NewCatalog(entries...)
	if err != nil {
		return Result{}, fmt.Errorf("discovery: catalog: %w", err)
	}
	result.Catalog = catalog
	s.logger.Info("layers discovered",
		slog.Int("paths", len(paths)),
		slog.Int("layers", catalog.Len()),
		slog.Int("failures", len(result.Failures)))
	return result, nil
}

func manifestFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	slices.Sort(files)
	return files, nil
}
