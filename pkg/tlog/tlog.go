// Package tlog owns the logging side of a pipeline run: a zap logger
// plus any QA/provenance files opened along the way. Everything is
// acquired through one Run value and released by one Close call, so
// no handle outlives the run on any exit path.
package tlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

type Run struct {
	Log *zap.SugaredLogger

	base *zap.Logger
	dir  string

	mu    sync.Mutex
	files map[string]*os.File
}

// Open sets up the run sink rooted at dir. dir is created if absent.
func Open(dir string, debug bool) (*Run, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("tlog: mkdir %s: %w", dir, err)
	}

	var zl *zap.Logger
	var err error
	if debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("tlog: can't initialize zap logger: %w", err)
	}

	return &Run{
		Log:   zl.Sugar(),
		base:  zl,
		dir:   dir,
		files: map[string]*os.File{},
	}, nil
}

// Sink returns a writer for the named artifact under the run dir,
// opening (and truncating) it on first use. The file stays owned by
// the Run and is closed by Close.
func (r *Run) Sink(name string) (io.Writer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.files[name]; ok {
		return f, nil
	}
	f, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return nil, fmt.Errorf("tlog: create sink %s: %w", name, err)
	}
	r.files[name] = f
	return f, nil
}

// Dir is the directory all sinks are rooted at.
func (r *Run) Dir() string { return r.dir }

// Close flushes the logger and closes every sink opened during the
// run. Safe to defer immediately after Open.
func (r *Run) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.files[name].Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("tlog: close sink %s: %w", name, err)
		}
	}
	r.files = map[string]*os.File{}

	_ = r.base.Sync() // stderr sync is best-effort
	return firstErr
}
