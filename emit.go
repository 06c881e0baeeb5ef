package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
)

// defaultCache returns the artifact cache root: MICACHE if set, else
// the platform cache directory.
func defaultCache() string {
	if env := os.Getenv("MICACHE"); env != "" {
		return env
	}

	homeDir, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "mica")
		}
		return filepath.Join(homeDir, "AppData", "Local", "mica")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "mica")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "mica")
		}
		return filepath.Join(homeDir, ".cache", "mica")
	}
}

// emitter writes per-unit .ll artifacts into a source-hash-addressed
// directory under the cache, holding a file lock for the whole build
// so concurrent compiles of the same script do not interleave.
type emitter struct {
	dir     string
	lock    *flock.Flock
	written int
}

func newEmitter(cacheDir, script string, source []byte) (*emitter, error) {
	// Same source, same directory; edits land in a fresh one.
	key := fmt.Sprintf("%016x", xxhash.Sum64(source))
	dir := filepath.Join(cacheDir, script, key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire artifact lock: %w", err)
	}

	return &emitter{dir: dir, lock: lock}, nil
}

// WriteUnit stores one unit's IR as <unit>.ll.
func (e *emitter) WriteUnit(name, text string) error {
	outPath := filepath.Join(e.dir, name+".ll")
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("write IR to %s: %w", outPath, err)
	}
	e.written++
	return nil
}

func (e *emitter) Dir() string { return e.dir }

func (e *emitter) Written() int { return e.written }

func (e *emitter) Close() error {
	return e.lock.Unlock()
}
