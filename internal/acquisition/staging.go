package acquisition

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const (
	globalFile   = "global.grib2.zst"
	regionalFile = "regional.grib2.zst"

	// previousSuffix marks the regional file displaced by a commit in progress.
	previousSuffix = ".prev"
	stagingGlob    = "*.partial"
)

// Files locates the committed pair of run files.
type Files struct {
	Global   string
	Regional string
}

func committedFiles(dir string) Files {
	return Files{
		Global:   filepath.Join(dir, globalFile),
		Regional: filepath.Join(dir, regionalFile),
	}
}

// stagedFile compresses a provider payload into a temporary file that only
// becomes visible under its final name on commit.
type stagedFile struct {
	f   *os.File
	enc *zstd.Encoder
}

func newStagedFile(dir, pattern string) (*stagedFile, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	return &stagedFile{f: f, enc: enc}, nil
}

func (s *stagedFile) Write(p []byte) (int, error) {
	return s.enc.Write(p)
}

func (s *stagedFile) finish() error {
	if err := s.enc.Close(); err != nil {
		s.f.Close()
		return fmt.Errorf("flushing %s: %w", s.f.Name(), err)
	}
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("syncing %s: %w", s.f.Name(), err)
	}
	return s.f.Close()
}

func (s *stagedFile) discard() {
	s.enc.Close()
	s.f.Close()
	os.Remove(s.f.Name())
}

// commitPair publishes both staged files. Nothing is renamed unless both
// flushed cleanly, and a failed global rename puts the previous regional file
// back so the committed pair always belongs to one run.
func commitPair(dir string, regional, global *stagedFile) (Files, error) {
	files := committedFiles(dir)
	if err := regional.finish(); err != nil {
		regional.discard()
		global.discard()
		return Files{}, err
	}
	if err := global.finish(); err != nil {
		regional.discard()
		global.discard()
		return Files{}, err
	}

	prev := files.Regional + previousSuffix
	hadPrev := true
	if err := os.Rename(files.Regional, prev); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			os.Remove(regional.f.Name())
			os.Remove(global.f.Name())
			return Files{}, fmt.Errorf("setting aside regional file: %w", err)
		}
		hadPrev = false
	}
	if err := os.Rename(regional.f.Name(), files.Regional); err != nil {
		restoreRegional(files.Regional, prev, hadPrev)
		os.Remove(regional.f.Name())
		os.Remove(global.f.Name())
		return Files{}, fmt.Errorf("committing regional file: %w", err)
	}
	if err := os.Rename(global.f.Name(), files.Global); err != nil {
		restoreRegional(files.Regional, prev, hadPrev)
		os.Remove(global.f.Name())
		return Files{}, fmt.Errorf("committing global file: %w", err)
	}
	if hadPrev {
		os.Remove(prev)
	}
	return files, nil
}

func restoreRegional(path, prev string, hadPrev bool) {
	if hadPrev {
		os.Rename(prev, path)
		return
	}
	os.Remove(path)
}

// recoverStaging clears what an interrupted cycle left in dir: staging files
// are removed, and a regional file set aside by an unfinished commit is
// restored. It returns the number of staging files removed.
func recoverStaging(dir string) (int, error) {
	partials, err := filepath.Glob(filepath.Join(dir, stagingGlob))
	if err != nil {
		return 0, err
	}
	for _, p := range partials {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("removing %s: %w", p, err)
		}
	}

	files := committedFiles(dir)
	prev := files.Regional + previousSuffix
	if _, err := os.Stat(prev); err == nil {
		if err := os.Rename(prev, files.Regional); err != nil {
			return len(partials), fmt.Errorf("restoring regional file: %w", err)
		}
	}
	return len(partials), nil
}
