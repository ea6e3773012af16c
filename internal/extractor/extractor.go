package extractor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/klauspost/compress/zip"
)

// ErrNoMatch is returned when no archive entry matches a pattern.
var ErrNoMatch = errors.New("no matching archive entry")

// Target pairs an output file with the pattern of the entry that fills it.
type Target struct {
	Out     string
	Pattern string
}

// Request describes one extraction run.
type Request struct {
	Jar string
	// Main must be found in the archive.
	Main Target
	// Aux entries are optional; missing ones become empty files.
	Aux []Target
}

// Archive is a read-only view over a jar or zip file.
type Archive struct {
	path   string
	reader *zip.ReadCloser
}

// Open opens the archive at path.
func Open(path string) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return &Archive{path: path, reader: rc}, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.reader.Close()
}

// Find returns the first entry, in archive order, where pattern begins a
// path component of the entry name.
func (a *Archive) Find(pattern string) (*zip.File, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if re.MatchString(f.Name) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrNoMatch, pattern, a.path)
}

// ExtractTo writes the first entry matching pattern to out.
func (a *Archive) ExtractTo(pattern, out string) error {
	f, err := a.Find(pattern)
	if err != nil {
		return err
	}
	data, err := readEntry(f)
	if err != nil {
		return err
	}
	return writeFile(out, data)
}

// TouchOrExtract behaves like ExtractTo but creates an empty file at out
// when nothing matches. It reports whether an entry was found.
func (a *Archive) TouchOrExtract(pattern, out string) (bool, error) {
	err := a.ExtractTo(pattern, out)
	if errors.Is(err, ErrNoMatch) {
		return false, writeFile(out, nil)
	}
	return err == nil, err
}

// Run opens the archive once, extracts the mandatory target and then each
// auxiliary target with the touch fallback.
func Run(req Request, log *slog.Logger) error {
	if req.Jar == "" || req.Main.Out == "" || req.Main.Pattern == "" {
		return errors.New("jar, out and out_pattern are required")
	}
	for _, t := range append([]Target{req.Main}, req.Aux...) {
		if _, err := compilePattern(t.Pattern); err != nil {
			return err
		}
	}

	archive, err := Open(req.Jar)
	if err != nil {
		return err
	}
	defer archive.Close()

	if err := archive.ExtractTo(req.Main.Pattern, req.Main.Out); err != nil {
		return err
	}
	log.Info("extracted entry", "pattern", req.Main.Pattern, "out", req.Main.Out)

	for _, t := range req.Aux {
		found, err := archive.TouchOrExtract(t.Pattern, t.Out)
		if err != nil {
			return err
		}
		if found {
			log.Info("extracted entry", "pattern", t.Pattern, "out", t.Out)
		} else {
			log.Debug("no entry matched, touched placeholder", "pattern", t.Pattern, "out", t.Out)
		}
	}
	return nil
}

// Targets zips parallel output and pattern lists.
func Targets(outs, patterns []string) ([]Target, error) {
	if len(outs) != len(patterns) {
		return nil, fmt.Errorf("got %d aux outputs but %d aux patterns", len(outs), len(patterns))
	}
	targets := make([]Target, len(outs))
	for i := range outs {
		targets[i] = Target{Out: outs[i], Pattern: patterns[i]}
	}
	return targets, nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	re, err := regexp.Compile(`(?:^|/)(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", f.Name, err)
	}
	return data, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
