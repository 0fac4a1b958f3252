// Package catalog discovers run files in a source directory.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

// Options controls discovery side effects.
type Options struct {
	// Echo logs every discovered file with its size for audit.
	Echo bool
}

// ListFiles returns the names of regular files in dir ending with ext (exact, case-sensitive).
// Symlinks count when their target is a regular file.
// Order follows directory enumeration; it says nothing about chronology. An empty result is not
// an error. Only a directory that cannot be read returns one.
func ListFiles(dir, ext string, opts Options) ([]string, error) {
	monitor.Infof("Looking for %s files in %s...", ext, dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		info, ok := regularFile(dir, e)
		if !ok {
			continue
		}
		names = append(names, name)
		if opts.Echo {
			size := "?"
			if info != nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			monitor.Infof("  %s (%s)", name, size)
		}
	}
	if len(names) == 0 {
		monitor.Warnf("No %s files found in %s; check source_dir/extension", ext, dir)
	}
	return names, nil
}

// regularFile reports whether e is a regular file. Symlinks are resolved through os.Stat.
// info is nil when the size could not be read.
func regularFile(dir string, e os.DirEntry) (os.FileInfo, bool) {
	switch t := e.Type(); {
	case t.IsRegular():
		info, err := e.Info()
		if err != nil {
			return nil, true
		}
		return info, true
	case t&os.ModeSymlink != 0:
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			monitor.Debugf("skip %s: %v", e.Name(), err)
			return nil, false
		}
		return info, info.Mode().IsRegular()
	default:
		return nil, false
	}
}

// Paths joins names onto dir, preserving order.
func Paths(dir string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}
