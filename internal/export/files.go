package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrForbidden    = errors.New("access denied")
)

// SanitizeFilename reduces name to a safe base name ending in ".pdf".
func SanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`/:*?"<>|`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// DefaultFilename is the name used when a request does not supply one.
func DefaultFilename(now time.Time) string {
	return "document-summary-" + now.UTC().Format("2006-01-02T15-04-05") + ".pdf"
}

// FileInfo describes one generated PDF.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Store gives read access to the generated PDFs in the output directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// List returns the PDFs in the output directory, newest first. A missing
// directory yields an empty list.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Modified.Equal(files[j].Modified) {
			return files[i].Name < files[j].Name
		}
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Resolve maps a download name to a path inside the output directory.
// Names that would leave the directory return ErrForbidden.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || filepath.Base(name) != name {
		return "", ErrForbidden
	}

	root, err := filepath.Abs(s.dir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}
	path := filepath.Join(root, name)
	if rel, err := filepath.Rel(root, path); err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrForbidden
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", ErrFileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	return path, nil
}
