package recognizer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileTree is the local folder layout the whitelist is built from: one
// subfolder per person with that person's images inside.
type FileTree interface {
	// Subfolders returns the immediate subfolders of root, sorted by path
	Subfolders(root string) ([]string, error)
	// Files returns the non-directory entries directly inside folder, sorted
	// by path. Symlinks are listed even when broken.
	Files(folder string) ([]string, error)
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// LocalTree is a FileTree on the local file system.
type LocalTree struct{}

func (LocalTree) Subfolders(root string) ([]string, error) {
	return listDir(root, true)
}

func (LocalTree) Files(folder string) ([]string, error) {
	return listDir(folder, false)
}

func (LocalTree) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (LocalTree) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func listDir(dir string, dirs bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		// skip hidden entries such as .DS_Store
		if len(e.Name()) > 0 && e.Name()[0] == '.' {
			continue
		}
		path := filepath.Join(dir, e.Name())
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			isDir = err == nil && info.IsDir()
		}
		if isDir == dirs {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// parentName returns the name of the folder containing path.
func parentName(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// cleanPath returns the absolute, cleaned form of path so every file has
// exactly one spelling in the index.
func cleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidFilePath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFilePath, err)
	}
	return abs, nil
}
