package whitelist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// IDFileName is the file inside the whitelist folder that stores the
// whitelist (person-group) id of this device.
const IDFileName = "WhiteListId.txt"

// LoadOrCreateID returns the whitelist id stored in folder, creating the
// folder and a fresh random id when none exists yet.
func LoadOrCreateID(folder string) (string, error) {
	path := filepath.Join(folder, IDFileName)

	data, err := os.ReadFile(path) //nolint:gosec // path under the configured whitelist folder
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read whitelist id: %w", err)
	}
	if id := strings.TrimSpace(string(data)); id != "" {
		return id, nil
	}

	if err := os.MkdirAll(folder, 0750); err != nil {
		return "", fmt.Errorf("create whitelist folder: %w", err)
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return "", fmt.Errorf("write whitelist id: %w", err)
	}
	return id, nil
}

// NormalizeName turns a folder name into a person name. Names are NFC
// normalised so that a folder created on a file system that stores NFD
// (macOS) maps to the same person.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
