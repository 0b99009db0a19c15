// Package utils holds small file helpers shared by the commands.
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SafeWriteFile writes data to a temp file next to path and renames it into
// place, creating the parent directory when needed.
func SafeWriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// UniquePath returns dir/stem+suffix, or dir/stem__N+suffix with the smallest
// N >= 2 that does not exist yet.
func UniquePath(dir, stem, suffix string) (string, error) {
	cand := filepath.Join(dir, stem+suffix)
	for idx := 2; ; idx++ {
		_, err := os.Stat(cand)
		if errors.Is(err, os.ErrNotExist) {
			return cand, nil
		}
		if err != nil {
			return "", err
		}
		cand = filepath.Join(dir, fmt.Sprintf("%s__%d%s", stem, idx, suffix))
	}
}

// Stem is the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
