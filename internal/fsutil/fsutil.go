// Package fsutil holds small filesystem helpers shared across the service.
package fsutil

import (
	"fmt"
	"os"
)

// ReadFileBytes reads a file fully into memory. A missing file stays
// distinguishable through errors.Is(err, os.ErrNotExist) so callers can treat
// absence differently from I/O failures.
func ReadFileBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
