package generator

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile stores doc at path. The content goes to a temporary file next to
// the destination which is renamed over it once complete, so a failed write
// never leaves a truncated document behind.
func WriteFile(path string, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidInput)
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrOutputWrite, err)
	}

	if _, err := f.Write(doc.Content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("%s: %w: %v", path, ErrOutputWrite, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("%s: %w: %v", path, ErrOutputWrite, err)
	}

	if err := os.Chmod(f.Name(), 0o644); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("%s: %w: %v", path, ErrOutputWrite, err)
	}

	if err := os.Rename(f.Name(), path); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("%s: %w: %v", path, ErrOutputWrite, err)
	}

	return nil
}
