package persist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/nativedbg/internal/breakpoint"
	"github.com/dshills/nativedbg/internal/logging"
)

// Save writes the breakpoints of bag to path.
// The file is written atomically using a temporary file and rename.
func Save(bag *breakpoint.Bag, path string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, bag.Breakpoints()); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load restores the breakpoints saved at path into bag and returns how many
// toplevel breakpoints were restored. A missing file restores nothing.
func Load(bag *breakpoint.Bag, path string, log *logging.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open breakpoints file: %w", err)
	}
	defer f.Close()

	bs, err := NewDecoder(log).Decode(f)
	if len(bs) > 0 {
		bag.Restore(bs...)
	}
	if err != nil {
		return len(bs), fmt.Errorf("%s: %w", path, err)
	}
	return len(bs), nil
}
