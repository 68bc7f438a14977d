package util

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
)

// SyncPath flushes a file or directory entry to storage. Call it on the parent
// directory after a rename to make the rename durable.
func SyncPath(path string) (err error) {
	d, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s for fsync: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, d.Close())
	}()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("cannot flush %s to storage: %w", path, err)
	}
	return nil
}
