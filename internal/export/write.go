package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic writes data to dir/name through a temp file in the same
// directory, so a reader never sees a partial artifact. Failures are
// retryable.
func writeAtomic(dir, name string, data []byte) (path string, err error) {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", &RetryableError{Op: "create " + name, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return "", &RetryableError{Op: "write " + name, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return "", &RetryableError{Op: "sync " + name, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return "", &RetryableError{Op: "close " + name, Err: err}
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	path = filepath.Join(dir, name)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", &RetryableError{Op: "rename " + name, Err: err}
	}
	return path, nil
}
