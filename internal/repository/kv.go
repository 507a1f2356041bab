package repository

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrQuotaExceeded is returned by FileKV.Set when a write would push the
// namespace's total value size past its quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// FileKV is a quota-bounded text key/value namespace backed by one file per
// key. It mirrors the semantics of a browser localStorage area: synchronous,
// string-valued, and bounded in total size.
type FileKV struct {
	dir   string
	quota int
}

func NewFileKV(dir string, quotaBytes int) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileKV{dir: dir, quota: quotaBytes}, nil
}

// Get returns the value for key. A missing or unreadable key reads as absent,
// never as an error: storage corruption is treated identically to "no value".
func (kv *FileKV) Get(key string) (string, bool) {
	b, err := os.ReadFile(kv.path(key))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Set writes key atomically (temp file + rename). It fails with
// ErrQuotaExceeded when the namespace total would exceed the quota; the old
// value is left intact in that case.
func (kv *FileKV) Set(key, value string) error {
	if kv.quota > 0 {
		total := len(value)
		entries, err := os.ReadDir(kv.dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() || e.Name() == key+".json" {
				continue
			}
			if info, err := e.Info(); err == nil {
				total += int(info.Size())
			}
		}
		if total > kv.quota {
			return ErrQuotaExceeded
		}
	}

	tmp, err := os.CreateTemp(kv.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), kv.path(key))
}

// Delete removes key; missing keys are a no-op.
func (kv *FileKV) Delete(key string) error {
	err := os.Remove(kv.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (kv *FileKV) path(key string) string {
	return filepath.Join(kv.dir, key+".json")
}
