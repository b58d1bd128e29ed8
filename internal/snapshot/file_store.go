package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FileStore 把快照保存为 {dir}/{name}，目录不存在时自动创建
type FileStore struct {
	path string
}

func NewFileStore(dir, name string) *FileStore {
	return &FileStore{path: filepath.Join(dir, name)}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Read() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoSnapshot
		}
		return "", eris.Wrapf(err, "snapshot: read %s", f.path)
	}
	return string(data), nil
}

// Write 先写临时文件再 rename，避免半截文件
func (f *FileStore) Write(content string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "snapshot: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "snapshot: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return eris.Wrap(err, "snapshot: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "snapshot: close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return eris.Wrap(err, "snapshot: chmod temp file")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return eris.Wrapf(err, "snapshot: replace %s", f.path)
	}
	return nil
}
