package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileBackend keeps the document as a JSON file. Writes go to a sibling temp
// file that is renamed over the target, so readers never see a torn file.
type FileBackend struct {
	fs   afero.Fs
	path string
}

func NewFileBackend(fs afero.Fs, path string) *FileBackend {
	return &FileBackend{fs: fs, path: path}
}

func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoDocument
	}
	return data, err
}

func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	if err := b.fs.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, data, 0o600); err != nil {
		return err
	}
	return b.fs.Rename(tmp, b.path)
}
