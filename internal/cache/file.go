package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
)

// File keeps one JSON file per collection in a directory, using the same
// document names as the remote store.
type File struct {
	dir string
}

// NewFile returns a file cache rooted at dir. The directory is created on
// first Save.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	for _, name := range domain.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := snap.EncodeDocument(name)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(filepath.Join(f.dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func (f *File) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	var snap domain.Snapshot
	found := false
	for _, name := range domain.Documents {
		if err := ctx.Err(); err != nil {
			return domain.Snapshot{}, false, err
		}
		data, err := os.ReadFile(filepath.Join(f.dir, name))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			data = nil
		case err != nil:
			return domain.Snapshot{}, false, fmt.Errorf("read %s: %w", name, err)
		default:
			found = true
		}
		if err := snap.DecodeDocument(name, data); err != nil {
			return domain.Snapshot{}, false, err
		}
	}
	if !found {
		return domain.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// writeFileAtomic writes to a temp file in the same directory and renames
// it over path, so readers never see a partial document.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
