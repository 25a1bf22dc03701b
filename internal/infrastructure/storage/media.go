package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"roadwatch/internal/domain/port"
)

// DiskMediaStore кладёт файлы отчётов в <root>/reports.
type DiskMediaStore struct {
	root string
	dir  string
}

// NewDiskMediaStore создаёт хранилище файлов внутри каталога данных.
func NewDiskMediaStore(root string) *DiskMediaStore {
	return &DiskMediaStore{root: root, dir: "reports"}
}

// Save пишет файл и возвращает путь относительно каталога данных.
func (m *DiskMediaStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := sanitizeFilename(name)
	if clean == "" {
		return "", fmt.Errorf("invalid media file name %q", name)
	}

	ref := filepath.ToSlash(filepath.Join(m.dir, clean))
	if err := writeFileAtomic(filepath.Join(m.root, m.dir, clean), data, 0o644); err != nil {
		return "", fmt.Errorf("save media %s: %w", ref, err)
	}
	return ref, nil
}

// Remove удаляет файл, сохранённый через Save.
func (m *DiskMediaStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clean := sanitizeFilename(path.Base(ref))
	if clean == "" || path.Clean(ref) != path.Join(m.dir, clean) {
		return fmt.Errorf("invalid media ref %q", ref)
	}
	if err := os.Remove(filepath.Join(m.root, m.dir, clean)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove media %s: %w", ref, err)
	}
	return nil
}

// sanitizeFilename оставляет в имени только безопасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	clean = strings.TrimLeft(clean, ".")
	return clean
}

var _ port.MediaStore = (*DiskMediaStore)(nil)
