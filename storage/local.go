package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps proof images in a directory that the HTTP layer serves
// read-only under BaseURL.
type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create proof dir: %w", err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Base(name)
	if clean == "." || clean == string(filepath.Separator) || clean != name {
		return "", fmt.Errorf("invalid object name %q", name)
	}

	tmp, err := os.CreateTemp(l.Dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.Dir, clean)); err != nil {
		return "", err
	}
	return l.BaseURL + "/" + clean, nil
}

// Delete removes a stored object. A missing object is not an error.
func (l *Local) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Base(name)
	if clean == "." || clean == string(filepath.Separator) || clean != name {
		return fmt.Errorf("invalid object name %q", name)
	}
	if err := os.Remove(filepath.Join(l.Dir, clean)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
