package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrInvalidPath     = errors.New("invalid storage path")
)

// ImageTypes are the content types accepted for photos.
var ImageTypes = []string{"image/jpeg", "image/png"}

type Object struct {
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Disk writes uploaded media below a root directory using resource prefixes
// such as "students".
type Disk struct {
	Root     string
	MaxBytes int64
}

func NewDisk(root string, maxBytes int64) *Disk {
	return &Disk{Root: root, MaxBytes: maxBytes}
}

func (d *Disk) Save(prefix string, r io.Reader, allowed []string) (Object, error) {
	limit := d.MaxBytes
	if limit <= 0 {
		limit = 4 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Object{}, err
	}
	if int64(len(data)) > limit {
		return Object{}, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if len(allowed) > 0 && !mimetype.EqualsAny(mtype.String(), allowed...) {
		return Object{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	prefix = strings.Trim(filepath.Clean("/"+prefix), "/")
	rel := filepath.ToSlash(filepath.Join(prefix, uuid.NewString()+mtype.Extension()))
	full := filepath.Join(d.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Object{}, err
	}
	return Object{Path: rel, ContentType: mtype.String(), Size: int64(len(data))}, nil
}

func (d *Disk) Read(rel string) ([]byte, error) {
	full, err := d.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// WriteFile stores generated artifacts (not uploads) at a fixed relative path.
func (d *Disk) WriteFile(rel string, data []byte, perm os.FileMode) error {
	full, err := d.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, perm)
}

func (d *Disk) Delete(rel string) error {
	full, err := d.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Disk) resolve(rel string) (string, error) {
	if rel == "" || strings.Contains(rel, "..") || filepath.IsAbs(rel) {
		return "", ErrInvalidPath
	}
	return filepath.Join(d.Root, filepath.FromSlash(rel)), nil
}

// DetectType sniffs the content type of an in-memory file.
func DetectType(data []byte) string {
	return mimetype.Detect(data).String()
}
