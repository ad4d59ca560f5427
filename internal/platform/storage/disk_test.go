package storage

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestSaveImageUnderPrefix(t *testing.T) {
	disk := NewDisk(t.TempDir(), 1024)

	obj, err := disk.Save("students", bytes.NewReader(tinyPNG), ImageTypes)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(obj.Path, "students/") || !strings.HasSuffix(obj.Path, ".png") {
		t.Fatalf("unexpected path %q", obj.Path)
	}
	if obj.ContentType != "image/png" {
		t.Fatalf("unexpected content type %q", obj.ContentType)
	}

	data, err := disk.Read(obj.Path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(data, tinyPNG) {
		t.Fatal("stored bytes differ")
	}
}

func TestSaveRejectsNonImage(t *testing.T) {
	disk := NewDisk(t.TempDir(), 1024)
	_, err := disk.Save("students", strings.NewReader("bukan gambar"), ImageTypes)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestSaveRejectsOversized(t *testing.T) {
	disk := NewDisk(t.TempDir(), 16)
	_, err := disk.Save("students", bytes.NewReader(tinyPNG), ImageTypes)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestReadRejectsTraversal(t *testing.T) {
	disk := NewDisk(t.TempDir(), 1024)
	if _, err := disk.Read("../etc/passwd"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}
