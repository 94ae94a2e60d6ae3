package imaging

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func writeTestPNG(t *testing.T, path string, rows, cols int) {
	t.Helper()

	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	defer mat.Close()

	if ok := gocv.IMWrite(path, mat); !ok {
		t.Fatalf("failed to write test image %s", path)
	}
}

func TestThumbnail_Resizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc123.5.png")
	writeTestPNG(t, path, 120, 200)

	data, err := Thumbnail(path, 50, 30)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}

	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("IMDecode() error = %v", err)
	}
	defer decoded.Close()

	if decoded.Cols() != 50 || decoded.Rows() != 30 {
		t.Errorf("expected 50x30, got %dx%d", decoded.Cols(), decoded.Rows())
	}
}

func TestThumbnail_MissingFile(t *testing.T) {
	_, err := Thumbnail(filepath.Join(t.TempDir(), "missing.png"), DefaultWidth, DefaultHeight)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestThumbnail_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.png")
	if err := os.WriteFile(path, []byte("not a png"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := Thumbnail(path, DefaultWidth, DefaultHeight)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestThumbnail_InvalidSize(t *testing.T) {
	_, err := Thumbnail("unused.png", 0, 10)
	if !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}
