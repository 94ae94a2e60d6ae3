// Package fixture provides an annotation layout for tests.
//
// The layout holds two GUIDs:
//
//	abc123 frames 2, 5, 10 (frame 10 has no annotation files)
//	def456 frame 7 (annotator 20008's file is not a JSON object)
//
// Metric tables exist for skips/product, skips/average and noskips/product.
package fixture

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/rfbviz/internal/annotation"
)

// Annotators are the two annotator IDs present in the layout.
var Annotators = [2]string{"20007", "20008"}

//go:embed testdata/layout
var layoutFS embed.FS

// Layout copies the embedded layout into a fresh temporary directory and
// returns it. Images are written for abc123 frames 2 and 5.
func Layout(t testing.TB) annotation.Layout {
	t.Helper()

	root := t.TempDir()
	err := fs.WalkDir(layoutFS, "testdata/layout", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("testdata/layout", path)
		if err != nil {
			return err
		}
		dst := filepath.Join(root, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		data, err := layoutFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0644)
	})
	if err != nil {
		t.Fatalf("copy layout: %v", err)
	}

	layout := annotation.Layout{
		DataDir:    filepath.Join(root, "data"),
		ResultsDir: filepath.Join(root, "results"),
		ImageDir:   filepath.Join(root, "images"),
	}

	for _, frame := range []string{"2", "5"} {
		path := filepath.Join(layout.ImageDir, annotation.InstanceID("abc123", frame)+".png")
		if err := WriteImage(path, 640, 480); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}

	return layout
}

// WriteImage writes a solid grey PNG of the given size to path.
func WriteImage(path string, width, height int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), height, width, gocv.MatTypeCV8UC3)
	defer mat.Close()

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("write image %s", path)
	}
	return nil
}
