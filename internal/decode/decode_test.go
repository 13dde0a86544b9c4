package decode

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"dedoppel/internal/config"
)

func writeImage(t *testing.T, path string, encode func(f *os.File, img image.Image) error) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 16), 0, 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestFileStandardFormats(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Load()

	tests := []struct {
		name string
		path string
	}{
		{"jpeg", filepath.Join(dir, "a.jpg")},
		{"png", filepath.Join(dir, "b.png")},
	}
	writeImage(t, tests[0].path, func(f *os.File, img image.Image) error {
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	})
	writeImage(t, tests[1].path, func(f *os.File, img image.Image) error {
		return png.Encode(f, img)
	})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := File(context.Background(), cfg, tc.path)
			if err != nil {
				t.Fatalf("File failed: %v", err)
			}
			bounds := img.Bounds()
			if bounds.Dx() != 16 || bounds.Dy() != 16 {
				t.Errorf("decoded %dx%d; want 16x16", bounds.Dx(), bounds.Dy())
			}
		})
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := File(context.Background(), config.Load(), path); err == nil {
		t.Error("File should fail for corrupt image data")
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(context.Background(), config.Load(), "/no/such/image.jpg"); err == nil {
		t.Error("File should fail for a missing file")
	}
}

func TestFileRawDecoderUnavailable(t *testing.T) {
	cfg := config.Load()
	cfg.Dcraw = "dedoppel-test-no-such-binary"

	_, err := File(context.Background(), cfg, "photo.nef")
	if err == nil {
		t.Error("File should fail when the raw decoder cannot be run")
	}
}
