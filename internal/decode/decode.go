// Package decode turns image files into pixel data. Standard formats go
// through the stdlib/imaging decoders; camera raw formats are demosaiced
// by a dcraw subprocess before decoding.
package decode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"dedoppel/internal/config"
)

// File decodes the image at path, choosing the raw or standard decode
// path by extension.
func File(ctx context.Context, cfg *config.Config, path string) (image.Image, error) {
	if cfg.IsRawExt(filepath.Ext(path)) {
		return raw(ctx, cfg, path)
	}
	return standard(path)
}

// standard decodes a general image format, honoring EXIF orientation so
// that a rotated copy fingerprints like its original.
func standard(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// raw demosaics a camera raw file with dcraw and decodes the result.
// Camera white balance (-w) and half-size output (-h) trade accuracy for
// speed; the perceptual hash is robust to the resolution loss.
func raw(ctx context.Context, cfg *config.Config, path string) (image.Image, error) {
	cmd := exec.CommandContext(ctx, cfg.Dcraw, "-c", "-w", "-h", "-T", path)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := stderr.String(); msg != "" {
			return nil, fmt.Errorf("dcraw %s: %v: %s", path, err, msg)
		}
		return nil, fmt.Errorf("dcraw %s: %w", path, err)
	}

	img, err := tiff.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decoding dcraw output for %s: %w", path, err)
	}
	return img, nil
}
