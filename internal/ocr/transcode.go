package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ImageInfo is what a header probe learns about an image without a full decode.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// ProbeImage reads only the image header.
func ProbeImage(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("probe image: %w", err)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// needsTranscode lists decoded formats some tesseract/leptonica builds cannot read.
var needsTranscode = map[string]bool{
	"gif": true,
	"bmp": true,
}

// NeedsTranscode reports whether an image format should be converted to PNG before OCR.
func NeedsTranscode(format string) bool {
	return needsTranscode[strings.ToLower(format)]
}

// TranscodeToPNG decodes in and writes a PNG into dir, returning the new path.
// The caller owns dir and its cleanup.
func TranscodeToPNG(in, dir string) (string, error) {
	f, err := os.Open(in)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	img, format, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(in), err)
	}

	out := filepath.Join(dir, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))+"-"+format+".png")
	w, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := png.Encode(w, img); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return out, nil
}
