package imagestore

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"golang.org/x/image/draw"
)

// deriveThumbnail decodes the uploaded bytes, scales them to fit the
// configured bounding box without upscaling, and writes a JPEG into the
// thumbnails subdirectory as thumb_<filename>. Returns the thumbnail
// path, or an error the caller may ignore: uploads succeed without a
// thumbnail.
func (s *Store) deriveThumbnail(filename string, content []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to decode image for thumbnail: %w", err)
	}

	dst := scaleToFit(src, s.thumbMaxPx)

	path := s.thumbnailPath(filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file %q: %w", path, err)
	}

	if err := jpeg.Encode(f, dst, &jpeg.Options{Quality: s.thumbQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode thumbnail %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close thumbnail %q: %w", path, err)
	}

	return path, nil
}

// scaleToFit bounds an image to maxPx on its longer edge, preserving
// aspect ratio. Images already within the box are re-encoded as-is.
func scaleToFit(src image.Image, maxPx int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxPx && h <= maxPx {
		return src
	}

	if w >= h {
		h = h * maxPx / w
		w = maxPx
	} else {
		w = w * maxPx / h
		h = maxPx
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}
