// Package thumbnail shrinks an uploaded image into the small JPEG data URI
// stored with each history record.
package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxEdge = 100
	DefaultQuality = 70

	// 50 megapixel, ukuran kamera ponsel terbesar masih masuk
	DefaultMaxPixels = 50_000_000
)

var (
	// ErrEmptyImage is returned for a zero-length input.
	ErrEmptyImage = errors.New("thumbnail: empty image")

	// ErrTooManyPixels is returned when the declared dimensions exceed MaxPixels.
	ErrTooManyPixels = errors.New("thumbnail: image dimensions too large")
)

// Generator implements history.Thumbnailer.
type Generator struct {
	MaxEdge   int
	Quality   int
	MaxPixels int64
}

func New() *Generator {
	return &Generator{MaxEdge: DefaultMaxEdge, Quality: DefaultQuality, MaxPixels: DefaultMaxPixels}
}

// Thumbnail decodes data (jpeg, png, gif or webp), scales it so the longer
// edge is MaxEdge pixels, flattens transparency onto white and returns a
// data:image/jpeg;base64 URI.
func (g *Generator) Thumbnail(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// header dulu, sebelum alokasi piksel
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("thumbnail: decode: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > g.maxPixels() {
		return "", fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("thumbnail: decode: %w", err)
	}

	w, h := fitLongerEdge(src.Bounds().Dx(), src.Bounds().Dy(), g.maxEdge())
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: g.quality()}); err != nil {
		return "", fmt.Errorf("thumbnail: encode: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (g *Generator) maxEdge() int {
	if g.MaxEdge <= 0 {
		return DefaultMaxEdge
	}
	return g.MaxEdge
}

func (g *Generator) maxPixels() int64 {
	if g.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return g.MaxPixels
}

func (g *Generator) quality() int {
	if g.Quality <= 0 || g.Quality > 100 {
		return DefaultQuality
	}
	return g.Quality
}

// fitLongerEdge keeps the aspect ratio; the shorter edge is at least 1px.
// Images already smaller than edge are scaled up, same as the browser canvas did.
func fitLongerEdge(w, h, edge int) (int, int) {
	if w <= 0 || h <= 0 {
		return edge, edge
	}
	if w >= h {
		return edge, max(1, h*edge/w)
	}
	return max(1, w*edge/h), edge
}
