package presenter

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/tictactoe-client/internal/match"
)

//go:embed assets/*.svg
var glyphFiles embed.FS

type glyphCacheKey struct {
	mark match.Mark
	size int
}

var (
	glyphCache   = map[glyphCacheKey]image.Image{}
	glyphCacheMu sync.RWMutex
)

// renderGlyph rasterizes the mark's SVG at size x size pixels. Results are cached.
func renderGlyph(mark match.Mark, size int) (image.Image, error) {
	key := glyphCacheKey{mark: mark, size: size}

	glyphCacheMu.RLock()
	if img, ok := glyphCache[key]; ok {
		glyphCacheMu.RUnlock()
		return img, nil
	}
	glyphCacheMu.RUnlock()

	name, err := glyphAssetName(mark)
	if err != nil {
		return nil, err
	}
	data, err := glyphFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read glyph asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse glyph svg: %w", err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = img
	glyphCacheMu.Unlock()

	return img, nil
}

func glyphAssetName(mark match.Mark) (string, error) {
	switch mark {
	case match.MarkA:
		return "assets/x.svg", nil
	case match.MarkB:
		return "assets/o.svg", nil
	default:
		return "", fmt.Errorf("no glyph for mark %q", mark)
	}
}
