package presenter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/matchview"
)

// RenderOptions tunes the HUD. Empty fields fall back to values derived from the view.
type RenderOptions struct {
	HUDHeader string
	HUDStatus string
	// Footer is drawn under the board, e.g. the observer banner.
	Footer string
	// ShowLegal tints the cells the viewer may play.
	ShowLegal bool
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, v matchview.View, opts RenderOptions) ([]byte, error)
}

const (
	cellSize      = 120
	gridCells     = 3
	gridSize      = cellSize * gridCells
	sideMargin    = 32
	topMargin     = 112
	bottomMargin  = 32
	gridLineWidth = 6
	glyphInset    = 14

	titleHeight        = 36
	statusPanelHeight  = 30
	gapBetweenPanels   = 10
	gapToBoard         = 20
	panelRadius        = 10
	titlePaddingX      = 24
	statusPaddingX     = 18
	titleMinWidth      = 200
	statusMinWidth     = 160
	shadowOffsetY      = 5
	coordinateBaseline = 16
)

var (
	backgroundColor   = color.RGBA{246, 241, 231, 255}
	cellColor         = color.RGBA{255, 252, 245, 255}
	gridLineColor     = color.RGBA{61, 64, 82, 255}
	legalCellColor    = color.NRGBA{R: 120, G: 200, B: 140, A: 90}
	hudPanelColor     = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudStatusColor    = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor    = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudStatusText     = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	boardShadowColor  = color.NRGBA{0, 0, 0, 60}
	cellIndexColor    = color.NRGBA{R: 170, G: 164, B: 150, A: 255}
	observerTextColor = color.NRGBA{R: 110, G: 110, B: 120, A: 255}
)

type pngRenderer struct {
	face font.Face
}

func NewPNGRenderer() BoardRenderer {
	return &pngRenderer{face: basicfont.Face7x13}
}

func (r *pngRenderer) RenderPNG(ctx context.Context, v matchview.View, opts RenderOptions) ([]byte, error) {
	if !v.Loaded {
		return nil, fmt.Errorf("match %s is not loaded", v.MatchID)
	}

	totalWidth := gridSize + sideMargin*2
	totalHeight := gridSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+gridSize, origin.Y+gridSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawHUD(img, v, opts, boardRect)
	drawBoardShadow(img, boardRect)
	drawCells(img, origin)
	if opts.ShowLegal {
		for i := 0; i < match.BoardSize; i++ {
			if v.LegalMove(i) {
				imagedraw.Draw(img, cellRect(i, origin), image.NewUniform(legalCellColor), image.Point{}, imagedraw.Over)
			}
		}
	}
	r.drawCellIndexes(img, v, origin)
	if err := drawMarks(img, v.Match.Cells, origin); err != nil {
		return nil, err
	}
	drawGridLines(img, boardRect)
	if footer := strings.TrimSpace(opts.Footer); footer != "" {
		r.drawFooter(img, boardRect, footer)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

func cellRect(i int, origin image.Point) image.Rectangle {
	x := origin.X + (i%gridCells)*cellSize
	y := origin.Y + (i/gridCells)*cellSize
	return image.Rect(x, y, x+cellSize, y+cellSize)
}

func drawBoardShadow(img *image.RGBA, boardRect image.Rectangle) {
	shadowRect := image.Rect(
		boardRect.Min.X+4,
		boardRect.Min.Y+8,
		boardRect.Max.X+10,
		boardRect.Max.Y+12,
	)
	imagedraw.Draw(img, shadowRect, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func drawCells(dst imagedraw.Image, origin image.Point) {
	for i := 0; i < match.BoardSize; i++ {
		imagedraw.Draw(dst, cellRect(i, origin), image.NewUniform(cellColor), image.Point{}, imagedraw.Src)
	}
}

func drawGridLines(dst imagedraw.Image, boardRect image.Rectangle) {
	half := gridLineWidth / 2
	for k := 1; k < gridCells; k++ {
		x := boardRect.Min.X + k*cellSize
		imagedraw.Draw(dst, image.Rect(x-half, boardRect.Min.Y, x+half, boardRect.Max.Y), image.NewUniform(gridLineColor), image.Point{}, imagedraw.Src)
		y := boardRect.Min.Y + k*cellSize
		imagedraw.Draw(dst, image.Rect(boardRect.Min.X, y-half, boardRect.Max.X, y+half), image.NewUniform(gridLineColor), image.Point{}, imagedraw.Src)
	}
}

func drawMarks(dst imagedraw.Image, cells [match.BoardSize]match.Mark, origin image.Point) error {
	size := cellSize - glyphInset*2
	for i, mark := range cells {
		if mark == match.Empty {
			continue
		}
		glyph, err := renderGlyph(mark, size)
		if err != nil {
			return err
		}
		rect := cellRect(i, origin).Inset(glyphInset)
		imagedraw.Draw(dst, rect, glyph, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawCellIndexes labels empty cells with the position number a move command takes.
func (r *pngRenderer) drawCellIndexes(dst imagedraw.Image, v matchview.View, origin image.Point) {
	drawer := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(cellIndexColor)}
	for i, mark := range v.Match.Cells {
		if mark != match.Empty {
			continue
		}
		rect := cellRect(i, origin)
		drawer.Dot = fixed.P(rect.Min.X+8, rect.Min.Y+coordinateBaseline)
		drawer.DrawString(fmt.Sprint(i))
	}
}

func (r *pngRenderer) drawHUD(img *image.RGBA, v matchview.View, opts RenderOptions, boardRect image.Rectangle) {
	drawer := &font.Drawer{Dst: img, Face: r.face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = fmt.Sprintf("Game #%s", v.MatchID)
	}
	status := strings.TrimSpace(opts.HUDStatus)
	if status == "" {
		status = v.StatusText
	}

	statusBottom := boardRect.Min.Y - gapToBoard
	statusTop := statusBottom - statusPanelHeight
	titleBottom := statusTop - gapBetweenPanels
	titleTop := titleBottom - titleHeight

	titleWidth := max(titleMinWidth, drawer.MeasureString(title).Round()+titlePaddingX*2)
	titleWidth = min(titleWidth, boardRect.Dx())
	statusWidth := max(statusMinWidth, drawer.MeasureString(status).Round()+statusPaddingX*2)
	statusWidth = min(statusWidth, boardRect.Dx())

	titleLeft := boardRect.Min.X + (boardRect.Dx()-titleWidth)/2
	titleRect := image.Rect(titleLeft, titleTop, titleLeft+titleWidth, titleBottom)
	statusLeft := boardRect.Min.X + (boardRect.Dx()-statusWidth)/2
	statusRect := image.Rect(statusLeft, statusTop, statusLeft+statusWidth, statusBottom)

	drawRoundedPanel(img, titleRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	drawRoundedPanel(img, statusRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)

	title = truncateWithEllipsis(r.face, title, titleRect.Dx()-titlePaddingX*2)
	status = truncateWithEllipsis(r.face, status, statusRect.Dx()-statusPaddingX*2)

	drawRoundedPanel(img, titleRect, panelRadius, hudPanelColor)
	drawRoundedPanel(img, statusRect, panelRadius, hudStatusColor)

	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, statusRect, status, hudStatusText)
}

func (r *pngRenderer) drawFooter(img *image.RGBA, boardRect image.Rectangle, text string) {
	drawer := &font.Drawer{Dst: img, Face: r.face}
	rect := image.Rect(boardRect.Min.X, boardRect.Max.Y+6, boardRect.Max.X, boardRect.Max.Y+bottomMargin)
	drawCenteredString(drawer, rect, text, observerTextColor)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}

	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}

	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}

	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	radius = max(radius, 0)
	radius = min(radius, rect.Dx()/2, rect.Dy()/2)
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	// bands and corner quadrants must not overlap: fills are translucent
	center := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	top := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Min.Y+radius)
	bottom := image.Rect(rect.Min.X+radius, rect.Max.Y-radius, rect.Max.X-radius, rect.Max.Y)
	for _, band := range []image.Rectangle{center, top, bottom} {
		if !band.Empty() {
			imagedraw.Draw(img, band, fill, image.Point{}, imagedraw.Over)
		}
	}

	corners := []struct {
		center image.Point
		quad   image.Rectangle
	}{
		{image.Pt(rect.Min.X+radius, rect.Min.Y+radius), image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+radius, rect.Min.Y+radius)},
		{image.Pt(rect.Max.X-radius-1, rect.Min.Y+radius), image.Rect(rect.Max.X-radius, rect.Min.Y, rect.Max.X, rect.Min.Y+radius)},
		{image.Pt(rect.Min.X+radius, rect.Max.Y-radius-1), image.Rect(rect.Min.X, rect.Max.Y-radius, rect.Min.X+radius, rect.Max.Y)},
		{image.Pt(rect.Max.X-radius-1, rect.Max.Y-radius-1), image.Rect(rect.Max.X-radius, rect.Max.Y-radius, rect.Max.X, rect.Max.Y)},
	}
	for _, c := range corners {
		drawQuarterDisc(img, c.center, c.quad, radius, clr)
	}
}

func drawQuarterDisc(img *image.RGBA, center image.Point, quad image.Rectangle, radius int, clr color.Color) {
	rSquared := radius * radius
	src := image.NewUniform(clr)
	for y := quad.Min.Y; y < quad.Max.Y; y++ {
		for x := quad.Min.X; x < quad.Max.X; x++ {
			dx, dy := x-center.X, y-center.Y
			if dx*dx+dy*dy > rSquared {
				continue
			}
			imagedraw.Draw(img, image.Rect(x, y, x+1, y+1), src, image.Point{}, imagedraw.Over)
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if drawer == nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}
