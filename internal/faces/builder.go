// Package faces draws the front and back images of a card.
package faces

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"sync"

	"duo-cards/internal/deck"
	"duo-cards/internal/utils"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Pair holds the two faces of one card.
type Pair struct {
	Front *image.RGBA
	Back  *image.RGBA
}

// Source produces face pairs. Builder and Cache both implement it.
type Source interface {
	Build(card deck.Card, size image.Point) (Pair, error)
}

var (
	backFill    = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	backStroke  = color.RGBA{0x37, 0x41, 0x51, 0xff}
	frontFill   = color.RGBA{0x11, 0x18, 0x27, 0xff}
	frontStroke = color.RGBA{0x4b, 0x55, 0x63, 0xff}
	titleColor  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	bodyColor   = color.RGBA{0xd1, 0xd5, 0xdb, 0xff}
)

// Options configure a Builder.
type Options struct {
	// FontPath replaces the Go fonts for both title and body (e.g. a CJK font).
	FontPath string
	// Pattern is optional artwork drawn inside the back border.
	Pattern image.Image
}

// Builder renders faces. It is safe for concurrent use.
type Builder struct {
	mu      sync.Mutex
	regular *opentype.Font
	bold    *opentype.Font
	faces   map[faceKey]font.Face
	pattern image.Image
}

type faceKey struct {
	bold bool
	size int
}

// Layout is the measured front-face text block.
type Layout struct {
	TitleY     int
	BodyLines  []string
	LineHeight int
	FirstLineY int
	MaxWidth   int
}

func NewBuilder(opts Options) (*Builder, error) {
	b := &Builder{
		faces:   make(map[faceKey]font.Face),
		pattern: opts.Pattern,
	}

	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", opts.FontPath, err)
		}
		b.regular, b.bold = f, f
		utils.Info("Faces: using font %s", opts.FontPath)
		return b, nil
	}

	var err error
	if b.regular, err = opentype.Parse(goregular.TTF); err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	if b.bold, err = opentype.Parse(gobold.TTF); err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return b, nil
}

// Build draws both faces of card at the given pixel size.
func (b *Builder) Build(card deck.Card, size image.Point) (Pair, error) {
	if size.X <= 0 || size.Y <= 0 {
		return Pair{}, fmt.Errorf("invalid face size %v", size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	front, err := b.front(card, size)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Front: front, Back: b.back(size)}, nil
}

// Back draws the content-independent back face.
func (b *Builder) Back(size image.Point) *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.back(size)
}

// Layout measures the front text without drawing it.
func (b *Builder) Layout(card deck.Card, size image.Point) (Layout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	body, err := b.face(false, bodyPx(size.X))
	if err != nil {
		return Layout{}, err
	}
	return layoutFront(body, card, size), nil
}

func titlePx(w int) int { return int(float64(w) * 0.095) }
func bodyPx(w int) int  { return int(float64(w) * 0.065) }

func strokeWidth(w int) int {
	lw := int(float64(w) * 0.004)
	if lw < 8 {
		lw = 8
	}
	return lw
}

func layoutFront(body font.Face, card deck.Card, size image.Point) Layout {
	w, h := size.X, size.Y
	maxWidth := int(float64(w) * 0.8)
	lineHeight := int(float64(w) * 0.085)

	lines := WrapLines(body, card.Content, fixed.I(maxWidth))
	total := len(lines) * lineHeight

	return Layout{
		TitleY:     int(float64(h) * 0.25),
		BodyLines:  lines,
		LineHeight: lineHeight,
		FirstLineY: h/2 - total/2,
		MaxWidth:   maxWidth,
	}
}

func (b *Builder) face(bold bool, px int) (font.Face, error) {
	if px < 1 {
		px = 1
	}
	key := faceKey{bold: bold, size: px}
	if f, ok := b.faces[key]; ok {
		return f, nil
	}

	src := b.regular
	if bold {
		src = b.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %dpx: %w", px, err)
	}
	b.faces[key] = f
	return f, nil
}

func (b *Builder) back(size image.Point) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(backFill), image.Point{}, draw.Src)

	lw := strokeWidth(size.X)
	if b.pattern != nil {
		inner := img.Bounds().Inset(lw * 2)
		if !inner.Empty() {
			xdraw.CatmullRom.Scale(img, inner, b.pattern, b.pattern.Bounds(), xdraw.Over, nil)
		}
	}
	strokeRect(img, lw, backStroke)
	return img
}

func (b *Builder) front(card deck.Card, size image.Point) (*image.RGBA, error) {
	title, err := b.face(true, titlePx(size.X))
	if err != nil {
		return nil, err
	}
	body, err := b.face(false, bodyPx(size.X))
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(frontFill), image.Point{}, draw.Src)
	strokeRect(img, strokeWidth(size.X), frontStroke)

	layout := layoutFront(body, card, size)
	drawCentered(img, title, titleColor, card.Title, size.X/2, layout.TitleY)

	y := layout.FirstLineY
	for _, line := range layout.BodyLines {
		drawCentered(img, body, bodyColor, line, size.X/2, y)
		y += layout.LineHeight
	}
	return img, nil
}

// strokeRect draws a border of width lw whose centre line is inset by lw.
func strokeRect(img *image.RGBA, lw int, c color.Color) {
	b := img.Bounds()
	outer := b.Inset(lw / 2)
	inner := b.Inset(lw/2 + lw)
	if outer.Empty() {
		return
	}
	src := image.NewUniform(c)
	if inner.Empty() {
		draw.Draw(img, outer, src, image.Point{}, draw.Src)
		return
	}
	draw.Draw(img, image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y), src, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y), src, image.Point{}, draw.Src)
}

// drawCentered draws s with its horizontal centre at cx and its vertical middle at cy.
func drawCentered(img *image.RGBA, face font.Face, c color.Color, s string, cx, cy int) {
	if s == "" {
		return
	}
	m := face.Metrics()
	width := font.MeasureString(face, s)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(cx) - width/2,
			Y: fixed.I(cy) + (m.Ascent-m.Descent)/2,
		},
	}
	d.DrawString(s)
}
