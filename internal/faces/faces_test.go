package faces

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"duo-cards/internal/deck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var tierLow = image.Pt(512, 768)

func testFace(t *testing.T, px float64) font.Face {
	t.Helper()
	f, err := opentype.Parse(goregular.TTF)
	require.NoError(t, err)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: px, DPI: 72, Hinting: font.HintingFull})
	require.NoError(t, err)
	return face
}

func TestWrapLinesFitAndDeterministic(t *testing.T) {
	face := testFace(t, 33)
	max := fixed.I(410)
	text := "Tell your partner about the moment you realised you wanted to spend a lot more time together, and what you were wearing."

	first := WrapLines(face, text, max)
	second := WrapLines(face, text, max)
	assert.Equal(t, first, second)
	require.Greater(t, len(first), 1)

	for _, line := range first {
		assert.LessOrEqual(t, font.MeasureString(face, line), max, line)
		assert.Equal(t, strings.TrimSpace(line), line)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(first, " ")))
}

func TestWrapLinesBreaksWithoutSpaces(t *testing.T) {
	face := testFace(t, 33)
	max := fixed.I(120)
	text := strings.Repeat("你", 20)

	lines := WrapLines(face, text, max)
	require.Greater(t, len(lines), 1)
	assert.Equal(t, text, strings.Join(lines, ""))
	for _, line := range lines {
		assert.LessOrEqual(t, font.MeasureString(face, line), max)
	}
}

func TestWrapLinesHonoursNewlines(t *testing.T) {
	face := testFace(t, 20)
	lines := WrapLines(face, "one\ntwo", fixed.I(400))
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.Equal(t, []string{""}, WrapLines(face, "", fixed.I(400)))
}

func TestBuilderColours(t *testing.T) {
	b, err := NewBuilder(Options{})
	require.NoError(t, err)

	pair, err := b.Build(deck.Card{Title: "Truth", Content: "Say something kind."}, tierLow)
	require.NoError(t, err)
	require.Equal(t, tierLow, pair.Front.Rect.Size())
	require.Equal(t, tierLow, pair.Back.Rect.Size())

	lw := strokeWidth(tierLow.X)
	assert.Equal(t, 8, lw)

	assert.Equal(t, backFill, pair.Back.RGBAAt(0, 0))
	assert.Equal(t, backStroke, pair.Back.RGBAAt(lw, tierLow.Y/2))
	assert.Equal(t, backFill, pair.Back.RGBAAt(tierLow.X/2, tierLow.Y/2))

	assert.Equal(t, frontFill, pair.Front.RGBAAt(0, 0))
	assert.Equal(t, frontStroke, pair.Front.RGBAAt(lw, tierLow.Y/2))
	assert.True(t, hasColour(pair.Front, bodyColor), "body text drawn")
	assert.True(t, hasColour(pair.Front, titleColor), "title drawn")
}

func TestBuilderBackIsContentIndependent(t *testing.T) {
	b, err := NewBuilder(Options{})
	require.NoError(t, err)

	a, err := b.Build(deck.Card{Title: "A", Content: "first"}, tierLow)
	require.NoError(t, err)
	c, err := b.Build(deck.Card{Title: "B", Content: "second"}, tierLow)
	require.NoError(t, err)

	assert.Equal(t, a.Back.Pix, c.Back.Pix)
	assert.NotEqual(t, a.Front.Pix, c.Front.Pix)
}

func TestBuilderLayout(t *testing.T) {
	b, err := NewBuilder(Options{})
	require.NoError(t, err)

	l, err := b.Layout(deck.Card{Title: "T", Content: "short"}, tierLow)
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, l.BodyLines)
	assert.Equal(t, 43, l.LineHeight)
	assert.Equal(t, 409, l.MaxWidth)
	assert.Equal(t, 192, l.TitleY)
	assert.Equal(t, tierLow.Y/2-43/2, l.FirstLineY)

	long, err := b.Layout(deck.Card{Content: strings.Repeat("word ", 40)}, tierLow)
	require.NoError(t, err)
	assert.Greater(t, len(long.BodyLines), 1)
	assert.Less(t, long.FirstLineY, l.FirstLineY)
}

func TestBuilderRejectsEmptySize(t *testing.T) {
	b, err := NewBuilder(Options{})
	require.NoError(t, err)
	_, err = b.Build(deck.Card{Title: "x"}, image.Point{})
	assert.Error(t, err)
}

func TestBuilderPattern(t *testing.T) {
	pattern := image.NewRGBA(image.Rect(0, 0, 4, 4))
	red := color.RGBA{0xff, 0, 0, 0xff}
	for i := 0; i < len(pattern.Pix); i += 4 {
		copy(pattern.Pix[i:], []byte{red.R, red.G, red.B, red.A})
	}

	b, err := NewBuilder(Options{Pattern: pattern})
	require.NoError(t, err)

	back := b.Back(tierLow)
	mid := back.RGBAAt(tierLow.X/2, tierLow.Y/2)
	assert.Greater(t, mid.R, uint8(0xf0))
	assert.Less(t, mid.G, uint8(0x10))
	assert.Equal(t, backFill, back.RGBAAt(0, 0))
}

func TestNewBuilderMissingFont(t *testing.T) {
	_, err := NewBuilder(Options{FontPath: "/nonexistent/font.ttf"})
	assert.Error(t, err)
}

func hasColour(img *image.RGBA, c color.RGBA) bool {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i] == c.R && img.Pix[i+1] == c.G && img.Pix[i+2] == c.B && img.Pix[i+3] == c.A {
			return true
		}
	}
	return false
}
