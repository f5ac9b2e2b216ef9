package faces

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"duo-cards/internal/utils"

	"github.com/mauserzjeh/dxt"
	"github.com/pierrec/lz4/v4"
)

const (
	texMagic       = "TEXV0005"
	texFormatDXT5  = 6
	texFormatDXT1  = 4
	texFormatDXT1A = 7
	texFormatR8    = 9
	texFormatRG88  = 8
	texBlockHeader = "TEXB0001"
)

// LoadBackPattern decodes card-back artwork from a PNG, JPEG or packed .tex file.
func LoadBackPattern(path string) (*image.RGBA, error) {
	if path == "" {
		return nil, fmt.Errorf("empty pattern path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".tex") {
		img, err := DecodeTex(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		utils.Debug("Faces: loaded back pattern %s (%v)", path, img.Rect.Size())
		return img, nil
	}

	src, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	utils.Debug("Faces: loaded back pattern %s (%v)", path, img.Rect.Size())
	return img, nil
}

type texReader struct {
	r   io.Reader
	err error
}

func (t *texReader) u32() uint32 {
	var v uint32
	if t.err == nil {
		t.err = binary.Read(t.r, binary.LittleEndian, &v)
	}
	return v
}

func (t *texReader) str(n int) string {
	b := make([]byte, n)
	if t.err == nil {
		_, t.err = io.ReadFull(t.r, b)
	}
	return string(bytes.Trim(b, "\x00"))
}

func (t *texReader) skip(n int64) {
	if t.err == nil {
		_, t.err = io.CopyN(io.Discard, t.r, n)
	}
}

func (t *texReader) bytes(n uint32) []byte {
	if t.err != nil {
		return nil
	}
	b := make([]byte, n)
	_, t.err = io.ReadFull(t.r, b)
	return b
}

// DecodeTex reads the first mip level of a TEXV0005 texture. Pixel data may be
// lz4-compressed and stored as RGBA, DXT1, DXT5, R8 or RG88.
func DecodeTex(r io.Reader) (*image.RGBA, error) {
	t := &texReader{r: r}

	magic := t.str(8)
	t.skip(1)
	t.str(8)
	t.skip(1)
	if t.err != nil {
		return nil, t.err
	}
	if magic != texMagic {
		return nil, fmt.Errorf("invalid magic: %s", magic)
	}

	format := t.u32()
	t.skip(4)
	t.u32()
	t.u32()
	imgW := t.u32()
	imgH := t.u32()
	t.u32()

	container := t.str(8)
	t.skip(1)
	imageCount := t.u32()
	if container == "TEXB0003" {
		t.u32()
	}
	if t.err != nil {
		return nil, fmt.Errorf("texture header: %w", t.err)
	}
	if imageCount == 0 {
		return nil, fmt.Errorf("no image found in texture")
	}

	mipCount := t.u32()
	if mipCount == 0 && t.err == nil {
		return nil, fmt.Errorf("no mip levels in texture")
	}
	mW := t.u32()
	mH := t.u32()
	var lz4Packed bool
	var rawSize uint32
	if container != texBlockHeader {
		lz4Packed = t.u32() == 1
		rawSize = t.u32()
	}
	data := t.bytes(t.u32())
	if t.err != nil {
		return nil, fmt.Errorf("texture data: %w", t.err)
	}

	if lz4Packed {
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		data = out[:n]
	}

	pix, err := texPixels(format, data, mW, mH)
	if err != nil {
		return nil, err
	}

	img := &image.RGBA{Pix: pix, Stride: int(mW) * 4, Rect: image.Rect(0, 0, int(mW), int(mH))}
	if imgW > 0 && imgH > 0 && (imgW < mW || imgH < mH) {
		img = img.SubImage(image.Rect(0, 0, int(imgW), int(imgH))).(*image.RGBA)
	}
	return img, nil
}

func texPixels(format uint32, data []byte, w, h uint32) ([]byte, error) {
	blocks := ((w + 3) / 4) * ((h + 3) / 4)
	rgbaSize := w * h * 4
	n := uint32(len(data))

	switch {
	case n == rgbaSize:
		return data, nil
	case format == texFormatR8 && n == rgbaSize/4:
		pix := make([]byte, rgbaSize)
		for i, v := range data {
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = v, v, v, 0xff
		}
		return pix, nil
	case format == texFormatRG88 && n == rgbaSize/2:
		pix := make([]byte, rgbaSize)
		for i := 0; i < int(w*h); i++ {
			l, a := data[i*2], data[i*2+1]
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = l, l, l, a
		}
		return pix, nil
	case format == texFormatDXT5 || n == blocks*16:
		return dxt.DecodeDXT5(data, uint(w), uint(h))
	case format == texFormatDXT1 || format == texFormatDXT1A || n == blocks*8:
		return dxt.DecodeDXT1(data, uint(w), uint(h))
	}
	return nil, fmt.Errorf("unsupported format %d with size %d", format, n)
}
