package faces

import (
	"fmt"
	"image"
	"sync"

	"duo-cards/internal/deck"
	"duo-cards/internal/utils"

	"github.com/pierrec/lz4/v4"
)

// DefaultBackVariant names the plain back design.
const DefaultBackVariant = "default"

type frontKey struct {
	size    image.Point
	title   string
	content string
}

type backKey struct {
	variant string
	size    image.Point
}

// packedImage keeps an RGBA pixel buffer, optionally lz4-compressed.
type packedImage struct {
	rect   image.Rectangle
	stride int
	data   []byte
	rawLen int
	packed bool
}

// Cache memoises face images in front of a Builder. Every hit returns a fresh
// image, so each card mesh uploads and releases its own copy.
type Cache struct {
	mu       sync.Mutex
	builder  *Builder
	variant  string
	compress bool
	fronts   map[frontKey]*packedImage
	backs    map[backKey]*packedImage
	hits     int
	misses   int
}

// NewCache wraps builder. With compress set, cached pixels are held lz4-compressed.
func NewCache(builder *Builder, compress bool) *Cache {
	return &Cache{
		builder:  builder,
		variant:  DefaultBackVariant,
		compress: compress,
		fronts:   make(map[frontKey]*packedImage),
		backs:    make(map[backKey]*packedImage),
	}
}

// Build returns the faces of card, drawing only what is not cached yet.
func (c *Cache) Build(card deck.Card, size image.Point) (Pair, error) {
	if size.X <= 0 || size.Y <= 0 {
		return Pair{}, fmt.Errorf("invalid face size %v", size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	bk := backKey{variant: c.variant, size: size}
	back, ok := c.backs[bk]
	if !ok {
		c.misses++
		back = c.pack(c.builder.Back(size))
		c.backs[bk] = back
	} else {
		c.hits++
	}

	fk := frontKey{size: size, title: card.Title, content: card.Content}
	front, ok := c.fronts[fk]
	if !ok {
		c.misses++
		pair, err := c.builder.Build(card, size)
		if err != nil {
			return Pair{}, err
		}
		front = c.pack(pair.Front)
		c.fronts[fk] = front
	} else {
		c.hits++
	}

	frontImg, err := front.unpack()
	if err != nil {
		return Pair{}, fmt.Errorf("front face: %w", err)
	}
	backImg, err := back.unpack()
	if err != nil {
		return Pair{}, fmt.Errorf("back face: %w", err)
	}
	return Pair{Front: frontImg, Back: backImg}, nil
}

// Stats reports cache hits and misses since creation or the last Clear.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len reports the number of cached fronts and backs.
func (c *Cache) Len() (fronts, backs int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fronts), len(c.backs)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fronts = make(map[frontKey]*packedImage)
	c.backs = make(map[backKey]*packedImage)
	c.hits, c.misses = 0, 0
}

func (c *Cache) pack(img *image.RGBA) *packedImage {
	p := &packedImage{rect: img.Rect, stride: img.Stride, rawLen: len(img.Pix)}
	if !c.compress {
		p.data = img.Pix
		return p
	}

	var comp lz4.Compressor
	buf := make([]byte, lz4.CompressBlockBound(len(img.Pix)))
	n, err := comp.CompressBlock(img.Pix, buf)
	if err != nil || n == 0 || n >= len(img.Pix) {
		if err != nil {
			utils.Debug("Faces: lz4 pack failed, keeping raw pixels: %v", err)
		}
		p.data = img.Pix
		return p
	}
	p.data = buf[:n:n]
	p.packed = true
	return p
}

func (p *packedImage) unpack() (*image.RGBA, error) {
	pix := make([]byte, p.rawLen)
	if p.packed {
		n, err := lz4.UncompressBlock(p.data, pix)
		if err != nil {
			return nil, err
		}
		if n != p.rawLen {
			return nil, fmt.Errorf("lz4: got %d bytes, want %d", n, p.rawLen)
		}
	} else {
		copy(pix, p.data)
	}
	return &image.RGBA{Pix: pix, Stride: p.stride, Rect: p.rect}, nil
}
