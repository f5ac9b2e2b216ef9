// Package deck supplies card content: the embedded default deck, deck files
// on disk (plain or lz4-framed JSON) and the per-round subset dealt to a stage.
package deck

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"duo-cards/internal/utils"

	"github.com/pierrec/lz4/v4"
)

// Card is the text of one card. Values are immutable once dealt.
type Card struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Kind    string `json:"type,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Deck is the pool a round's cards are dealt from.
type Deck struct {
	Name  string `json:"name,omitempty"`
	Cards []Card `json:"cards"`
}

var ErrEmptyDeck = errors.New("deck has no cards")

//go:embed default.json
var defaultDeck []byte

// Default returns the deck compiled into the binary.
func Default() (*Deck, error) {
	return Parse(bytes.NewReader(defaultDeck))
}

// Load reads a deck file. Files ending in .lz4 are lz4 frames wrapping the JSON.
func Load(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".lz4") {
		utils.Debug("Deck: decompressing %s", path)
		r = lz4.NewReader(f)
	}

	d, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("deck %s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	utils.Info("Deck: loaded %q (%d cards)", d.Name, len(d.Cards))
	return d, nil
}

// Parse decodes either {"cards": [...]} or a bare array of cards.
func Parse(r io.Reader) (*Deck, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var d Deck
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &d.Cards)
	} else {
		err = json.Unmarshal(trimmed, &d)
	}
	if err != nil {
		return nil, err
	}

	cards := d.Cards[:0]
	for _, c := range d.Cards {
		c.Title = strings.TrimSpace(c.Title)
		c.Content = strings.TrimSpace(c.Content)
		if c.Title == "" && c.Content == "" {
			continue
		}
		cards = append(cards, c)
	}
	d.Cards = cards

	if len(d.Cards) == 0 {
		return nil, ErrEmptyDeck
	}
	return &d, nil
}

// Save writes the deck as JSON, lz4-framed when path ends in .lz4.
func (d *Deck) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var zw *lz4.Writer
	if strings.EqualFold(filepath.Ext(path), ".lz4") {
		zw = lz4.NewWriter(f)
		w = zw
	}

	if _, err := w.Write(data); err != nil {
		f.Close()
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// Deal returns n distinct cards in shuffled order. When the deck holds fewer
// than n cards all of them are returned.
func (d *Deck) Deal(n int, rng *rand.Rand) []Card {
	if n <= 0 || len(d.Cards) == 0 {
		return nil
	}
	order := rng.Perm(len(d.Cards))
	if n > len(order) {
		n = len(order)
	}
	out := make([]Card, n)
	for i := 0; i < n; i++ {
		out[i] = d.Cards[order[i]]
	}
	return out
}
