// Package record holds the values the studio creates, persists and serves.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// MaxPaletteColors is the largest brand palette accepted.
const MaxPaletteColors = 5

// Image is an encoded image and its content type.
type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// IsZero reports whether the image carries no data.
func (i Image) IsZero() bool {
	return len(i.Data) == 0
}

// Equal reports whether both images carry the same bytes and type.
func (i Image) Equal(o Image) bool {
	return i.MIMEType == o.MIMEType && bytes.Equal(i.Data, o.Data)
}

// Generation is one successful batch: the source, every variation returned and
// the variation the user has selected.
type Generation struct {
	ID            string    `json:"id"`
	Source        Image     `json:"source"`
	Results       []Image   `json:"results"`
	SelectedIndex int       `json:"selected_index"`
	Prompt        string    `json:"prompt"`
	CreatedAt     time.Time `json:"created_at"`
	VideoRef      string    `json:"video_ref,omitempty"`
}

// Selected returns the selected result, or false if the index is out of range.
func (g Generation) Selected() (Image, bool) {
	if g.SelectedIndex < 0 || g.SelectedIndex >= len(g.Results) {
		return Image{}, false
	}
	return g.Results[g.SelectedIndex], true
}

// Clone returns a copy whose Results slice can be modified independently.
func (g Generation) Clone() Generation {
	c := g
	c.Results = make([]Image, len(g.Results))
	copy(c.Results, g.Results)
	return c
}

// Favorite is a copy of a single result the user wants to keep. It outlives the
// generation it came from.
type Favorite struct {
	ID        string    `json:"id"`
	Image     Image     `json:"image"`
	Source    Image     `json:"source"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	VideoRef  string    `json:"video_ref,omitempty"`
}

// BrandKit is the process-wide brand configuration folded into prompts.
type BrandKit struct {
	Enabled   bool     `json:"enabled"`
	Logo      *Image   `json:"logo,omitempty"`
	Palette   []string `json:"palette"`
	Voice     string   `json:"voice"`
	FontStyle string   `json:"font_style"`
}

var hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ErrInvalidBrandKit is returned when a brand kit cannot be stored.
var ErrInvalidBrandKit = errors.New("invalid brand kit")

// Validate checks the palette size and color syntax.
func (b BrandKit) Validate() error {
	if len(b.Palette) > MaxPaletteColors {
		return fmt.Errorf("%w: %d palette colors, at most %d allowed", ErrInvalidBrandKit, len(b.Palette), MaxPaletteColors)
	}
	for _, c := range b.Palette {
		if !hexColorPattern.MatchString(c) {
			return fmt.Errorf("%w: color %q is not #RGB or #RRGGBB", ErrInvalidBrandKit, c)
		}
	}
	if b.Logo != nil && b.Logo.IsZero() {
		return fmt.Errorf("%w: empty logo", ErrInvalidBrandKit)
	}
	return nil
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.New().String()
}
