package cuelist

import (
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Cue is a lighting or media scene that a device can start and stop. Cues are compared
// by ID only.
type Cue struct {
	// ID is unique within a scheduler and assigned by it when left at zero.
	ID int64 `yaml:"id" json:"id"`

	// Number is the optional cue number the playback device knows the scene by.
	Number *int `yaml:"number,omitempty" json:"number,omitempty"`

	// The name or label associated with the cue
	Name string `yaml:"name" json:"name"`

	// Color is an optional hex colour used when displaying the cue, e.g. "#ff8800".
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

func NewCue(id int64, number *int, name string) Cue {
	return Cue{
		ID:     id,
		Number: number,
		Name:   name,
	}
}

// Clone returns a copy of the cue that shares no memory with c.
func (c Cue) Clone() Cue {
	if c.Number != nil {
		c.Number = IntPtr(*c.Number)
	}
	return c
}

// SameOutput reports whether both cues drive a device the same way: same ID, cue number
// and colour.
func (c Cue) SameOutput(other Cue) bool {
	return c.ID == other.ID && c.CueNumber() == other.CueNumber() && c.Color == other.Color
}

// Equal reports whether both cues share an ID.
func (c Cue) Equal(other Cue) bool {
	return c.ID == other.ID
}

// Validate checks the display metadata of the cue.
func (c Cue) Validate() error {
	if c.Name == "" {
		return errors.New("cue name is empty")
	}
	if c.Color != "" {
		if _, err := colorful.Hex(c.Color); err != nil {
			return fmt.Errorf("cue %q has an invalid color %q: %w", c.Name, c.Color, err)
		}
	}
	return nil
}

// RGB returns the cue colour as 8-bit channels. ok is false when no valid colour is set.
func (c Cue) RGB() (r, g, b uint8, ok bool) {
	if c.Color == "" {
		return 0, 0, 0, false
	}
	col, err := colorful.Hex(c.Color)
	if err != nil {
		return 0, 0, 0, false
	}
	r, g, b = col.RGB255()
	return r, g, b, true
}

// CueNumber returns the number a device should select for this cue, falling back to the
// ID when the cue has no number of its own.
func (c Cue) CueNumber() int {
	if c.Number != nil {
		return *c.Number
	}
	return int(c.ID)
}

func (c Cue) String() string {
	if c.Number != nil {
		return fmt.Sprintf("%d:%s", *c.Number, c.Name)
	}
	return fmt.Sprintf("#%d:%s", c.ID, c.Name)
}

// IntPtr is a small helper for building cues with a number.
func IntPtr(n int) *int {
	return &n
}
