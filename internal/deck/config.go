// Package deck holds the button deck configuration served to remote clients.
package deck

import (
	"errors"
	"fmt"
)

type Config struct {
	Port      uint16   `json:"port"`
	PIN       string   `json:"pin"`
	AutoStart bool     `json:"auto_start"`
	Grid      Grid     `json:"grid"`
	Buttons   []Button `json:"buttons"`
}

type Grid struct {
	Columns uint8 `json:"columns"`
	Rows    uint8 `json:"rows"`
}

type Button struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Position Position `json:"position"`
	Action   Action   `json:"-"`
	Color    *string  `json:"color,omitempty"`
	Repeat   *Repeat  `json:"repeat,omitempty"`
}

type Position struct {
	X      uint8 `json:"x"`
	Y      uint8 `json:"y"`
	Width  uint8 `json:"width"`
	Height uint8 `json:"height"`
}

const DefaultRepeatInterval = 100

// Repeat is interpreted by the web client: holding the button re-sends the
// action every IntervalMS milliseconds.
type Repeat struct {
	Enabled    bool   `json:"enabled"`
	IntervalMS uint32 `json:"interval_ms"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the invariants the dispatch server relies on.
func (c Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("%w: port must be set", ErrInvalidConfig)
	}
	if c.Grid.Columns == 0 || c.Grid.Rows == 0 {
		return fmt.Errorf("%w: grid must have at least one column and one row", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Buttons))
	for _, b := range c.Buttons {
		if b.ID == "" {
			return fmt.Errorf("%w: button %q has an empty id", ErrInvalidConfig, b.Label)
		}
		if _, ok := seen[b.ID]; ok {
			return fmt.Errorf("%w: duplicate button id %q", ErrInvalidConfig, b.ID)
		}
		seen[b.ID] = struct{}{}
		if b.Action == nil {
			return fmt.Errorf("%w: button %q has no action", ErrInvalidConfig, b.ID)
		}
		p := b.Position
		if p.Width == 0 || p.Height == 0 {
			return fmt.Errorf("%w: button %q has an empty size", ErrInvalidConfig, b.ID)
		}
		if int(p.X)+int(p.Width) > int(c.Grid.Columns) || int(p.Y)+int(p.Height) > int(c.Grid.Rows) {
			return fmt.Errorf("%w: button %q does not fit the %dx%d grid", ErrInvalidConfig, b.ID, c.Grid.Columns, c.Grid.Rows)
		}
	}
	return nil
}
