package deck

import (
	"errors"
	"fmt"
)

var ErrButtonNotFound = errors.New("button not found")

// Resolve returns the action of the button with the given id.
// The button list is small, so a linear scan is enough.
func Resolve(id string, buttons []Button) (Action, error) {
	for _, b := range buttons {
		if b.ID == id {
			return b.Action, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrButtonNotFound, id)
}
