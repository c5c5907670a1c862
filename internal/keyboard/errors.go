package keyboard

import (
	"errors"
	"fmt"
)

var ErrNoMainKey = errors.New("no main key specified")

type UnknownKeyError struct {
	Name string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key: %s", e.Name)
}

// DeviceError is returned when the input device rejects an operation.
type DeviceError struct {
	Op  string
	Key string
	Err error
}

func (e *DeviceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
