// Package keyboard turns button actions into keystrokes on a host input device.
package keyboard

import "go.uber.org/zap"

// Device is the host input device keystrokes are synthesized on.
// Click is a press immediately followed by a release.
// Type inserts text in a single operation.
type Device interface {
	Press(key Key) error
	Release(key Key) error
	Click(key Key) error
	Type(text string) error
}

// LogDevice only logs the operations it receives. It backs dry runs and hosts
// without a supported input backend.
type LogDevice struct {
	log *zap.Logger
}

func NewLogDevice(log *zap.Logger) *LogDevice {
	return &LogDevice{log: log}
}

func (d *LogDevice) Press(key Key) error {
	d.log.Info("press", zap.Stringer("key", key))
	return nil
}

func (d *LogDevice) Release(key Key) error {
	d.log.Info("release", zap.Stringer("key", key))
	return nil
}

func (d *LogDevice) Click(key Key) error {
	d.log.Info("click", zap.Stringer("key", key))
	return nil
}

func (d *LogDevice) Type(text string) error {
	d.log.Info("type", zap.Int("length", len(text)))
	return nil
}
