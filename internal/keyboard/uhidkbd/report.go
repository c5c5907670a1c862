package uhidkbd

import (
	"errors"
)

// reportDescriptor describes a boot protocol keyboard: one modifier byte, one
// reserved byte, five LED output bits and a six key rollover array.
var reportDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x06, // Usage (Keyboard)
	0xa1, 0x01, // Collection (Application)
	0x05, 0x07, //   Usage Page (Keyboard/Keypad)
	0x19, 0xe0, //   Usage Minimum (Left Control)
	0x29, 0xe7, //   Usage Maximum (Right GUI)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x08, //   Report Count (8)
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0x95, 0x01, //   Report Count (1)
	0x75, 0x08, //   Report Size (8)
	0x81, 0x01, //   Input (Constant)
	0x95, 0x05, //   Report Count (5)
	0x75, 0x01, //   Report Size (1)
	0x05, 0x08, //   Usage Page (LEDs)
	0x19, 0x01, //   Usage Minimum (Num Lock)
	0x29, 0x05, //   Usage Maximum (Kana)
	0x91, 0x02, //   Output (Data, Variable, Absolute)
	0x95, 0x01, //   Report Count (1)
	0x75, 0x03, //   Report Size (3)
	0x91, 0x01, //   Output (Constant)
	0x95, 0x06, //   Report Count (6)
	0x75, 0x08, //   Report Size (8)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x65, //   Logical Maximum (101)
	0x05, 0x07, //   Usage Page (Keyboard/Keypad)
	0x19, 0x00, //   Usage Minimum (0)
	0x29, 0x65, //   Usage Maximum (101)
	0x81, 0x00, //   Input (Data, Array, Absolute)
	0xc0, // End Collection
}

const reportSize = 8

var ErrRollover = errors.New("too many keys pressed")

// report is the state of the boot keyboard input report.
type report struct {
	modifiers uint8
	keys      [6]uint8
}

func (r report) bytes() []byte {
	b := make([]byte, reportSize)
	b[0] = r.modifiers
	copy(b[2:], r.keys[:])
	return b
}

func (r *report) press(usage uint8) error {
	free := -1
	for i, k := range r.keys {
		if k == usage {
			return nil
		}
		if k == 0 && free < 0 {
			free = i
		}
	}
	if free < 0 {
		return ErrRollover
	}
	r.keys[free] = usage
	return nil
}

func (r *report) release(usage uint8) {
	for i, k := range r.keys {
		if k == usage {
			r.keys[i] = 0
		}
	}
}
