// Package uhidkbd implements keyboard.Device as a virtual USB keyboard created
// through the Linux uhid driver.
//
// The keyboard sends US layout usages, so Type accepts printable ASCII plus
// newline (Return) and tab (Tab). Text with any other character is rejected
// before a single key is sent.
package uhidkbd

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/psanford/uhid"
	"go.uber.org/zap"

	"github.com/neuroplastio/neio-remote/internal/keyboard"
)

var defaultOptions = options{
	name:      "neio-remote keyboard",
	vendorID:  0x1209,
	productID: 0x4e52,
	tapDelay:  2 * time.Millisecond,
	sleep:     time.Sleep,
}

type options struct {
	name      string
	vendorID  uint32
	productID uint32
	tapDelay  time.Duration
	sleep     func(time.Duration)
}

type injector interface {
	InjectEvent(data []byte) error
	WriteEvent(event interface{}) error
}

type Keyboard struct {
	log     *zap.Logger
	options options
	out     injector
	close   func() error

	mu    sync.Mutex
	state report
}

// Open creates the virtual keyboard. It stays registered with the kernel until
// Close is called or ctx is done.
func Open(ctx context.Context, log *zap.Logger) (*Keyboard, error) {
	options := defaultOptions
	dev, err := uhid.NewDevice(options.name, reportDescriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to create uhid device: %w", err)
	}
	dev.Data.Bus = 0x03
	dev.Data.VendorID = options.vendorID
	dev.Data.ProductID = options.productID

	ctx, cancel := context.WithCancel(ctx)
	events, err := dev.Open(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open uhid device: %w", err)
	}
	kb := newKeyboard(log, dev, options)
	kb.close = func() error {
		cancel()
		return dev.Close()
	}
	go kb.run(ctx, events)
	log.Info("Virtual keyboard created", zap.String("name", options.name))
	return kb, nil
}

func newKeyboard(log *zap.Logger, out injector, options options) *Keyboard {
	return &Keyboard{
		log:     log,
		options: options,
		out:     out,
	}
}

func (k *Keyboard) Close() error {
	if k.close == nil {
		return nil
	}
	return k.close()
}

func (k *Keyboard) inject(r report) error {
	return k.out.InjectEvent(r.bytes())
}

func (k *Keyboard) Press(key keyboard.Key) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	next := k.state
	if key.IsModifier() {
		next.modifiers |= key.ModifierBit()
	} else if err := next.press(key.Usage); err != nil {
		return err
	}
	if err := k.inject(next); err != nil {
		return err
	}
	k.state = next
	return nil
}

func (k *Keyboard) Release(key keyboard.Key) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	next := k.state
	if key.IsModifier() {
		next.modifiers &^= key.ModifierBit()
	} else {
		next.release(key.Usage)
	}
	if err := k.inject(next); err != nil {
		return err
	}
	k.state = next
	return nil
}

func (k *Keyboard) Click(key keyboard.Key) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tap(key)
}

// Type clicks one key per character, adding Shift where the character needs it.
// The whole text is mapped before the first report, so unsupported text types
// nothing.
func (k *Keyboard) Type(text string) error {
	keys, err := textKeys(text)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		if err := k.tap(key); err != nil {
			return err
		}
	}
	return nil
}

func textKeys(text string) ([]keyboard.Key, error) {
	keys := make([]keyboard.Key, 0, len(text))
	for _, r := range text {
		switch r {
		case '\n':
			keys = append(keys, keyboard.Return)
		case '\t':
			keys = append(keys, keyboard.Tab)
		default:
			key, err := keyboard.CharKey(r)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (k *Keyboard) tap(key keyboard.Key) error {
	down := k.state
	if key.IsModifier() {
		down.modifiers |= key.ModifierBit()
	} else {
		if key.Shift {
			down.modifiers |= keyboard.Shift.ModifierBit()
		}
		if err := down.press(key.Usage); err != nil {
			return err
		}
	}
	if err := k.inject(down); err != nil {
		return err
	}
	k.options.sleep(k.options.tapDelay)
	return k.inject(k.state)
}

type UhidReportType uint8

const (
	UhidReportTypeFeature UhidReportType = 0
	UhidReportTypeOutput  UhidReportType = 1
	UhidReportTypeInput   UhidReportType = 2
)

type GetReportRequest struct {
	RequestID  uint32
	ReportID   uint8
	ReportType UhidReportType
}

const uhidReportSize = 4096

type GetReportReply struct {
	EventType uhid.EventType
	RequestID uint32
	Error     uint16
	Size      uint16
	Data      [uhidReportSize]byte
}

type SetReportRequest struct {
	RequestID  uint32
	ReportID   uint8
	ReportType UhidReportType
	Size       uint16
	Data       [uhidReportSize]byte
}

type SetReportReply struct {
	EventType uhid.EventType
	RequestID uint32
	Error     uint16
}

func (k *Keyboard) run(ctx context.Context, events chan uhid.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			k.handleEvent(event)
		}
	}
}

func (k *Keyboard) handleEvent(event uhid.Event) {
	switch event.Type {
	case uhid.Output:
		// LED state from the host; a remote has no LEDs to show it on.
		k.log.Debug("Output report", zap.Binary("data", event.Data))
	case uhid.GetReport:
		var req GetReportRequest
		if err := binary.Read(bytes.NewReader(event.Data), binary.LittleEndian, &req); err != nil {
			k.log.Error("failed to read GetReport request", zap.Error(err))
			return
		}
		reply := GetReportReply{
			EventType: uhid.GetReportReply,
			RequestID: req.RequestID,
		}
		if req.ReportType == UhidReportTypeInput {
			k.mu.Lock()
			data := k.state.bytes()
			k.mu.Unlock()
			reply.Size = uint16(len(data))
			copy(reply.Data[:], data)
		} else {
			reply.Error = 1
		}
		if err := k.out.WriteEvent(reply); err != nil {
			k.log.Error("failed to write GetReport reply", zap.Error(err))
		}
	case uhid.SetReport:
		var req SetReportRequest
		if err := binary.Read(bytes.NewReader(event.Data), binary.LittleEndian, &req); err != nil {
			k.log.Error("failed to read SetReport request", zap.Error(err))
			return
		}
		reply := SetReportReply{
			EventType: uhid.SetReportReply,
			RequestID: req.RequestID,
		}
		if err := k.out.WriteEvent(reply); err != nil {
			k.log.Error("failed to write SetReport reply", zap.Error(err))
		}
	}
}
