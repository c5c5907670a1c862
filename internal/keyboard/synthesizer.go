package keyboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neuroplastio/neio-remote/internal/deck"
)

var defaultOptions = options{
	settleDelay: 10 * time.Millisecond,
	keyDelay:    20 * time.Millisecond,
	sleep:       time.Sleep,
}

type options struct {
	settleDelay time.Duration
	keyDelay    time.Duration
	sleep       func(time.Duration)
}

type Option func(*options)

// WithSleep replaces time.Sleep for the settle and key delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// Synthesizer executes button actions on a Device.
// Executions are serialized so concurrent actions never interleave keystrokes.
type Synthesizer struct {
	log     *zap.Logger
	dev     Device
	options options

	mu sync.Mutex
}

func NewSynthesizer(log *zap.Logger, dev Device, opts ...Option) *Synthesizer {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Synthesizer{
		log:     log,
		dev:     dev,
		options: options,
	}
}

func (s *Synthesizer) Execute(ctx context.Context, action deck.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch a := action.(type) {
	case deck.Shortcut:
		return s.shortcut(a.Keys)
	case deck.TextAndEnter:
		return s.textAndEnter(a.Text)
	default:
		return fmt.Errorf("unsupported action %T", action)
	}
}

// Combo is a parsed shortcut: modifiers held in order around one main key.
type Combo struct {
	Modifiers []Key
	Main      Key
}

// ParseCombo partitions keys into modifiers and a main key.
// When several non-modifier keys are given, the last one wins.
func ParseCombo(keys []string) (Combo, error) {
	var combo Combo
	hasMain := false
	for _, name := range keys {
		key, err := Resolve(name)
		if err != nil {
			return Combo{}, err
		}
		if key.IsModifier() {
			combo.Modifiers = append(combo.Modifiers, key)
			continue
		}
		combo.Main = key
		hasMain = true
	}
	if !hasMain {
		return Combo{}, ErrNoMainKey
	}
	return combo, nil
}

func (s *Synthesizer) shortcut(keys []string) error {
	// Host modifier state may be stale after an earlier partial execution.
	for _, mod := range Modifiers {
		if err := s.dev.Release(mod); err != nil {
			s.log.Debug("failed to reset modifier", zap.Stringer("key", mod), zap.Error(err))
		}
	}
	s.options.sleep(s.options.settleDelay)

	combo, err := ParseCombo(keys)
	if err != nil {
		return err
	}
	s.log.Debug("executing shortcut", zap.Strings("keys", keys), zap.Stringers("modifiers", combo.Modifiers), zap.Stringer("main", combo.Main))

	if len(combo.Modifiers) == 0 {
		if err := s.dev.Click(combo.Main); err != nil {
			return &DeviceError{Op: "click", Key: combo.Main.Name, Err: err}
		}
		return nil
	}

	for _, mod := range combo.Modifiers {
		if err := s.dev.Press(mod); err != nil {
			return &DeviceError{Op: "press", Key: mod.Name, Err: err}
		}
		s.options.sleep(s.options.keyDelay)
	}
	if err := s.dev.Click(combo.Main); err != nil {
		return &DeviceError{Op: "click", Key: combo.Main.Name, Err: err}
	}
	s.options.sleep(s.options.keyDelay)
	for i := len(combo.Modifiers) - 1; i >= 0; i-- {
		mod := combo.Modifiers[i]
		if err := s.dev.Release(mod); err != nil {
			return &DeviceError{Op: "release", Key: mod.Name, Err: err}
		}
		s.options.sleep(s.options.keyDelay)
	}
	return nil
}

func (s *Synthesizer) textAndEnter(text string) error {
	s.log.Debug("typing text", zap.Int("length", len(text)))
	if err := s.dev.Type(text); err != nil {
		return &DeviceError{Op: "type text", Err: err}
	}
	if err := s.dev.Click(Return); err != nil {
		return &DeviceError{Op: "click", Key: Return.Name, Err: err}
	}
	return nil
}
