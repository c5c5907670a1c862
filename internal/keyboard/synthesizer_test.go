package keyboard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neuroplastio/neio-remote/internal/deck"
	"github.com/neuroplastio/neio-remote/internal/keyboard"
	"github.com/neuroplastio/neio-remote/internal/keyboard/keyboardtest"
)

var releaseAll = []string{"release Meta", "release Control", "release Alt", "release Shift"}

type sleepLog struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepLog) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
}

func newSynth(rec *keyboardtest.Recorder, sleeps *sleepLog) *keyboard.Synthesizer {
	return keyboard.NewSynthesizer(zap.NewNop(), rec, keyboard.WithSleep(sleeps.sleep))
}

func TestParseCombo(t *testing.T) {
	combo, err := keyboard.ParseCombo([]string{"Meta", "Shift", "C"})
	require.NoError(t, err)
	assert.Equal(t, []keyboard.Key{keyboard.Meta, keyboard.Shift}, combo.Modifiers)
	assert.Equal(t, "C", combo.Main.Name)

	combo, err = keyboard.ParseCombo([]string{"A", "B"})
	require.NoError(t, err)
	assert.Empty(t, combo.Modifiers)
	assert.Equal(t, "B", combo.Main.Name)

	_, err = keyboard.ParseCombo([]string{"Meta"})
	assert.ErrorIs(t, err, keyboard.ErrNoMainKey)

	_, err = keyboard.ParseCombo(nil)
	assert.ErrorIs(t, err, keyboard.ErrNoMainKey)

	_, err = keyboard.ParseCombo([]string{"Meta", "Xyz123"})
	var unknown *keyboard.UnknownKeyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Xyz123", unknown.Name)
}

func TestPlainKeyIsSingleClick(t *testing.T) {
	rec := keyboardtest.NewRecorder()
	sleeps := &sleepLog{}
	err := newSynth(rec, sleeps).Execute(context.Background(), deck.Shortcut{Keys: []string{"Tab"}})
	require.NoError(t, err)

	expected := append(append([]string{}, releaseAll...), "click Tab")
	assert.Equal(t, expected, rec.Calls())
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeps.sleeps)
}

func TestModifierCombo(t *testing.T) {
	rec := keyboardtest.NewRecorder()
	sleeps := &sleepLog{}
	err := newSynth(rec, sleeps).Execute(context.Background(), deck.Shortcut{Keys: []string{"Meta", "Shift", "C"}})
	require.NoError(t, err)

	expected := append(append([]string{}, releaseAll...),
		"press Meta",
		"press Shift",
		"click C",
		"release Shift",
		"release Meta",
	)
	assert.Equal(t, expected, rec.Calls())
	key := 20 * time.Millisecond
	assert.Equal(t, []time.Duration{10 * time.Millisecond, key, key, key, key, key}, sleeps.sleeps)
}

func TestLastMainKeyWins(t *testing.T) {
	rec := keyboardtest.NewRecorder()
	err := newSynth(rec, &sleepLog{}).Execute(context.Background(), deck.Shortcut{Keys: []string{"A", "Control", "B"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"press Control", "click B", "release Control"}, rec.Calls()[len(releaseAll):])
}

func TestInvalidShortcutPressesNothing(t *testing.T) {
	type testCase struct {
		keys []string
		err  func(t *testing.T, err error)
	}
	testCases := []testCase{
		{
			keys: []string{"Meta"},
			err: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, keyboard.ErrNoMainKey)
			},
		},
		{
			keys: []string{"Meta", "Xyz123"},
			err: func(t *testing.T, err error) {
				var unknown *keyboard.UnknownKeyError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, "Xyz123", unknown.Name)
				assert.EqualError(t, err, "unknown key: Xyz123")
			},
		},
	}
	for _, tc := range testCases {
		rec := keyboardtest.NewRecorder()
		err := newSynth(rec, &sleepLog{}).Execute(context.Background(), deck.Shortcut{Keys: tc.keys})
		tc.err(t, err)
		assert.Equal(t, releaseAll, rec.Calls(), "keys %v", tc.keys)
	}
}

func TestTextAndEnter(t *testing.T) {
	rec := keyboardtest.NewRecorder()
	err := newSynth(rec, &sleepLog{}).Execute(context.Background(), deck.TextAndEnter{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{"type hello", "click Return"}, rec.Calls())
}

func TestDeviceFailureAborts(t *testing.T) {
	boom := errors.New("device busy")

	rec := keyboardtest.NewRecorder()
	rec.Fail["press Shift"] = boom
	err := newSynth(rec, &sleepLog{}).Execute(context.Background(), deck.Shortcut{Keys: []string{"Meta", "Shift", "C"}})
	var devErr *keyboard.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "press", devErr.Op)
	assert.Equal(t, "Shift", devErr.Key)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "press Meta", rec.Calls()[len(rec.Calls())-1])

	rec = keyboardtest.NewRecorder()
	rec.Fail["type hi"] = boom
	err = newSynth(rec, &sleepLog{}).Execute(context.Background(), deck.TextAndEnter{Text: "hi"})
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "type text", devErr.Op)
	assert.Empty(t, rec.Calls())
}

func TestModifierResetFailureIsIgnored(t *testing.T) {
	rec := keyboardtest.NewRecorder()
	rec.Fail["release Alt"] = errors.New("not pressed")
	err := newSynth(rec, &sleepLog{}).Execute(context.Background(), deck.Shortcut{Keys: []string{"Tab"}})
	require.NoError(t, err)
	assert.Equal(t, "click Tab", rec.Calls()[len(rec.Calls())-1])
}

func TestCancelledContextSkipsExecution(t *testing.T) {
	rec := keyboardtest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newSynth(rec, &sleepLog{}).Execute(ctx, deck.Shortcut{Keys: []string{"Tab"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.Calls())
}

func TestConcurrentActionsDoNotInterleave(t *testing.T) {
	rec := keyboardtest.NewRecorder()
	synth := keyboard.NewSynthesizer(zap.NewNop(), rec, keyboard.WithSleep(func(time.Duration) {
		time.Sleep(time.Millisecond)
	}))
	var wg sync.WaitGroup
	for _, main := range []string{"A", "B"} {
		wg.Add(1)
		go func(main string) {
			defer wg.Done()
			assert.NoError(t, synth.Execute(context.Background(), deck.Shortcut{Keys: []string{"Control", main}}))
		}(main)
	}
	wg.Wait()

	calls := rec.Calls()
	require.Len(t, calls, 14)
	for _, run := range [][]string{calls[:7], calls[7:]} {
		assert.Equal(t, releaseAll, run[:4])
		assert.Equal(t, "press Control", run[4])
		assert.Equal(t, "release Control", run[6])
	}
}
