// Package keyboardtest provides a recording keyboard.Device for tests.
package keyboardtest

import (
	"sync"

	"github.com/neuroplastio/neio-remote/internal/keyboard"
)

// Recorder records every device operation as "<op> <key>" (or "type <text>").
// Operations listed in Fail return the mapped error instead of being recorded.
type Recorder struct {
	mu    sync.Mutex
	calls []string
	Fail  map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{Fail: make(map[string]error)}
}

func (r *Recorder) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.Fail[call]; ok {
		return err
	}
	r.calls = append(r.calls, call)
	return nil
}

func (r *Recorder) Press(key keyboard.Key) error {
	return r.record("press " + key.Name)
}

func (r *Recorder) Release(key keyboard.Key) error {
	return r.record("release " + key.Name)
}

func (r *Recorder) Click(key keyboard.Key) error {
	return r.record("click " + key.Name)
}

func (r *Recorder) Type(text string) error {
	return r.record("type " + text)
}

func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
