package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/ayusman/footfit/internal/session"
	"github.com/ayusman/footfit/internal/tracking"
)

// jpegStub is the smallest byte sequence recognizable as a JPEG.
var jpegStub = []byte{0xFF, 0xD8, 0xFF, 0xD9}

// fakeSession is an in-memory session controller.
type fakeSession struct {
	mu       sync.Mutex
	active   bool
	enterErr error
	captures int
	subs     map[chan session.Snapshot]struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{subs: make(map[chan session.Snapshot]struct{})}
}

func (f *fakeSession) Enter(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return session.ErrActive
	}
	if f.enterErr != nil {
		return fmt.Errorf("acquire camera: %w", f.enterErr)
	}
	f.active = true
	return nil
}

func (f *fakeSession) Exit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return session.ErrInactive
	}
	f.active = false
	return nil
}

func (f *fakeSession) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return session.Snapshot{State: tracking.Searching, Message: tracking.MessageSearching}
	}
	return session.Snapshot{Active: true, SessionID: "fake", State: tracking.FeetLocked, Message: tracking.MessageFeetLocked, Visible: true}
}

func (f *fakeSession) Capture() ([]byte, error) {
	data, err := f.Frame()
	if err == nil {
		f.mu.Lock()
		f.captures++
		f.mu.Unlock()
	}
	return data, err
}

func (f *fakeSession) Frame() ([]byte, error) {
	if !f.Active() {
		return nil, session.ErrInactive
	}
	return jpegStub, nil
}

func (f *fakeSession) Subscribe() (<-chan session.Snapshot, func()) {
	ch := make(chan session.Snapshot, 8)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
		})
	}
}

func (f *fakeSession) publish(snap session.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		ch <- snap
	}
}

func (f *fakeSession) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
