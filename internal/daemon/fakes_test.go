package daemon

import (
	"context"
	"errors"
	"sync"

	"github.com/jmylchreest/worktimer/internal/audio"
	"github.com/jmylchreest/worktimer/internal/notify"
)

type fakeStream struct {
	mu      sync.Mutex
	path    string
	playing bool
	volume  float64
	closed  bool
}

func (s *fakeStream) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

func (s *fakeStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *fakeStream) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
}

func (s *fakeStream) Err() error { return nil }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fakeStream) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *fakeStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeBackend opens a fakeStream per path; paths in missing fail.
type fakeBackend struct {
	mu      sync.Mutex
	streams map[string][]*fakeStream
	missing map[string]bool
}

func newFakeBackend(missing ...string) *fakeBackend {
	b := &fakeBackend{
		streams: make(map[string][]*fakeStream),
		missing: make(map[string]bool),
	}
	for _, path := range missing {
		b.missing[path] = true
	}
	return b
}

func (b *fakeBackend) Open(path string) (audio.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.missing[path] {
		return nil, errors.New("file does not exist")
	}
	s := &fakeStream{path: path}
	b.streams[path] = append(b.streams[path], s)
	return s, nil
}

// Latest returns the most recent stream opened for path.
func (b *fakeBackend) Latest(path string) *fakeStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	streams := b.streams[path]
	if len(streams) == 0 {
		return nil
	}
	return streams[len(streams)-1]
}

func (b *fakeBackend) Opened(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams[path])
}

// fakeSender records notifications and dismissals.
type fakeSender struct {
	mu         sync.Mutex
	sent       []notify.Notification
	dismissals int
	err        error

	handler  notify.ActionHandler
	listened chan struct{}
}

func (s *fakeSender) Notify(ctx context.Context, msg notify.Notification) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.sent = append(s.sent, msg)
	return uint32(len(s.sent)), nil
}

func (s *fakeSender) Dismiss(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissals++
	return nil
}

func (s *fakeSender) Sent() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.sent...)
}

func (s *fakeSender) Dismissals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dismissals
}

func (s *fakeSender) Summaries() []string {
	var out []string
	for _, n := range s.Sent() {
		out = append(out, n.Summary)
	}
	return out
}

// listeningSender also reports notification actions.
type listeningSender struct {
	fakeSender
}

func (s *listeningSender) SetActionHandler(handler notify.ActionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *listeningSender) Listen(ctx context.Context) error {
	close(s.listened)
	<-ctx.Done()
	return nil
}

func (s *listeningSender) invoke(id uint32, key string) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	handler(id, key)
}
