package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream records every call made by the actor.
type fakeStream struct {
	mu     sync.Mutex
	path   string
	calls  []string
	volume float64
	err    error
	closed bool
}

func (s *fakeStream) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeStream) Play()  { s.record("play") }
func (s *fakeStream) Pause() { s.record("pause") }

func (s *fakeStream) SetVolume(volume float64) {
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
	s.record("volume")
}

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.record("close")
	return nil
}

func (s *fakeStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeStream) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// fakeBackend hands out fakeStreams, or fails for paths in failPaths.
type fakeBackend struct {
	mu        sync.Mutex
	streams   []*fakeStream
	failPaths map[string]error
	openDelay time.Duration
}

func (b *fakeBackend) Open(path string) (Stream, error) {
	if b.openDelay > 0 {
		time.Sleep(b.openDelay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.failPaths[path]; ok {
		return nil, err
	}
	s := &fakeStream{path: path}
	b.streams = append(b.streams, s)
	return s, nil
}

func (b *fakeBackend) Streams() []*fakeStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeStream(nil), b.streams...)
}

func newTestActor(t *testing.T, backend Backend, opts ...Option) *Actor {
	t.Helper()
	opts = append([]Option{WithPollInterval(time.Millisecond)}, opts...)
	a := NewActor("test", backend, nil, opts...)
	t.Cleanup(a.Shutdown)
	return a
}

func waitForPhase(t *testing.T, a *Actor, phase Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return a.Status().Phase == phase
	}, time.Second, time.Millisecond, "actor never reached %s (last %s)", phase, a.Status().Phase)
}

// flush waits until every command sent before it has been applied, using a
// volume change as a marker.
func flush(t *testing.T, a *Actor, marker float64) {
	t.Helper()
	a.SetVolume(marker)
	require.Eventually(t, func() bool {
		return a.Status().Volume == marker
	}, time.Second, time.Millisecond)
}

func TestActor_StartsUninitialized(t *testing.T) {
	a := newTestActor(t, &fakeBackend{})

	status := a.Status()
	assert.Equal(t, PhaseUninitialized, status.Phase)
	assert.Equal(t, 1.0, status.Volume)
	assert.NoError(t, status.Err)
	assert.Equal(t, "test", a.Name())
}

func TestActor_PlayPauseBeforeInitialize(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestActor(t, backend)

	for i := 0; i < 10; i++ {
		a.Play()
		a.Pause()
	}
	a.Play()
	flush(t, a, 0.5)

	assert.Equal(t, PhaseUninitialized, a.Status().Phase)
	assert.Empty(t, backend.Streams())

	a.Initialize("bgm.mp3")
	waitForPhase(t, a, PhaseIdle)
}

func TestActor_InitializeLeavesStreamPaused(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestActor(t, backend, WithVolume(0.7))

	a.Initialize("bgm.mp3")
	waitForPhase(t, a, PhaseIdle)

	streams := backend.Streams()
	require.Len(t, streams, 1)
	assert.Equal(t, []string{"volume", "pause"}, streams[0].Calls())
	assert.Equal(t, 0.7, streams[0].Volume())
	assert.Equal(t, "bgm.mp3", a.Status().Path)
}

func TestActor_PlayAndPauseTransitions(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestActor(t, backend)

	a.Initialize("bgm.mp3")
	a.Play()
	waitForPhase(t, a, PhasePlaying)

	a.Pause()
	waitForPhase(t, a, PhaseIdle)

	stream := backend.Streams()[0]
	assert.Equal(t, []string{"volume", "pause", "play", "pause"}, stream.Calls())
}

func TestActor_PauseIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestActor(t, backend)

	a.Initialize("bgm.mp3")
	a.Play()
	a.Pause()
	a.Pause()
	flush(t, a, 0.9)

	assert.Equal(t, PhaseIdle, a.Status().Phase)
	stream := backend.Streams()[0]
	assert.Equal(t, []string{"volume", "pause", "play", "pause", "volume"}, stream.Calls())
}

func TestActor_PlayIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestActor(t, backend)

	a.Initialize("bgm.mp3")
	a.Play()
	a.Play()
	flush(t, a, 0.9)

	assert.Equal(t, PhasePlaying, a.Status().Phase)
	stream := backend.Streams()[0]
	assert.Equal(t, []string{"volume", "pause", "play", "volume"}, stream.Calls())
}

func TestActor_SetVolumeAppliesInAnyPhase(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestActor(t, backend)

	// Uninitialized: remembered, applied on initialize
	a.SetVolume(0.25)
	a.Initialize("bgm.mp3")
	waitForPhase(t, a, PhaseIdle)
	stream := backend.Streams()[0]
	assert.Equal(t, 0.25, stream.Volume())

	a.Play()
	flush(t, a, 0.6)
	assert.Equal(t, 0.6, stream.Volume())
	assert.Equal(t, PhasePlaying, a.Status().Phase)
}

func TestActor_SetVolumeClamps(t *testing.T) {
	a := newTestActor(t, &fakeBackend{})

	a.SetVolume(5)
	require.Eventually(t, func() bool { return a.Status().Volume == MaxVolume }, time.Second, time.Millisecond)

	a.SetVolume(-1)
	require.Eventually(t, func() bool { return a.Status().Volume == 0 }, time.Second, time.Millisecond)
}

func TestActor_CommandsAppliedInOrder(t *testing.T) {
	backend := &fakeBackend{openDelay: 20 * time.Millisecond}
	a := newTestActor(t, backend)

	// Sends return immediately even though Open is slow
	start := time.Now()
	a.Initialize("bgm.mp3")
	a.Play()
	a.SetVolume(0.3)
	a.Pause()
	a.Play()
	assert.Less(t, time.Since(start), 20*time.Millisecond)

	flush(t, a, 0.4)
	stream := backend.Streams()[0]
	assert.Equal(t, []string{"volume", "pause", "play", "volume", "pause", "play", "volume"}, stream.Calls())
	assert.Equal(t, PhasePlaying, a.Status().Phase)
}

func TestActor_InitializeFailure(t *testing.T) {
	cause := errors.New("no such device")
	backend := &fakeBackend{failPaths: map[string]error{"missing.mp3": cause}}
	a := newTestActor(t, backend)

	a.Initialize("missing.mp3")
	waitForPhase(t, a, PhaseFailed)

	status := a.Status()
	assert.ErrorIs(t, status.Err, ErrInitializationFailed)
	assert.ErrorIs(t, status.Err, cause)
	assert.Contains(t, status.Err.Error(), "missing.mp3")

	// Play is ignored, the actor stays failed
	a.Play()
	flush(t, a, 0.5)
	assert.Equal(t, PhaseFailed, a.Status().Phase)

	// A later successful initialize recovers
	a.Initialize("bgm.mp3")
	waitForPhase(t, a, PhaseIdle)
	assert.NoError(t, a.Status().Err)
}

func TestActor_ReinitializeReleasesPreviousStream(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestActor(t, backend)

	a.Initialize("first.mp3")
	a.Play()
	waitForPhase(t, a, PhasePlaying)

	a.Initialize("second.mp3")
	require.Eventually(t, func() bool { return len(backend.Streams()) == 2 }, time.Second, time.Millisecond)
	waitForPhase(t, a, PhaseIdle)

	streams := backend.Streams()
	assert.True(t, streams[0].Closed())
	assert.False(t, streams[1].Closed())
	assert.Equal(t, "second.mp3", a.Status().Path)
}

func TestActor_StreamFailureDetectedOnIdlePoll(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestActor(t, backend)

	a.Initialize("bgm.mp3")
	a.Play()
	waitForPhase(t, a, PhasePlaying)

	backend.Streams()[0].setErr(errors.New("corrupt frame"))
	waitForPhase(t, a, PhaseFailed)

	assert.True(t, backend.Streams()[0].Closed())
	assert.ErrorIs(t, a.Status().Err, ErrInitializationFailed)
}

func TestActor_ShutdownReleasesAndJoins(t *testing.T) {
	backend := &fakeBackend{}
	a := NewActor("music", backend, nil, WithPollInterval(time.Millisecond))

	a.Initialize("bgm.mp3")
	a.Play()
	waitForPhase(t, a, PhasePlaying)

	a.Shutdown()

	assert.Equal(t, PhaseTerminated, a.Status().Phase)
	assert.True(t, backend.Streams()[0].Closed())

	// Second shutdown returns immediately
	done := make(chan struct{})
	go func() {
		a.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Shutdown blocked")
	}
}

func TestActor_SendAfterShutdownIsDropped(t *testing.T) {
	backend := &fakeBackend{}
	a := NewActor("alert", backend, nil)
	a.Shutdown()

	assert.NotPanics(t, func() {
		a.Initialize("alert.mp3")
		a.Play()
		a.Pause()
		a.SetVolume(0.1)
	})
	assert.Empty(t, backend.Streams())
	assert.Equal(t, PhaseTerminated, a.Status().Phase)
}

func TestActor_FullMailboxDropsWithoutBlocking(t *testing.T) {
	backend := &fakeBackend{openDelay: 100 * time.Millisecond}
	a := newTestActor(t, backend, WithMailboxSize(2))

	a.Initialize("bgm.mp3")
	// Give the loop time to pick up Initialize and block in Open
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 10; i++ {
		a.Play()
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	waitForPhase(t, a, PhasePlaying)
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseUninitialized, "uninitialized"},
		{PhaseIdle, "idle"},
		{PhasePlaying, "playing"},
		{PhaseFailed, "failed"},
		{PhaseTerminated, "terminated"},
		{Phase(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.phase.String())
	}
}
