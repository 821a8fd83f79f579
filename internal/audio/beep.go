package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Default device settings.
const (
	DefaultSampleRate     = beep.SampleRate(44100)
	DefaultBufferDuration = 100 * time.Millisecond
)

// resampleQuality is passed to beep.Resample when a file's rate differs from the device.
const resampleQuality = 4

// output is the audio device. beep's speaker is a process-wide singleton,
// so the backend reference-counts it across streams.
type output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
	Close()
}

type speakerOutput struct{}

func (speakerOutput) Init(sampleRate beep.SampleRate, bufferSize int) error {
	return speaker.Init(sampleRate, bufferSize)
}

func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }
func (speakerOutput) Close()                  { speaker.Close() }

// BeepBackend decodes WAV, OGG and MP3 files with beep and mixes them on the
// system speaker.
type BeepBackend struct {
	mu     sync.Mutex
	logger *slog.Logger
	out    output

	sampleRate beep.SampleRate
	buffer     time.Duration

	// Number of open streams holding the speaker
	refs int
}

// NewBeepBackend creates a backend that opens the speaker at sampleRate with
// the given buffer length. Zero values select the defaults.
func NewBeepBackend(sampleRate int, buffer time.Duration, logger *slog.Logger) *BeepBackend {
	if logger == nil {
		logger = slog.Default()
	}

	rate := beep.SampleRate(sampleRate)
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if buffer <= 0 {
		buffer = DefaultBufferDuration
	}

	return &BeepBackend{
		logger:     logger,
		out:        speakerOutput{},
		sampleRate: rate,
		buffer:     buffer,
	}
}

// Open decodes path into an infinitely looping source, attaches it to the
// speaker and returns it paused at volume 1.0.
func (b *BeepBackend) Open(path string) (Stream, error) {
	source, format, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	looped, err := beep.Loop2(source)
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("failed to loop sound: %w", err)
	}

	if err := b.acquire(); err != nil {
		_ = source.Close()
		return nil, err
	}

	var streamer beep.Streamer = looped
	if format.SampleRate != b.sampleRate {
		streamer = beep.Resample(resampleQuality, format.SampleRate, b.sampleRate, streamer)
	}

	ctrl := &beep.Ctrl{Streamer: streamer, Paused: true}
	volume := &effects.Volume{Streamer: ctrl, Base: volumeBase}

	b.out.Play(volume)

	b.logger.Debug("sound opened", "path", path, "sample_rate", format.SampleRate, "channels", format.NumChannels)

	return &beepStream{
		backend: b,
		source:  source,
		ctrl:    ctrl,
		volume:  volume,
	}, nil
}

// acquire initializes the speaker for the first open stream.
func (b *BeepBackend) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refs == 0 {
		if err := b.out.Init(b.sampleRate, b.sampleRate.N(b.buffer)); err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		b.logger.Debug("speaker initialized", "sample_rate", b.sampleRate, "buffer", b.buffer)
	}
	b.refs++
	return nil
}

// release closes the speaker once the last stream is gone.
func (b *BeepBackend) release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refs == 0 {
		return
	}
	b.refs--
	if b.refs == 0 {
		b.out.Close()
		b.logger.Debug("speaker closed")
	}
}

// beepStream is the Stream returned by BeepBackend. Fields read by the
// speaker goroutine are only mutated under the speaker lock.
type beepStream struct {
	backend *BeepBackend
	source  beep.StreamSeekCloser
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	closed  bool
}

func (s *beepStream) Play() {
	s.backend.out.Lock()
	s.ctrl.Paused = false
	s.backend.out.Unlock()
}

func (s *beepStream) Pause() {
	s.backend.out.Lock()
	s.ctrl.Paused = true
	s.backend.out.Unlock()
}

func (s *beepStream) SetVolume(volume float64) {
	volume = clampVolume(volume)

	s.backend.out.Lock()
	s.volume.Volume = volumeToExponent(volume)
	s.volume.Silent = volume == 0
	s.backend.out.Unlock()

	s.backend.logger.Debug("stream volume set", "volume", volume, "db", volumeToDecibels(volume))
}

func (s *beepStream) Err() error {
	s.backend.out.Lock()
	defer s.backend.out.Unlock()
	return s.source.Err()
}

// Close detaches the stream from the speaker. A streamer with no source
// reports it is drained, which makes the mixer drop it.
func (s *beepStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.backend.out.Lock()
	s.ctrl.Streamer = nil
	s.backend.out.Unlock()

	err := s.source.Close()
	s.backend.release()
	return err
}

// fileSource closes the decoder and the file underneath it.
type fileSource struct {
	beep.StreamSeekCloser
	file *os.File
}

func (s *fileSource) Close() error {
	err := s.StreamSeekCloser.Close()
	// Some decoders already close the reader they were given
	_ = s.file.Close()
	return err
}

// decodeFile opens and decodes a sound file based on its extension.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".ogg", ".mp3":
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open sound file: %w", err)
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	}

	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode sound: %w", err)
	}

	return &fileSource{StreamSeekCloser: streamer, file: f}, format, nil
}
