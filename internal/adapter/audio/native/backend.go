//go:build (linux && cgo) || windows || darwin

package native

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Available reports whether this build can produce sound.
const Available = true

// SampleRate is the speaker sample rate. Sources are resampled to it.
const SampleRate = beep.SampleRate(44100)

var decoders = map[string]func(f *os.File) (beep.StreamSeekCloser, beep.Format, error){
	".mp3":  decodeMP3,
	".wav":  decodeWAV,
	".flac": decodeFLAC,
	".ogg":  decodeVorbis,
	".oga":  decodeVorbis,
}

func decodeMP3(f *os.File) (beep.StreamSeekCloser, beep.Format, error)    { return mp3.Decode(f) }
func decodeWAV(f *os.File) (beep.StreamSeekCloser, beep.Format, error)    { return wav.Decode(f) }
func decodeFLAC(f *os.File) (beep.StreamSeekCloser, beep.Format, error)   { return flac.Decode(f) }
func decodeVorbis(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) }

// Backend plays one source at a time through the system speaker.
//
// Prepare decodes on a goroutine and reports the result on the message
// channel; the end of the stream is reported the same way. Every prepared
// source is wrapped in a Tap and registered with the capture provider under
// a fresh session handle.
//
// Thread-safety: This implementation is thread-safe.
type Backend struct {
	logger  *slog.Logger
	capture *CaptureProvider

	mu         sync.Mutex
	speakerUp  bool
	path       string
	generation uint64
	streamer   beep.StreamSeekCloser
	format     beep.Format
	ctrl       *beep.Ctrl
	handle     domain.SessionHandle
	lastHandle domain.SessionHandle
	playing    bool
	released   bool
	messages   chan domain.BackendMessage
	preparing  sync.WaitGroup
}

// NewBackend creates a speaker backend. The speaker itself is opened on the
// first prepared source.
func NewBackend(logger *slog.Logger, capture *CaptureProvider) (*Backend, error) {
	return &Backend{
		logger:   logger.With(slog.String("adapter", "native")),
		capture:  capture,
		handle:   domain.NoSession,
		messages: make(chan domain.BackendMessage, 16),
	}, nil
}

// Messages returns the channel asynchronous results are posted on.
func (b *Backend) Messages() <-chan domain.BackendMessage {
	return b.messages
}

// Reset stops playback and forgets the source.
func (b *Backend) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return domain.ErrBackendReleased
	}
	b.resetLocked()
	return nil
}

// resetLocked must be called with b.mu held.
func (b *Backend) resetLocked() {
	b.generation++
	b.path = ""
	b.playing = false

	if b.speakerUp {
		speaker.Clear()
	}
	if b.streamer != nil {
		if err := b.streamer.Close(); err != nil {
			b.logger.Debug("closing streamer failed", slog.Any("error", err))
		}
		b.streamer = nil
	}
	if b.handle.Valid() {
		b.capture.Unregister(b.handle)
	}
	b.ctrl = nil
	b.handle = domain.NoSession
}

// SetSource checks that locator names a readable file of a known format.
func (b *Backend) SetSource(locator string) error {
	path, err := domain.PathFromLocator(locator)
	if err != nil {
		return domain.NewAudioEngineError("source", locator, "bad locator", err)
	}
	if _, ok := decoders[strings.ToLower(filepath.Ext(path))]; !ok {
		return domain.NewAudioEngineError("source", locator, "cannot decode", domain.ErrUnsupportedFormat)
	}
	if _, err := os.Stat(path); err != nil {
		return domain.NewAudioEngineError("source", locator, err.Error(), domain.ErrSourceUnavailable)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return domain.ErrBackendReleased
	}
	b.path = path
	return nil
}

// Prepare decodes the source in the background and posts MessagePrepared or
// MessageError with token.
func (b *Backend) Prepare(token domain.LoadToken) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return domain.ErrBackendReleased
	}
	if b.path == "" {
		return domain.NewAudioEngineError("prepare", "", "no source set", domain.ErrSourceUnavailable)
	}

	path, gen := b.path, b.generation
	b.preparing.Add(1)
	go b.prepare(path, gen, token)
	return nil
}

func (b *Backend) prepare(path string, gen uint64, token domain.LoadToken) {
	defer b.preparing.Done()

	streamer, format, err := decode(path)
	if err != nil {
		b.post(domain.BackendMessage{Kind: domain.MessageError, Token: token, Err: err})
		return
	}

	b.mu.Lock()
	if b.released || b.generation != gen {
		b.mu.Unlock()
		_ = streamer.Close()
		b.logger.Debug("dropping superseded source", slog.String("path", path))
		return
	}

	if err := b.openSpeakerLocked(); err != nil {
		b.mu.Unlock()
		_ = streamer.Close()
		b.post(domain.BackendMessage{Kind: domain.MessageError, Token: token, Err: err})
		return
	}

	var source beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		source = beep.Resample(4, format.SampleRate, SampleRate, streamer)
	}

	tap := NewTap(source, MaxCaptureSize)
	b.lastHandle++
	b.handle = b.lastHandle
	b.capture.Register(b.handle, tap)

	b.streamer = streamer
	b.format = format
	b.ctrl = &beep.Ctrl{Streamer: tap, Paused: true}
	speaker.Play(beep.Seq(b.ctrl, beep.Callback(func() {
		// The speaker lock is held here
		go b.completed(gen, token)
	})))
	b.mu.Unlock()

	b.logger.Debug("source prepared",
		slog.String("path", path),
		slog.Int("sample_rate", int(format.SampleRate)))
	b.post(domain.BackendMessage{Kind: domain.MessagePrepared, Token: token})
}

// completed reports the end of the stream unless the source was replaced.
func (b *Backend) completed(gen uint64, token domain.LoadToken) {
	b.mu.Lock()
	if b.released || b.generation != gen {
		b.mu.Unlock()
		return
	}
	b.playing = false
	b.mu.Unlock()

	b.post(domain.BackendMessage{Kind: domain.MessageCompleted, Token: token})
}

// openSpeakerLocked must be called with b.mu held.
func (b *Backend) openSpeakerLocked() error {
	if b.speakerUp {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("open speaker: %w: %v", domain.ErrBackendUnavailable, err)
	}
	b.speakerUp = true
	return nil
}

// decode opens path with the decoder for its extension.
func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	dec, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, beep.Format{}, domain.ErrUnsupportedFormat
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	streamer, format, err := dec(f)
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return streamer, format, nil
}

// post delivers msg unless the backend is released or the channel is full.
func (b *Backend) post(msg domain.BackendMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	select {
	case b.messages <- msg:
	default:
		b.logger.Warn("backend message dropped", slog.String("kind", msg.Kind.String()))
	}
}

// Start resumes the prepared source.
func (b *Backend) Start() error {
	return b.setPaused(false)
}

// Pause pauses the prepared source.
func (b *Backend) Pause() error {
	return b.setPaused(true)
}

func (b *Backend) setPaused(paused bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return domain.ErrBackendReleased
	}
	if b.ctrl == nil {
		return domain.ErrNotPrepared
	}

	speaker.Lock()
	b.ctrl.Paused = paused
	speaker.Unlock()
	b.playing = !paused
	return nil
}

// SeekTo moves to position, clamped to the source length.
func (b *Backend) SeekTo(position time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return domain.ErrBackendReleased
	}
	if b.streamer == nil {
		return domain.ErrNotPrepared
	}

	speaker.Lock()
	defer speaker.Unlock()

	n := b.format.SampleRate.N(position)
	n = max(0, min(n, b.streamer.Len()))
	return b.streamer.Seek(n)
}

// Position returns the playback position.
func (b *Backend) Position() (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return 0, domain.ErrBackendReleased
	}
	if b.streamer == nil {
		return 0, domain.ErrNotPrepared
	}

	speaker.Lock()
	pos := b.streamer.Position()
	speaker.Unlock()
	return b.format.SampleRate.D(pos), nil
}

// Duration returns the length of the source.
func (b *Backend) Duration() (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return 0, domain.ErrBackendReleased
	}
	if b.streamer == nil {
		return 0, domain.ErrNotPrepared
	}
	return b.format.SampleRate.D(b.streamer.Len()), nil
}

// IsPlaying reports whether the source is playing.
func (b *Backend) IsPlaying() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return false, domain.ErrBackendReleased
	}
	if b.ctrl == nil {
		return false, domain.ErrNotPrepared
	}
	return b.playing, nil
}

// SessionHandle returns the output path of the prepared source.
func (b *Backend) SessionHandle() domain.SessionHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// Release stops playback, closes the speaker and the message channel.
func (b *Backend) Release() error {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return nil
	}
	b.resetLocked()
	b.released = true
	speakerUp := b.speakerUp
	b.mu.Unlock()

	b.preparing.Wait()
	if speakerUp {
		speaker.Close()
	}
	close(b.messages)

	b.logger.Debug("backend released")
	return nil
}

// Verify interface implementation
var _ ports.AudioBackend = (*Backend)(nil)
