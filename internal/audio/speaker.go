package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"github.com/treefix50/soundboard/internal/clip"
	"github.com/treefix50/soundboard/internal/playback"
)

const (
	DefaultSampleRate = 44100
	DefaultBuffer     = 100 * time.Millisecond
	resampleQuality   = 4
)

// Speaker plays files on the default output device. The device is opened
// on first use.
type Speaker struct {
	rate    beep.SampleRate
	buffer  time.Duration
	logger  *slog.Logger
	convert ConvertFunc

	once    sync.Once
	initErr error
}

func NewSpeaker(sampleRate int, buffer time.Duration, logger *slog.Logger) *Speaker {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{rate: beep.SampleRate(sampleRate), buffer: buffer, logger: logger}
}

// WithConverter makes s convert files it cannot decode with fn.
func (s *Speaker) WithConverter(fn ConvertFunc) *Speaker {
	s.convert = fn
	return s
}

func (s *Speaker) init() error {
	s.once.Do(func() {
		s.initErr = speaker.Init(s.rate, s.rate.N(s.buffer))
		if s.initErr != nil {
			s.initErr = fmt.Errorf("open audio device: %w", s.initErr)
			return
		}
		s.logger.Info("audio device opened", slog.Int("sample_rate", int(s.rate)))
	})
	return s.initErr
}

// Play implements playback.AudioOutput.
func (s *Speaker) Play(file clip.AudioFile, volume float64, onEnd func()) (playback.AudioHandle, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	stream, format, err := open(file, s.convert)
	if err != nil {
		return nil, err
	}

	var src beep.Streamer = stream
	if format.SampleRate != s.rate {
		src = beep.Resample(resampleQuality, format.SampleRate, s.rate, stream)
	}
	gain := &effects.Gain{Streamer: src, Gain: clampVolume(volume) - 1}

	h := newHandle(stream, onEnd)
	h.ctrl = &beep.Ctrl{Streamer: gain}
	h.withMixer = func(fn func()) {
		speaker.Lock()
		defer speaker.Unlock()
		fn()
	}
	speaker.Play(beep.Seq(h.ctrl, beep.Callback(func() { go h.finish() })))
	close(h.started)

	s.logger.Debug("playing audio file",
		slog.String("id", file.ID),
		slog.String("name", file.Name),
		slog.Float64("volume", volume),
	)
	return h, nil
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type handle struct {
	stream  beep.StreamSeekCloser
	ctrl    *beep.Ctrl
	onEnd   func()
	started chan struct{}

	// withMixer runs fn with the mixer locked.
	withMixer func(fn func())

	mu   sync.Mutex
	done bool
}

func newHandle(stream beep.StreamSeekCloser, onEnd func()) *handle {
	return &handle{
		stream:    stream,
		onEnd:     onEnd,
		started:   make(chan struct{}),
		withMixer: func(fn func()) { fn() },
	}
}

// finish runs once the stream drained on its own.
func (h *handle) finish() {
	<-h.started
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	h.mu.Unlock()

	h.stream.Close()
	if h.onEnd != nil {
		h.onEnd()
	}
}

// Stop silences the stream without calling onEnd.
func (h *handle) Stop() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	h.mu.Unlock()

	if h.ctrl != nil {
		h.withMixer(func() {
			h.ctrl.Streamer = nil
		})
	}
	h.stream.Close()
}
