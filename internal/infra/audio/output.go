// Package audio plays adhan recordings through the system sound device.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"
)

// SampleRate is the rate every stream is resampled to before output.
const SampleRate = beep.SampleRate(48000)

// State mirrors the lifecycle of an output device.
type State int

const (
	StateSuspended State = iota
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrOutputClosed    = errors.New("audio output is closed")
	ErrOutputSuspended = errors.New("audio output is suspended")
)

// Output is a sound sink. Play blocks until the stream is drained or ctx is
// done, in which case it returns ctx.Err().
type Output interface {
	State() State
	Resume(ctx context.Context) error
	Play(ctx context.Context, s beep.Streamer) error
	Close() error
}

// MalgoOutput writes stereo F32 frames to the default playback device.
type MalgoOutput struct {
	log *logrus.Entry

	mu    sync.Mutex
	ctx   *malgo.AllocatedContext
	state State
}

func NewMalgoOutput(log *logrus.Entry) *MalgoOutput {
	return &MalgoOutput{log: log, state: StateSuspended}
}

func (o *MalgoOutput) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Resume initialises the backend context on first use.
func (o *MalgoOutput) Resume(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateClosed:
		return ErrOutputClosed
	case StateRunning:
		return nil
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	if mctx == nil {
		return errors.New("malgo context is nil after initialization")
	}
	o.ctx = mctx
	o.state = StateRunning
	return nil
}

func (o *MalgoOutput) Play(ctx context.Context, s beep.Streamer) error {
	o.mu.Lock()
	state, mctx := o.state, o.ctx
	o.mu.Unlock()
	switch state {
	case StateClosed:
		return ErrOutputClosed
	case StateSuspended:
		return ErrOutputSuspended
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	// F32 avoids the S16->S32 conversion bug in miniaudio on PulseAudio.
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 2
	cfg.SampleRate = uint32(SampleRate)
	cfg.Alsa.NoMMap = 1

	done := make(chan struct{})
	var (
		mu       sync.Mutex
		finished bool
		samples  [][2]float64
	)

	onSamples := func(out, _ []byte, frameCount uint32) {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		if ctx.Err() != nil {
			finished = true
			close(done)
			return
		}
		if len(samples) < int(frameCount) {
			samples = make([][2]float64, frameCount)
		}
		n, ok := s.Stream(samples[:frameCount])
		if !ok || n == 0 {
			finished = true
			close(done)
			return
		}
		offset := 0
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(out[offset:], math.Float32bits(float32(samples[i][0])))
			binary.LittleEndian.PutUint32(out[offset+4:], math.Float32bits(float32(samples[i][1])))
			offset += 8
		}
		for i := offset; i < len(out); i++ {
			out[i] = 0
		}
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		return fmt.Errorf("failed to initialize audio device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start audio device: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		mu.Lock()
		finished = true
		mu.Unlock()
	}

	if err := device.Stop(); err != nil {
		o.log.WithError(err).Warn("Failed to stop audio device")
	}
	return ctx.Err()
}

func (o *MalgoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateClosed {
		return nil
	}
	o.state = StateClosed
	if o.ctx == nil {
		return nil
	}
	err := o.ctx.Uninit()
	o.ctx.Free()
	o.ctx = nil
	if err != nil {
		return fmt.Errorf("failed to release malgo context: %w", err)
	}
	return nil
}
